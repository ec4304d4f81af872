package schedule

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

var errInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Date is a calendar date with no time-of-day and no timezone.
// Tasks are due on a calendar day, not at an instant: converting a date
// string through a UTC timestamp shifts it to the previous day in
// negative-UTC-offset locales, so Date only ever deals in year/month/day
// components and anchors to local midnight when an instant is needed.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a "YYYY-MM-DD" string as a plain calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return Date{}, errInvalidDate
	}
	return DateOf(t), nil
}

// Time returns the instant of midnight on d in loc (local midnight when loc is nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday { return d.Time(nil).Weekday() }

func (d Date) AddDays(n int) Date { return DateOf(d.Time(nil).AddDate(0, 0, n)) }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Equal(o Date) bool { return d == o }

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool { return o.Before(d) }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return errInvalidDate
	}
	*d, err = ParseDate(s)
	return err
}

// UnmarshalParam binds a query or path parameter.
func (d *Date) UnmarshalParam(src string) error {
	dd, err := ParseDate(src)
	if err != nil {
		return err
	}
	*d = dd
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a DATE column. The driver hands dates back as a time.Time at
// midnight in its session timezone; only the date components are taken,
// without any location conversion that could roll the day over.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date{Year: v.Year(), Month: v.Month(), Day: v.Day()}
		return nil
	case []byte:
		dd, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = dd
		return nil
	case string:
		dd, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = dd
		return nil
	case nil:
		*d = Date{}
		return nil
	}
	return errors.Errorf("cannot scan %T into Date", src)
}

// TimeOfDay is a wall-clock "HH:MM" time with no date attached.
type TimeOfDay struct {
	Hour   int
	Minute int
}

var errInvalidTimeOfDay = errors.New("invalid time, expected HH:MM")

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return TimeOfDay{}, errInvalidTimeOfDay
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, errInvalidTimeOfDay
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, errInvalidTimeOfDay
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) Before(o TimeOfDay) bool { return t.Minutes() < o.Minutes() }

func (t TimeOfDay) IsZero() bool { return t == TimeOfDay{} }

// MinutesUntil returns the whole minutes remaining from `now`'s wall clock
// until t on the same day; negative once t has passed.
func (t TimeOfDay) MinutesUntil(now time.Time) int {
	return t.Minutes() - (now.Hour()*60 + now.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return errInvalidTimeOfDay
	}
	*t, err = ParseTimeOfDay(s)
	return err
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", t.Hour, t.Minute), nil
}

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = TimeOfDay{Hour: v.Hour(), Minute: v.Minute()}
		return nil
	case []byte:
		tt, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = tt
		return nil
	case string:
		tt, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = tt
		return nil
	case nil:
		*t = TimeOfDay{}
		return nil
	}
	return errors.Errorf("cannot scan %T into TimeOfDay", src)
}
