package schedule

// DayState classifies a day's occurrences for calendar-cell styling.
type DayState string

const (
	StateEmpty         DayState = "empty"
	StateClass         DayState = "class"
	StatePendingTask   DayState = "pending-task"
	StateCompletedTask DayState = "completed-task"
	StateMixed         DayState = "mixed"
)

// DayBucket is the set of occurrences falling on one calendar day plus its
// derived visual state.
type DayBucket struct {
	Date        Date         `json:"date"`
	Occurrences []Occurrence `json:"occurrences"`
	State       DayState     `json:"state"`
}

// OccurrencesOn filters occurrences by calendar-day equality.
func OccurrencesOn(occs []Occurrence, date Date) []Occurrence {
	out := make([]Occurrence, 0)
	for _, occ := range occs {
		if occ.Date.Equal(date) {
			out = append(out, occ)
		}
	}
	return out
}

// Classify derives the visual state of one day's occurrence set.
// Precedence, first match wins:
//  1. subject + incomplete task   -> mixed
//  2. subject only                -> class
//  3. incomplete task only        -> pending-task
//  4. only completed tasks        -> completed-task
//  5. nothing                     -> empty
// Note a day holding a class and only finished tasks is "class", not "mixed".
func Classify(occs []Occurrence) DayState {
	var hasSubject, hasPendingTask, hasCompletedTask bool
	for _, occ := range occs {
		switch occ.Kind {
		case KindSubject:
			hasSubject = true
		case KindTask:
			if occ.Task.IsCompleted {
				hasCompletedTask = true
			} else {
				hasPendingTask = true
			}
		}
	}

	switch {
	case hasSubject && hasPendingTask:
		return StateMixed
	case hasSubject:
		return StateClass
	case hasPendingTask:
		return StatePendingTask
	case hasCompletedTask:
		return StateCompletedTask
	}
	return StateEmpty
}

// BucketRange groups occurrences into one classified DayBucket per day of the
// closed range [rangeStart, rangeEnd].
func BucketRange(occs []Occurrence, rangeStart, rangeEnd Date) []DayBucket {
	if rangeEnd.Before(rangeStart) {
		return []DayBucket{}
	}
	buckets := make([]DayBucket, 0)
	for d := rangeStart; !d.After(rangeEnd); d = d.AddDays(1) {
		dayOccs := OccurrencesOn(occs, d)
		buckets = append(buckets, DayBucket{
			Date:        d,
			Occurrences: dayOccs,
			State:       Classify(dayOccs),
		})
	}
	return buckets
}
