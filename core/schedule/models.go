package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

// Task priorities
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// DefaultColor is assigned to subjects created without an explicit color.
const DefaultColor = "#2563eb"

// Subject is a weekly-recurring class: it happens every week on DayOfWeek
// between StartTime and EndTime, indefinitely, until deleted.
type Subject struct {
	ID        string       `json:"id"`
	UserID    string       `json:"-"`
	Name      string       `json:"name"`
	DayOfWeek time.Weekday `json:"day_of_week"` // Sunday = 0
	StartTime TimeOfDay    `json:"start_time"`
	EndTime   TimeOfDay    `json:"end_time"`
	Location  string       `json:"location,omitempty"`
	Color     string       `json:"color"`
	CreatedAt time.Time    `json:"created_at"` // UTC
	UpdatedAt time.Time    `json:"updated_at"` // UTC
}

// Task is a one-off piece of work due on a calendar day. It never recurs.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	SubjectID   string    `json:"subject_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     Date      `json:"due_date"`
	Priority    int       `json:"priority"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC

	// joined subject display fields, set by list queries
	SubjectName  string `json:"subject_name,omitempty"`
	SubjectColor string `json:"subject_color,omitempty"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name      string    `json:"name" validate:"required"`
	DayOfWeek *int      `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Location  string    `json:"location"`
	Color     string    `json:"color" validate:"omitempty,hexcolor"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Location = core.CleanString(ns.Location)
	ns.Color = core.CleanString(ns.Color, true /* lower */)
	return validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an existing
// Subject. Empty fields keep the original values.
type UpdateSubject struct {
	Name      string     `json:"name"`
	DayOfWeek *int       `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	StartTime *TimeOfDay `json:"start_time"`
	EndTime   *TimeOfDay `json:"end_time"`
	Location  *string    `json:"location"`
	Color     string     `json:"color" validate:"omitempty,hexcolor"`
}

func (us *UpdateSubject) Validate(orig Subject, validate *validator.Validate) error {
	name := core.CleanString(us.Name)
	if name == "" {
		name = orig.Name
	}
	us.Name = name

	if us.DayOfWeek == nil {
		dow := int(orig.DayOfWeek)
		us.DayOfWeek = &dow
	}
	if us.StartTime == nil {
		st := orig.StartTime
		us.StartTime = &st
	}
	if us.EndTime == nil {
		et := orig.EndTime
		us.EndTime = &et
	}
	us.Color = core.CleanString(us.Color, true /* lower */)
	return validate.Struct(us)
}

// NewTask contains information needed to create a new Task.
// Tasks start out incomplete.
type NewTask struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	SubjectID   string `json:"subject_id" validate:"omitempty,uuid4"`
	DueDate     Date   `json:"due_date"`
	Priority    int    `json:"priority" validate:"required,min=1,max=3"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing
// Task. Completion state is not edited here; see Service.ToggleTask.
type UpdateTask struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	SubjectID   *string `json:"subject_id" validate:"omitempty,uuid4"`
	DueDate     Date    `json:"due_date"`
	Priority    int     `json:"priority" validate:"omitempty,min=1,max=3"`
}

func (ut *UpdateTask) Validate(orig Task, validate *validator.Validate) error {
	title := core.CleanString(ut.Title)
	if title == "" {
		title = orig.Title
	}
	ut.Title = title

	if ut.DueDate.IsZero() {
		ut.DueDate = orig.DueDate
	}
	if ut.Priority == 0 {
		ut.Priority = orig.Priority
	}
	return validate.Struct(ut)
}

// SubjectFilter applies AND operation on available fields.
// Search does a case-insensitive match on Subject.Name or Subject.Location.
type SubjectFilter struct {
	DayOfWeek *int   `query:"day_of_week"`
	Search    string `query:"search"`
}

func (sf *SubjectFilter) IsEmpty() bool {
	return sf.DayOfWeek == nil && sf.Search == ""
}

func (sf *SubjectFilter) Clean() {
	sf.Search = core.CleanString(sf.Search)
}

// TaskFilter applies AND operation on available fields.
// Search does a case-insensitive match on Task.Title or Task.Description.
type TaskFilter struct {
	DueFrom     Date   `query:"due_from"`
	DueTo       Date   `query:"due_to"`
	IsCompleted *bool  `query:"is_completed"`
	SubjectID   string `query:"subject_id"`
	Search      string `query:"search"`
}

func (tf *TaskFilter) IsEmpty() bool {
	return tf.DueFrom.IsZero() && tf.DueTo.IsZero() && tf.IsCompleted == nil &&
		tf.SubjectID == "" && tf.Search == ""
}

func (tf *TaskFilter) Clean() {
	tf.Search = core.CleanString(tf.Search)
}
