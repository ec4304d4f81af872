package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	timeOrderTag  = "timeorder"
	timeOrderText = "end_time must be after start_time"

	dueDateTag  = "duedate"
	dueDateText = "a due date is required"
)

// InitValidators registers the schedule struct validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(subjectStructValidation, NewSubject{}, UpdateSubject{})
	validate.RegisterStructValidation(taskStructValidation, NewTask{})

	core.RegisterCustomTranslation(validate, translator, timeOrderTag, timeOrderText)
	core.RegisterCustomTranslation(validate, translator, dueDateTag, dueDateText)
}

// subjectStructValidation enforces StartTime < EndTime on subject payloads.
// The check lives here, not in storage: the gateway accepts whatever it is
// handed.
func subjectStructValidation(sl validator.StructLevel) {
	var start, end TimeOfDay
	switch sub := sl.Current().Interface().(type) {
	case NewSubject:
		start, end = sub.StartTime, sub.EndTime
	case UpdateSubject:
		if sub.StartTime == nil || sub.EndTime == nil {
			return
		}
		start, end = *sub.StartTime, *sub.EndTime
	default:
		return
	}

	if start.IsZero() && end.IsZero() {
		sl.ReportError(start, "start_time", "StartTime", "required", "")
		sl.ReportError(end, "end_time", "EndTime", "required", "")
		return
	}
	if !start.Before(end) {
		sl.ReportError(end, "end_time", "EndTime", timeOrderTag, "")
	}
}

func taskStructValidation(sl validator.StructLevel) {
	if nt, ok := sl.Current().Interface().(NewTask); ok {
		if nt.DueDate.IsZero() {
			sl.ReportError(nt.DueDate, "due_date", "DueDate", dueDateTag, "")
		}
	}
}
