package alert

import (
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return "unknown"
}

// TaskPriority mirrors a task's own priority onto its alert.
func TaskPriority(p int) Priority {
	switch p {
	case schedule.PriorityHigh:
		return PriorityHigh
	case schedule.PriorityMedium:
		return PriorityMedium
	}
	return PriorityLow
}

type Kind string

const (
	KindClassSoon   Kind = "class-starting-soon"
	KindTaskDue     Kind = "task-due-today"
	KindDueTomorrow Kind = "tasks-due-tomorrow"
)

// Alert is a single transient notification addressed to one user.
type Alert struct {
	Kind     Kind
	Priority Priority
	Title    string
	Body     string
	User     user.User
}

// Notifier is any sink that can surface alerts to users.
type Notifier interface {
	Notify(alerts ...Alert)
}
