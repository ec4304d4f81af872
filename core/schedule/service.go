package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTaskNotFound    = errors.New("task not found")
)

type (
	// SubjectRepository persists subjects. Every call is scoped to the owning
	// user: rows belonging to other users are invisible (ErrSubjectNotFound).
	SubjectRepository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		// QuerySubjects applies AND operation on available SubjectFilter fields.
		QuerySubjects(ctx context.Context, userID string, filter *SubjectFilter, ordering ...core.DBOrdering) ([]Subject, error)
		GetSubject(ctx context.Context, userID, id string) (Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		// DeleteSubjectsByID detaches dependent tasks (their SubjectID is
		// cleared) without deleting them.
		DeleteSubjectsByID(ctx context.Context, userID string, ids ...string) (int, error)
	}

	// TaskRepository persists tasks, scoped to the owning user like
	// SubjectRepository.
	TaskRepository interface {
		CreateTask(ctx context.Context, task Task) (Task, error)
		// QueryTasks applies AND operation on available TaskFilter fields.
		QueryTasks(ctx context.Context, userID string, filter *TaskFilter, ordering ...core.DBOrdering) ([]Task, error)
		GetTask(ctx context.Context, userID, id string) (Task, error)
		UpdateTask(ctx context.Context, task Task) (Task, error)
		// SetTaskCompleted updates the completion flag and UpdatedAt only.
		SetTaskCompleted(ctx context.Context, userID, id string, completed bool, updatedAt time.Time) (Task, error)
		DeleteTasksByID(ctx context.Context, userID string, ids ...string) (int, error)
	}

	Service struct {
		subjectRepo SubjectRepository
		taskRepo    TaskRepository
	}

	// Dashboard summarizes a user's day: today's classes in start-time order
	// and pending tasks due within the next week.
	Dashboard struct {
		ClassesToday   []Subject `json:"classes_today"`
		UpcomingTasks  []Task    `json:"upcoming_tasks"`
		SubjectCount   int       `json:"subject_count"`
		PendingCount   int       `json:"pending_count"`
		CompletedCount int       `json:"completed_count"`
	}
)

func NewService(subjectRepo SubjectRepository, taskRepo TaskRepository) *Service {
	return &Service{
		subjectRepo: subjectRepo,
		taskRepo:    taskRepo,
	}
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, userID string, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	color := ns.Color
	if color == "" {
		color = DefaultColor
	}
	sub := Subject{
		UserID:    userID,
		Name:      ns.Name,
		DayOfWeek: time.Weekday(*ns.DayOfWeek),
		StartTime: ns.StartTime,
		EndTime:   ns.EndTime,
		Location:  ns.Location,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.subjectRepo.CreateSubject(ctx, sub)
}

func (svc *Service) QuerySubjects(ctx context.Context, userID string, filter *SubjectFilter, ordering ...core.DBOrdering) ([]Subject, error) {
	return svc.subjectRepo.QuerySubjects(ctx, userID, filter, ordering...)
}

func (svc *Service) GetSubject(ctx context.Context, userID, id string) (Subject, error) {
	return svc.subjectRepo.GetSubject(ctx, userID, id)
}

func (svc *Service) UpdateSubject(ctx context.Context, orig Subject, us UpdateSubject) (Subject, error) {
	sub := orig
	sub.Name = us.Name
	sub.DayOfWeek = time.Weekday(*us.DayOfWeek)
	sub.StartTime = *us.StartTime
	sub.EndTime = *us.EndTime
	if us.Location != nil {
		sub.Location = *us.Location
	}
	if us.Color != "" {
		sub.Color = us.Color
	}
	sub.UpdatedAt = time.Now().UTC()
	return svc.subjectRepo.UpdateSubject(ctx, sub)
}

func (svc *Service) DeleteSubjects(ctx context.Context, userID string, ids ...string) error {
	_, err := svc.subjectRepo.DeleteSubjectsByID(ctx, userID, ids...)
	return err
}

// Tasks

func (svc *Service) CreateTask(ctx context.Context, userID string, nt NewTask) (Task, error) {
	if nt.SubjectID != "" {
		// the referenced subject must exist and belong to the same user
		if _, err := svc.subjectRepo.GetSubject(ctx, userID, nt.SubjectID); err != nil {
			if err == ErrSubjectNotFound {
				return Task{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
			}
			return Task{}, err
		}
	}

	now := time.Now().UTC()
	task := Task{
		UserID:      userID,
		SubjectID:   nt.SubjectID,
		Title:       nt.Title,
		Description: nt.Description,
		DueDate:     nt.DueDate,
		Priority:    nt.Priority,
		IsCompleted: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.taskRepo.CreateTask(ctx, task)
}

func (svc *Service) QueryTasks(ctx context.Context, userID string, filter *TaskFilter, ordering ...core.DBOrdering) ([]Task, error) {
	return svc.taskRepo.QueryTasks(ctx, userID, filter, ordering...)
}

func (svc *Service) GetTask(ctx context.Context, userID, id string) (Task, error) {
	return svc.taskRepo.GetTask(ctx, userID, id)
}

func (svc *Service) UpdateTask(ctx context.Context, orig Task, ut UpdateTask) (Task, error) {
	task := orig
	task.Title = ut.Title
	if ut.Description != nil {
		task.Description = *ut.Description
	}
	if ut.SubjectID != nil {
		if *ut.SubjectID != "" {
			if _, err := svc.subjectRepo.GetSubject(ctx, task.UserID, *ut.SubjectID); err != nil {
				if err == ErrSubjectNotFound {
					return Task{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
				}
				return Task{}, err
			}
		}
		task.SubjectID = *ut.SubjectID
	}
	task.DueDate = ut.DueDate
	task.Priority = ut.Priority
	task.UpdatedAt = time.Now().UTC()
	return svc.taskRepo.UpdateTask(ctx, task)
}

// ToggleTask flips a task's completion flag, touching UpdatedAt and nothing
// else. Toggling twice restores the original state.
func (svc *Service) ToggleTask(ctx context.Context, userID, id string) (Task, error) {
	task, err := svc.taskRepo.GetTask(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}
	return svc.taskRepo.SetTaskCompleted(ctx, userID, id, !task.IsCompleted, time.Now().UTC())
}

func (svc *Service) DeleteTasks(ctx context.Context, userID string, ids ...string) error {
	_, err := svc.taskRepo.DeleteTasksByID(ctx, userID, ids...)
	return err
}

// Calendar views

// MonthView materializes the user's calendar for a whole month: one
// classified DayBucket per day. Tasks are fetched pre-filtered with the same
// range handed to Materialize.
func (svc *Service) MonthView(ctx context.Context, userID string, year int, month time.Month) ([]DayBucket, error) {
	rangeStart := NewDate(year, month, 1)
	// day 0 of the next month is the last day of this one
	rangeEnd := DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local))
	return svc.rangeView(ctx, userID, rangeStart, rangeEnd)
}

// Day returns a single day's classified bucket.
func (svc *Service) Day(ctx context.Context, userID string, date Date) (DayBucket, error) {
	buckets, err := svc.rangeView(ctx, userID, date, date)
	if err != nil {
		return DayBucket{}, err
	}
	return buckets[0], nil
}

func (svc *Service) rangeView(ctx context.Context, userID string, rangeStart, rangeEnd Date) ([]DayBucket, error) {
	subjects, err := svc.subjectRepo.QuerySubjects(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	tasks, err := svc.taskRepo.QueryTasks(ctx, userID, &TaskFilter{DueFrom: rangeStart, DueTo: rangeEnd})
	if err != nil {
		return nil, err
	}
	occs := Materialize(subjects, tasks, rangeStart, rangeEnd)
	return BucketRange(occs, rangeStart, rangeEnd), nil
}

// Dashboard assembles the landing-page summary for `now`'s calendar day.
func (svc *Service) Dashboard(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	today := DateOf(now)
	dow := int(today.Weekday())

	subjects, err := svc.subjectRepo.QuerySubjects(ctx, userID, nil)
	if err != nil {
		return Dashboard{}, err
	}

	classesToday := make([]Subject, 0)
	for _, sub := range subjects {
		if int(sub.DayOfWeek) == dow {
			classesToday = append(classesToday, sub)
		}
	}
	sort.Slice(classesToday, func(i, j int) bool {
		return classesToday[i].StartTime.Before(classesToday[j].StartTime)
	})

	pending := false
	upcoming, err := svc.taskRepo.QueryTasks(ctx, userID, &TaskFilter{
		DueFrom:     today,
		DueTo:       today.AddDays(7),
		IsCompleted: &pending,
	})
	if err != nil {
		return Dashboard{}, err
	}
	// due date first, then priority high to low
	sort.Slice(upcoming, func(i, j int) bool {
		if !upcoming[i].DueDate.Equal(upcoming[j].DueDate) {
			return upcoming[i].DueDate.Before(upcoming[j].DueDate)
		}
		return upcoming[i].Priority > upcoming[j].Priority
	})

	allTasks, err := svc.taskRepo.QueryTasks(ctx, userID, nil)
	if err != nil {
		return Dashboard{}, err
	}
	var pendingCount, completedCount int
	for _, task := range allTasks {
		if task.IsCompleted {
			completedCount++
		} else {
			pendingCount++
		}
	}

	return Dashboard{
		ClassesToday:   classesToday,
		UpcomingTasks:  upcoming,
		SubjectCount:   len(subjects),
		PendingCount:   pendingCount,
		CompletedCount: completedCount,
	}, nil
}
