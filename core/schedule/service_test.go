package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	dummydb "github.com/trezcool/ratiba/storage/database/dummy"
)

func setup(t *testing.T) *schedule.Service {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	return schedule.NewService(dummydb.NewSubjectRepository(db), dummydb.NewTaskRepository(db))
}

func createSubject(t *testing.T, svc *schedule.Service, userID, name string, dow time.Weekday, start, end string) schedule.Subject {
	t.Helper()

	st, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("ParseTimeOfDay() failed, %v", err)
	}
	et, err := schedule.ParseTimeOfDay(end)
	if err != nil {
		t.Fatalf("ParseTimeOfDay() failed, %v", err)
	}
	d := int(dow)
	sub, err := svc.CreateSubject(context.Background(), userID, schedule.NewSubject{
		Name:      name,
		DayOfWeek: &d,
		StartTime: st,
		EndTime:   et,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed, %v", err)
	}
	return sub
}

func createTask(t *testing.T, svc *schedule.Service, userID string, nt schedule.NewTask) schedule.Task {
	t.Helper()

	if nt.Priority == 0 {
		nt.Priority = schedule.PriorityMedium
	}
	task, err := svc.CreateTask(context.Background(), userID, nt)
	if err != nil {
		t.Fatalf("CreateTask() failed, %v", err)
	}
	return task
}

func TestService_CreateSubject_defaultColor(t *testing.T) {
	svc := setup(t)

	sub := createSubject(t, svc, "usr-1", "Math", time.Monday, "09:00", "10:30")
	if sub.Color != schedule.DefaultColor {
		t.Errorf("Color = %q, want %q", sub.Color, schedule.DefaultColor)
	}
	if sub.DayOfWeek != time.Monday {
		t.Errorf("DayOfWeek = %s, want Monday", sub.DayOfWeek)
	}
}

func TestService_CreateTask_unknownSubject(t *testing.T) {
	svc := setup(t)

	_, err := svc.CreateTask(context.Background(), "usr-1", schedule.NewTask{
		Title:     "Essay",
		SubjectID: "4ba7cb25-6d3f-4c38-bbe5-ce26713e9a48",
		DueDate:   schedule.NewDate(2025, time.March, 3),
		Priority:  schedule.PriorityHigh,
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CreateTask() error = %v, want validation error", err)
	}
}

func TestService_CreateTask_subjectOwnership(t *testing.T) {
	svc := setup(t)

	// a subject owned by another user is invisible
	other := createSubject(t, svc, "usr-2", "Chemistry", time.Tuesday, "11:00", "12:00")

	_, err := svc.CreateTask(context.Background(), "usr-1", schedule.NewTask{
		Title:     "Lab report",
		SubjectID: other.ID,
		DueDate:   schedule.NewDate(2025, time.March, 3),
		Priority:  schedule.PriorityHigh,
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CreateTask() error = %v, want validation error", err)
	}
}

func TestService_ToggleTask(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	task := createTask(t, svc, "usr-1", schedule.NewTask{
		Title:       "Essay",
		Description: "On entropy",
		DueDate:     schedule.NewDate(2025, time.March, 3),
		Priority:    schedule.PriorityHigh,
	})
	if task.IsCompleted {
		t.Fatal("new task should start incomplete")
	}

	toggled, err := svc.ToggleTask(ctx, "usr-1", task.ID)
	if err != nil {
		t.Fatalf("ToggleTask() failed, %v", err)
	}
	if !toggled.IsCompleted {
		t.Error("expected task to be completed after first toggle")
	}
	if !toggled.UpdatedAt.After(task.UpdatedAt) {
		t.Error("expected UpdatedAt to be touched")
	}

	// only the flag and UpdatedAt moved
	if toggled.Title != task.Title || toggled.Description != task.Description ||
		!toggled.DueDate.Equal(task.DueDate) || toggled.Priority != task.Priority ||
		!toggled.CreatedAt.Equal(task.CreatedAt) {
		t.Error("toggle altered fields other than the completion flag")
	}

	// second toggle restores the original state
	restored, err := svc.ToggleTask(ctx, "usr-1", task.ID)
	if err != nil {
		t.Fatalf("ToggleTask() failed, %v", err)
	}
	if restored.IsCompleted {
		t.Error("expected task to be pending again after second toggle")
	}
}

func TestService_ToggleTask_ownership(t *testing.T) {
	svc := setup(t)

	task := createTask(t, svc, "usr-1", schedule.NewTask{
		Title:    "Essay",
		DueDate:  schedule.NewDate(2025, time.March, 3),
		Priority: schedule.PriorityHigh,
	})

	if _, err := svc.ToggleTask(context.Background(), "usr-2", task.ID); err != schedule.ErrTaskNotFound {
		t.Errorf("ToggleTask() error = %v, want %v", err, schedule.ErrTaskNotFound)
	}
}

func TestService_DeleteSubjects_detachesTasks(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	sub := createSubject(t, svc, "usr-1", "Math", time.Monday, "09:00", "10:30")
	task := createTask(t, svc, "usr-1", schedule.NewTask{
		Title:     "Problem set",
		SubjectID: sub.ID,
		DueDate:   schedule.NewDate(2025, time.March, 3),
		Priority:  schedule.PriorityMedium,
	})

	if err := svc.DeleteSubjects(ctx, "usr-1", sub.ID); err != nil {
		t.Fatalf("DeleteSubjects() failed, %v", err)
	}
	if _, err := svc.GetSubject(ctx, "usr-1", sub.ID); err != schedule.ErrSubjectNotFound {
		t.Errorf("GetSubject() error = %v, want %v", err, schedule.ErrSubjectNotFound)
	}

	// the task survives, detached
	detached, err := svc.GetTask(ctx, "usr-1", task.ID)
	if err != nil {
		t.Fatalf("GetTask() failed, %v", err)
	}
	if detached.SubjectID != "" {
		t.Errorf("SubjectID = %q, want empty after subject deletion", detached.SubjectID)
	}
}

func TestService_MonthView(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	createSubject(t, svc, "usr-1", "Math", time.Monday, "09:00", "10:30")
	createTask(t, svc, "usr-1", schedule.NewTask{
		Title:    "Essay",
		DueDate:  schedule.NewDate(2025, time.March, 3),
		Priority: schedule.PriorityHigh,
	})
	// out-of-range task must not leak into March
	createTask(t, svc, "usr-1", schedule.NewTask{
		Title:    "Late essay",
		DueDate:  schedule.NewDate(2025, time.April, 2),
		Priority: schedule.PriorityLow,
	})
	// other users' data must not leak either
	createSubject(t, svc, "usr-2", "Chemistry", time.Monday, "09:00", "10:30")

	buckets, err := svc.MonthView(ctx, "usr-1", 2025, time.March)
	if err != nil {
		t.Fatalf("MonthView() failed, %v", err)
	}
	if len(buckets) != 31 {
		t.Fatalf("len(buckets) = %d, want 31", len(buckets))
	}

	byDate := make(map[string]schedule.DayBucket, len(buckets))
	for _, b := range buckets {
		byDate[b.Date.String()] = b
	}

	// March 3rd is a Monday: class + pending essay
	if got := byDate["2025-03-03"]; got.State != schedule.StateMixed {
		t.Errorf("state on 2025-03-03 = %q, want %q", got.State, schedule.StateMixed)
	}
	if got := len(byDate["2025-03-03"].Occurrences); got != 2 {
		t.Errorf("occurrences on 2025-03-03 = %d, want 2", got)
	}
	// every other Monday is a plain class day
	for _, day := range []string{"2025-03-10", "2025-03-17", "2025-03-24", "2025-03-31"} {
		if got := byDate[day]; got.State != schedule.StateClass {
			t.Errorf("state on %s = %q, want %q", day, got.State, schedule.StateClass)
		}
	}
	if got := byDate["2025-03-04"]; got.State != schedule.StateEmpty {
		t.Errorf("state on 2025-03-04 = %q, want %q", got.State, schedule.StateEmpty)
	}
}

func TestService_Day(t *testing.T) {
	svc := setup(t)

	createSubject(t, svc, "usr-1", "Math", time.Monday, "09:00", "10:30")

	bucket, err := svc.Day(context.Background(), "usr-1", schedule.NewDate(2025, time.March, 3))
	if err != nil {
		t.Fatalf("Day() failed, %v", err)
	}
	if bucket.State != schedule.StateClass {
		t.Errorf("State = %q, want %q", bucket.State, schedule.StateClass)
	}
	if len(bucket.Occurrences) != 1 {
		t.Errorf("len(Occurrences) = %d, want 1", len(bucket.Occurrences))
	}
}

func TestService_Dashboard(t *testing.T) {
	svc := setup(t)

	// Monday 2025-03-03, 08:00 local
	now := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.Local)

	late := createSubject(t, svc, "usr-1", "Math", time.Monday, "14:00", "15:30")
	early := createSubject(t, svc, "usr-1", "Biology", time.Monday, "09:00", "10:30")
	createSubject(t, svc, "usr-1", "Chemistry", time.Thursday, "11:00", "12:00")

	createTask(t, svc, "usr-1", schedule.NewTask{
		Title: "Essay", DueDate: schedule.NewDate(2025, time.March, 4), Priority: schedule.PriorityLow,
	})
	createTask(t, svc, "usr-1", schedule.NewTask{
		Title: "Problem set", DueDate: schedule.NewDate(2025, time.March, 4), Priority: schedule.PriorityHigh,
	})
	// due beyond the 7-day horizon
	createTask(t, svc, "usr-1", schedule.NewTask{
		Title: "Project", DueDate: schedule.NewDate(2025, time.March, 20), Priority: schedule.PriorityHigh,
	})
	done := createTask(t, svc, "usr-1", schedule.NewTask{
		Title: "Reading", DueDate: schedule.NewDate(2025, time.March, 5), Priority: schedule.PriorityMedium,
	})
	if _, err := svc.ToggleTask(context.Background(), "usr-1", done.ID); err != nil {
		t.Fatalf("ToggleTask() failed, %v", err)
	}

	dash, err := svc.Dashboard(context.Background(), "usr-1", now)
	if err != nil {
		t.Fatalf("Dashboard() failed, %v", err)
	}

	if len(dash.ClassesToday) != 2 {
		t.Fatalf("len(ClassesToday) = %d, want 2", len(dash.ClassesToday))
	}
	if dash.ClassesToday[0].ID != early.ID || dash.ClassesToday[1].ID != late.ID {
		t.Error("expected today's classes in start-time order")
	}

	if len(dash.UpcomingTasks) != 2 {
		t.Fatalf("len(UpcomingTasks) = %d, want 2", len(dash.UpcomingTasks))
	}
	if dash.UpcomingTasks[0].Title != "Problem set" {
		t.Errorf("UpcomingTasks[0].Title = %q, want higher priority first on equal due dates", dash.UpcomingTasks[0].Title)
	}

	if dash.SubjectCount != 3 {
		t.Errorf("SubjectCount = %d, want 3", dash.SubjectCount)
	}
	if dash.PendingCount != 3 {
		t.Errorf("PendingCount = %d, want 3", dash.PendingCount)
	}
	if dash.CompletedCount != 1 {
		t.Errorf("CompletedCount = %d, want 1", dash.CompletedCount)
	}
}
