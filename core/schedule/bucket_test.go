package schedule

import (
	"testing"
	"time"
)

func subjectOcc(date Date) Occurrence {
	return Occurrence{Kind: KindSubject, Date: date, Subject: &Subject{ID: "sub-1", Name: "Math"}}
}

func taskOcc(date Date, completed bool) Occurrence {
	return Occurrence{Kind: KindTask, Date: date, Task: &Task{ID: "task-1", Title: "Essay", IsCompleted: completed}}
}

func Test_Classify(t *testing.T) {
	day := NewDate(2025, time.March, 3)

	tests := []struct {
		name string
		occs []Occurrence
		want DayState
	}{
		{name: "empty", occs: nil, want: StateEmpty},
		{name: "class only", occs: []Occurrence{subjectOcc(day)}, want: StateClass},
		{name: "pending task only", occs: []Occurrence{taskOcc(day, false)}, want: StatePendingTask},
		{name: "completed task only", occs: []Occurrence{taskOcc(day, true)}, want: StateCompletedTask},
		{name: "class and pending task", occs: []Occurrence{subjectOcc(day), taskOcc(day, false)}, want: StateMixed},
		{name: "class and completed task only", occs: []Occurrence{subjectOcc(day), taskOcc(day, true)}, want: StateClass},
		{name: "pending beats completed", occs: []Occurrence{taskOcc(day, true), taskOcc(day, false)}, want: StatePendingTask},
		{name: "class, pending and completed", occs: []Occurrence{subjectOcc(day), taskOcc(day, true), taskOcc(day, false)}, want: StateMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.occs); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_OccurrencesOn(t *testing.T) {
	d1 := NewDate(2025, time.March, 3)
	d2 := NewDate(2025, time.March, 4)
	occs := []Occurrence{subjectOcc(d1), taskOcc(d2, false), taskOcc(d1, true)}

	got := OccurrencesOn(occs, d1)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, occ := range got {
		if !occ.Date.Equal(d1) {
			t.Errorf("occurrence on %s, want %s", occ.Date, d1)
		}
	}

	if got := OccurrencesOn(occs, NewDate(2025, time.March, 10)); len(got) != 0 {
		t.Errorf("len = %d, want 0 for a date with no occurrences", len(got))
	}
}

// Week of 2025-03-03: Math every Monday 09:00, essay pending on Monday,
// reading completed on Wednesday, nothing else.
func Test_BucketRange(t *testing.T) {
	monday := NewDate(2025, time.March, 3)
	wednesday := NewDate(2025, time.March, 5)
	sunday := NewDate(2025, time.March, 9)

	math := Subject{ID: "sub-math", Name: "Math", DayOfWeek: time.Monday, StartTime: TimeOfDay{Hour: 9}}
	essay := Task{ID: "task-essay", Title: "Essay", DueDate: monday}
	reading := Task{ID: "task-reading", Title: "Reading", DueDate: wednesday, IsCompleted: true}

	occs := Materialize([]Subject{math}, []Task{essay, reading}, monday, sunday)
	buckets := BucketRange(occs, monday, sunday)

	if len(buckets) != 7 {
		t.Fatalf("len(buckets) = %d, want 7", len(buckets))
	}

	wantStates := map[string]DayState{
		"2025-03-03": StateMixed,
		"2025-03-04": StateEmpty,
		"2025-03-05": StateCompletedTask,
		"2025-03-06": StateEmpty,
		"2025-03-07": StateEmpty,
		"2025-03-08": StateEmpty,
		"2025-03-09": StateEmpty,
	}
	for i, b := range buckets {
		if !b.Date.Equal(monday.AddDays(i)) {
			t.Errorf("buckets[%d].Date = %s, want %s", i, b.Date, monday.AddDays(i))
		}
		if want := wantStates[b.Date.String()]; b.State != want {
			t.Errorf("state on %s = %q, want %q", b.Date, b.State, want)
		}
	}

	// Monday holds both the class and the essay
	if got := len(buckets[0].Occurrences); got != 2 {
		t.Errorf("occurrences on %s = %d, want 2", monday, got)
	}
}

func Test_BucketRange_invertedRange(t *testing.T) {
	buckets := BucketRange(nil, NewDate(2025, time.March, 9), NewDate(2025, time.March, 3))
	if len(buckets) != 0 {
		t.Errorf("len(buckets) = %d, want 0", len(buckets))
	}
}
