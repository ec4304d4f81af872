package schedule

// OccurrenceKind discriminates the Occurrence union.
type OccurrenceKind string

const (
	KindSubject OccurrenceKind = "subject"
	KindTask    OccurrenceKind = "task"
)

// Occurrence is a single dated calendar entry derived from a Subject or a
// Task. Occurrences are never persisted; they are rebuilt from source data
// on every query and carry no identity beyond (source ID, Date).
// Exactly one of Subject/Task is set, according to Kind.
type Occurrence struct {
	Kind    OccurrenceKind `json:"kind"`
	Date    Date           `json:"date"`
	Subject *Subject       `json:"subject,omitempty"`
	Task    *Task          `json:"task,omitempty"`
}

// Materialize expands weekly-recurring subjects and dated tasks into the flat
// occurrence list for the closed range [rangeStart, rangeEnd].
//
// Every day in range emits one occurrence per subject whose weekday matches.
// Every task emits exactly one occurrence at its due date, whether or not
// that date falls in range: callers are expected to fetch tasks pre-filtered
// with the same range they pass here (Service is the single call site and
// keeps the two in sync).
//
// The result is unordered and not deduplicated; a subject and a task sharing
// a date coexist as separate entries. Materialize is a pure function: equal
// inputs yield a set-equal occurrence list.
func Materialize(subjects []Subject, tasks []Task, rangeStart, rangeEnd Date) []Occurrence {
	occs := make([]Occurrence, 0, len(tasks)+len(subjects))

	if !rangeEnd.Before(rangeStart) {
		for d := rangeStart; !d.After(rangeEnd); d = d.AddDays(1) {
			dow := d.Weekday()
			for i := range subjects {
				if subjects[i].DayOfWeek == dow {
					occs = append(occs, Occurrence{
						Kind:    KindSubject,
						Date:    d,
						Subject: &subjects[i],
					})
				}
			}
		}
	}

	for i := range tasks {
		occs = append(occs, Occurrence{
			Kind: KindTask,
			Date: tasks[i].DueDate,
			Task: &tasks[i],
		})
	}
	return occs
}
