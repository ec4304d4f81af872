package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type taskRepository struct {
	db        *taskTable
	subjectDB *subjectTable
}

var _ schedule.TaskRepository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) schedule.TaskRepository {
	return &taskRepository{db: db.task, subjectDB: db.subject}
}

// join sets the subject display fields like the list queries do.
// It takes the subject-table lock; callers must not hold the task-table lock
// (DeleteSubjectsByID nests subject -> task, so nesting task -> subject here
// would deadlock).
func (repo *taskRepository) join(task schedule.Task) schedule.Task {
	if task.SubjectID != "" {
		repo.subjectDB.RLock()
		if sub, ok := repo.subjectDB.table[task.SubjectID]; ok {
			task.SubjectName = sub.Name
			task.SubjectColor = sub.Color
		}
		repo.subjectDB.RUnlock()
	}
	return task
}

// query snapshots the user's rows; the caller holds the task-table lock.
func (repo *taskRepository) query(userID string) []schedule.Task {
	tasks := make([]schedule.Task, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		if t.UserID == userID {
			tasks = append(tasks, *t)
		}
	}
	return tasks
}

func (repo *taskRepository) CreateTask(_ context.Context, task schedule.Task) (schedule.Task, error) {
	repo.db.Lock()
	task.ID = uuid.New().String()
	row := task
	repo.db.table[task.ID] = &row
	repo.db.Unlock()

	return repo.join(task), nil
}

func (repo *taskRepository) QueryTasks(_ context.Context, userID string, filter *schedule.TaskFilter, ordering ...core.DBOrdering) ([]schedule.Task, error) {
	repo.db.RLock()
	tasks := repo.query(userID)
	repo.db.RUnlock()

	if filter != nil {
		if !filter.DueFrom.IsZero() {
			var filtered []schedule.Task
			for _, t := range tasks {
				if !t.DueDate.Before(filter.DueFrom) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		if tasks != nil && !filter.DueTo.IsZero() {
			var filtered []schedule.Task
			for _, t := range tasks {
				if !t.DueDate.After(filter.DueTo) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		if tasks != nil && filter.IsCompleted != nil {
			var filtered []schedule.Task
			for _, t := range tasks {
				if t.IsCompleted == *filter.IsCompleted {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		if tasks != nil && filter.SubjectID != "" {
			var filtered []schedule.Task
			for _, t := range tasks {
				if t.SubjectID == filter.SubjectID {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		// tasks with search keyword matching Title or Description ?
		if tasks != nil && filter.Search != "" {
			var filtered []schedule.Task
			for _, t := range tasks {
				if strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Search)) ||
					strings.Contains(strings.ToLower(t.Description), strings.ToLower(filter.Search)) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
	}

	for i := range tasks {
		tasks[i] = repo.join(tasks[i])
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].DueDate.Equal(tasks[j].DueDate) {
			return tasks[i].DueDate.Before(tasks[j].DueDate)
		}
		return tasks[i].Priority > tasks[j].Priority
	})
	return tasks, nil
}

func (repo *taskRepository) GetTask(_ context.Context, userID, id string) (schedule.Task, error) {
	repo.db.RLock()
	row, ok := repo.db.table[id]
	var task schedule.Task
	if ok = ok && row.UserID == userID; ok {
		task = *row
	}
	repo.db.RUnlock()

	if !ok {
		return schedule.Task{}, schedule.ErrTaskNotFound
	}
	return repo.join(task), nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, task schedule.Task) (schedule.Task, error) {
	repo.db.Lock()
	orig, ok := repo.db.table[task.ID]
	if !ok || orig.UserID != task.UserID {
		repo.db.Unlock()
		return schedule.Task{}, schedule.ErrTaskNotFound
	}
	task.CreatedAt = orig.CreatedAt
	row := task
	repo.db.table[task.ID] = &row
	repo.db.Unlock()

	return repo.join(task), nil
}

func (repo *taskRepository) SetTaskCompleted(_ context.Context, userID, id string, completed bool, updatedAt time.Time) (schedule.Task, error) {
	repo.db.Lock()
	row, ok := repo.db.table[id]
	if !ok || row.UserID != userID {
		repo.db.Unlock()
		return schedule.Task{}, schedule.ErrTaskNotFound
	}
	row.IsCompleted = completed
	row.UpdatedAt = updatedAt
	task := *row
	repo.db.Unlock()

	return repo.join(task), nil
}

func (repo *taskRepository) DeleteTasksByID(_ context.Context, userID string, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if task, ok := repo.db.table[id]; ok && task.UserID == userID {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
