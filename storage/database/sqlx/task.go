package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type taskRow struct {
	ID          string        `db:"id"`
	UserID      string        `db:"user_id"`
	SubjectID   null.String   `db:"subject_id"`
	Title       string        `db:"title"`
	Description null.String   `db:"description"`
	DueDate     schedule.Date `db:"due_date"`
	Priority    int           `db:"priority"`
	IsCompleted bool          `db:"is_completed"`
	CreatedAt   null.Time     `db:"created_at"`
	UpdatedAt   null.Time     `db:"updated_at"`

	SubjectName  null.String `db:"subject_name"`
	SubjectColor null.String `db:"subject_color"`
}

func (r taskRow) unpack() schedule.Task {
	return schedule.Task{
		ID:           r.ID,
		UserID:       r.UserID,
		SubjectID:    r.SubjectID.String,
		Title:        r.Title,
		Description:  r.Description.String,
		DueDate:      r.DueDate,
		Priority:     r.Priority,
		IsCompleted:  r.IsCompleted,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		SubjectName:  r.SubjectName.String,
		SubjectColor: r.SubjectColor.String,
	}
}

const taskSelect = `
SELECT t.*, s.name AS subject_name, s.color AS subject_color
FROM tasks t
         LEFT JOIN subjects s ON s.id = t.subject_id`

type taskRepository struct {
	db *sqlx.DB
}

var _ schedule.TaskRepository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to schedule.ErrTaskNotFound
func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrTaskNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, task schedule.Task) (schedule.Task, error) {
	task.ID = uuid.New().String()
	q := `
INSERT INTO tasks (id, user_id, subject_id, title, description, due_date, priority, is_completed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		task.ID,
		task.UserID,
		null.NewString(task.SubjectID, task.SubjectID != ""),
		task.Title,
		null.NewString(task.Description, task.Description != ""),
		task.DueDate,
		task.Priority,
		task.IsCompleted,
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	)
	if err != nil {
		return schedule.Task{}, errors.Wrap(err, "inserting task")
	}
	return repo.GetTask(ctx, task.UserID, task.ID)
}

func (repo taskRepository) QueryTasks(ctx context.Context, userID string, filter *schedule.TaskFilter, ordering ...core.DBOrdering) ([]schedule.Task, error) {
	q := taskSelect
	conds := []string{"t.user_id = $1"}
	args := []interface{}{userID}

	arg := func(val interface{}) string {
		args = append(args, val)
		return "$" + itoa(len(args))
	}

	if filter != nil {
		if !filter.DueFrom.IsZero() {
			conds = append(conds, "t.due_date >= "+arg(filter.DueFrom))
		}
		if !filter.DueTo.IsZero() {
			conds = append(conds, "t.due_date <= "+arg(filter.DueTo))
		}
		if filter.IsCompleted != nil {
			conds = append(conds, "t.is_completed = "+arg(*filter.IsCompleted))
		}
		if filter.SubjectID != "" {
			conds = append(conds, "t.subject_id = "+arg(filter.SubjectID))
		}
		// tasks with Title or Description matching the search keyword
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, "(t.title ILIKE "+p+" OR t.description ILIKE "+p+")")
		}
	}

	q += "\nWHERE " + strings.Join(conds, " AND ")
	q += orderBy(ordering, "t.due_date ASC, t.priority DESC")

	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]schedule.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.unpack())
	}
	return tasks, nil
}

func (repo taskRepository) GetTask(ctx context.Context, userID, id string) (schedule.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Task{}, schedule.ErrTaskNotFound
	}
	var row taskRow
	err := repo.db.GetContext(ctx, &row, taskSelect+"\nWHERE t.id = $1 AND t.user_id = $2", id, userID)
	if err != nil {
		return schedule.Task{}, repo.trapNoRowsErr(err, "finding task by ID")
	}
	return row.unpack(), nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, task schedule.Task) (schedule.Task, error) {
	q := `
UPDATE tasks
SET subject_id = $1, title = $2, description = $3, due_date = $4, priority = $5, is_completed = $6, updated_at = $7
WHERE id = $8 AND user_id = $9`
	res, err := repo.db.ExecContext(ctx, q,
		null.NewString(task.SubjectID, task.SubjectID != ""),
		task.Title,
		null.NewString(task.Description, task.Description != ""),
		task.DueDate,
		task.Priority,
		task.IsCompleted,
		task.UpdatedAt.UTC(),
		task.ID,
		task.UserID,
	)
	if err != nil {
		return schedule.Task{}, errors.Wrap(err, "updating task")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return schedule.Task{}, schedule.ErrTaskNotFound
	}
	return repo.GetTask(ctx, task.UserID, task.ID)
}

// SetTaskCompleted flips the completion flag; no other column is touched.
func (repo taskRepository) SetTaskCompleted(ctx context.Context, userID, id string, completed bool, updatedAt time.Time) (schedule.Task, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE tasks SET is_completed = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`,
		completed, updatedAt.UTC(), id, userID,
	)
	if err != nil {
		return schedule.Task{}, errors.Wrap(err, "toggling task")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return schedule.Task{}, schedule.ErrTaskNotFound
	}
	return repo.GetTask(ctx, userID, id)
}

func (repo taskRepository) DeleteTasksByID(ctx context.Context, userID string, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = $1 AND id = ANY($2)`, userID, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting tasks")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
