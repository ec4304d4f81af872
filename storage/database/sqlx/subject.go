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

type subjectRow struct {
	ID        string             `db:"id"`
	UserID    string             `db:"user_id"`
	Name      string             `db:"name"`
	DayOfWeek int                `db:"day_of_week"`
	StartTime schedule.TimeOfDay `db:"start_time"`
	EndTime   schedule.TimeOfDay `db:"end_time"`
	Location  null.String        `db:"location"`
	Color     string             `db:"color"`
	CreatedAt null.Time          `db:"created_at"`
	UpdatedAt null.Time          `db:"updated_at"`
}

func (r subjectRow) unpack() schedule.Subject {
	return schedule.Subject{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		DayOfWeek: time.Weekday(r.DayOfWeek),
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Location:  r.Location.String,
		Color:     r.Color,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ schedule.SubjectRepository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to schedule.ErrSubjectNotFound
func (repo subjectRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrSubjectNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub schedule.Subject) (schedule.Subject, error) {
	sub.ID = uuid.New().String()
	q := `
INSERT INTO subjects (id, user_id, name, day_of_week, start_time, end_time, location, color, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		sub.ID,
		sub.UserID,
		sub.Name,
		int(sub.DayOfWeek),
		sub.StartTime,
		sub.EndTime,
		null.NewString(sub.Location, sub.Location != ""),
		sub.Color,
		sub.CreatedAt.UTC(),
		sub.UpdatedAt.UTC(),
	)
	if err != nil {
		return schedule.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, userID string, filter *schedule.SubjectFilter, ordering ...core.DBOrdering) ([]schedule.Subject, error) {
	q := `SELECT * FROM subjects`
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	arg := func(val interface{}) string {
		args = append(args, val)
		return "$" + itoa(len(args))
	}

	if filter != nil {
		if filter.DayOfWeek != nil {
			conds = append(conds, "day_of_week = "+arg(*filter.DayOfWeek))
		}
		// subjects with Name or Location matching the search keyword
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, "(name ILIKE "+p+" OR location ILIKE "+p+")")
		}
	}

	q += " WHERE " + strings.Join(conds, " AND ")
	q += orderBy(ordering, "day_of_week ASC, start_time ASC")

	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subs := make([]schedule.Subject, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.unpack())
	}
	return subs, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, userID, id string) (schedule.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Subject{}, schedule.ErrSubjectNotFound
	}
	var row subjectRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM subjects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return schedule.Subject{}, repo.trapNoRowsErr(err, "finding subject by ID")
	}
	return row.unpack(), nil
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, sub schedule.Subject) (schedule.Subject, error) {
	q := `
UPDATE subjects
SET name = $1, day_of_week = $2, start_time = $3, end_time = $4, location = $5, color = $6, updated_at = $7
WHERE id = $8 AND user_id = $9
RETURNING *`
	var row subjectRow
	err := repo.db.GetContext(ctx, &row, q,
		sub.Name,
		int(sub.DayOfWeek),
		sub.StartTime,
		sub.EndTime,
		null.NewString(sub.Location, sub.Location != ""),
		sub.Color,
		sub.UpdatedAt.UTC(),
		sub.ID,
		sub.UserID,
	)
	if err != nil {
		return schedule.Subject{}, repo.trapNoRowsErr(err, "updating subject")
	}
	return row.unpack(), nil
}

// DeleteSubjectsByID deletes subjects; the subject_id FK on tasks is set to
// NULL by the database, dependent tasks survive.
func (repo subjectRepository) DeleteSubjectsByID(ctx context.Context, userID string, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subjects WHERE user_id = $1 AND id = ANY($2)`, userID, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting subjects")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
