package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type subjectRepository struct {
	db     *subjectTable
	taskDB *taskTable
}

var _ schedule.SubjectRepository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) schedule.SubjectRepository {
	return &subjectRepository{db: db.subject, taskDB: db.task}
}

func (repo *subjectRepository) query(userID string) []schedule.Subject {
	subs := make([]schedule.Subject, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if s.UserID == userID {
			subs = append(subs, *s)
		}
	}
	return subs
}

func (repo *subjectRepository) CreateSubject(_ context.Context, sub schedule.Subject) (schedule.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = uuid.New().String()
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) QuerySubjects(_ context.Context, userID string, filter *schedule.SubjectFilter, ordering ...core.DBOrdering) ([]schedule.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := repo.query(userID)

	if filter != nil {
		if filter.DayOfWeek != nil {
			var filtered []schedule.Subject
			for _, s := range subs {
				if int(s.DayOfWeek) == *filter.DayOfWeek {
					filtered = append(filtered, s)
				}
			}
			subs = filtered
		}
		// subjects with search keyword matching Name or Location ?
		if subs != nil && filter.Search != "" {
			var filtered []schedule.Subject
			for _, s := range subs {
				if strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) ||
					strings.Contains(strings.ToLower(s.Location), strings.ToLower(filter.Search)) {
					filtered = append(filtered, s)
				}
			}
			subs = filtered
		}
	}

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].DayOfWeek != subs[j].DayOfWeek {
			return subs[i].DayOfWeek < subs[j].DayOfWeek
		}
		return subs[i].StartTime.Before(subs[j].StartTime)
	})
	return subs, nil
}

func (repo *subjectRepository) GetSubject(_ context.Context, userID, id string) (schedule.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.table[id]; ok && sub.UserID == userID {
		return *sub, nil
	}
	return schedule.Subject{}, schedule.ErrSubjectNotFound
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, sub schedule.Subject) (schedule.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[sub.ID]
	if !ok || orig.UserID != sub.UserID {
		return schedule.Subject{}, schedule.ErrSubjectNotFound
	}
	sub.CreatedAt = orig.CreatedAt
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) DeleteSubjectsByID(_ context.Context, userID string, ids ...string) (int, error) {
	// lock order is subject then task, the only nesting either repo does
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.taskDB.Lock()
	defer repo.taskDB.Unlock()

	var cnt int
	for _, id := range ids {
		sub, ok := repo.db.table[id]
		if !ok || sub.UserID != userID {
			continue
		}
		delete(repo.db.table, id)
		cnt++

		// detach dependent tasks, like the subject_id FK would
		for _, t := range repo.taskDB.table {
			if t.SubjectID == id {
				t.SubjectID = ""
				t.SubjectName = ""
				t.SubjectColor = ""
			}
		}
	}
	return cnt, nil
}
