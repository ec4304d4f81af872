// Package dummydb provides in-memory repositories for tests and local hacking.
package dummydb

import (
	"sync"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

type (
	DB struct {
		user    *userTable
		subject *subjectTable
		task    *taskTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*schedule.Subject
	}

	taskTable struct {
		sync.RWMutex
		table map[string]*schedule.Task
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		subject: &subjectTable{table: make(map[string]*schedule.Subject)},
		task:    &taskTable{table: make(map[string]*schedule.Task)},
	}
	return db, nil
}
