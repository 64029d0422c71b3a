// Package memory keeps every repository in process memory. It backs the
// service tests and the "memory" database driver.
package memory

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

type shareKey struct {
	userID uuid.UUID
	taskID int64
}

// Store is the shared state behind the memory repositories. Repositories
// built from the same Store see each other's writes, which the visibility
// queries rely on.
type Store struct {
	mu sync.RWMutex

	users      map[uuid.UUID]entities.User
	boards     map[int64]entities.Board
	tasks      map[int64]entities.Task
	activities map[int64]entities.Activity
	shares     map[shareKey]entities.Share
	tokens     map[string]ports.RefreshToken

	boardSeq    int64
	taskSeq     int64
	activitySeq int64
	tokenSeq    int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[uuid.UUID]entities.User),
		boards:     make(map[int64]entities.Board),
		tasks:      make(map[int64]entities.Task),
		activities: make(map[int64]entities.Activity),
		shares:     make(map[shareKey]entities.Share),
		tokens:     make(map[string]ports.RefreshToken),
	}
}

// NewRepositories wires every repository onto a fresh store.
func NewRepositories() *ports.Repositories {
	s := NewStore()
	return &ports.Repositories{
		Users:      &UserRepository{s},
		Boards:     &BoardRepository{s},
		Tasks:      &TaskRepository{s},
		Activities: &ActivityRepository{s},
		Shares:     &ShareRepository{s},
		Auth:       &AuthRepository{s},
	}
}

// canSeeLocked reports whether userID authored or was shared taskID.
func (s *Store) canSeeLocked(userID uuid.UUID, t entities.Task) bool {
	if t.AuthorID == userID {
		return true
	}
	_, ok := s.shares[shareKey{userID: userID, taskID: t.ID}]
	return ok
}

// deleteTaskLocked drops a task with its activities and share edges.
func (s *Store) deleteTaskLocked(taskID int64) {
	delete(s.tasks, taskID)
	for id, a := range s.activities {
		if a.TaskID == taskID {
			delete(s.activities, id)
		}
	}
	for k := range s.shares {
		if k.taskID == taskID {
			delete(s.shares, k)
		}
	}
}

func sortTasks(tasks []*entities.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func copyTask(t entities.Task) *entities.Task {
	t.Checklist = nil
	return &t
}
