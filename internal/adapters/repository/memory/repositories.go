package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

// UserRepository implements ports.UserRepository
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Login, user.Login) {
			return entities.ErrLoginTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Login, login) {
			u := u
			return &u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return entities.ErrUserNotFound
	}
	delete(r.s.users, id)
	for boardID, b := range r.s.boards {
		if b.OwnerID != id {
			continue
		}
		for taskID, t := range r.s.tasks {
			if t.BoardID == boardID {
				r.s.deleteTaskLocked(taskID)
			}
		}
		delete(r.s.boards, boardID)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*entities.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		u := u
		users = append(users, &u)
	}
	sortUsers(users)
	return users, nil
}

func sortUsers(users []*entities.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Login < users[j].Login
	})
}

// BoardRepository implements ports.BoardRepository
type BoardRepository struct {
	s *Store
}

func (r *BoardRepository) Create(ctx context.Context, board *entities.Board) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.boards {
		if b.OwnerID == board.OwnerID && b.Category == board.Category {
			*board = b
			return false, nil
		}
	}
	r.s.boardSeq++
	board.ID = r.s.boardSeq
	r.s.boards[board.ID] = *board
	return true, nil
}

func (r *BoardRepository) GetByID(ctx context.Context, id int64) (*entities.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.boards[id]
	if !ok {
		return nil, entities.ErrBoardNotFound
	}
	return &b, nil
}

func (r *BoardRepository) GetByOwnerAndCategory(ctx context.Context, ownerID uuid.UUID, category entities.BoardCategory) (*entities.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, b := range r.s.boards {
		if b.OwnerID == ownerID && b.Category == category {
			b := b
			return &b, nil
		}
	}
	return nil, entities.ErrBoardNotFound
}

func (r *BoardRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var boards []*entities.Board
	for _, b := range r.s.boards {
		if b.OwnerID == ownerID {
			b := b
			boards = append(boards, &b)
		}
	}
	sort.Slice(boards, func(i, j int) bool {
		return boards[i].Category.Order() < boards[j].Category.Order()
	})
	return boards, nil
}

func (r *BoardRepository) Update(ctx context.Context, board *entities.Board) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.boards[board.ID]; !ok {
		return entities.ErrBoardNotFound
	}
	r.s.boards[board.ID] = *board
	return nil
}

func (r *BoardRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.boards[id]; !ok {
		return entities.ErrBoardNotFound
	}
	delete(r.s.boards, id)
	for taskID, t := range r.s.tasks {
		if t.BoardID == id {
			r.s.deleteTaskLocked(taskID)
		}
	}
	return nil
}

// TaskRepository implements ports.TaskRepository
type TaskRepository struct {
	s *Store
}

func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.boards[task.BoardID]; !ok {
		return entities.ErrBoardNotFound
	}
	r.s.taskSeq++
	task.ID = r.s.taskSeq
	r.s.tasks[task.ID] = *copyTask(*task)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return copyTask(t), nil
}

func (r *TaskRepository) Update(ctx context.Context, task *entities.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[task.ID]; !ok {
		return entities.ErrTaskNotFound
	}
	r.s.tasks[task.ID] = *copyTask(*task)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return entities.ErrTaskNotFound
	}
	r.s.deleteTaskLocked(id)
	return nil
}

func (r *TaskRepository) ListByBoard(ctx context.Context, boardID int64) ([]*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tasks []*entities.Task
	for _, t := range r.s.tasks {
		if t.BoardID == boardID {
			tasks = append(tasks, copyTask(t))
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (r *TaskRepository) ListVisibleInCategory(ctx context.Context, userID uuid.UUID, category entities.BoardCategory) ([]*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tasks []*entities.Task
	for _, t := range r.s.tasks {
		b, ok := r.s.boards[t.BoardID]
		if !ok || b.Category != category {
			continue
		}
		if r.s.canSeeLocked(userID, t) {
			tasks = append(tasks, copyTask(t))
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (r *TaskRepository) Search(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tasks []*entities.Task
	for _, t := range r.s.tasks {
		if !r.s.canSeeLocked(filter.VisibleTo, t) {
			continue
		}
		if filter.Term != nil && !t.Matches(*filter.Term) {
			continue
		}
		if filter.DueBy != nil && !t.IsDueBy(*filter.DueBy) {
			continue
		}
		tasks = append(tasks, copyTask(t))
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil && b == nil:
			return tasks[i].ID < tasks[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return tasks[i].ID < tasks[j].ID
		}
	})
	return tasks, nil
}

func (r *TaskRepository) NextPosition(ctx context.Context, boardID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	next := 0
	for _, t := range r.s.tasks {
		if t.BoardID == boardID && t.Position+1 > next {
			next = t.Position + 1
		}
	}
	return next, nil
}

func (r *TaskRepository) SwapPositions(ctx context.Context, a, b *entities.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ta, ok := r.s.tasks[a.ID]
	if !ok {
		return entities.ErrTaskNotFound
	}
	tb, ok := r.s.tasks[b.ID]
	if !ok {
		return entities.ErrTaskNotFound
	}
	ta.Position, tb.Position = tb.Position, ta.Position
	now := time.Now()
	ta.UpdatedAt, tb.UpdatedAt = now, now
	r.s.tasks[ta.ID] = ta
	r.s.tasks[tb.ID] = tb
	a.Position, b.Position = ta.Position, tb.Position
	return nil
}

func (r *TaskRepository) MarkBoardCompleted(ctx context.Context, boardID int64, authorID uuid.UUID) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ids []int64
	for id, t := range r.s.tasks {
		if t.BoardID != boardID || t.AuthorID != authorID {
			continue
		}
		t.Status = entities.StatusCompleted
		t.UpdatedAt = time.Now()
		r.s.tasks[id] = t
		ids = append(ids, id)
	}
	for id, a := range r.s.activities {
		for _, taskID := range ids {
			if a.TaskID == taskID {
				a.Status = entities.StatusCompleted
				r.s.activities[id] = a
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ActivityRepository implements ports.ActivityRepository
type ActivityRepository struct {
	s *Store
}

func (r *ActivityRepository) Create(ctx context.Context, activity *entities.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[activity.TaskID]; !ok {
		return entities.ErrTaskNotFound
	}
	ordinal := 0
	for _, a := range r.s.activities {
		if a.TaskID == activity.TaskID && a.Ordinal >= ordinal {
			ordinal = a.Ordinal + 1
		}
	}
	r.s.activitySeq++
	activity.ID = r.s.activitySeq
	activity.Ordinal = ordinal
	r.s.activities[activity.ID] = *activity
	return nil
}

func (r *ActivityRepository) GetByID(ctx context.Context, id int64) (*entities.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.activities[id]
	if !ok {
		return nil, entities.ErrActivityNotFound
	}
	return &a, nil
}

func (r *ActivityRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activities[id]; !ok {
		return entities.ErrActivityNotFound
	}
	delete(r.s.activities, id)
	return nil
}

func (r *ActivityRepository) SetStatus(ctx context.Context, id int64, status entities.TaskStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.activities[id]
	if !ok {
		return entities.ErrActivityNotFound
	}
	a.Status = status
	r.s.activities[id] = a
	return nil
}

func (r *ActivityRepository) ListByTask(ctx context.Context, taskID int64) ([]entities.Activity, error) {
	byTask, err := r.ListByTasks(ctx, []int64{taskID})
	if err != nil {
		return nil, err
	}
	return byTask[taskID], nil
}

func (r *ActivityRepository) ListByTasks(ctx context.Context, taskIDs []int64) (map[int64][]entities.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[int64]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = true
	}
	out := make(map[int64][]entities.Activity)
	for _, a := range r.s.activities {
		if wanted[a.TaskID] {
			out[a.TaskID] = append(out[a.TaskID], a)
		}
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].Ordinal < list[j].Ordinal })
	}
	return out, nil
}

func (r *ActivityRepository) ReplaceForTask(ctx context.Context, taskID int64, activities []entities.Activity) ([]entities.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[taskID]; !ok {
		return nil, entities.ErrTaskNotFound
	}
	for id, a := range r.s.activities {
		if a.TaskID == taskID {
			delete(r.s.activities, id)
		}
	}
	out := make([]entities.Activity, 0, len(activities))
	for i, a := range activities {
		r.s.activitySeq++
		a.ID = r.s.activitySeq
		a.TaskID = taskID
		a.Ordinal = i
		r.s.activities[a.ID] = a
		out = append(out, a)
	}
	return out, nil
}

func (r *ActivityRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, a := range r.s.activities {
		if a.TaskID == taskID {
			delete(r.s.activities, id)
		}
	}
	return nil
}

// ShareRepository implements ports.ShareRepository
type ShareRepository struct {
	s *Store
}

func (r *ShareRepository) Create(ctx context.Context, share *entities.Share) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[share.UserID]; !ok {
		return false, entities.ErrUserNotFound
	}
	if _, ok := r.s.tasks[share.TaskID]; !ok {
		return false, entities.ErrTaskNotFound
	}
	k := shareKey{userID: share.UserID, taskID: share.TaskID}
	if _, ok := r.s.shares[k]; ok {
		return false, nil
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}
	r.s.shares[k] = *share
	return true, nil
}

func (r *ShareRepository) Delete(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := shareKey{userID: userID, taskID: taskID}
	if _, ok := r.s.shares[k]; !ok {
		return false, nil
	}
	delete(r.s.shares, k)
	return true, nil
}

func (r *ShareRepository) Exists(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.shares[shareKey{userID: userID, taskID: taskID}]
	return ok, nil
}

func (r *ShareRepository) ListUsersForTask(ctx context.Context, taskID int64) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var users []*entities.User
	for k := range r.s.shares {
		if k.taskID != taskID {
			continue
		}
		if u, ok := r.s.users[k.userID]; ok {
			users = append(users, &u)
		}
	}
	sortUsers(users)
	return users, nil
}

func (r *ShareRepository) ListTaskIDsForUser(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids []int64
	for k := range r.s.shares {
		if k.userID == userID {
			ids = append(ids, k.taskID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *ShareRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for k := range r.s.shares {
		if k.taskID == taskID {
			delete(r.s.shares, k)
		}
	}
	return nil
}

// AuthRepository implements ports.AuthRepository
type AuthRepository struct {
	s *Store
}

func (r *AuthRepository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tokenSeq++
	r.s.tokens[tokenHash] = ports.RefreshToken{
		ID:        r.s.tokenSeq,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *AuthRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*ports.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[tokenHash]
	if !ok {
		return nil, entities.ErrInvalidCredentials
	}
	return &t, nil
}

func (r *AuthRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[tokenHash]
	if !ok {
		return entities.ErrInvalidCredentials
	}
	now := time.Now()
	t.RevokedAt = &now
	r.s.tokens[tokenHash] = t
	return nil
}

func (r *AuthRepository) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for h, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.s.tokens[h] = t
		}
	}
	return nil
}

func (r *AuthRepository) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for h, t := range r.s.tokens {
		if t.IsExpired() || t.IsRevoked() {
			delete(r.s.tokens, h)
			n++
		}
	}
	return n, nil
}
