package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/bacheca/internal/domain/entities"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByLogin(ctx context.Context, login string) (*entities.User, error)
	List(ctx context.Context) ([]*entities.User, error)
	// Delete removes the user together with the boards they own.
	Delete(ctx context.Context, id uuid.UUID) error
}

// BoardRepository defines the interface for board data operations.
// Create is idempotent on (owner, category): on conflict the stored board is
// loaded into board and created is false.
type BoardRepository interface {
	Create(ctx context.Context, board *entities.Board) (created bool, err error)
	GetByID(ctx context.Context, id int64) (*entities.Board, error)
	GetByOwnerAndCategory(ctx context.Context, ownerID uuid.UUID, category entities.BoardCategory) (*entities.Board, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error)
	Update(ctx context.Context, board *entities.Board) error
	Delete(ctx context.Context, id int64) error
}

// TaskRepository defines the interface for task data operations.
// Returned tasks carry no checklist; activities are loaded separately.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id int64) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, id int64) error
	ListByBoard(ctx context.Context, boardID int64) ([]*entities.Task, error)
	// ListVisibleInCategory returns the tasks in boards of category that
	// userID authored or has a share edge to, each once, ordered by
	// (position, id).
	ListVisibleInCategory(ctx context.Context, userID uuid.UUID, category entities.BoardCategory) ([]*entities.Task, error)
	Search(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	NextPosition(ctx context.Context, boardID int64) (int, error)
	// SwapPositions exchanges the stored positions of a and b atomically and
	// updates both values in place.
	SwapPositions(ctx context.Context, a, b *entities.Task) error
	// MarkBoardCompleted completes every task authorID authored in the board
	// together with its activities and returns the affected task ids.
	MarkBoardCompleted(ctx context.Context, boardID int64, authorID uuid.UUID) ([]int64, error)
}

// ActivityRepository defines the interface for checklist data operations
type ActivityRepository interface {
	Create(ctx context.Context, activity *entities.Activity) error
	GetByID(ctx context.Context, id int64) (*entities.Activity, error)
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status entities.TaskStatus) error
	ListByTask(ctx context.Context, taskID int64) ([]entities.Activity, error)
	ListByTasks(ctx context.Context, taskIDs []int64) (map[int64][]entities.Activity, error)
	// ReplaceForTask swaps the whole checklist of a task for activities,
	// assigning ids and ordinals.
	ReplaceForTask(ctx context.Context, taskID int64, activities []entities.Activity) ([]entities.Activity, error)
	DeleteByTask(ctx context.Context, taskID int64) error
}

// ShareRepository defines the interface for the sharing ledger.
// Create and Delete report whether an edge was actually written or removed.
type ShareRepository interface {
	Create(ctx context.Context, share *entities.Share) (created bool, err error)
	Delete(ctx context.Context, userID uuid.UUID, taskID int64) (deleted bool, err error)
	Exists(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error)
	ListUsersForTask(ctx context.Context, taskID int64) ([]*entities.User, error)
	ListTaskIDsForUser(ctx context.Context, userID uuid.UUID) ([]int64, error)
	DeleteByTask(ctx context.Context, taskID int64) error
}

// AuthRepository defines the interface for authentication operations
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// Repositories bundles one storage backend's repositories.
type Repositories struct {
	Users      UserRepository
	Boards     BoardRepository
	Tasks      TaskRepository
	Activities ActivityRepository
	Shares     ShareRepository
	Auth       AuthRepository
}

// TaskFilter narrows a search over the tasks VisibleTo can see.
// Term and DueBy are alternatives; when both are set, both apply.
type TaskFilter struct {
	VisibleTo uuid.UUID
	Term      *string
	DueBy     *time.Time
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        int64      `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
