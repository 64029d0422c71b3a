package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/bacheca/internal/domain/entities"
)

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ValidateToken(tokenString string) (*Claims, error)
}

// UserService interface for user lookups
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error)
	ListUsers(ctx context.Context, exclude uuid.UUID) ([]*entities.User, error)
}

// BoardService interface for board management operations
type BoardService interface {
	ListBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error)
	CreateBoard(ctx context.Context, ownerID uuid.UUID, req CreateBoardRequest) (*entities.Board, error)
	UpdateBoard(ctx context.Context, actorID uuid.UUID, boardID int64, req UpdateBoardRequest) (*entities.Board, error)
	DeleteBoard(ctx context.Context, actorID uuid.UUID, boardID int64) error
	ProvisionDefaultBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error)
	MarkBoardCompleted(ctx context.Context, actorID uuid.UUID, boardID int64) (int, error)
}

// TaskService interface for task and checklist operations
type TaskService interface {
	CreateTask(ctx context.Context, actorID uuid.UUID, req CreateTaskRequest) (*entities.Task, error)
	GetTask(ctx context.Context, actorID uuid.UUID, taskID int64) (*entities.Task, error)
	UpdateTask(ctx context.Context, actorID uuid.UUID, taskID int64, req UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, actorID uuid.UUID, taskID int64) error
	MoveTask(ctx context.Context, actorID uuid.UUID, taskID int64, category entities.BoardCategory) (*entities.Task, error)
	SetTaskCompletion(ctx context.Context, actorID uuid.UUID, taskID int64, completed bool) (*entities.Task, error)
	AddActivity(ctx context.Context, actorID uuid.UUID, taskID int64, name string) (*entities.Task, error)
	RemoveActivity(ctx context.Context, actorID uuid.UUID, taskID, activityID int64) (*entities.Task, error)
	ToggleActivity(ctx context.Context, actorID uuid.UUID, taskID, activityID int64, completed bool) (*entities.Task, error)
}

// SharingService interface for the sharing ledger
type SharingService interface {
	Share(ctx context.Context, actorID uuid.UUID, taskID int64, targetID uuid.UUID) error
	ShareWithMany(ctx context.Context, actorID uuid.UUID, taskID int64, targetIDs []uuid.UUID) error
	Unshare(ctx context.Context, actorID uuid.UUID, taskID int64, targetID uuid.UUID) error
	ListSharedWith(ctx context.Context, actorID uuid.UUID, taskID int64) ([]*entities.User, error)
	ListSharedTasksFor(ctx context.Context, userID uuid.UUID) ([]int64, error)
	PurgeForTask(ctx context.Context, taskID int64) error
}

// VisibilityService interface for resolving board views
type VisibilityService interface {
	TasksVisibleTo(ctx context.Context, userID uuid.UUID, category entities.BoardCategory) ([]*entities.Task, error)
	BoardsFor(ctx context.Context, userID uuid.UUID) ([]entities.BoardView, error)
	CanView(ctx context.Context, userID uuid.UUID, task *entities.Task) (bool, error)
	CanEdit(userID uuid.UUID, task *entities.Task) bool
	CanDelete(userID uuid.UUID, task *entities.Task) bool
	CanShare(userID uuid.UUID, task *entities.Task) bool
	Reorder(ctx context.Context, actorID uuid.UUID, taskID int64, direction entities.Direction) error
}

// SearchService interface for task searches
type SearchService interface {
	SearchByTerm(ctx context.Context, userID uuid.UUID, term string) ([]*entities.Task, error)
	SearchDueBy(ctx context.Context, userID uuid.UUID, day time.Time) ([]*entities.Task, error)
	DueToday(ctx context.Context, userID uuid.UUID) ([]*entities.Task, error)
}

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Login    string `json:"login" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=4"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *entities.User `json:"user"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Login  string `json:"login"`
}

// Board related types
type CreateBoardRequest struct {
	Category    string `json:"category" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

type UpdateBoardRequest struct {
	Description string `json:"description" validate:"max=500"`
}

// Task related types
type CreateTaskRequest struct {
	Category    string   `json:"category" validate:"required"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	DueDate     string   `json:"due_date" validate:"required,datetime=2006-01-02"`
	ImagePath   *string  `json:"image_path" validate:"omitempty,max=500"`
	URL         *string  `json:"url" validate:"omitempty,url"`
	Color       *string  `json:"color" validate:"omitempty,hexcolor,len=7"`
	Checklist   []string `json:"checklist" validate:"omitempty,dive,required,max=200"`
}

type UpdateTaskRequest struct {
	Title       string                  `json:"title" validate:"required,max=200"`
	Description string                  `json:"description" validate:"max=2000"`
	DueDate     string                  `json:"due_date" validate:"required,datetime=2006-01-02"`
	ImagePath   *string                 `json:"image_path" validate:"omitempty,max=500"`
	URL         *string                 `json:"url" validate:"omitempty,url"`
	Color       *string                 `json:"color" validate:"omitempty,hexcolor,len=7"`
	Checklist   *[]ChecklistItemRequest `json:"checklist" validate:"omitempty,dive"`
}

type ChecklistItemRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Completed bool   `json:"completed"`
}

type MoveTaskRequest struct {
	Category string `json:"category" validate:"required"`
}

type ReorderRequest struct {
	Direction string `json:"direction" validate:"required,oneof=UP DOWN up down"`
}

type CompletionRequest struct {
	Completed bool `json:"completed"`
}

type AddActivityRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type ShareRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"required,min=1"`
}

type MarkCompletedResponse struct {
	Completed int `json:"completed"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
