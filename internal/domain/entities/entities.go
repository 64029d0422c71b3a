package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrBoardNotFound       = errors.New("board not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrActivityNotFound    = errors.New("activity not found")
	ErrNoMatchingBoard     = errors.New("recipient has no board of the task's category")
	ErrForbidden           = errors.New("only the author may perform this operation")
	ErrCannotShareWithSelf = errors.New("a task cannot be shared with its author")
	ErrBoardLimitReached   = errors.New("a user can own at most 3 boards")
	ErrLastBoard           = errors.New("the last board cannot be deleted")
	ErrCompletionDerived   = errors.New("completion is derived from the checklist")
	ErrInvalidCategory     = errors.New("invalid board category")
	ErrInvalidDirection    = errors.New("invalid reorder direction")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrLoginTaken          = errors.New("login already taken")
)

// MaxBoardsPerUser mirrors the size of the category enumeration.
const MaxBoardsPerUser = 3

// ValidationError reports a rejected input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBoardNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrActivityNotFound) ||
		errors.Is(err, ErrNoMatchingBoard)
}

// BoardCategory is the closed set of board kinds a user can own.
type BoardCategory string

const (
	CategoryUniversity BoardCategory = "UNIVERSITY"
	CategoryWork       BoardCategory = "WORK"
	CategoryFreeTime   BoardCategory = "FREE_TIME"
)

// Categories lists every category in display order.
var Categories = []BoardCategory{CategoryUniversity, CategoryWork, CategoryFreeTime}

var categoryDisplayNames = map[BoardCategory]string{
	CategoryUniversity: "University",
	CategoryWork:       "Work",
	CategoryFreeTime:   "Free Time",
}

var categoryDefaultDescriptions = map[BoardCategory]string{
	CategoryUniversity: "Study plan and exams",
	CategoryWork:       "Working day organization",
	CategoryFreeTime:   "Hobbies and free time",
}

func (c BoardCategory) IsValid() bool {
	_, ok := categoryDisplayNames[c]
	return ok
}

// DisplayName returns the human readable name of the category.
func (c BoardCategory) DisplayName() string {
	return categoryDisplayNames[c]
}

// DefaultDescription is used for boards provisioned at registration.
func (c BoardCategory) DefaultDescription() string {
	return categoryDefaultDescriptions[c]
}

// Order returns the index of c in Categories, or -1.
func (c BoardCategory) Order() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return -1
}

// ParseBoardCategory accepts either the stored name or the display name,
// case-insensitively.
func ParseBoardCategory(s string) (BoardCategory, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.DisplayName()) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

type TaskStatus string

const (
	StatusNotCompleted TaskStatus = "NOT_COMPLETED"
	StatusCompleted    TaskStatus = "COMPLETED"
)

func (s TaskStatus) IsValid() bool {
	return s == StatusNotCompleted || s == StatusCompleted
}

// StatusFromBool maps a checkbox value onto a status.
func StatusFromBool(completed bool) TaskStatus {
	if completed {
		return StatusCompleted
	}
	return StatusNotCompleted
}

// Direction is a reorder step within a board view.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Offset returns the index delta of the direction.
func (d Direction) Offset() (int, error) {
	switch Direction(strings.ToUpper(string(d))) {
	case DirectionUp:
		return -1, nil
	case DirectionDown:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, string(d))
	}
}

// User represents a registered user
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Login        string    `json:"login" db:"login"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Board is a user's container of tasks for one category
type Board struct {
	ID          int64         `json:"id" db:"id"`
	Category    BoardCategory `json:"category" db:"category"`
	Description string        `json:"description" db:"description"`
	OwnerID     uuid.UUID     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Task is a single to-do item
type Task struct {
	ID          int64      `json:"id" db:"id"`
	BoardID     int64      `json:"board_id" db:"board_id"`
	AuthorID    uuid.UUID  `json:"author_id" db:"author_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	ImagePath   *string    `json:"image_path" db:"image_path"`
	URL         *string    `json:"url" db:"url"`
	Color       *string    `json:"color" db:"color"`
	Status      TaskStatus `json:"status" db:"status"`
	Position    int        `json:"position" db:"position"`
	Checklist   []Activity `json:"checklist"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Activity is one checklist entry of a task
type Activity struct {
	ID      int64      `json:"id" db:"id"`
	TaskID  int64      `json:"task_id" db:"task_id"`
	Name    string     `json:"name" db:"name"`
	Status  TaskStatus `json:"status" db:"status"`
	Ordinal int        `json:"ordinal" db:"ordinal"`
}

// Share is a visibility edge: the task is visible to the user.
type Share struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BoardView is a board together with the tasks its owner sees in it.
type BoardView struct {
	Board *Board  `json:"board"`
	Tasks []*Task `json:"tasks"`
}

// Business logic methods for Task

func (t *Task) IsAuthoredBy(userID uuid.UUID) bool {
	return t.AuthorID == userID
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// HasChecklist reports whether completion is driven by activities.
func (t *Task) HasChecklist() bool {
	return len(t.Checklist) > 0
}

// ChecklistCompleted reports whether every activity is completed. An empty
// checklist is never complete.
func (t *Task) ChecklistCompleted() bool {
	if len(t.Checklist) == 0 {
		return false
	}
	for _, a := range t.Checklist {
		if a.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// RecomputeStatus derives the task status from a non-empty checklist.
// With an empty checklist the status is left to the direct toggle.
func (t *Task) RecomputeStatus() {
	if !t.HasChecklist() {
		return
	}
	t.Status = StatusFromBool(t.ChecklistCompleted())
}

// SetCompleted is the direct toggle. It is rejected while a checklist drives
// the status.
func (t *Task) SetCompleted(completed bool) error {
	if t.HasChecklist() {
		return ErrCompletionDerived
	}
	t.Status = StatusFromBool(completed)
	return nil
}

// ActivityIndex returns the checklist index of the activity, or -1.
func (t *Task) ActivityIndex(activityID int64) int {
	for i, a := range t.Checklist {
		if a.ID == activityID {
			return i
		}
	}
	return -1
}

// IsDueBy reports whether the task has a due date on or before day.
func (t *Task) IsDueBy(day time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return !truncateDay(*t.DueDate).After(truncateDay(day))
}

// Matches reports a case-insensitive substring match on title or description.
func (t *Task) Matches(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(t.Title), term) ||
		strings.Contains(strings.ToLower(t.Description), term)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Business logic methods for Board

func (b *Board) IsOwnedBy(userID uuid.UUID) bool {
	return b.OwnerID == userID
}

// BoardsByCategory indexes a user's boards by category.
func BoardsByCategory(boards []*Board) map[BoardCategory]*Board {
	out := make(map[BoardCategory]*Board, len(boards))
	for _, b := range boards {
		out[b.Category] = b
	}
	return out
}
