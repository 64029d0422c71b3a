package sqlite

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

type userModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:100;not null"`
	Login        string `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type boardModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Category    string `gorm:"size:20;not null;uniqueIndex:idx_boards_owner_category"`
	Description string
	OwnerID     string `gorm:"size:36;not null;uniqueIndex:idx_boards_owner_category"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (boardModel) TableName() string { return "boards" }

type taskModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	BoardID     int64  `gorm:"not null;index:idx_tasks_board_position,priority:1"`
	AuthorID    string `gorm:"size:36;not null;index"`
	Title       string `gorm:"size:200;not null"`
	Description string
	DueDate     *time.Time `gorm:"index"`
	ImagePath   *string
	URL         *string
	Color       *string `gorm:"size:7"`
	Status      string  `gorm:"size:20;not null;default:NOT_COMPLETED"`
	Position    int     `gorm:"not null;default:0;index:idx_tasks_board_position,priority:2"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskModel) TableName() string { return "tasks" }

type activityModel struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	TaskID  int64  `gorm:"not null;index"`
	Name    string `gorm:"size:200;not null"`
	Status  string `gorm:"size:20;not null;default:NOT_COMPLETED"`
	Ordinal int    `gorm:"not null;default:0"`
}

func (activityModel) TableName() string { return "activities" }

type shareModel struct {
	UserID    string `gorm:"primaryKey;size:36"`
	TaskID    int64  `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

func (shareModel) TableName() string { return "shares" }

type refreshTokenModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"size:36;not null;index"`
	TokenHash string `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

func toUser(m *userModel) *entities.User {
	return &entities.User{
		ID:           uuid.MustParse(m.ID),
		Name:         m.Name,
		Login:        m.Login,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toBoard(m *boardModel) *entities.Board {
	return &entities.Board{
		ID:          m.ID,
		Category:    entities.BoardCategory(m.Category),
		Description: m.Description,
		OwnerID:     uuid.MustParse(m.OwnerID),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromBoard(b *entities.Board) *boardModel {
	return &boardModel{
		ID:          b.ID,
		Category:    string(b.Category),
		Description: b.Description,
		OwnerID:     b.OwnerID.String(),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toTask(m *taskModel) *entities.Task {
	return &entities.Task{
		ID:          m.ID,
		BoardID:     m.BoardID,
		AuthorID:    uuid.MustParse(m.AuthorID),
		Title:       m.Title,
		Description: m.Description,
		DueDate:     m.DueDate,
		ImagePath:   m.ImagePath,
		URL:         m.URL,
		Color:       m.Color,
		Status:      entities.TaskStatus(m.Status),
		Position:    m.Position,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toTasks(models []taskModel) []*entities.Task {
	tasks := make([]*entities.Task, len(models))
	for i := range models {
		tasks[i] = toTask(&models[i])
	}
	return tasks
}

func fromTask(t *entities.Task) *taskModel {
	return &taskModel{
		ID:          t.ID,
		BoardID:     t.BoardID,
		AuthorID:    t.AuthorID.String(),
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		ImagePath:   t.ImagePath,
		URL:         t.URL,
		Color:       t.Color,
		Status:      string(t.Status),
		Position:    t.Position,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toActivity(m *activityModel) entities.Activity {
	return entities.Activity{
		ID:      m.ID,
		TaskID:  m.TaskID,
		Name:    m.Name,
		Status:  entities.TaskStatus(m.Status),
		Ordinal: m.Ordinal,
	}
}

func toRefreshToken(m *refreshTokenModel) *ports.RefreshToken {
	return &ports.RefreshToken{
		ID:        m.ID,
		UserID:    uuid.MustParse(m.UserID),
		TokenHash: m.TokenHash,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		RevokedAt: m.RevokedAt,
	}
}
