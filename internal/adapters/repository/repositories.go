// Package repository implements the storage ports on PostgreSQL with sqlx.
package repository

import (
	"github.com/taskmaster/bacheca/internal/infrastructure/database"
	"github.com/taskmaster/bacheca/internal/ports"
)

// NewRepositories builds every PostgreSQL repository over one connection pool
func NewRepositories(db *database.DB) *ports.Repositories {
	return &ports.Repositories{
		Users:      NewUserRepository(db.DB),
		Boards:     NewBoardRepository(db.DB),
		Tasks:      NewTaskRepository(db),
		Activities: NewActivityRepository(db),
		Shares:     NewShareRepository(db.DB),
		Auth:       NewAuthRepository(db.DB),
	}
}
