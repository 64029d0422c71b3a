// Package sqlite implements the storage ports on a local SQLite file through
// gorm, for single-user deployments.
package sqlite

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskmaster/bacheca/internal/ports"
)

// Open opens a SQLite database and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "bacheca.db"
	}

	if err := ensureDir(dsn); err != nil {
		return nil, err
	}

	dbLogger := gormlogger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(
		&userModel{},
		&boardModel{},
		&taskModel{},
		&activityModel{},
		&shareModel{},
		&refreshTokenModel{},
	); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// NewRepositories builds every SQLite repository over one handle
func NewRepositories(db *gorm.DB) *ports.Repositories {
	return &ports.Repositories{
		Users:      &UserRepository{db: db},
		Boards:     &BoardRepository{db: db},
		Tasks:      &TaskRepository{db: db},
		Activities: &ActivityRepository{db: db},
		Shares:     &ShareRepository{db: db},
		Auth:       &AuthRepository{db: db},
	}
}

// ensureDir creates the parent directory of a file DSN.
func ensureDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
