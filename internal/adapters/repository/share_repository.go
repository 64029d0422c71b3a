package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

// ShareRepositoryImpl implements the ShareRepository interface
type ShareRepositoryImpl struct {
	db *sqlx.DB
}

// NewShareRepository creates a new sharing ledger repository
func NewShareRepository(db *sqlx.DB) ports.ShareRepository {
	return &ShareRepositoryImpl{db: db}
}

// Create writes the edge. A duplicate hits the primary key and reports
// created=false.
func (r *ShareRepositoryImpl) Create(ctx context.Context, share *entities.Share) (bool, error) {
	query := `
		INSERT INTO shares (user_id, task_id)
		VALUES ($1, $2)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, share.UserID, share.TaskID).Scan(&share.CreatedAt)
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	if constraint, ok := foreignKeyViolation(err); ok {
		if constraint == "shares_user_id_fkey" {
			return false, entities.ErrUserNotFound
		}
		return false, entities.ErrTaskNotFound
	}
	return false, fmt.Errorf("create share: %w", err)
}

func (r *ShareRepositoryImpl) Delete(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shares WHERE user_id = $1 AND task_id = $2`, userID, taskID)
	if err != nil {
		return false, fmt.Errorf("delete share: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *ShareRepositoryImpl) Exists(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM shares WHERE user_id = $1 AND task_id = $2)`, userID, taskID)
	if err != nil {
		return false, fmt.Errorf("check share: %w", err)
	}
	return exists, nil
}

func (r *ShareRepositoryImpl) ListUsersForTask(ctx context.Context, taskID int64) ([]*entities.User, error) {
	query := `
		SELECT u.id, u.name, u.login, u.password_hash, u.created_at, u.updated_at
		FROM shares s
		JOIN users u ON u.id = s.user_id
		WHERE s.task_id = $1
		ORDER BY u.name, u.login`

	var users []*entities.User
	if err := r.db.SelectContext(ctx, &users, query, taskID); err != nil {
		return nil, fmt.Errorf("list share recipients: %w", err)
	}

	return users, nil
}

func (r *ShareRepositoryImpl) ListTaskIDsForUser(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT task_id FROM shares WHERE user_id = $1 ORDER BY task_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared tasks: %w", err)
	}
	return ids, nil
}

func (r *ShareRepositoryImpl) DeleteByTask(ctx context.Context, taskID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shares WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("delete task shares: %w", err)
	}
	return nil
}
