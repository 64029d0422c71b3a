package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

const boardColumns = `id, category, description, owner_id, created_at, updated_at`

// BoardRepositoryImpl implements the BoardRepository interface
type BoardRepositoryImpl struct {
	db *sqlx.DB
}

// NewBoardRepository creates a new board repository
func NewBoardRepository(db *sqlx.DB) ports.BoardRepository {
	return &BoardRepositoryImpl{db: db}
}

func (r *BoardRepositoryImpl) Create(ctx context.Context, board *entities.Board) (bool, error) {
	query := `
		INSERT INTO boards (category, description, owner_id)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT boards_owner_category_key DO NOTHING
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		board.Category, board.Description, board.OwnerID,
	).Scan(&board.ID, &board.CreatedAt, &board.UpdatedAt)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := r.GetByOwnerAndCategory(ctx, board.OwnerID, board.Category)
		if err != nil {
			return false, err
		}
		*board = *existing
		return false, nil
	default:
		if _, ok := foreignKeyViolation(err); ok {
			return false, entities.ErrUserNotFound
		}
		return false, fmt.Errorf("create board: %w", err)
	}
}

func (r *BoardRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = $1`

	var board entities.Board
	if err := r.db.GetContext(ctx, &board, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrBoardNotFound
		}
		return nil, fmt.Errorf("get board by id: %w", err)
	}

	return &board, nil
}

func (r *BoardRepositoryImpl) GetByOwnerAndCategory(ctx context.Context, ownerID uuid.UUID, category entities.BoardCategory) (*entities.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE owner_id = $1 AND category = $2`

	var board entities.Board
	if err := r.db.GetContext(ctx, &board, query, ownerID, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrBoardNotFound
		}
		return nil, fmt.Errorf("get board by category: %w", err)
	}

	return &board, nil
}

func (r *BoardRepositoryImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error) {
	query := `
		SELECT ` + boardColumns + `
		FROM boards
		WHERE owner_id = $1
		ORDER BY CASE category
			WHEN 'UNIVERSITY' THEN 0
			WHEN 'WORK' THEN 1
			WHEN 'FREE_TIME' THEN 2
		END`

	var boards []*entities.Board
	if err := r.db.SelectContext(ctx, &boards, query, ownerID); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	return boards, nil
}

func (r *BoardRepositoryImpl) Update(ctx context.Context, board *entities.Board) error {
	query := `
		UPDATE boards
		SET description = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	if err := r.db.QueryRowContext(ctx, query, board.ID, board.Description).Scan(&board.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrBoardNotFound
		}
		return fmt.Errorf("update board: %w", err)
	}

	return nil
}

// Delete removes the board; tasks, their checklists and share edges go with
// it through ON DELETE CASCADE.
func (r *BoardRepositoryImpl) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrBoardNotFound
	}

	return nil
}
