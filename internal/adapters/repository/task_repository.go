package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/database"
	"github.com/taskmaster/bacheca/internal/ports"
)

const taskColumns = `t.id, t.board_id, t.author_id, t.title, t.description, t.due_date,
	t.image_path, t.url, t.color, t.status, t.position, t.created_at, t.updated_at`

// visibleTo matches tasks the user authored or holds a share edge to.
const visibleTo = `(t.author_id = $1 OR EXISTS (
	SELECT 1 FROM shares s WHERE s.task_id = t.id AND s.user_id = $1))`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (board_id, author_id, title, description, due_date,
			image_path, url, color, status, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.DB.QueryRowContext(ctx, query,
		task.BoardID, task.AuthorID, task.Title, task.Description, task.DueDate,
		task.ImagePath, task.URL, task.Color, task.Status, task.Position,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return entities.ErrBoardNotFound
		}
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`

	var task entities.Task
	if err := r.db.DB.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET board_id = $2, title = $3, description = $4, due_date = $5,
			image_path = $6, url = $7, color = $8, status = $9, position = $10,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.DB.QueryRowContext(ctx, query,
		task.ID, task.BoardID, task.Title, task.Description, task.DueDate,
		task.ImagePath, task.URL, task.Color, task.Status, task.Position,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

// Delete removes the task with its share edges and checklist in one
// transaction.
func (r *TaskRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shares WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("delete task shares: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("delete checklist: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return entities.ErrTaskNotFound
		}
		return nil
	})
}

func (r *TaskRepositoryImpl) ListByBoard(ctx context.Context, boardID int64) ([]*entities.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		WHERE t.board_id = $1
		ORDER BY t.position, t.id`

	var tasks []*entities.Task
	if err := r.db.DB.SelectContext(ctx, &tasks, query, boardID); err != nil {
		return nil, fmt.Errorf("list board tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) ListVisibleInCategory(ctx context.Context, userID uuid.UUID, category entities.BoardCategory) ([]*entities.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN boards b ON b.id = t.board_id
		WHERE b.category = $2 AND ` + visibleTo + `
		ORDER BY t.position, t.id`

	var tasks []*entities.Task
	if err := r.db.DB.SelectContext(ctx, &tasks, query, userID, category); err != nil {
		return nil, fmt.Errorf("list visible tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) Search(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	conditions := []string{visibleTo}
	args := []interface{}{filter.VisibleTo}
	argIndex := 2

	if filter.Term != nil && *filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("(t.title ILIKE $%d OR t.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(*filter.Term)+"%")
		argIndex++
	}

	if filter.DueBy != nil {
		conditions = append(conditions, fmt.Sprintf("t.due_date <= $%d", argIndex))
		args = append(args, filter.DueBy.Format(ports.DateLayout))
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY t.due_date ASC NULLS LAST, t.id`

	var tasks []*entities.Task
	if err := r.db.DB.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) NextPosition(ctx context.Context, boardID int64) (int, error) {
	var next int
	err := r.db.DB.GetContext(ctx, &next,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE board_id = $1`, boardID)
	if err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	return next, nil
}

func (r *TaskRepositoryImpl) SwapPositions(ctx context.Context, a, b *entities.Task) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var rows []struct {
			ID       int64 `db:"id"`
			Position int   `db:"position"`
		}
		err := tx.SelectContext(ctx, &rows,
			`SELECT id, position FROM tasks WHERE id IN ($1, $2) FOR UPDATE`, a.ID, b.ID)
		if err != nil {
			return fmt.Errorf("lock tasks: %w", err)
		}
		if len(rows) != 2 {
			return entities.ErrTaskNotFound
		}

		positions := map[int64]int{rows[0].ID: rows[0].Position, rows[1].ID: rows[1].Position}
		update := `UPDATE tasks SET position = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, a.ID, positions[b.ID]); err != nil {
			return fmt.Errorf("swap position: %w", err)
		}
		if _, err := tx.ExecContext(ctx, update, b.ID, positions[a.ID]); err != nil {
			return fmt.Errorf("swap position: %w", err)
		}

		a.Position, b.Position = positions[b.ID], positions[a.ID]
		return nil
	})
}

func (r *TaskRepositoryImpl) MarkBoardCompleted(ctx context.Context, boardID int64, authorID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		err := tx.SelectContext(ctx, &ids, `
			UPDATE tasks
			SET status = $3, updated_at = CURRENT_TIMESTAMP
			WHERE board_id = $1 AND author_id = $2
			RETURNING id`, boardID, authorID, entities.StatusCompleted)
		if err != nil {
			return fmt.Errorf("complete tasks: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE activities SET status = $2 WHERE task_id = ANY($1)`,
			pq.Array(ids), entities.StatusCompleted)
		if err != nil {
			return fmt.Errorf("complete activities: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
