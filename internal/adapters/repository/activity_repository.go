package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/database"
	"github.com/taskmaster/bacheca/internal/ports"
)

const activityColumns = `id, task_id, name, status, ordinal`

// ActivityRepositoryImpl implements the ActivityRepository interface
type ActivityRepositoryImpl struct {
	db *database.DB
}

// NewActivityRepository creates a new checklist repository
func NewActivityRepository(db *database.DB) ports.ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

// Create appends the activity after the last ordinal of its task.
func (r *ActivityRepositoryImpl) Create(ctx context.Context, activity *entities.Activity) error {
	query := `
		INSERT INTO activities (task_id, name, status, ordinal)
		SELECT $1, $2, $3, COALESCE(MAX(ordinal) + 1, 0)
		FROM activities WHERE task_id = $1
		RETURNING id, ordinal`

	err := r.db.DB.QueryRowContext(ctx, query,
		activity.TaskID, activity.Name, activity.Status,
	).Scan(&activity.ID, &activity.Ordinal)
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("create activity: %w", err)
	}

	return nil
}

func (r *ActivityRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

	var activity entities.Activity
	if err := r.db.DB.GetContext(ctx, &activity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrActivityNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}

	return &activity, nil
}

func (r *ActivityRepositoryImpl) Delete(ctx context.Context, id int64) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrActivityNotFound
	}

	return nil
}

func (r *ActivityRepositoryImpl) SetStatus(ctx context.Context, id int64, status entities.TaskStatus) error {
	result, err := r.db.DB.ExecContext(ctx, `UPDATE activities SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update activity status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrActivityNotFound
	}

	return nil
}

func (r *ActivityRepositoryImpl) ListByTask(ctx context.Context, taskID int64) ([]entities.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE task_id = $1
		ORDER BY ordinal, id`

	var activities []entities.Activity
	if err := r.db.DB.SelectContext(ctx, &activities, query, taskID); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	return activities, nil
}

func (r *ActivityRepositoryImpl) ListByTasks(ctx context.Context, taskIDs []int64) (map[int64][]entities.Activity, error) {
	byTask := make(map[int64][]entities.Activity, len(taskIDs))
	if len(taskIDs) == 0 {
		return byTask, nil
	}

	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE task_id = ANY($1)
		ORDER BY task_id, ordinal, id`

	var activities []entities.Activity
	if err := r.db.DB.SelectContext(ctx, &activities, query, pq.Array(taskIDs)); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	for _, a := range activities {
		byTask[a.TaskID] = append(byTask[a.TaskID], a)
	}
	return byTask, nil
}

func (r *ActivityRepositoryImpl) ReplaceForTask(ctx context.Context, taskID int64, activities []entities.Activity) ([]entities.Activity, error) {
	stored := make([]entities.Activity, 0, len(activities))

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE task_id = $1`, taskID); err != nil {
			return fmt.Errorf("clear checklist: %w", err)
		}

		insert := `
			INSERT INTO activities (task_id, name, status, ordinal)
			VALUES ($1, $2, $3, $4)
			RETURNING id`
		for i, a := range activities {
			a.TaskID = taskID
			a.Ordinal = i
			if err := tx.QueryRowContext(ctx, insert, taskID, a.Name, a.Status, a.Ordinal).Scan(&a.ID); err != nil {
				if _, ok := foreignKeyViolation(err); ok {
					return entities.ErrTaskNotFound
				}
				return fmt.Errorf("insert activity: %w", err)
			}
			stored = append(stored, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

func (r *ActivityRepositoryImpl) DeleteByTask(ctx context.Context, taskID int64) error {
	if _, err := r.db.DB.ExecContext(ctx, `DELETE FROM activities WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}
