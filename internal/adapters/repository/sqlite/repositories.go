package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

const visibleTo = `(tasks.author_id = ? OR EXISTS (
	SELECT 1 FROM shares WHERE shares.task_id = tasks.id AND shares.user_id = ?))`

// UserRepository handles users.
type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m := userModel{
		ID:           user.ID.String(),
		Name:         user.Name,
		Login:        user.Login,
		PasswordHash: user.PasswordHash,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entities.ErrLoginTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.first(ctx, "id = ?", id.String())
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*entities.User, error) {
	return r.first(ctx, "login = ?", login)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*entities.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return toUser(&m), nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&userModel{}, "id = ?", id.String())
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return entities.ErrUserNotFound
		}

		var boardIDs []int64
		if err := tx.Model(&boardModel{}).Where("owner_id = ?", id.String()).Pluck("id", &boardIDs).Error; err != nil {
			return fmt.Errorf("list user boards: %w", err)
		}
		if len(boardIDs) == 0 {
			return nil
		}
		var taskIDs []int64
		if err := tx.Model(&taskModel{}).Where("board_id IN ?", boardIDs).Pluck("id", &taskIDs).Error; err != nil {
			return fmt.Errorf("list user tasks: %w", err)
		}
		if err := deleteTasks(tx, taskIDs); err != nil {
			return err
		}
		if err := tx.Where("id IN ?", boardIDs).Delete(&boardModel{}).Error; err != nil {
			return fmt.Errorf("delete user boards: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	var models []userModel
	if err := r.db.WithContext(ctx).Order("name, login").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*entities.User, len(models))
	for i := range models {
		users[i] = toUser(&models[i])
	}
	return users, nil
}

// BoardRepository handles boards.
type BoardRepository struct {
	db *gorm.DB
}

func (r *BoardRepository) Create(ctx context.Context, board *entities.Board) (bool, error) {
	m := fromBoard(board)
	m.ID = 0
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, fmt.Errorf("create board: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByOwnerAndCategory(ctx, board.OwnerID, board.Category)
		if err != nil {
			return false, err
		}
		*board = *existing
		return false, nil
	}
	*board = *toBoard(m)
	return true, nil
}

func (r *BoardRepository) GetByID(ctx context.Context, id int64) (*entities.Board, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *BoardRepository) GetByOwnerAndCategory(ctx context.Context, ownerID uuid.UUID, category entities.BoardCategory) (*entities.Board, error) {
	return r.first(ctx, "owner_id = ? AND category = ?", ownerID.String(), string(category))
}

func (r *BoardRepository) first(ctx context.Context, query string, args ...interface{}) (*entities.Board, error) {
	var m boardModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrBoardNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return toBoard(&m), nil
}

func (r *BoardRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error) {
	var models []boardModel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID.String()).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	boards := make([]*entities.Board, len(models))
	for i := range models {
		boards[i] = toBoard(&models[i])
	}
	sort.Slice(boards, func(i, j int) bool {
		return boards[i].Category.Order() < boards[j].Category.Order()
	})
	return boards, nil
}

func (r *BoardRepository) Update(ctx context.Context, board *entities.Board) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&boardModel{}).Where("id = ?", board.ID).
		Updates(map[string]interface{}{"description": board.Description, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("update board: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrBoardNotFound
	}
	board.UpdatedAt = now
	return nil
}

// Delete removes the board with its tasks, checklists and share edges.
func (r *BoardRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&boardModel{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete board: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return entities.ErrBoardNotFound
		}

		var taskIDs []int64
		if err := tx.Model(&taskModel{}).Where("board_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
			return fmt.Errorf("list board tasks: %w", err)
		}
		return deleteTasks(tx, taskIDs)
	})
}

func deleteTasks(tx *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&activityModel{}).Error; err != nil {
		return fmt.Errorf("delete checklists: %w", err)
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&shareModel{}).Error; err != nil {
		return fmt.Errorf("delete shares: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&taskModel{}).Error; err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}

// TaskRepository handles tasks.
type TaskRepository struct {
	db *gorm.DB
}

func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	var boards int64
	if err := r.db.WithContext(ctx).Model(&boardModel{}).Where("id = ?", task.BoardID).Count(&boards).Error; err != nil {
		return fmt.Errorf("check board: %w", err)
	}
	if boards == 0 {
		return entities.ErrBoardNotFound
	}

	m := fromTask(task)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	task.ID, task.CreatedAt, task.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	var m taskModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return toTask(&m), nil
}

func (r *TaskRepository) Update(ctx context.Context, task *entities.Task) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&taskModel{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"board_id":    task.BoardID,
		"title":       task.Title,
		"description": task.Description,
		"due_date":    task.DueDate,
		"image_path":  task.ImagePath,
		"url":         task.URL,
		"color":       task.Color,
		"status":      string(task.Status),
		"position":    task.Position,
		"updated_at":  now,
	})
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrTaskNotFound
	}
	task.UpdatedAt = now
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&taskModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("check task: %w", err)
		}
		if n == 0 {
			return entities.ErrTaskNotFound
		}
		return deleteTasks(tx, []int64{id})
	})
}

func (r *TaskRepository) ListByBoard(ctx context.Context, boardID int64) ([]*entities.Task, error) {
	var models []taskModel
	if err := r.db.WithContext(ctx).Where("board_id = ?", boardID).Order("position, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list board tasks: %w", err)
	}
	return toTasks(models), nil
}

func (r *TaskRepository) ListVisibleInCategory(ctx context.Context, userID uuid.UUID, category entities.BoardCategory) ([]*entities.Task, error) {
	uid := userID.String()
	var models []taskModel
	err := r.db.WithContext(ctx).
		Joins("JOIN boards ON boards.id = tasks.board_id").
		Where("boards.category = ?", string(category)).
		Where(visibleTo, uid, uid).
		Order("tasks.position, tasks.id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list visible tasks: %w", err)
	}
	return toTasks(models), nil
}

func (r *TaskRepository) Search(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	uid := filter.VisibleTo.String()
	q := r.db.WithContext(ctx).Model(&taskModel{}).Where(visibleTo, uid, uid)

	if filter.DueBy != nil {
		q = q.Where("tasks.due_date IS NOT NULL AND tasks.due_date <= ?", *filter.DueBy)
	}

	var models []taskModel
	if err := q.Order("tasks.due_date IS NULL, tasks.due_date, tasks.id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	tasks := toTasks(models)
	if filter.Term == nil || *filter.Term == "" {
		return tasks, nil
	}

	// SQLite LIKE folds ASCII only, so the term is matched here.
	matched := tasks[:0]
	for _, t := range tasks {
		if t.Matches(*filter.Term) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (r *TaskRepository) NextPosition(ctx context.Context, boardID int64) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("board_id = ?", boardID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	return next, nil
}

func (r *TaskRepository) SwapPositions(ctx context.Context, a, b *entities.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []taskModel
		if err := tx.Where("id IN ?", []int64{a.ID, b.ID}).Find(&models).Error; err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		if len(models) != 2 {
			return entities.ErrTaskNotFound
		}

		positions := map[int64]int{models[0].ID: models[0].Position, models[1].ID: models[1].Position}
		now := time.Now()
		for id, pos := range map[int64]int{a.ID: positions[b.ID], b.ID: positions[a.ID]} {
			err := tx.Model(&taskModel{}).Where("id = ?", id).
				Updates(map[string]interface{}{"position": pos, "updated_at": now}).Error
			if err != nil {
				return fmt.Errorf("swap position: %w", err)
			}
		}

		a.Position, b.Position = positions[b.ID], positions[a.ID]
		return nil
	})
}

func (r *TaskRepository) MarkBoardCompleted(ctx context.Context, boardID int64, authorID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&taskModel{}).
			Where("board_id = ? AND author_id = ?", boardID, authorID.String()).
			Order("id").
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("list board tasks: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		completed := string(entities.StatusCompleted)
		err = tx.Model(&taskModel{}).Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": completed, "updated_at": time.Now()}).Error
		if err != nil {
			return fmt.Errorf("complete tasks: %w", err)
		}
		err = tx.Model(&activityModel{}).Where("task_id IN ?", ids).Update("status", completed).Error
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

// ActivityRepository handles checklist items.
type ActivityRepository struct {
	db *gorm.DB
}

func (r *ActivityRepository) Create(ctx context.Context, activity *entities.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&taskModel{}).Where("id = ?", activity.TaskID).Count(&n).Error; err != nil {
			return fmt.Errorf("check task: %w", err)
		}
		if n == 0 {
			return entities.ErrTaskNotFound
		}

		var next int
		err := tx.Model(&activityModel{}).Where("task_id = ?", activity.TaskID).
			Select("COALESCE(MAX(ordinal) + 1, 0)").Scan(&next).Error
		if err != nil {
			return fmt.Errorf("next ordinal: %w", err)
		}

		m := activityModel{TaskID: activity.TaskID, Name: activity.Name, Status: string(activity.Status), Ordinal: next}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		activity.ID, activity.Ordinal = m.ID, m.Ordinal
		return nil
	})
}

func (r *ActivityRepository) GetByID(ctx context.Context, id int64) (*entities.Activity, error) {
	var m activityModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrActivityNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	a := toActivity(&m)
	return &a, nil
}

func (r *ActivityRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&activityModel{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete activity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrActivityNotFound
	}
	return nil
}

func (r *ActivityRepository) SetStatus(ctx context.Context, id int64, status entities.TaskStatus) error {
	res := r.db.WithContext(ctx).Model(&activityModel{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("update activity status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrActivityNotFound
	}
	return nil
}

func (r *ActivityRepository) ListByTask(ctx context.Context, taskID int64) ([]entities.Activity, error) {
	byTask, err := r.ListByTasks(ctx, []int64{taskID})
	if err != nil {
		return nil, err
	}
	return byTask[taskID], nil
}

func (r *ActivityRepository) ListByTasks(ctx context.Context, taskIDs []int64) (map[int64][]entities.Activity, error) {
	byTask := make(map[int64][]entities.Activity, len(taskIDs))
	if len(taskIDs) == 0 {
		return byTask, nil
	}

	var models []activityModel
	if err := r.db.WithContext(ctx).Where("task_id IN ?", taskIDs).Order("task_id, ordinal, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	for i := range models {
		byTask[models[i].TaskID] = append(byTask[models[i].TaskID], toActivity(&models[i]))
	}
	return byTask, nil
}

func (r *ActivityRepository) ReplaceForTask(ctx context.Context, taskID int64, activities []entities.Activity) ([]entities.Activity, error) {
	stored := make([]entities.Activity, 0, len(activities))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&taskModel{}).Where("id = ?", taskID).Count(&n).Error; err != nil {
			return fmt.Errorf("check task: %w", err)
		}
		if n == 0 {
			return entities.ErrTaskNotFound
		}

		if err := tx.Where("task_id = ?", taskID).Delete(&activityModel{}).Error; err != nil {
			return fmt.Errorf("clear checklist: %w", err)
		}
		for i, a := range activities {
			m := activityModel{TaskID: taskID, Name: a.Name, Status: string(a.Status), Ordinal: i}
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert activity: %w", err)
			}
			stored = append(stored, toActivity(&m))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *ActivityRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&activityModel{}).Error; err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}

// ShareRepository is the sharing ledger.
type ShareRepository struct {
	db *gorm.DB
}

func (r *ShareRepository) Create(ctx context.Context, share *entities.Share) (bool, error) {
	db := r.db.WithContext(ctx)

	var n int64
	if err := db.Model(&userModel{}).Where("id = ?", share.UserID.String()).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	if n == 0 {
		return false, entities.ErrUserNotFound
	}
	if err := db.Model(&taskModel{}).Where("id = ?", share.TaskID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check task: %w", err)
	}
	if n == 0 {
		return false, entities.ErrTaskNotFound
	}

	m := shareModel{UserID: share.UserID.String(), TaskID: share.TaskID}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return false, fmt.Errorf("create share: %w", res.Error)
	}
	share.CreatedAt = m.CreatedAt
	return res.RowsAffected > 0, nil
}

func (r *ShareRepository) Delete(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND task_id = ?", userID.String(), taskID).Delete(&shareModel{})
	if res.Error != nil {
		return false, fmt.Errorf("delete share: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ShareRepository) Exists(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&shareModel{}).
		Where("user_id = ? AND task_id = ?", userID.String(), taskID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check share: %w", err)
	}
	return n > 0, nil
}

func (r *ShareRepository) ListUsersForTask(ctx context.Context, taskID int64) ([]*entities.User, error) {
	var models []userModel
	err := r.db.WithContext(ctx).
		Joins("JOIN shares ON shares.user_id = users.id").
		Where("shares.task_id = ?", taskID).
		Order("users.name, users.login").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list share recipients: %w", err)
	}
	users := make([]*entities.User, len(models))
	for i := range models {
		users[i] = toUser(&models[i])
	}
	return users, nil
}

func (r *ShareRepository) ListTaskIDsForUser(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&shareModel{}).
		Where("user_id = ?", userID.String()).Order("task_id").Pluck("task_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list shared tasks: %w", err)
	}
	return ids, nil
}

func (r *ShareRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&shareModel{}).Error; err != nil {
		return fmt.Errorf("delete task shares: %w", err)
	}
	return nil
}

// AuthRepository stores refresh tokens.
type AuthRepository struct {
	db *gorm.DB
}

func (r *AuthRepository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m := refreshTokenModel{UserID: userID.String(), TokenHash: tokenHash, ExpiresAt: expiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *AuthRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*ports.RefreshToken, error) {
	var m refreshTokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return toRefreshToken(&m), nil
}

func (r *AuthRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	err := r.db.WithContext(ctx).Model(&refreshTokenModel{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *AuthRepository) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&refreshTokenModel{}).
		Where("user_id = ? AND revoked_at IS NULL", userID.String()).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}
	return nil
}

func (r *AuthRepository) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at IS NOT NULL", time.Now()).
		Delete(&refreshTokenModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("cleanup expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
