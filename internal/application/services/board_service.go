package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// BoardService handles board management operations
type BoardService struct {
	boardRepo ports.BoardRepository
	taskRepo  ports.TaskRepository
	shareRepo ports.ShareRepository
	views     *ViewCache
	logger    *logger.Logger
}

// NewBoardService creates a new board service
func NewBoardService(
	boardRepo ports.BoardRepository,
	taskRepo ports.TaskRepository,
	shareRepo ports.ShareRepository,
	views *ViewCache,
	logger *logger.Logger,
) *BoardService {
	return &BoardService{
		boardRepo: boardRepo,
		taskRepo:  taskRepo,
		shareRepo: shareRepo,
		views:     views,
		logger:    logger.WithComponent("boards"),
	}
}

// ListBoards returns the boards of ownerID in category order
func (s *BoardService) ListBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error) {
	boards, err := s.boardRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

// CreateBoard creates a board of the requested category. A board that
// already exists for the category is returned unchanged.
func (s *BoardService) CreateBoard(ctx context.Context, ownerID uuid.UUID, req ports.CreateBoardRequest) (*entities.Board, error) {
	category, err := entities.ParseBoardCategory(req.Category)
	if err != nil {
		return nil, err
	}

	boards, err := s.boardRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	if existing, ok := entities.BoardsByCategory(boards)[category]; ok {
		s.logger.Infow("Board already exists", "board_id", existing.ID, "category", category, "user_id", ownerID)
		return existing, nil
	}
	if len(boards) >= entities.MaxBoardsPerUser {
		return nil, entities.ErrBoardLimitReached
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = category.DefaultDescription()
	}
	return s.create(ctx, ownerID, category, description)
}

func (s *BoardService) create(ctx context.Context, ownerID uuid.UUID, category entities.BoardCategory, description string) (*entities.Board, error) {
	now := time.Now()
	board := &entities.Board{
		Category:    category,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.boardRepo.Create(ctx, board)
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	if created {
		s.views.Invalidate(ctx, ownerID)
		s.logger.Infow("Board created", "board_id", board.ID, "category", category, "user_id", ownerID)
	}
	return board, nil
}

// ProvisionDefaultBoards creates any missing board of the three categories.
func (s *BoardService) ProvisionDefaultBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error) {
	boards := make([]*entities.Board, 0, len(entities.Categories))
	for _, c := range entities.Categories {
		b, err := s.create(ctx, ownerID, c, c.DefaultDescription())
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// UpdateBoard changes the description of a board the actor owns
func (s *BoardService) UpdateBoard(ctx context.Context, actorID uuid.UUID, boardID int64, req ports.UpdateBoardRequest) (*entities.Board, error) {
	board, err := s.ownedBoard(ctx, actorID, boardID)
	if err != nil {
		return nil, err
	}

	board.Description = strings.TrimSpace(req.Description)
	board.UpdatedAt = time.Now()
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}

	s.views.Invalidate(ctx, actorID)
	s.logger.Infow("Board updated", "board_id", board.ID, "user_id", actorID)
	return board, nil
}

// DeleteBoard deletes a board with all its tasks. The last board of a user
// cannot be deleted.
func (s *BoardService) DeleteBoard(ctx context.Context, actorID uuid.UUID, boardID int64) error {
	board, err := s.ownedBoard(ctx, actorID, boardID)
	if err != nil {
		return err
	}

	boards, err := s.boardRepo.ListByOwner(ctx, actorID)
	if err != nil {
		return fmt.Errorf("list boards: %w", err)
	}
	if len(boards) <= 1 {
		return entities.ErrLastBoard
	}

	tasks, err := s.taskRepo.ListByBoard(ctx, board.ID)
	if err != nil {
		return fmt.Errorf("list board tasks: %w", err)
	}
	affected := []uuid.UUID{actorID}
	for _, t := range tasks {
		users, err := recipientsOf(ctx, s.shareRepo, t)
		if err != nil {
			return err
		}
		affected = append(affected, users...)
	}

	if err := s.boardRepo.Delete(ctx, board.ID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}

	s.views.Invalidate(ctx, affected...)
	s.logger.LogUserAction(actorID.String(), "delete_board", map[string]interface{}{
		"board_id":      board.ID,
		"category":      board.Category,
		"deleted_tasks": len(tasks),
	})
	return nil
}

// MarkBoardCompleted completes every task the owner authored in the board,
// including their activities, and returns how many tasks were touched.
func (s *BoardService) MarkBoardCompleted(ctx context.Context, actorID uuid.UUID, boardID int64) (int, error) {
	board, err := s.ownedBoard(ctx, actorID, boardID)
	if err != nil {
		return 0, err
	}

	ids, err := s.taskRepo.MarkBoardCompleted(ctx, board.ID, actorID)
	if err != nil {
		return 0, fmt.Errorf("mark board completed: %w", err)
	}

	affected := []uuid.UUID{actorID}
	for _, id := range ids {
		users, err := s.shareRepo.ListUsersForTask(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("list share recipients: %w", err)
		}
		for _, u := range users {
			affected = append(affected, u.ID)
		}
	}
	s.views.Invalidate(ctx, affected...)

	s.logger.Infow("Board marked completed", "board_id", board.ID, "tasks", len(ids), "user_id", actorID)
	return len(ids), nil
}

func (s *BoardService) ownedBoard(ctx context.Context, actorID uuid.UUID, boardID int64) (*entities.Board, error) {
	board, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	// boards are private to their owner
	if !board.IsOwnedBy(actorID) {
		return nil, entities.ErrBoardNotFound
	}
	return board, nil
}
