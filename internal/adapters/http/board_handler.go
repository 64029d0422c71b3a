package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// BoardHandler handles board requests and board views
type BoardHandler struct {
	boardService      ports.BoardService
	visibilityService ports.VisibilityService
	logger            *logger.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService ports.BoardService, visibilityService ports.VisibilityService, logger *logger.Logger) *BoardHandler {
	return &BoardHandler{
		boardService:      boardService,
		visibilityService: visibilityService,
		logger:            logger.WithComponent("http.boards"),
	}
}

// ListBoards godoc
// @Summary List boards with their tasks
// @Description Every board of the caller in category order, each with the tasks the caller sees in it
// @Tags boards
// @Produce json
// @Success 200 {array} entities.BoardView
// @Security BearerAuth
// @Router /boards [get]
func (h *BoardHandler) ListBoards(c echo.Context) error {
	userID := getUserIDFromContext(c)

	views, err := h.visibilityService.BoardsFor(c.Request().Context(), userID)
	if err != nil {
		return failed(c, h.logger, "List boards", err)
	}

	return c.JSON(http.StatusOK, views)
}

// CreateBoard godoc
// @Summary Create a board
// @Description Creating a board for a category the caller already owns returns the existing board
// @Tags boards
// @Accept json
// @Produce json
// @Param request body ports.CreateBoardRequest true "Board data"
// @Success 201 {object} entities.Board
// @Failure 400 {object} ports.ErrorResponse
// @Failure 422 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards [post]
func (h *BoardHandler) CreateBoard(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateBoardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	board, err := h.boardService.CreateBoard(c.Request().Context(), userID, req)
	if err != nil {
		return failed(c, h.logger, "Create board", err, "category", req.Category)
	}

	return c.JSON(http.StatusCreated, board)
}

// UpdateBoard godoc
// @Summary Update a board description
// @Tags boards
// @Accept json
// @Produce json
// @Param id path int true "Board ID"
// @Param request body ports.UpdateBoardRequest true "Board data"
// @Success 200 {object} entities.Board
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards/{id} [put]
func (h *BoardHandler) UpdateBoard(c echo.Context) error {
	userID := getUserIDFromContext(c)
	boardID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateBoardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	board, err := h.boardService.UpdateBoard(c.Request().Context(), userID, boardID, req)
	if err != nil {
		return failed(c, h.logger, "Update board", err, "board_id", boardID)
	}

	return c.JSON(http.StatusOK, board)
}

// DeleteBoard godoc
// @Summary Delete a board
// @Description Deletes the board with its tasks, checklists and shares. The last board cannot be deleted.
// @Tags boards
// @Param id path int true "Board ID"
// @Success 204
// @Failure 404 {object} ports.ErrorResponse
// @Failure 422 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c echo.Context) error {
	userID := getUserIDFromContext(c)
	boardID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.boardService.DeleteBoard(c.Request().Context(), userID, boardID); err != nil {
		return failed(c, h.logger, "Delete board", err, "board_id", boardID)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListCategoryTasks godoc
// @Summary Tasks visible in a category
// @Description Authored and shared tasks of one category, ordered by position
// @Tags boards
// @Produce json
// @Param category path string true "UNIVERSITY, WORK or FREE_TIME"
// @Success 200 {array} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards/{category}/tasks [get]
func (h *BoardHandler) ListCategoryTasks(c echo.Context) error {
	userID := getUserIDFromContext(c)

	category, err := entities.ParseBoardCategory(c.Param("category"))
	if err != nil {
		return toHTTPError(err)
	}

	tasks, err := h.visibilityService.TasksVisibleTo(c.Request().Context(), userID, category)
	if err != nil {
		return failed(c, h.logger, "List category tasks", err, "category", category)
	}

	return c.JSON(http.StatusOK, tasks)
}

// MarkCompleted godoc
// @Summary Complete every task of a board
// @Description Marks the caller's tasks on the board and all their activities completed
// @Tags boards
// @Produce json
// @Param id path int true "Board ID"
// @Success 200 {object} ports.MarkCompletedResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /boards/{id}/complete [post]
func (h *BoardHandler) MarkCompleted(c echo.Context) error {
	userID := getUserIDFromContext(c)
	boardID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	n, err := h.boardService.MarkBoardCompleted(c.Request().Context(), userID, boardID)
	if err != nil {
		return failed(c, h.logger, "Mark board completed", err, "board_id", boardID)
	}

	return c.JSON(http.StatusOK, ports.MarkCompletedResponse{Completed: n})
}
