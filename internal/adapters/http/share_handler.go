package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// ShareHandler handles the sharing ledger of a task
type ShareHandler struct {
	sharingService ports.SharingService
	logger         *logger.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(sharingService ports.SharingService, logger *logger.Logger) *ShareHandler {
	return &ShareHandler{
		sharingService: sharingService,
		logger:         logger.WithComponent("http.shares"),
	}
}

// ListShares godoc
// @Summary Recipients of a task
// @Tags shares
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {array} entities.User
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/shares [get]
func (h *ShareHandler) ListShares(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	users, err := h.sharingService.ListSharedWith(c.Request().Context(), userID, taskID)
	if err != nil {
		return failed(c, h.logger, "List shares", err, "task_id", taskID)
	}

	return c.JSON(http.StatusOK, users)
}

// ShareTask godoc
// @Summary Share a task
// @Description Author only. Sharing with a user who already sees the task does nothing.
// @Tags shares
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.ShareRequest true "Recipients"
// @Success 200 {array} entities.User
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Failure 422 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/shares [post]
func (h *ShareHandler) ShareTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ports.ShareRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.sharingService.ShareWithMany(ctx, userID, taskID, req.UserIDs); err != nil {
		return failed(c, h.logger, "Share task", err, "task_id", taskID)
	}

	users, err := h.sharingService.ListSharedWith(ctx, userID, taskID)
	if err != nil {
		return failed(c, h.logger, "List shares", err, "task_id", taskID)
	}

	return c.JSON(http.StatusOK, users)
}

// UnshareTask godoc
// @Summary Revoke a share
// @Description Author only. Revoking a share that does not exist does nothing.
// @Tags shares
// @Param id path int true "Task ID"
// @Param user_id path string true "Recipient ID"
// @Success 204
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/shares/{user_id} [delete]
func (h *ShareHandler) UnshareTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user_id")
	}

	if err := h.sharingService.Unshare(c.Request().Context(), userID, taskID, targetID); err != nil {
		return failed(c, h.logger, "Unshare task", err, "task_id", taskID, "target_id", targetID)
	}

	return c.NoContent(http.StatusNoContent)
}
