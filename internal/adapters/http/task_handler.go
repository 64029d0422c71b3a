package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// TaskHandler handles task and checklist requests
type TaskHandler struct {
	taskService       ports.TaskService
	visibilityService ports.VisibilityService
	logger            *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, visibilityService ports.VisibilityService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		visibilityService: visibilityService,
		logger:            logger.WithComponent("http.tasks"),
	}
}

// CreateTask godoc
// @Summary Create a task
// @Description Create a task at the bottom of the caller's board for the category
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), userID, req)
	if err != nil {
		return failed(c, h.logger, "Create task", err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask godoc
// @Summary Get a task
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), userID, taskID)
	if err != nil {
		return failed(c, h.logger, "Get task", err, "task_id", taskID)
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Edit a task
// @Description Author only. A checklist in the body replaces the stored one.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Task data"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), userID, taskID, req)
	if err != nil {
		return failed(c, h.logger, "Update task", err, "task_id", taskID)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Author only. Removes the checklist and every share of the task.
// @Tags tasks
// @Param id path int true "Task ID"
// @Success 204
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), userID, taskID); err != nil {
		return failed(c, h.logger, "Delete task", err, "task_id", taskID)
	}

	return c.NoContent(http.StatusNoContent)
}

// MoveTask godoc
// @Summary Move a task to another category
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.MoveTaskRequest true "Target category"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/move [post]
func (h *TaskHandler) MoveTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ports.MoveTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := entities.ParseBoardCategory(req.Category)
	if err != nil {
		return toHTTPError(err)
	}

	task, err := h.taskService.MoveTask(c.Request().Context(), userID, taskID, category)
	if err != nil {
		return failed(c, h.logger, "Move task", err, "task_id", taskID, "category", category)
	}

	return c.JSON(http.StatusOK, task)
}

// ReorderTask godoc
// @Summary Move a task one step up or down
// @Description Swaps the task with its neighbour in the caller's view. A step past either end does nothing.
// @Tags tasks
// @Accept json
// @Param id path int true "Task ID"
// @Param request body ports.ReorderRequest true "Direction"
// @Success 204
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/reorder [post]
func (h *TaskHandler) ReorderTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ports.ReorderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	direction := entities.Direction(strings.ToUpper(req.Direction))
	if err := h.visibilityService.Reorder(c.Request().Context(), userID, taskID, direction); err != nil {
		return failed(c, h.logger, "Reorder task", err, "task_id", taskID, "direction", direction)
	}

	return c.NoContent(http.StatusNoContent)
}

// SetCompletion godoc
// @Summary Toggle task completion
// @Description Allowed for the author and recipients. Rejected while a checklist drives the status.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.CompletionRequest true "Completion"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ports.ErrorResponse
// @Failure 422 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/completion [put]
func (h *TaskHandler) SetCompletion(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ports.CompletionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.SetTaskCompletion(c.Request().Context(), userID, taskID, req.Completed)
	if err != nil {
		return failed(c, h.logger, "Set task completion", err, "task_id", taskID)
	}

	return c.JSON(http.StatusOK, task)
}

// AddActivity godoc
// @Summary Add a checklist activity
// @Tags checklist
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.AddActivityRequest true "Activity"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/activities [post]
func (h *TaskHandler) AddActivity(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ports.AddActivityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.AddActivity(c.Request().Context(), userID, taskID, req.Name)
	if err != nil {
		return failed(c, h.logger, "Add activity", err, "task_id", taskID)
	}

	return c.JSON(http.StatusCreated, task)
}

// RemoveActivity godoc
// @Summary Remove a checklist activity
// @Tags checklist
// @Produce json
// @Param id path int true "Task ID"
// @Param activity_id path int true "Activity ID"
// @Success 200 {object} entities.Task
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/activities/{activity_id} [delete]
func (h *TaskHandler) RemoveActivity(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	activityID, err := paramID(c, "activity_id")
	if err != nil {
		return err
	}

	task, err := h.taskService.RemoveActivity(c.Request().Context(), userID, taskID, activityID)
	if err != nil {
		return failed(c, h.logger, "Remove activity", err, "task_id", taskID, "activity_id", activityID)
	}

	return c.JSON(http.StatusOK, task)
}

// ToggleActivity godoc
// @Summary Toggle a checklist activity
// @Description Allowed for the author and recipients. The task status follows the checklist.
// @Tags checklist
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param activity_id path int true "Activity ID"
// @Param request body ports.CompletionRequest true "Completion"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/activities/{activity_id}/completion [put]
func (h *TaskHandler) ToggleActivity(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	activityID, err := paramID(c, "activity_id")
	if err != nil {
		return err
	}

	var req ports.CompletionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.ToggleActivity(c.Request().Context(), userID, taskID, activityID, req.Completed)
	if err != nil {
		return failed(c, h.logger, "Toggle activity", err, "task_id", taskID, "activity_id", activityID)
	}

	return c.JSON(http.StatusOK, task)
}
