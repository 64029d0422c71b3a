package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// SearchHandler handles task searches across boards
type SearchHandler struct {
	searchService ports.SearchService
	logger        *logger.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService ports.SearchService, logger *logger.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger.WithComponent("http.search"),
	}
}

// Search godoc
// @Summary Search visible tasks
// @Description Either a case-insensitive term matched against title and description, or every task due on or before a day. Results are ordered by due date.
// @Tags search
// @Produce json
// @Param term query string false "Search term"
// @Param due query string false "Day in YYYY-MM-DD format"
// @Success 200 {array} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /search [get]
func (h *SearchHandler) Search(c echo.Context) error {
	userID := getUserIDFromContext(c)
	term := c.QueryParam("term")
	due := strings.TrimSpace(c.QueryParam("due"))

	var (
		err   error
		tasks []*entities.Task
	)
	switch {
	case term != "" && due != "":
		return echo.NewHTTPError(http.StatusBadRequest, "Use either term or due, not both")
	case due != "":
		day, parseErr := time.Parse(ports.DateLayout, due)
		if parseErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "due must be in YYYY-MM-DD format")
		}
		tasks, err = h.searchService.SearchDueBy(c.Request().Context(), userID, day)
	default:
		tasks, err = h.searchService.SearchByTerm(c.Request().Context(), userID, term)
	}
	if err != nil {
		return failed(c, h.logger, "Search", err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// DueToday godoc
// @Summary Tasks due today
// @Description Visible tasks due today or overdue
// @Tags search
// @Produce json
// @Success 200 {array} entities.Task
// @Security BearerAuth
// @Router /search/today [get]
func (h *SearchHandler) DueToday(c echo.Context) error {
	userID := getUserIDFromContext(c)

	tasks, err := h.searchService.DueToday(c.Request().Context(), userID)
	if err != nil {
		return failed(c, h.logger, "Due today", err)
	}

	return c.JSON(http.StatusOK, tasks)
}
