package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/bacheca/internal/application/services"
	"github.com/taskmaster/bacheca/internal/domain/entities"
)

// toHTTPError maps service errors onto HTTP status codes. Anything not
// recognized is reported as a 500 and keeps the cause as internal error.
func toHTTPError(err error) *echo.HTTPError {
	var (
		validationErr *entities.ValidationError
		fieldErrs     validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &fieldErrs):
		return echo.NewHTTPError(http.StatusBadRequest, fieldErrs.Error())
	case errors.Is(err, entities.ErrInvalidCategory),
		errors.Is(err, entities.ErrInvalidDirection):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrCompletionDerived),
		errors.Is(err, entities.ErrCannotShareWithSelf),
		errors.Is(err, entities.ErrBoardLimitReached),
		errors.Is(err, entities.ErrLastBoard):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, entities.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case entities.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, entities.ErrLoginTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

// isServerError reports whether err will be rendered as a 5xx.
func isServerError(err error) bool {
	return toHTTPError(err).Code >= http.StatusInternalServerError
}

// getUserIDFromContext extracts the authenticated user id set by the auth middleware
func getUserIDFromContext(c echo.Context) uuid.UUID {
	userIDStr, ok := c.Get("user").(string)
	if !ok {
		return uuid.Nil
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil
	}

	return userID
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
