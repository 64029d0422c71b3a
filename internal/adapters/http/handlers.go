package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// failed logs a rejected request and converts err to an HTTP error.
// Client errors are logged at debug level, server errors at error level.
func failed(c echo.Context, log *logger.Logger, action string, err error, keysAndValues ...interface{}) error {
	log = requestLogger(c, log).WithError(err)
	if isServerError(err) {
		log.Errorw(action+" failed", keysAndValues...)
	} else {
		log.Debugw(action+" rejected", keysAndValues...)
	}
	return toHTTPError(err)
}

// requestLogger tags log with the request id and the authenticated user.
func requestLogger(c echo.Context, log *logger.Logger) *logger.Logger {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		log = log.WithRequestID(id)
	}
	if user, ok := c.Get("user").(string); ok && user != "" {
		log = log.WithUserID(user)
	}
	return log
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.WithComponent("http.auth"),
	}
}

// Register godoc
// @Summary Register a new user
// @Description Create an account, provision one board per category and return a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Account data"
// @Success 201 {object} ports.AuthResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return failed(c, h.logger, "Register", err, "login", req.Login)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login godoc
// @Summary Log in
// @Description Exchange login and password for a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{"login": req.Login})
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, response)
}

// RefreshToken godoc
// @Summary Refresh the token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RefreshRequest true "Refresh token"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req ports.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return failed(c, h.logger, "Token refresh", err)
	}

	return c.JSON(http.StatusOK, response)
}

// Logout godoc
// @Summary Log out
// @Description Revoke every refresh token of the caller
// @Tags auth
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := getUserIDFromContext(c)

	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		return failed(c, h.logger, "Logout", err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Logged out successfully"})
}

// UserHandler handles user-related requests
type UserHandler struct {
	userService ports.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService ports.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger.WithComponent("http.users"),
	}
}

// GetCurrentUser godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} entities.User
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	userID := getUserIDFromContext(c)

	user, err := h.userService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return failed(c, h.logger, "Get current user", err)
	}

	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List share candidates
// @Description Every registered user except the caller, ordered by name
// @Tags users
// @Produce json
// @Success 200 {array} entities.User
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	userID := getUserIDFromContext(c)

	users, err := h.userService.ListUsers(c.Request().Context(), userID)
	if err != nil {
		return failed(c, h.logger, "List users", err)
	}

	return c.JSON(http.StatusOK, users)
}
