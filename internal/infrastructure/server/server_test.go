package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/taskmaster/bacheca/internal/adapters/cache"
	"github.com/taskmaster/bacheca/internal/adapters/repository/memory"
	"github.com/taskmaster/bacheca/internal/application/services"
	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/config"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Version: "test"},
		JWT: config.JWTConfig{
			Secret:           "http-test-secret",
			ExpiresIn:        time.Hour,
			RefreshExpiresIn: 24 * time.Hour,
			Issuer:           "bacheca-test",
		},
		Redis:    config.RedisConfig{ViewTTL: time.Minute},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
		Metrics:  config.MetricsConfig{Enabled: true},
	}
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, checks ...HealthCheck) *apiClient {
	t.Helper()
	cfg := testConfig()
	svc := services.New(memory.NewRepositories(), cache.NewMemoryCache(), cfg, logger.NewNop())
	srv, err := New(cfg, svc, logger.NewNop(), checks...)
	if err != nil {
		t.Fatal(err)
	}
	return &apiClient{t: t, handler: srv.Handler()}
}

func (a *apiClient) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// expect performs the request, checks the status and decodes the body into out.
func (a *apiClient) expect(want int, method, path, token string, body, out interface{}) {
	a.t.Helper()
	rec := a.do(method, path, token, body)
	if rec.Code != want {
		a.t.Fatalf("%s %s: status %d, want %d (body %s)", method, path, rec.Code, want, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func (a *apiClient) register(name, login string) ports.AuthResponse {
	a.t.Helper()
	var resp ports.AuthResponse
	a.expect(http.StatusCreated, http.MethodPost, "/api/v1/auth/register", "",
		ports.RegisterRequest{Name: name, Login: login, Password: "secret"}, &resp)
	return resp
}

func TestBoardsAndTasksFlow(t *testing.T) {
	api := newTestServer(t)
	marianna := api.register("Marianna", "marianna")
	token := marianna.AccessToken

	var views []entities.BoardView
	api.expect(http.StatusOK, http.MethodGet, "/api/v1/boards", token, nil, &views)
	if len(views) != len(entities.Categories) {
		t.Fatalf("got %d boards", len(views))
	}

	var task entities.Task
	api.expect(http.StatusCreated, http.MethodPost, "/api/v1/tasks", token, ports.CreateTaskRequest{
		Category:  "Free Time",
		Title:     "Climbing",
		DueDate:   "2026-11-07",
		Checklist: []string{"shoes", "rope"},
	}, &task)
	if task.Position != 0 || len(task.Checklist) != 2 {
		t.Fatalf("created task %+v", task)
	}

	var tasks []entities.Task
	api.expect(http.StatusOK, http.MethodGet, "/api/v1/boards/free_time/tasks", token, nil, &tasks)
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("category view %+v", tasks)
	}

	api.expect(http.StatusUnprocessableEntity, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/completion", task.ID), token,
		ports.CompletionRequest{Completed: true}, nil)

	for _, a := range task.Checklist {
		api.expect(http.StatusOK, http.MethodPut,
			fmt.Sprintf("/api/v1/tasks/%d/activities/%d/completion", task.ID, a.ID), token,
			ports.CompletionRequest{Completed: true}, &task)
	}
	if !task.IsCompleted() {
		t.Error("task not completed after its checklist")
	}

	var board entities.Board
	for _, v := range views {
		if v.Board.Category == entities.CategoryWork {
			board = *v.Board
		}
	}
	api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/v1/boards/%d", board.ID), token,
		ports.UpdateBoardRequest{Description: "office"}, &board)
	if board.Description != "office" {
		t.Errorf("board description %q", board.Description)
	}
	api.expect(http.StatusNoContent, http.MethodDelete, fmt.Sprintf("/api/v1/boards/%d", board.ID), token, nil, nil)
	api.expect(http.StatusNotFound, http.MethodGet, "/api/v1/boards/WORK/tasks", token, nil, nil)
}

func TestSharingPermissions(t *testing.T) {
	api := newTestServer(t)
	author := api.register("Marianna", "marianna").AccessToken
	anto := api.register("Antonietta", "anto")

	var task entities.Task
	api.expect(http.StatusCreated, http.MethodPost, "/api/v1/tasks", author, ports.CreateTaskRequest{
		Category: "WORK", Title: "Slides", DueDate: "2026-11-02",
	}, &task)
	taskPath := fmt.Sprintf("/api/v1/tasks/%d", task.ID)

	api.expect(http.StatusNotFound, http.MethodGet, taskPath, anto.AccessToken, nil, nil)

	var recipients []entities.User
	api.expect(http.StatusOK, http.MethodPost, taskPath+"/shares", author,
		map[string]interface{}{"user_ids": []string{anto.User.ID.String()}}, &recipients)
	if diff := cmp.Diff([]string{"anto"}, logins(recipients)); diff != "" {
		t.Errorf("recipients (-want +got):\n%s", diff)
	}

	api.expect(http.StatusOK, http.MethodGet, taskPath, anto.AccessToken, nil, nil)
	api.expect(http.StatusForbidden, http.MethodPut, taskPath, anto.AccessToken,
		ports.UpdateTaskRequest{Title: "Mine now", DueDate: "2026-11-02"}, nil)
	api.expect(http.StatusForbidden, http.MethodDelete, taskPath, anto.AccessToken, nil, nil)
	api.expect(http.StatusForbidden, http.MethodPost, taskPath+"/shares", anto.AccessToken,
		map[string]interface{}{"user_ids": []string{anto.User.ID.String()}}, nil)
	api.expect(http.StatusOK, http.MethodPut, taskPath+"/completion", anto.AccessToken,
		ports.CompletionRequest{Completed: true}, nil)

	api.expect(http.StatusNoContent, http.MethodDelete, taskPath+"/shares/"+anto.User.ID.String(), author, nil, nil)
	api.expect(http.StatusNoContent, http.MethodDelete, taskPath+"/shares/"+anto.User.ID.String(), author, nil, nil)
	api.expect(http.StatusNotFound, http.MethodGet, taskPath, anto.AccessToken, nil, nil)
}

func TestRequestErrors(t *testing.T) {
	api := newTestServer(t)
	token := api.register("Marianna", "marianna").AccessToken

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"missing token", http.MethodGet, "/api/v1/boards", "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/boards", "garbage", nil, http.StatusUnauthorized},
		{"bad task id", http.MethodGet, "/api/v1/tasks/abc", token, nil, http.StatusBadRequest},
		{"unknown task", http.MethodGet, "/api/v1/tasks/4242", token, nil, http.StatusNotFound},
		{"missing title", http.MethodPost, "/api/v1/tasks", token,
			ports.CreateTaskRequest{Category: "WORK", DueDate: "2026-11-02"}, http.StatusBadRequest},
		{"bad due date", http.MethodPost, "/api/v1/tasks", token,
			ports.CreateTaskRequest{Category: "WORK", Title: "x", DueDate: "02/11/2026"}, http.StatusBadRequest},
		{"unknown category", http.MethodGet, "/api/v1/boards/garden/tasks", token, nil, http.StatusBadRequest},
		{"bad direction", http.MethodPost, "/api/v1/tasks/1/reorder", token,
			ports.ReorderRequest{Direction: "LEFT"}, http.StatusBadRequest},
		{"blank search", http.MethodGet, "/api/v1/search?term=", token, nil, http.StatusBadRequest},
		{"bad due filter", http.MethodGet, "/api/v1/search?due=tomorrow", token, nil, http.StatusBadRequest},
		{"taken login", http.MethodPost, "/api/v1/auth/register", "",
			ports.RegisterRequest{Name: "Other", Login: "marianna", Password: "secret"}, http.StatusConflict},
		{"wrong password", http.MethodPost, "/api/v1/auth/login", "",
			ports.LoginRequest{Login: "marianna", Password: "nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			var body ports.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message == "" {
				t.Errorf("error body %q", rec.Body.String())
			}
		})
	}
}

func TestSearchEndpoints(t *testing.T) {
	api := newTestServer(t)
	token := api.register("Marianna", "marianna").AccessToken
	for _, req := range []ports.CreateTaskRequest{
		{Category: "WORK", Title: "Quarterly report", DueDate: "2999-12-01"},
		{Category: "UNIVERSITY", Title: "Thesis", Description: "report draft", DueDate: "2999-11-15"},
		{Category: "FREE_TIME", Title: "Overdue walk", DueDate: "2000-01-01"},
	} {
		api.expect(http.StatusCreated, http.MethodPost, "/api/v1/tasks", token, req, nil)
	}

	var found []entities.Task
	api.expect(http.StatusOK, http.MethodGet, "/api/v1/search?term=REPORT", token, nil, &found)
	if diff := cmp.Diff([]string{"Thesis", "Quarterly report"}, taskTitles(found)); diff != "" {
		t.Errorf("term search (-want +got):\n%s", diff)
	}

	api.expect(http.StatusOK, http.MethodGet, "/api/v1/search?due=2999-11-30", token, nil, &found)
	if diff := cmp.Diff([]string{"Overdue walk", "Thesis"}, taskTitles(found)); diff != "" {
		t.Errorf("due search (-want +got):\n%s", diff)
	}

	api.expect(http.StatusOK, http.MethodGet, "/api/v1/search/today", token, nil, &found)
	if diff := cmp.Diff([]string{"Overdue walk"}, taskTitles(found)); diff != "" {
		t.Errorf("due today (-want +got):\n%s", diff)
	}
}

func TestReorderAndMove(t *testing.T) {
	api := newTestServer(t)
	token := api.register("Marianna", "marianna").AccessToken

	var first, second entities.Task
	api.expect(http.StatusCreated, http.MethodPost, "/api/v1/tasks", token,
		ports.CreateTaskRequest{Category: "WORK", Title: "First", DueDate: "2026-11-01"}, &first)
	api.expect(http.StatusCreated, http.MethodPost, "/api/v1/tasks", token,
		ports.CreateTaskRequest{Category: "WORK", Title: "Second", DueDate: "2026-11-02"}, &second)

	api.expect(http.StatusNoContent, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/reorder", second.ID), token,
		ports.ReorderRequest{Direction: "up"}, nil)

	var tasks []entities.Task
	api.expect(http.StatusOK, http.MethodGet, "/api/v1/boards/WORK/tasks", token, nil, &tasks)
	if diff := cmp.Diff([]string{"Second", "First"}, taskTitles(tasks)); diff != "" {
		t.Errorf("after reorder (-want +got):\n%s", diff)
	}

	var moved entities.Task
	api.expect(http.StatusOK, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/move", first.ID), token,
		ports.MoveTaskRequest{Category: "University"}, &moved)
	api.expect(http.StatusOK, http.MethodGet, "/api/v1/boards/UNIVERSITY/tasks", token, nil, &tasks)
	if diff := cmp.Diff([]string{"First"}, taskTitles(tasks)); diff != "" {
		t.Errorf("after move (-want +got):\n%s", diff)
	}

	var result ports.MarkCompletedResponse
	api.expect(http.StatusOK, http.MethodPost, fmt.Sprintf("/api/v1/boards/%d/complete", moved.BoardID), token, nil, &result)
	if result.Completed != 1 {
		t.Errorf("completed %d tasks, want 1", result.Completed)
	}
}

func TestAuthLifecycle(t *testing.T) {
	api := newTestServer(t)
	registered := api.register("Marianna", "marianna")

	var me entities.User
	api.expect(http.StatusOK, http.MethodGet, "/api/v1/users/me", registered.AccessToken, nil, &me)
	if me.Login != "marianna" {
		t.Errorf("me = %+v", me)
	}

	api.register("Antonietta", "anto")
	var users []entities.User
	api.expect(http.StatusOK, http.MethodGet, "/api/v1/users", registered.AccessToken, nil, &users)
	if diff := cmp.Diff([]string{"anto"}, logins(users)); diff != "" {
		t.Errorf("share candidates (-want +got):\n%s", diff)
	}

	var refreshed ports.AuthResponse
	api.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/refresh", "",
		ports.RefreshRequest{RefreshToken: registered.RefreshToken}, &refreshed)
	api.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/logout", refreshed.AccessToken, nil, nil)
	api.expect(http.StatusUnauthorized, http.MethodPost, "/api/v1/auth/refresh", "",
		ports.RefreshRequest{RefreshToken: refreshed.RefreshToken}, nil)
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := newTestServer(t, HealthCheck{
		Name:  "storage",
		Check: func(context.Context) error { return nil },
		Stats: func() map[string]interface{} { return map[string]interface{}{"open_connections": 2} },
	})
	healthy.expect(http.StatusOK, http.MethodGet, "/health", "", nil, nil)
	var ready struct {
		Status string                            `json:"status"`
		Stats  map[string]map[string]interface{} `json:"stats"`
	}
	healthy.expect(http.StatusOK, http.MethodGet, "/ready", "", nil, &ready)
	if ready.Status != "ready" || ready.Stats["storage"]["open_connections"] != float64(2) {
		t.Errorf("readiness body %+v", ready)
	}

	broken := newTestServer(t, HealthCheck{Name: "cache", Check: func(context.Context) error { return errors.New("connection refused") }})
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	broken.expect(http.StatusServiceUnavailable, http.MethodGet, "/ready", "", nil, &body)
	if body.Status != "not_ready" || body.Checks["cache"] != "connection refused" {
		t.Errorf("readiness body %+v", body)
	}

	rec := healthy.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("http_requests_total")) {
		t.Errorf("metrics status %d", rec.Code)
	}
}

func logins(users []entities.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Login)
	}
	return out
}

func taskTitles(tasks []entities.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
