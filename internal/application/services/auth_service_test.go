package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taskmaster/bacheca/internal/adapters/cache"
	"github.com/taskmaster/bacheca/internal/application/services"
	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Auth.Register(f.ctx, ports.RegisterRequest{Name: "Carla", Login: "carla", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.TokenType != "Bearer" {
		t.Fatalf("incomplete response %+v", resp)
	}
	if resp.User.PasswordHash != "" {
		t.Error("password hash leaked in response")
	}

	claims, err := f.svc.Auth.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != resp.User.ID.String() || claims.Login != "carla" {
		t.Errorf("claims %+v", claims)
	}

	boards, err := f.svc.Boards.ListBoards(f.ctx, resp.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(boards) != len(entities.Categories) {
		t.Errorf("registered user has %d boards", len(boards))
	}

	if _, err := f.svc.Auth.Login(f.ctx, ports.LoginRequest{Login: "carla", Password: "secret"}); err != nil {
		t.Errorf("login: %v", err)
	}
}

func TestRegisterRejectsTakenLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Auth.Register(f.ctx, ports.RegisterRequest{Name: "Other", Login: "marianna", Password: "x"})
	if !errors.Is(err, entities.ErrLoginTaken) {
		t.Errorf("got %v, want ErrLoginTaken", err)
	}
}

func TestLoginsIgnoreCase(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Auth.Register(f.ctx, ports.RegisterRequest{Name: "Other", Login: " Marianna ", Password: "x"})
	if !errors.Is(err, entities.ErrLoginTaken) {
		t.Errorf("mixed case duplicate: got %v, want ErrLoginTaken", err)
	}

	resp, err := f.svc.Auth.Login(f.ctx, ports.LoginRequest{Login: "MARIANNA", Password: "stress"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.User.ID != f.marianna.ID {
		t.Errorf("logged in as %s, want %s", resp.User.ID, f.marianna.ID)
	}

	carla := f.account(t, "Carla", "CarLa", "secret")
	if carla.Login != "carla" {
		t.Errorf("stored login %q, want carla", carla.Login)
	}
}

type failingBoardCreate struct {
	ports.BoardRepository
}

func (failingBoardCreate) Create(ctx context.Context, board *entities.Board) (bool, error) {
	return false, errStorage
}

func TestCreateAccountRemovesUserWhenBoardsFail(t *testing.T) {
	f := newFixture(t)
	repos := *f.repos
	repos.Boards = failingBoardCreate{f.repos.Boards}
	svc := services.New(&repos, cache.NopCache{}, testConfig(), logger.NewNop())

	_, err := svc.Auth.CreateAccount(f.ctx, ports.RegisterRequest{Name: "Carla", Login: "carla", Password: "secret"})
	if !errors.Is(err, errStorage) {
		t.Fatalf("got %v, want errStorage", err)
	}
	if _, err := f.repos.Users.GetByLogin(f.ctx, "carla"); !errors.Is(err, entities.ErrUserNotFound) {
		t.Errorf("user left behind: %v", err)
	}

	if _, err := f.svc.Auth.CreateAccount(f.ctx, ports.RegisterRequest{Name: "Carla", Login: "carla", Password: "secret"}); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)

	for _, req := range []ports.LoginRequest{
		{Login: "marianna", Password: "wrong"},
		{Login: "nobody", Password: "stress"},
	} {
		if _, err := f.svc.Auth.Login(f.ctx, req); !errors.Is(err, entities.ErrInvalidCredentials) {
			t.Errorf("login %q: got %v, want ErrInvalidCredentials", req.Login, err)
		}
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Auth.Login(f.ctx, ports.LoginRequest{Login: "anto", Password: "pass"})
	if err != nil {
		t.Fatal(err)
	}

	rotated, err := f.svc.Auth.RefreshToken(f.ctx, resp.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if rotated.RefreshToken == resp.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if _, err := f.svc.Auth.RefreshToken(f.ctx, resp.RefreshToken); !errors.Is(err, services.ErrInvalidToken) {
		t.Errorf("reused token: got %v, want ErrInvalidToken", err)
	}

	if err := f.svc.Auth.Logout(f.ctx, f.anto.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Auth.RefreshToken(f.ctx, rotated.RefreshToken); !errors.Is(err, services.ErrInvalidToken) {
		t.Errorf("token after logout: got %v, want ErrInvalidToken", err)
	}

	n, err := f.svc.Auth.CleanupExpiredTokens(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("cleaned %d tokens, want 2", n)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Auth.Login(f.ctx, ports.LoginRequest{Login: "marianna", Password: "stress"})
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"garbage":  "not-a-jwt",
		"tampered": resp.AccessToken + "x",
	} {
		if _, err := f.svc.Auth.ValidateToken(token); !errors.Is(err, services.ErrInvalidToken) {
			t.Errorf("%s: got %v, want ErrInvalidToken", name, err)
		}
	}

	cfg := testConfig()
	cfg.JWT.Issuer = "someone-else"
	foreign := services.New(f.repos, cache.NopCache{}, cfg, logger.NewNop())
	if _, err := foreign.Auth.ValidateToken(resp.AccessToken); !errors.Is(err, services.ErrInvalidToken) {
		t.Errorf("foreign issuer: got %v, want ErrInvalidToken", err)
	}
}
