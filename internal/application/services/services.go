package services

import (
	"github.com/taskmaster/bacheca/internal/infrastructure/config"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// Services holds every application service built over one storage backend
type Services struct {
	Auth       *AuthService
	Users      *UserService
	Boards     *BoardService
	Tasks      *TaskService
	Sharing    *SharingService
	Visibility *VisibilityService
	Search     *SearchService
	Views      *ViewCache
}

// New wires the services together
func New(repos *ports.Repositories, cache ports.CacheRepository, cfg *config.Config, log *logger.Logger) *Services {
	views := NewViewCache(cache, cfg.Redis.ViewTTL, log)

	visibility := NewVisibilityService(repos.Boards, repos.Tasks, repos.Activities, repos.Shares, views, log)
	sharing := NewSharingService(repos.Users, repos.Boards, repos.Shares, visibility, views, log)
	boards := NewBoardService(repos.Boards, repos.Tasks, repos.Shares, views, log)

	return &Services{
		Auth:       NewAuthService(repos.Users, repos.Auth, boards, cfg.JWT, log),
		Users:      NewUserService(repos.Users, log),
		Boards:     boards,
		Tasks:      NewTaskService(repos.Tasks, repos.Boards, repos.Activities, repos.Shares, visibility, views, log),
		Sharing:    sharing,
		Visibility: visibility,
		Search:     NewSearchService(repos.Tasks, repos.Activities, log),
		Views:      views,
	}
}
