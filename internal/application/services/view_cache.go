package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// ViewCache stores resolved board views keyed by user and category.
// Cache failures are logged and never fail the caller.
type ViewCache struct {
	cache  ports.CacheRepository
	ttl    time.Duration
	logger *logger.Logger
}

// NewViewCache creates a view cache over cache
func NewViewCache(cache ports.CacheRepository, ttl time.Duration, logger *logger.Logger) *ViewCache {
	return &ViewCache{
		cache:  cache,
		ttl:    ttl,
		logger: logger.WithComponent("view_cache"),
	}
}

func viewKey(userID uuid.UUID, category entities.BoardCategory) string {
	return fmt.Sprintf("view:%s:%s", userID, category)
}

// Get returns the cached view and whether it was present.
func (v *ViewCache) Get(ctx context.Context, userID uuid.UUID, category entities.BoardCategory) ([]*entities.Task, bool) {
	var tasks []*entities.Task
	err := v.cache.Get(ctx, viewKey(userID, category), &tasks)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			v.logger.Warnw("Failed to read cached view", "user_id", userID, "category", category, "error", err)
		}
		return nil, false
	}
	return tasks, true
}

func (v *ViewCache) Put(ctx context.Context, userID uuid.UUID, category entities.BoardCategory, tasks []*entities.Task) {
	if err := v.cache.Set(ctx, viewKey(userID, category), tasks, v.ttl); err != nil {
		v.logger.Warnw("Failed to cache view", "user_id", userID, "category", category, "error", err)
	}
}

// Invalidate drops every category view of the given users.
func (v *ViewCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	keys := make([]string, 0, len(userIDs)*len(entities.Categories))
	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, c := range entities.Categories {
			keys = append(keys, viewKey(id, c))
		}
	}
	if err := v.cache.Delete(ctx, keys...); err != nil {
		v.logger.Warnw("Failed to invalidate views", "users", len(seen), "error", err)
	}
}
