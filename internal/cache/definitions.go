package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lumabook/automation/internal/workflow"
)

// DefinitionStore caches workflow definition reads in front of another
// store. Writes go straight through and invalidate. Stats counters are
// intentionally stale up to the TTL: the engine never decides anything based
// on them.
type DefinitionStore struct {
	inner  workflow.WorkflowStore
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewDefinitionStore wraps inner with read-through caching.
func NewDefinitionStore(inner workflow.WorkflowStore, cache Cache, ttl time.Duration, logger *slog.Logger) *DefinitionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefinitionStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "definition-cache")),
	}
}

func definitionKey(id string) string {
	return "workflow:" + id
}

// Get returns the definition, from cache when fresh.
func (s *DefinitionStore) Get(ctx context.Context, id string) (*workflow.WorkflowDefinition, error) {
	var cached workflow.WorkflowDefinition
	err := s.cache.GetJSON(ctx, definitionKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("cache read failed", slog.String("key", id), slog.String("error", err.Error()))
	}

	def, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, definitionKey(id), def, s.ttl); err != nil {
		s.logger.Warn("cache write failed", slog.String("key", id), slog.String("error", err.Error()))
	}
	return def, nil
}

// invalidate drops the cached entry for id. Invalidation failures are logged
// and swallowed; the TTL bounds the staleness.
func (s *DefinitionStore) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, definitionKey(id)); err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("key", id), slog.String("error", err.Error()))
	}
}

// Create stores a new definition.
func (s *DefinitionStore) Create(ctx context.Context, def *workflow.WorkflowDefinition) error {
	if err := s.inner.Create(ctx, def); err != nil {
		return err
	}
	s.invalidate(ctx, def.ID)
	return nil
}

// Upsert stores a definition, replacing any existing one.
func (s *DefinitionStore) Upsert(ctx context.Context, def *workflow.WorkflowDefinition) error {
	if err := s.inner.Upsert(ctx, def); err != nil {
		return err
	}
	s.invalidate(ctx, def.ID)
	return nil
}

// List delegates to the inner store; list results are not cached.
func (s *DefinitionStore) List(ctx context.Context) ([]workflow.WorkflowDefinition, error) {
	return s.inner.List(ctx)
}

// ListActiveByTrigger delegates to the inner store.
func (s *DefinitionStore) ListActiveByTrigger(ctx context.Context, trigger workflow.TriggerType) ([]workflow.WorkflowDefinition, error) {
	return s.inner.ListActiveByTrigger(ctx, trigger)
}

// SetActive flips the active flag and invalidates.
func (s *DefinitionStore) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.inner.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ApplyEnrolled updates stats and invalidates.
func (s *DefinitionStore) ApplyEnrolled(ctx context.Context, id string) error {
	if err := s.inner.ApplyEnrolled(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ApplyCompleted updates stats and invalidates.
func (s *DefinitionStore) ApplyCompleted(ctx context.Context, id string) error {
	if err := s.inner.ApplyCompleted(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ApplyCancelled updates stats and invalidates.
func (s *DefinitionStore) ApplyCancelled(ctx context.Context, id string) error {
	if err := s.inner.ApplyCancelled(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}
