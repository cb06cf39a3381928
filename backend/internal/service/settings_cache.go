package service

import (
	"context"
	"sync"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/Pack144/packman-sub000/shared/logger"
	"github.com/Pack144/packman-sub000/shared/validation"
)

type SettingsStorage interface {
	GetListSettings(ctx context.Context) (*domain.ListSettings, error)
	SaveListSettings(ctx context.Context, s domain.ListSettings) error
}

// SettingsProvider is what the delivery engine reads list configuration
// through. Tests substitute a fixed value.
type SettingsProvider interface {
	Settings(ctx context.Context) (*domain.ListSettings, error)
}

// SettingsCache keeps the list configuration singleton in memory. Every
// write through the cache invalidates it synchronously; there is no
// time-based expiry.
type SettingsCache struct {
	storage SettingsStorage
	mu      sync.RWMutex
	loaded  bool
	value   *domain.ListSettings
}

func NewSettingsCache(storage SettingsStorage) *SettingsCache {
	return &SettingsCache{storage: storage}
}

// Settings returns the cached singleton, loading it on first use. A nil
// result means the singleton is not configured.
func (c *SettingsCache) Settings(ctx context.Context) (*domain.ListSettings, error) {
	c.mu.RLock()
	if c.loaded {
		v := c.value
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.value, nil
	}
	v, err := c.storage.GetListSettings(ctx)
	if err != nil {
		return nil, err
	}
	c.value, c.loaded = v, true
	return v, nil
}

func (c *SettingsCache) Save(ctx context.Context, s domain.ListSettings) error {
	if err := validation.Struct(s); err != nil {
		return err
	}
	if err := c.storage.SaveListSettings(ctx, s); err != nil {
		return err
	}
	c.Invalidate()
	logger.Log.Info("list settings updated", "list_id", s.ListId)
	return nil
}

// Invalidate drops the cached value so the next read hits storage.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.value, c.loaded = nil, false
	c.mu.Unlock()
}

// StaticSettings is a fixed SettingsProvider.
type StaticSettings struct {
	Value *domain.ListSettings
}

func (s StaticSettings) Settings(context.Context) (*domain.ListSettings, error) {
	return s.Value, nil
}
