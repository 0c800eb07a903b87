package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ignatzorin/market-backoffice/internal/models"
)

// MemoryAdminCache кэш в памяти процесса с TTL; используется без Redis.
type MemoryAdminCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	admin     models.Admin
	expiresAt time.Time
}

// NewMemoryAdminCache создаёт кэш и запускает периодическую очистку просроченных записей.
func NewMemoryAdminCache(cleanupEvery time.Duration) *MemoryAdminCache {
	c := &MemoryAdminCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupEvery > 0 {
		go c.cleanup(cleanupEvery)
	}
	return c
}

func (c *MemoryAdminCache) Get(_ context.Context, email string) (*models.Admin, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[adminKey(email)]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false, nil
	}
	admin := entry.admin
	return &admin, true, nil
}

func (c *MemoryAdminCache) Set(_ context.Context, email string, admin *models.Admin, ttl time.Duration) error {
	if admin == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[adminKey(email)] = memoryEntry{admin: *admin, expiresAt: c.now().Add(ttl)}
	return nil
}

// Close останавливает фоновую очистку.
func (c *MemoryAdminCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryAdminCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
