package cache

import (
	"context"
	"time"

	"dompet/internal/log"
)

// Cache stores computed report payloads keyed by user and query.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, data T)
	// DeletePrefix drops every key starting with prefix, e.g. all of a user's reports.
	DeletePrefix(ctx context.Context, prefix string)
}

// Cleaner is implemented by caches that expire entries in process.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup over registered in-process caches.
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache; non-cleaner caches such as Redis are ignored.
func (m *Manager) Register(c any) {
	if cl, ok := c.(Cleaner); ok {
		m.caches = append(m.caches, cl)
	}
}

func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				m.logger.Debug("Expired cache entries removed", "count", cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup loop started by StartCleanup.
func (m *Manager) Stop() {
	select {
	case <-m.stopCleanup:
		return
	default:
	}
	close(m.stopCleanup)
	if m.started {
		<-m.cleanupDone
	}
}
