package backend

import (
	"github.com/redis/go-redis/v9"

	"dompet/internal/amqp"
	"dompet/internal/cache"
	"dompet/internal/services"
	"dompet/internal/sheets"
	"dompet/internal/storage"
)

// Part selects which optional infrastructure a process needs.
type Part uint8

const (
	// Bus connects to the AMQP broker when AMQP_URL is set.
	Bus Part = 1 << iota
	// Cache builds report caches, backed by Redis when REDIS_ADDR is set.
	Cache
	// Mirror opens the spreadsheet, or an in-memory mirror when sheets are off.
	Mirror
)

// CleanupFunc releases one resource.
type CleanupFunc func() error

// Backend bundles the infrastructure shared by the binaries. Optional parts
// are nil when not requested or not configured.
type Backend struct {
	Repo   *storage.Repository
	AMQP   *amqp.Client
	Redis  *redis.Client
	Caches services.ReportCaches
	// CacheManager expires in-process caches; nil when Redis backs the caches.
	CacheManager *cache.Manager
	Mirror       sheets.Mirror
	// MirrorIsMemory is set when no spreadsheet is configured.
	MirrorIsMemory bool

	cleanup []CleanupFunc
}

// Publisher returns the event publisher, or nil without a broker. It never
// returns a typed nil inside the interface.
func (b *Backend) Publisher() services.Publisher {
	if b.AMQP == nil {
		return nil
	}
	return b.AMQP
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var first error
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		if err := b.cleanup[i](); err != nil && first == nil {
			first = err
		}
	}
	b.cleanup = nil
	return first
}
