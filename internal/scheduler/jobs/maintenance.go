package jobs

import (
	"context"

	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// ExpiringStore drops expired entries on demand (marketcache.MemoryStore implements it)
type ExpiringStore interface {
	CleanExpired() int
}

// CacheCleanupJob removes expired entries from the in-memory market cache
type CacheCleanupJob struct {
	store  ExpiringStore
	logger *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(store ExpiringStore, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		store:  store,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *CacheCleanupJob) Schedule() string {
	return "0 */5 * * * *" // Every 5 minutes
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache cleanup")

	count := j.store.CleanExpired()

	if count > 0 {
		j.logger.WithField("removed", count).Info("Cache cleanup completed")
	}

	return nil
}
