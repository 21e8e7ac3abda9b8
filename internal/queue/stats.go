package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const STATS_TTL = time.Minute * 10

// StatsFunc returns the current value of every worker counter by name.
type StatsFunc func() map[string]int64

func StatsKeyPrefix(hostname string) string {
	return fmt.Sprintf("%s:%s", PAILFROG_WORKER_STATS_BASE, hostname)
}

func ExportStatsToRedis(ctx context.Context, rdb *redis.Client, redisKeyPrefix string, stats map[string]int64) error {
	pipe := rdb.Pipeline()
	for name, value := range stats {
		pipe.Set(ctx, fmt.Sprintf("%s:%s", redisKeyPrefix, name), value, STATS_TTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ExportStatsPeriodically publishes the worker's stats and heartbeat every
// interval until ctx is done, then writes the stats once more so the final
// numbers are kept.
func (q *Queue) ExportStatsPeriodically(ctx context.Context, interval time.Duration, stats StatsFunc) {
	prefix := StatsKeyPrefix(q.worker)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := ExportStatsToRedis(context.Background(), q.rdb, prefix, stats()); err != nil {
				log.WithFields(log.Fields{"state": "stats", "type": "mgmt", "errmsg": err.Error()}).Error("error updating final stats in redis")
			}
			return
		case <-ticker.C:
			log.WithFields(log.Fields{"state": "stats", "type": "mgmt"}).Debugf("updating stats in redis")
			if err := ExportStatsToRedis(ctx, q.rdb, prefix, stats()); err != nil {
				log.WithFields(log.Fields{"state": "stats", "type": "mgmt", "errmsg": err.Error()}).Error("error updating stats in redis")
			}
			if err := q.Heartbeat(ctx); err != nil {
				log.WithFields(log.Fields{"state": "stats", "type": "mgmt", "errmsg": err.Error()}).Error("error updating heartbeat in redis")
			}
		}
	}
}
