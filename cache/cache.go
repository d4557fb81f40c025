// Package cache provides the Redis-backed read cache for paginated comment
// listings. The cache is strictly best effort: a missing or unreachable
// backend degrades every read into a database query and never fails the
// request.
package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long a cached page survives without an explicit
	// invalidation.
	DefaultTTL = 300 * time.Second

	opTimeout = 2 * time.Second
)

// Pages caches serialized list responses keyed by (page, perPage). Writes to
// the comment stream clear the whole namespace; with a single low-volume
// stream the simplicity beats tracking affected keys.
type Pages struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// NewPages builds a page cache on the given client. rdb may be nil, in which
// case every lookup misses.
func NewPages(rdb *redis.Client, prefix string, ttl time.Duration, log *zap.SugaredLogger) *Pages {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "cache:comments:"
	}
	return &Pages{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

// NewRedisClient dials Redis with the connection timeouts used across the
// service. The connection is validated lazily; callers tolerate a dead
// backend.
func NewRedisClient(host string, port int, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
}

func (p *Pages) key(page, perPage int) string {
	return fmt.Sprintf("%spage=%d:size=%d", p.prefix, page, perPage)
}

// Get returns the cached payload for a page, if present.
func (p *Pages) Get(ctx context.Context, page, perPage int) ([]byte, bool) {
	if p.rdb == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	b, err := p.rdb.Get(ctx, p.key(page, perPage)).Bytes()
	if err != nil {
		if err != redis.Nil && p.log != nil {
			p.log.Warnf("page cache get failed page=%d size=%d err=%v", page, perPage, err)
		}
		return nil, false
	}
	return b, true
}

// Set stores a serialized page payload under the configured TTL.
func (p *Pages) Set(ctx context.Context, page, perPage int, payload []byte) {
	if p.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := p.rdb.Set(ctx, p.key(page, perPage), payload, p.ttl).Err(); err != nil && p.log != nil {
		p.log.Warnf("page cache set failed page=%d size=%d err=%v", page, perPage, err)
	}
}

// Clear drops every cached page. Called after any successful write to the
// comment stream.
func (p *Pages) Clear(ctx context.Context) {
	if p.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var cursor uint64
	for i := 0; i < 10; i++ { // bound the rounds so Clear can't spin
		keys, cur, err := p.rdb.Scan(ctx, cursor, p.prefix+"*", 1000).Result()
		if err != nil {
			if p.log != nil {
				p.log.Warnf("page cache clear failed err=%v", err)
			}
			return
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := p.rdb.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}
