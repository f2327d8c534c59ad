package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/modwatch/internal/model"
)

// Ledger keeps per-account remediation history: violation strikes and
// temporary suspensions of the reporting privilege.
type Ledger interface {
	AddStrike(ctx context.Context, userID string) (int, error)
	Strikes(ctx context.Context, userID string) (int, error)
	Suspend(ctx context.Context, userID string, d time.Duration) error
	Suspended(ctx context.Context, userID string) (bool, error)
}

// NewLedger builds the ledger selected by cfg.Ledger
func NewLedger(cfg model.ModerationConfig) (Ledger, error) {
	switch strings.ToLower(cfg.Ledger) {
	case "memory", "":
		return NewMemoryLedger(), nil
	case "redis":
		return NewRedisLedger(cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown ledger: %s (supported: memory, redis)", cfg.Ledger)
	}
}

const (
	strikePrefix  = "strikes/"
	suspendPrefix = "suspended/"
)

// MemoryLedger is a process-local ledger. Strikes never expire;
// suspensions expire with their TTL.
type MemoryLedger struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{items: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

// AddStrike records one violation and returns the new total
func (l *MemoryLedger) AddStrike(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := strikePrefix + userID
	if err := l.items.Add(key, 1, gocache.NoExpiration); err == nil {
		return 1, nil
	}
	return l.items.IncrementInt(key, 1)
}

// Strikes returns the recorded violations
func (l *MemoryLedger) Strikes(_ context.Context, userID string) (int, error) {
	v, ok := l.items.Get(strikePrefix + userID)
	if !ok {
		return 0, nil
	}
	return v.(int), nil
}

// Suspend blocks userID from reporting for d
func (l *MemoryLedger) Suspend(_ context.Context, userID string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	l.items.Set(suspendPrefix+userID, true, d)
	return nil
}

// Suspended reports whether userID is currently suspended
func (l *MemoryLedger) Suspended(_ context.Context, userID string) (bool, error) {
	_, ok := l.items.Get(suspendPrefix + userID)
	return ok, nil
}

// RedisLedger shares remediation history between bot instances
type RedisLedger struct {
	Client *redis.Client
	Prefix string
}

// NewRedisLedger connects to addr, either host:port or a redis:// URL
func NewRedisLedger(addr string) (*RedisLedger, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis ledger requires moderation.redis_addr")
	}

	var opt *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: addr}
	}

	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w: %w", model.ErrUpstreamUnavailable, err)
	}
	return &RedisLedger{Client: rdb, Prefix: "modwatch/"}, nil
}

// AddStrike records one violation and returns the new total
func (l *RedisLedger) AddStrike(ctx context.Context, userID string) (int, error) {
	n, err := l.Client.Incr(ctx, l.Prefix+strikePrefix+userID).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Strikes returns the recorded violations
func (l *RedisLedger) Strikes(ctx context.Context, userID string) (int, error) {
	n, err := l.Client.Get(ctx, l.Prefix+strikePrefix+userID).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return n, nil
}

// Suspend blocks userID from reporting for d
func (l *RedisLedger) Suspend(ctx context.Context, userID string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return l.Client.Set(ctx, l.Prefix+suspendPrefix+userID, 1, d).Err()
}

// Suspended reports whether userID is currently suspended
func (l *RedisLedger) Suspended(ctx context.Context, userID string) (bool, error) {
	n, err := l.Client.Exists(ctx, l.Prefix+suspendPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the redis connection
func (l *RedisLedger) Close() error {
	return l.Client.Close()
}
