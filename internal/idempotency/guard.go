package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/frontdesk/internal/config"
	"go.uber.org/zap"
)

const (
	keyPattern      = "frontdesk:idempotency:%s:%s"
	completedMarker = "done"
	inFlightTTL     = 2 * time.Minute
)

var ErrDuplicateRequest = errors.New("duplicate_request")

// Guard rejects a second request carrying an Idempotency-Key that is
// already in flight or completed. A guard without redis admits everything.
type Guard struct {
	enabled bool
	locker  *Locker
	ttl     time.Duration
	log     *zap.Logger
}

// Ticket tracks one admitted request until it is finished.
type Ticket struct {
	guard *Guard
	key   string
	token string
}

func NewGuard(cfg config.Config, log *zap.Logger) *Guard {
	log = log.Named("idempotency")
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("idempotency guard disabled; payment keys still dedup in the database")
		return &Guard{log: log}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	ttl := time.Duration(cfg.IdempotencyTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{enabled: true, locker: NewLocker(client), ttl: ttl, log: log}
}

func (g *Guard) Enabled() bool {
	return g != nil && g.enabled
}

// Begin admits the first request for scope and key. A blank key is always
// admitted.
func (g *Guard) Begin(ctx context.Context, scope, key string) (*Ticket, error) {
	key = strings.TrimSpace(key)
	if !g.Enabled() || key == "" {
		return &Ticket{}, nil
	}
	redisKey := fmt.Sprintf(keyPattern, strings.TrimSpace(scope), key)
	token, ok, err := g.locker.TryLock(ctx, redisKey, inFlightTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicateRequest
	}
	return &Ticket{guard: g, key: redisKey, token: token}, nil
}

// Finish keeps the key as completed when the request succeeded and frees it
// otherwise so the caller may retry.
func (t *Ticket) Finish(ctx context.Context, succeeded bool) {
	if t == nil || t.guard == nil || t.token == "" {
		return
	}
	var err error
	if succeeded {
		err = t.guard.locker.Complete(ctx, t.key, t.token, t.guard.ttl)
	} else {
		err = t.guard.locker.Release(ctx, t.key, t.token)
	}
	if err != nil {
		t.guard.log.Warn("failed to settle idempotency key", zap.String("key", t.key), zap.Error(err))
	}
}
