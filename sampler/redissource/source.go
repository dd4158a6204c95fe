package redissource

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/prefetchkit/logger"
)

// Decoder turns a list element into a key.
type Decoder[K any] func(raw string) (K, error)

// Strings is the identity Decoder.
func Strings(raw string) (string, error) { return raw, nil }

// Ints decodes base-10 integers.
func Ints(raw string) (int, error) { return strconv.Atoi(raw) }

// Source pops keys from a Redis list. It satisfies sampler.Sampler.
type Source[K any] struct {
	rdb    *goredis.Client
	owned  bool
	list   string
	block  time.Duration
	decode Decoder[K]
	log    *logger.Logger

	mu     sync.Mutex
	done   bool
	closed bool
}

// New connects to Redis and returns a Source over cfg.List.
func New[K any](cfg Config, decode Decoder[K], log *logger.Logger) (*Source[K], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis source config: %w", err)
	}

	dialTimeout, _ := time.ParseDuration(cfg.DialTimeout)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dialTimeout,
	})

	s := NewFromClient(rdb, cfg.List, decode, log)
	s.owned = true
	if cfg.BlockTimeout != "" {
		s.block, _ = time.ParseDuration(cfg.BlockTimeout)
	}

	s.log.Info("Redis key source created", map[string]interface{}{
		"addr": cfg.Addr,
		"list": cfg.List,
	})
	return s, nil
}

// NewFromClient wraps an existing client. Close does not close rdb.
func NewFromClient[K any](rdb *goredis.Client, list string, decode Decoder[K], log *logger.Logger) *Source[K] {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Source[K]{
		rdb:    rdb,
		list:   list,
		decode: decode,
		log:    log.WithComponent("redissource"),
	}
}

// WithBlock makes Next wait up to d for a key before reporting exhaustion.
func (s *Source[K]) WithBlock(d time.Duration) *Source[K] {
	s.block = d
	return s
}

// Push appends keys to the tail of the list.
func (s *Source[K]) Push(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	vals := make([]interface{}, len(keys))
	for i, k := range keys {
		vals[i] = k
	}
	return s.rdb.RPush(ctx, s.list, vals...).Err()
}

// Len returns the number of keys left in the list.
func (s *Source[K]) Len(ctx context.Context) (int64, error) {
	return s.rdb.LLen(ctx, s.list).Result()
}

// Next pops the head of the list. Once the list is found empty the source is
// exhausted for good, even if keys are pushed later.
func (s *Source[K]) Next(ctx context.Context) (K, bool, error) {
	var zero K
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.closed {
		return zero, false, nil
	}

	raw, err := s.pop(ctx)
	if errors.Is(err, goredis.Nil) {
		s.done = true
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis pop %s: %w", s.list, err)
	}

	key, err := s.decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("decoding key %q: %w", raw, err)
	}
	return key, true, nil
}

func (s *Source[K]) pop(ctx context.Context) (string, error) {
	if s.block <= 0 {
		return s.rdb.LPop(ctx, s.list).Result()
	}
	res, err := s.rdb.BLPop(ctx, s.block, s.list).Result()
	if err != nil {
		return "", err
	}
	// BLPOP returns [list, value].
	return res[1], nil
}

// Close releases the connection if the source created it. Safe to call
// multiple times.
func (s *Source[K]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.owned {
		return nil
	}
	s.log.Debug("Closing Redis key source")
	return s.rdb.Close()
}
