package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// AccountLocker serialises postings per account. Lock acquires every id in
// ascending order and returns a function releasing all of them.
type AccountLocker interface {
	Lock(ctx context.Context, ids []int64) (release func(), err error)
}

func sortedUnique(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker constructs an empty locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[int64]*slot)}
}

func (l *LocalLocker) Lock(ctx context.Context, ids []int64) (func(), error) {
	ordered := sortedUnique(ids)
	held := make([]int64, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}
	for _, id := range ordered {
		if err := l.lock(ctx, id); err != nil {
			release()
			return nil, fmt.Errorf("ledger: lock account %d: %w", id, err)
		}
		held = append(held, id)
	}
	return release, nil
}

func (l *LocalLocker) lock(ctx context.Context, id int64) error {
	l.mu.Lock()
	s, ok := l.slots[id]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(id)
		return ctx.Err()
	}
}

func (l *LocalLocker) unlock(id int64) {
	l.mu.Lock()
	s := l.slots[id]
	l.mu.Unlock()
	<-s.ch
	l.drop(id)
}

func (l *LocalLocker) drop(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[id]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, id)
	}
}

// RedisLockOptions tunes RedLock acquisition.
type RedisLockOptions struct {
	Prefix     string
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// DefaultRedisLockOptions mirrors the defaults used for ledger deployments.
func DefaultRedisLockOptions() RedisLockOptions {
	return RedisLockOptions{
		Prefix:     "ledger:account:",
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 50 * time.Millisecond,
	}
}

// RedisLocker serialises postings across processes with redsync mutexes.
type RedisLocker struct {
	rs     *redsync.Redsync
	opts   RedisLockOptions
	logger *slog.Logger
}

// NewRedisLocker builds a locker over client. Zero option fields take defaults.
func NewRedisLocker(client redis.UniversalClient, opts RedisLockOptions, logger *slog.Logger) *RedisLocker {
	def := DefaultRedisLockOptions()
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = def.Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisLocker{rs: redsync.New(goredis.NewPool(client)), opts: opts, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, ids []int64) (func(), error) {
	ordered := sortedUnique(ids)
	held := make([]*redsync.Mutex, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			m := held[i]
			if ok, err := m.UnlockContext(context.Background()); !ok || err != nil {
				l.logger.Warn("ledger lock release failed", slog.String("lock_key", m.Name()), slog.Any("error", err))
			}
		}
	}
	for _, id := range ordered {
		m := l.rs.NewMutex(l.opts.Prefix+strconv.FormatInt(id, 10),
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)
		if err := m.LockContext(ctx); err != nil {
			release()
			return nil, fmt.Errorf("ledger: lock account %d: %w", id, err)
		}
		held = append(held, m)
	}
	return release, nil
}
