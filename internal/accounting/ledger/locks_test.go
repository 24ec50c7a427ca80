package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSortedUnique(t *testing.T) {
	require.Equal(t, []int64{1, 3, 7}, sortedUnique([]int64{7, 3, 7, 1, 3}))
	require.Empty(t, sortedUnique(nil))
}

func TestLocalLockerBlocksOverlappingSets(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Lock(context.Background(), []int64{2, 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, []int64{3, 2})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Lock(context.Background(), []int64{3})
	require.NoError(t, err, "a failed attempt must not keep account 3")
	other()

	release()
	again, err := locker.Lock(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	again()
	require.Empty(t, locker.slots)
}

func TestLocalLockerHandsOverInOrder(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Lock(context.Background(), []int64{5})
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		next, err := locker.Lock(context.Background(), []int64{5})
		if err == nil {
			next()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over")
	}
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, RedisLockOptions{Prefix: "test:account:", Tries: 2, RetryDelay: 5 * time.Millisecond}, nil)
	release, err := locker.Lock(context.Background(), []int64{9, 4})
	require.NoError(t, err)
	require.True(t, mr.Exists("test:account:4"))
	require.True(t, mr.Exists("test:account:9"))

	_, err = locker.Lock(context.Background(), []int64{4})
	require.Error(t, err)

	release()
	require.False(t, mr.Exists("test:account:4"))

	again, err := locker.Lock(context.Background(), []int64{4})
	require.NoError(t, err)
	again()
}

func TestRedisLockerDefaults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, RedisLockOptions{}, nil)
	require.Equal(t, DefaultRedisLockOptions(), locker.opts)
}
