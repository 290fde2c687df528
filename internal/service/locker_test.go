package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/card-game/internal/errors"
)

func TestLocalLocker_Serializes(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		active  int32
		maxSeen int32
		counter int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := withUserLock(ctx, locker, 1, func() error {
				n := atomic.AddInt32(&active, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				counter++
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, counter)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
	assert.Equal(t, 0, locker.size())
}

func TestLocalLocker_IndependentUsers(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, 1)
	require.NoError(t, err)
	defer unlock1()

	// 不同用户互不阻塞
	unlock2, err := locker.Lock(ctx, 2)
	require.NoError(t, err)
	unlock2()
	assert.Equal(t, 1, locker.size())
}

func TestLocalLocker_ContextCanceled(t *testing.T) {
	locker := NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrLockUnavailable))

	// 重复调用unlock无副作用
	unlock()
	unlock()
	assert.Equal(t, 0, locker.size())

	unlock, err = locker.Lock(context.Background(), 1)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	locker := NewRedisLocker(client, 0)
	assert.Equal(t, 10*time.Second, locker.ttl)
	assert.Equal(t, "card-game:lock:user:7", locker.key(7))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := locker.Lock(ctx, 7)
	assert.True(t, apperrors.Is(err, apperrors.ErrLockUnavailable))
}
