package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/errors"
)

// Locker 用户级互斥锁，同一用户的写操作串行执行
type Locker interface {
	// Lock 获取用户锁，返回的unlock必须调用且只调用一次
	Lock(ctx context.Context, userID uint) (unlock func(), err error)
}

// withUserLock 在用户锁内执行fn
func withUserLock(ctx context.Context, locker Locker, userID uint, fn func() error) error {
	unlock, err := locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// LocalLocker 进程内按用户分片的互斥锁
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uint]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker 创建进程内用户锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uint]*userLock)}
}

// Lock 获取用户锁，ctx取消时放弃等待
func (l *LocalLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	select {
	case ul.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, ul)
		return nil, errors.Wrap(ctx.Err(), errors.ErrLockUnavailable, fmt.Sprintf("用户 %d", userID))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ul.ch
			l.release(userID, ul)
		})
	}, nil
}

// release 减少引用计数，无人使用时回收
func (l *LocalLocker) release(userID uint, ul *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, userID)
	}
}

// size 当前持有或等待中的用户数
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// 仅当值与持有者token一致时才删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于Redis SET NX PX的分布式用户锁
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
}

// NewRedisLocker 创建Redis用户锁
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: 20 * time.Millisecond,
		prefix:     "card-game:lock:user:",
	}
}

func (l *RedisLocker) key(userID uint) string {
	return fmt.Sprintf("%s%d", l.prefix, userID)
}

// Lock 轮询获取锁直到成功或ctx结束
func (l *RedisLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	key := l.key(userID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrLockUnavailable, key)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrLockUnavailable, key)
		case <-time.After(l.retryDelay):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 调用方ctx可能已取消，释放锁使用独立的超时
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			releaseScript.Run(releaseCtx, l.client, []string{key}, token)
		})
	}, nil
}
