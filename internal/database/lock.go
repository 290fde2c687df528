package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wfunc/card-game/internal/logger"
	"go.uber.org/zap"
)

// 迁移锁参数，测试中会调小
var (
	lockRetryInterval = time.Second
	lockStaleAfter    = 5 * time.Minute
	lockTimeout       = 30 * time.Second
)

// migrationLock 基于锁文件的跨进程迁移互斥，锁文件与SQLite数据库文件放在一起
type migrationLock struct {
	path string
	file *os.File
}

// newMigrationLock 按数据库配置创建迁移锁，非文件型数据库返回nil
func newMigrationLock(driver, dsn string) *migrationLock {
	if !isSQLite(driver) {
		return nil
	}
	dbFile := sqliteFilePath(dsn)
	if dbFile == "" {
		return nil
	}
	return &migrationLock{path: dbFile + ".migration.lock"}
}

// sqliteFilePath 从SQLite DSN中取出数据库文件路径，内存库返回空
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i+1:]
	}
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}

// Acquire 独占创建锁文件，锁被占用时轮询等待直到超时；超过lockStaleAfter的锁视为残留并删除
func (l *migrationLock) Acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			fmt.Fprintf(file, "%d\n", os.Getpid())
			l.file = file
			logger.Debug("获取迁移锁成功", zap.String("lock", l.path))
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("创建迁移锁失败: %w", err)
		}

		if l.removeIfStale() {
			continue
		}

		logger.Debug("等待迁移锁", zap.String("lock", l.path), zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return fmt.Errorf("等待迁移锁超时，可能有其他进程正在执行迁移: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release 释放迁移锁
func (l *migrationLock) Release() {
	if l.file == nil {
		return
	}
	l.file.Close()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logger.Warn("删除迁移锁失败", zap.String("lock", l.path), zap.Error(err))
	}
	l.file = nil
	logger.Debug("释放迁移锁", zap.String("lock", l.path))
}

// removeIfStale 删除残留的过期锁文件
func (l *migrationLock) removeIfStale() bool {
	info, err := os.Stat(l.path)
	if err != nil || time.Since(info.ModTime()) <= lockStaleAfter {
		return false
	}
	logger.Warn("迁移锁已过期，删除残留锁文件",
		zap.String("lock", l.path),
		zap.Duration("age", time.Since(info.ModTime())),
	)
	return os.Remove(l.path) == nil
}
