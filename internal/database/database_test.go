package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/config"
	"github.com/wfunc/card-game/internal/models"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// testConfig 使用临时目录下的文件型SQLite
func testConfig(t *testing.T) *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Driver:          "sqlite",
		DSN:             filepath.Join(t.TempDir(), "nested", "card-game-test.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Minute,
		LogLevel:        "silent",
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "不支持的数据库驱动")
}

func TestInitAndMigrate(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Init(cfg))
	defer func() {
		Close()
		DB, dbConfig = nil, nil
	}()

	// 目录自动创建
	_, err := os.Stat(filepath.Dir(cfg.DSN))
	require.NoError(t, err)
	assert.True(t, IsConnected())
	assert.Equal(t, DB, GetDB())

	require.NoError(t, AutoMigrate())

	// 重复迁移是幂等的
	require.NoError(t, AutoMigrate())

	migrator := DB.Migrator()
	for _, model := range Models() {
		assert.True(t, migrator.HasTable(model), "%T", model)
	}
	assert.True(t, migrator.HasIndex(&models.UserCard{}, "idx_user_deck_position"))
	assert.True(t, migrator.HasIndex(&models.Battle{}, "idx_battles_player_created"))

	// 迁移锁已释放
	_, err = os.Stat(cfg.DSN + ".migration.lock")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, DropAllTables(DB))
	assert.False(t, migrator.HasTable(&models.Battle{}))
}

func TestMigrate_FileDatabaseRepeatable(t *testing.T) {
	for _, maxOpen := range []int{1, 4} {
		cfg := testConfig(t)
		cfg.MaxOpenConns = maxOpen
		cfg.MaxIdleConns = maxOpen

		db, err := Open(cfg)
		require.NoError(t, err)

		// 新库迁移与已有库再次迁移都不能失败
		for run := 1; run <= 3; run++ {
			require.NoError(t, Migrate(db), "max_open=%d run=%d", maxOpen, run)
		}

		migrator := db.Migrator()
		assert.True(t, migrator.HasTable(&models.FusionRecord{}))
		assert.True(t, migrator.HasColumn(&models.FusionRecord{}, "user_card_id"))

		// 融合记录随卡牌写入与读取
		user := &models.User{Username: "fuser", Email: "fuser@example.com"}
		require.NoError(t, db.Create(user).Error)
		assert.Equal(t, "active", user.Status)
		assert.Equal(t, models.RoleUser, user.Role)

		tmpl := &models.CardTemplate{Name: "Ember Drake", Rarity: models.RarityCommon, Element: models.ElementFire, BaseAttack: 10, BaseDefense: 5, IsActive: true}
		require.NoError(t, db.Create(tmpl).Error)
		card := &models.UserCard{UserID: user.ID, TemplateID: tmpl.ID, Level: 2, ObtainedAt: time.Now()}
		require.NoError(t, db.Create(card).Error)
		require.NoError(t, db.Create(&models.FusionRecord{UserCardID: card.ID, TemplateID: tmpl.ID, Level: 1, FusedAt: time.Now()}).Error)

		var loaded models.UserCard
		require.NoError(t, db.Preload("FusedCards").First(&loaded, card.ID).Error)
		assert.Len(t, loaded.FusedCards, 1)

		// 迁移后数据保留
		require.NoError(t, Migrate(db))
		var count int64
		require.NoError(t, db.Model(&models.FusionRecord{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		sqlDB, _ := db.DB()
		sqlDB.Close()
	}
}

func TestSQLiteFilePath(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"./data/card-game.db", "./data/card-game.db"},
		{"/var/lib/cards/game.db?_busy_timeout=5000", "/var/lib/cards/game.db"},
		{"file:cards.db?cache=shared", "cards.db"},
		{":memory:", ""},
		{"file::memory:?cache=shared", ""},
		{"file:shared?mode=memory&cache=shared", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sqliteFilePath(tt.dsn), tt.dsn)
	}
}

func TestNewMigrationLock(t *testing.T) {
	assert.Nil(t, newMigrationLock("mysql", "user:pass@tcp(localhost:3306)/cards"))
	assert.Nil(t, newMigrationLock("sqlite", ":memory:"))

	lock := newMigrationLock("sqlite3", "file:/tmp/cards.db?cache=shared")
	require.NotNil(t, lock)
	assert.Equal(t, "/tmp/cards.db.migration.lock", lock.path)
}

// shortLockTimings 缩短锁等待参数
func shortLockTimings(t *testing.T) {
	interval, stale, timeout := lockRetryInterval, lockStaleAfter, lockTimeout
	lockRetryInterval, lockStaleAfter, lockTimeout = 10*time.Millisecond, time.Hour, 100*time.Millisecond
	t.Cleanup(func() {
		lockRetryInterval, lockStaleAfter, lockTimeout = interval, stale, timeout
	})
}

func TestMigrationLock_Contended(t *testing.T) {
	shortLockTimings(t)
	dsn := filepath.Join(t.TempDir(), "cards.db")

	holder := newMigrationLock("sqlite", dsn)
	require.NoError(t, holder.Acquire(context.Background()))

	// 锁被占用时等待超时
	waiter := newMigrationLock("sqlite", dsn)
	err := waiter.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "等待迁移锁超时")

	// 释放后可以再次获取
	holder.Release()
	_, err = os.Stat(holder.path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, waiter.Acquire(context.Background()))
	waiter.Release()
	waiter.Release()
}

func TestMigrationLock_StaleRemoved(t *testing.T) {
	shortLockTimings(t)
	lock := newMigrationLock("sqlite", filepath.Join(t.TempDir(), "cards.db"))

	// 崩溃进程留下的旧锁文件
	require.NoError(t, os.WriteFile(lock.path, []byte("4242\n"), 0644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(lock.path, old, old))

	require.NoError(t, lock.Acquire(context.Background()))
	defer lock.Release()

	data, err := os.ReadFile(lock.path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))
}

func TestAutoMigrate_NotInitialized(t *testing.T) {
	DB = nil
	assert.Error(t, AutoMigrate())
	assert.False(t, IsConnected())
	assert.NoError(t, Close())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, parseLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
	assert.Equal(t, gormlogger.Info, parseLogLevel(""))
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), gormlogger.Warn)
	silent := l.LogMode(gormlogger.Silent).(*GormLogger)
	assert.Equal(t, gormlogger.Silent, silent.logLevel)
	// 原实例不受影响
	assert.Equal(t, gormlogger.Warn, l.logLevel)
}
