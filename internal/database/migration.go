package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/card-game/internal/logger"
	"github.com/wfunc/card-game/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models 需要迁移的模型，按依赖顺序排列
func Models() []interface{} {
	return []interface{}{
		// 用户相关
		&models.User{},
		&models.UserAuth{},
		&models.UserSession{},

		// 卡牌相关
		&models.CardTemplate{},
		&models.UserCard{},
		&models.FusionRecord{},

		// 战斗相关
		&models.Battle{},
	}
}

// 额外索引，GORM标签无法表达的复合索引在这里维护
var extraIndexes = []struct {
	name string
	sql  string
}{
	{"idx_user_cards_user_deck", "CREATE INDEX IF NOT EXISTS idx_user_cards_user_deck ON user_cards(user_id, is_in_deck)"},
	{"idx_user_cards_user_obtained", "CREATE INDEX IF NOT EXISTS idx_user_cards_user_obtained ON user_cards(user_id, obtained_at)"},
	{"idx_battles_player_created", "CREATE INDEX IF NOT EXISTS idx_battles_player_created ON battles(player_id, created_at)"},
	{"idx_battles_opponent_created", "CREATE INDEX IF NOT EXISTS idx_battles_opponent_created ON battles(opponent_id, created_at)"},
	{"idx_card_templates_active_rarity", "CREATE INDEX IF NOT EXISTS idx_card_templates_active_rarity ON card_templates(is_active, rarity)"},
	{"idx_user_sessions_expire_at", "CREATE INDEX IF NOT EXISTS idx_user_sessions_expire_at ON user_sessions(expire_at)"},
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil || dbConfig == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 文件型SQLite加迁移锁，避免多个进程同时迁移
	if lock := newMigrationLock(dbConfig.Driver, dbConfig.DSN); lock != nil {
		if err := lock.Acquire(context.Background()); err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer lock.Release()
	}

	return Migrate(DB)
}

// Migrate 在指定连接上执行迁移并创建索引
func Migrate(db *gorm.DB) error {
	logger.Info("开始数据库迁移...")

	db = migrationSession(db)
	for _, model := range Models() {
		start := time.Now()
		err := db.AutoMigrate(model)
		logger.LogDatabaseOperation("migrate", fmt.Sprintf("%T", model), time.Since(start), err)
		if err != nil {
			return err
		}
	}

	createIndexes(db)

	logger.Info("数据库迁移完成")
	return nil
}

// migrationSession 迁移不走预编译语句缓存，缓存中的语句会让SQLite的DROP TABLE报表被锁
func migrationSession(db *gorm.DB) *gorm.DB {
	tx := db.Session(&gorm.Session{NewDB: true, Context: context.Background()})
	if pdb, ok := tx.Statement.ConnPool.(*gorm.PreparedStmtDB); ok {
		tx.Statement.ConnPool = pdb.ConnPool
	}
	return tx
}

// createIndexes 创建数据库索引
func createIndexes(db *gorm.DB) {
	for _, idx := range extraIndexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			// 忽略索引已存在的错误
			if !strings.Contains(err.Error(), "already exists") {
				logger.Warn("创建索引失败", zap.String("index", idx.name), zap.Error(err))
			}
		}
	}
	logger.Info("数据库索引创建完成")
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	tables := Models()
	// 逆序删除，先删依赖表
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(tables[i]); err != nil {
			logger.Error("删除表失败", zap.String("model", fmt.Sprintf("%T", tables[i])), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
