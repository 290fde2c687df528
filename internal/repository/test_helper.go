package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserAuth{},
		&models.UserSession{},
		&models.CardTemplate{},
		&models.UserCard{},
		&models.FusionRecord{},
		&models.Battle{},
	}
}

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// :memory: 数据库每个连接独立，必须限制为单连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(AllModels()...); err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestUser 创建测试用户
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username:         username,
		Email:            username + "@example.com",
		Level:            1,
		Gold:             1000,
		Energy:           50,
		MaxEnergy:        50,
		LastEnergyRefill: time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestTemplate 创建测试卡牌模板
func CreateTestTemplate(t *testing.T, db *gorm.DB, name string, rarity models.Rarity, attack, defense int) *models.CardTemplate {
	template := &models.CardTemplate{
		Name:           name,
		Description:    "测试模板: " + name,
		BaseAttack:     attack,
		BaseDefense:    defense,
		Rarity:         rarity,
		Element:        models.ElementNeutral,
		Cost:           1,
		MaxLevel:       10,
		FusionMaterial: true,
		IsActive:       true,
	}
	require.NoError(t, db.Create(template).Error)
	return template
}

// CreateTestCard 创建测试卡牌（1级，基础属性）
func CreateTestCard(t *testing.T, db *gorm.DB, userID uint, template *models.CardTemplate) *models.UserCard {
	card := &models.UserCard{
		UserID:         userID,
		TemplateID:     template.ID,
		CurrentAttack:  template.BaseAttack,
		CurrentDefense: template.BaseDefense,
		Level:          1,
		ObtainedFrom:   models.ObtainedStarter,
		ObtainedAt:     time.Now(),
	}
	require.NoError(t, db.Omit("Template").Create(card).Error)
	return card
}

// CreateTestDeck 为用户创建一组已上阵的卡牌，位置从1开始
func CreateTestDeck(t *testing.T, db *gorm.DB, userID uint, template *models.CardTemplate, size int) []*models.UserCard {
	cards := make([]*models.UserCard, 0, size)
	for i := 1; i <= size; i++ {
		card := CreateTestCard(t, db, userID, template)
		position := i
		card.IsInDeck = true
		card.DeckPosition = &position
		require.NoError(t, db.Model(card).Updates(map[string]interface{}{
			"is_in_deck":    true,
			"deck_position": position,
		}).Error, fmt.Sprintf("设置卡组位置 %d", i))
		cards = append(cards, card)
	}
	return cards
}

// AssertCardStats 验证卡牌属性
func AssertCardStats(t *testing.T, card *models.UserCard, level, attack, defense int) {
	assert.Equal(t, level, card.Level, "等级")
	assert.Equal(t, attack, card.CurrentAttack, "攻击")
	assert.Equal(t, defense, card.CurrentDefense, "防御")
}
