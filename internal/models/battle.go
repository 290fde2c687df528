package models

import (
	"time"

	"gorm.io/datatypes"
)

// BattleType 战斗类型
type BattleType string

// 战斗类型定义
const (
	BattlePvE BattleType = "pve"
	BattlePvP BattleType = "pvp"
)

// Valid 检查战斗类型是否合法
func (t BattleType) Valid() bool {
	return t == BattlePvE || t == BattlePvP
}

// BattleWinner 战斗胜方
type BattleWinner string

// 胜方定义
const (
	WinnerPlayer   BattleWinner = "player"
	WinnerOpponent BattleWinner = "opponent"
	WinnerDraw     BattleWinner = "draw"
)

// CardSnapshot 战斗时的卡牌快照
type CardSnapshot struct {
	CardID     *uint  `json:"card_id,omitempty"`
	TemplateID uint   `json:"template_id"`
	Name       string `json:"name,omitempty"`
	Level      int    `json:"level"`
	Attack     int    `json:"attack"`
	Defense    int    `json:"defense"`
}

// BattleRewards 战斗奖励
type BattleRewards struct {
	Gold       int64                     `json:"gold"`
	Experience int64                     `json:"experience"`
	Cards      datatypes.JSONSlice[uint] `json:"cards"`
}

// Battle 战斗记录表（写入后不再修改）
type Battle struct {
	BaseModel
	BattleNo      string                            `gorm:"uniqueIndex;size:36;not null" json:"battle_no"`
	PlayerID      uint                              `gorm:"not null;index" json:"player_id"`
	OpponentID    *uint                             `gorm:"index" json:"opponent_id,omitempty"`
	BattleType    BattleType                        `gorm:"size:10;not null;index" json:"battle_type"`
	PlayerDeck    datatypes.JSONSlice[CardSnapshot] `json:"player_deck"`
	OpponentDeck  datatypes.JSONSlice[CardSnapshot] `json:"opponent_deck"`
	Winner        BattleWinner                      `gorm:"size:10;not null;index" json:"winner"`
	PlayerScore   int                               `json:"player_score"`
	OpponentScore int                               `json:"opponent_score"`
	Rounds        int                               `json:"rounds"`
	Rewards       BattleRewards                     `gorm:"embedded;embeddedPrefix:reward_" json:"rewards"`
	EnergyCost    int                               `json:"energy_cost"`
	StartedAt     time.Time                         `json:"started_at"`
	CompletedAt   time.Time                         `json:"completed_at"`
	DurationMs    int64                             `json:"duration_ms"`
}

// TableName 指定表名
func (Battle) TableName() string {
	return "battles"
}

// IsPvE 是否为人机战斗
func (b *Battle) IsPvE() bool {
	return b.OpponentID == nil
}
