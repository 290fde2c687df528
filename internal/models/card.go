package models

import (
	"time"

	"gorm.io/gorm"
)

// Rarity 卡牌稀有度
type Rarity string

// 稀有度定义（由低到高）
const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rarities 按等级排序的稀有度列表
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}

// Valid 检查稀有度是否合法
func (r Rarity) Valid() bool {
	return r.Tier() >= 0
}

// Tier 稀有度等级，未知稀有度返回-1
func (r Rarity) Tier() int {
	for i, rarity := range Rarities {
		if rarity == r {
			return i
		}
	}
	return -1
}

// Element 卡牌元素
type Element string

// 元素定义
const (
	ElementFire    Element = "fire"
	ElementWater   Element = "water"
	ElementEarth   Element = "earth"
	ElementWind    Element = "wind"
	ElementLight   Element = "light"
	ElementDark    Element = "dark"
	ElementNeutral Element = "neutral"
)

// Valid 检查元素是否合法
func (e Element) Valid() bool {
	switch e {
	case ElementFire, ElementWater, ElementEarth, ElementWind, ElementLight, ElementDark, ElementNeutral:
		return true
	}
	return false
}

// ObtainedFrom 卡牌来源
type ObtainedFrom string

// 卡牌来源定义
const (
	ObtainedStarter  ObtainedFrom = "starter"
	ObtainedPurchase ObtainedFrom = "purchase"
	ObtainedReward   ObtainedFrom = "reward"
	ObtainedFusion   ObtainedFrom = "fusion"
	ObtainedEvent    ObtainedFrom = "event"
	ObtainedGacha    ObtainedFrom = "gacha"
)

// CardTemplate 卡牌模板表
type CardTemplate struct {
	BaseModel
	Name           string  `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description    string  `gorm:"size:500" json:"description"`
	ImageURL       string  `gorm:"size:255" json:"image_url"`
	BaseAttack     int     `gorm:"not null" json:"base_attack"`
	BaseDefense    int     `gorm:"not null" json:"base_defense"`
	Rarity         Rarity  `gorm:"size:20;not null;index" json:"rarity"`
	Element        Element `gorm:"size:20;not null" json:"element"`
	Cost           int     `gorm:"not null;default:1" json:"cost"`
	MaxLevel       int     `gorm:"not null;default:10" json:"max_level"`
	FusionMaterial bool    `gorm:"not null" json:"fusion_material"`
	IsActive       bool    `gorm:"not null;index" json:"is_active"`
}

// TableName 指定表名
func (CardTemplate) TableName() string {
	return "card_templates"
}

// UserCard 用户卡牌表
type UserCard struct {
	BaseModel
	UserID         uint           `gorm:"not null;index;uniqueIndex:idx_user_deck_position,priority:1" json:"user_id"`
	TemplateID     uint           `gorm:"not null;index" json:"template_id"`
	CurrentAttack  int            `gorm:"not null" json:"current_attack"`
	CurrentDefense int            `gorm:"not null" json:"current_defense"`
	Level          int            `gorm:"not null;default:1" json:"level"`
	Experience     int            `gorm:"not null" json:"experience"`
	TimesEnhanced  int            `gorm:"not null" json:"times_enhanced"`
	IsLocked       bool           `gorm:"not null" json:"is_locked"`
	IsInDeck       bool           `gorm:"not null;index" json:"is_in_deck"`
	DeckPosition   *int           `gorm:"uniqueIndex:idx_user_deck_position,priority:2" json:"deck_position"`
	ObtainedFrom   ObtainedFrom   `gorm:"size:20" json:"obtained_from"`
	ObtainedAt     time.Time      `json:"obtained_at"`
	LastUsedAt     *time.Time     `json:"last_used_at,omitempty"`
	Template       CardTemplate   `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	FusedCards     []FusionRecord `gorm:"foreignKey:UserCardID;constraint:OnDelete:CASCADE" json:"fused_cards,omitempty"`
}

// TableName 指定表名
func (UserCard) TableName() string {
	return "user_cards"
}

// BeforeSave 不在卡组中的卡牌不保留位置
func (c *UserCard) BeforeSave(tx *gorm.DB) error {
	if !c.IsInDeck {
		c.DeckPosition = nil
	}
	return nil
}

// FusionRecord 融合记录表（只追加）
type FusionRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserCardID uint      `gorm:"not null;index" json:"-"`
	TemplateID uint      `gorm:"not null" json:"template_id"`
	Level      int       `gorm:"not null" json:"level"`
	FusedAt    time.Time `json:"fused_at"`
}

// TableName 指定表名
func (FusionRecord) TableName() string {
	return "fusion_records"
}
