package game

import (
	"sort"

	"github.com/wfunc/card-game/internal/models"
)

// 稀有度倍率（以0.1为单位）
var rarityMultiplierTenths = map[models.Rarity]int{
	models.RarityCommon:    10,
	models.RarityUncommon:  12,
	models.RarityRare:      15,
	models.RarityEpic:      20,
	models.RarityLegendary: 30,
}

func multiplierTenths(r models.Rarity) int {
	if m, ok := rarityMultiplierTenths[r]; ok {
		return m
	}
	return 10
}

// RarityMultiplier 稀有度倍率
func RarityMultiplier(r models.Rarity) float64 {
	return float64(multiplierTenths(r)) / 10
}

// StatsAtLevel floor(base * 稀有度倍率 * (1 + (level-1)*0.1))
func StatsAtLevel(base int, rarity models.Rarity, level int) int {
	if level < 1 {
		level = 1
	}
	return base * multiplierTenths(rarity) * (9 + level) / 100
}

// TemplateStats 模板在指定等级下的攻防
func TemplateStats(t *models.CardTemplate, level int) (attack, defense int) {
	return StatsAtLevel(t.BaseAttack, t.Rarity, level), StatsAtLevel(t.BaseDefense, t.Rarity, level)
}

// PowerRating 模板战力
func PowerRating(t *models.CardTemplate) int {
	return t.BaseAttack + t.BaseDefense
}

// SortTemplates 按稀有度等级再按名称排序
func SortTemplates(templates []models.CardTemplate) {
	sort.SliceStable(templates, func(i, j int) bool {
		ti, tj := templates[i].Rarity.Tier(), templates[j].Rarity.Tier()
		if ti != tj {
			return ti < tj
		}
		return templates[i].Name < templates[j].Name
	})
}
