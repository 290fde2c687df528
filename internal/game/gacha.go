package game

import (
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

// GachaWeights 稀有度权重
type GachaWeights map[models.Rarity]int

// DefaultGachaWeights 默认抽卡权重（百分比）
func DefaultGachaWeights() GachaWeights {
	return GachaWeights{
		models.RarityCommon:    60,
		models.RarityUncommon:  25,
		models.RarityRare:      10,
		models.RarityEpic:      4,
		models.RarityLegendary: 1,
	}
}

// ParseGachaWeights 从配置解析权重，未知稀有度和非正权重被忽略
func ParseGachaWeights(raw map[string]int) GachaWeights {
	weights := GachaWeights{}
	for key, w := range raw {
		r := models.Rarity(key)
		if r.Valid() && w > 0 {
			weights[r] = w
		}
	}
	if len(weights) == 0 {
		return DefaultGachaWeights()
	}
	return weights
}

// DrawRarity 按权重抽取稀有度
func (w GachaWeights) DrawRarity(rng RandomGenerator) models.Rarity {
	total := 0
	for _, r := range models.Rarities {
		total += w[r]
	}
	if total <= 0 {
		return models.RarityCommon
	}

	n := rng.NextInt(0, total)
	for _, r := range models.Rarities {
		n -= w[r]
		if n < 0 {
			return r
		}
	}
	return models.RarityCommon
}

// PickTemplate 从抽中的稀有度里随机选择模板
//
// 该稀有度没有启用模板时向低一级回退，低级都没有时再向高级查找。
func PickTemplate(templates []models.CardTemplate, rarity models.Rarity, rng RandomGenerator) (*models.CardTemplate, error) {
	byRarity := make(map[models.Rarity][]int)
	for i := range templates {
		if templates[i].IsActive {
			byRarity[templates[i].Rarity] = append(byRarity[templates[i].Rarity], i)
		}
	}

	tier := rarity.Tier()
	if tier < 0 {
		tier = 0
	}
	order := make([]models.Rarity, 0, len(models.Rarities))
	for i := tier; i >= 0; i-- {
		order = append(order, models.Rarities[i])
	}
	for i := tier + 1; i < len(models.Rarities); i++ {
		order = append(order, models.Rarities[i])
	}

	for _, r := range order {
		candidates := byRarity[r]
		if len(candidates) == 0 {
			continue
		}
		return &templates[candidates[rng.NextInt(0, len(candidates))]], nil
	}
	return nil, errors.New(errors.ErrNoActiveTemplates)
}
