package game

import (
	"time"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

// FusionGainPercent 融合时吸收素材属性的百分比
const FusionGainPercent = 10

// FusionResult 融合结果
type FusionResult struct {
	AttackGain  int                 `json:"attack_gain"`
	DefenseGain int                 `json:"defense_gain"`
	Record      models.FusionRecord `json:"record"`
}

// CheckSelfFusion 在加载卡牌之前检查
func CheckSelfFusion(baseID, sacrificeID uint) error {
	if baseID == sacrificeID {
		return errors.Newf(errors.ErrSelfFusion, "卡牌 %d", baseID)
	}
	return nil
}

// CheckFusion 按顺序校验融合条件，两张卡牌都需要预加载Template
func CheckFusion(base, sacrifice *models.UserCard, userID uint) error {
	for _, card := range []*models.UserCard{base, sacrifice} {
		if err := CheckOwner(card, userID); err != nil {
			return err
		}
	}
	for _, card := range []*models.UserCard{base, sacrifice} {
		if card.IsLocked {
			return errors.Newf(errors.ErrCardLocked, "卡牌 %d", card.ID)
		}
	}
	for _, card := range []*models.UserCard{base, sacrifice} {
		if card.IsInDeck {
			return errors.Newf(errors.ErrCardInDeck, "卡牌 %d", card.ID)
		}
	}
	if base.Level >= base.Template.MaxLevel {
		return errors.Newf(errors.ErrMaxLevelReached, "卡牌 %d 等级 %d/%d", base.ID, base.Level, base.Template.MaxLevel)
	}
	if !sacrifice.Template.FusionMaterial {
		return errors.Newf(errors.ErrNotFusionMaterial, "模板 %s", sacrifice.Template.Name)
	}
	return nil
}

// ApplyFusion 将素材属性的10%叠加到主卡，并生成融合记录
func ApplyFusion(base, sacrifice *models.UserCard, now time.Time) FusionResult {
	result := FusionResult{
		AttackGain:  sacrifice.CurrentAttack * FusionGainPercent / 100,
		DefenseGain: sacrifice.CurrentDefense * FusionGainPercent / 100,
		Record: models.FusionRecord{
			UserCardID: base.ID,
			TemplateID: sacrifice.TemplateID,
			Level:      sacrifice.Level,
			FusedAt:    now,
		},
	}

	base.CurrentAttack += result.AttackGain
	base.CurrentDefense += result.DefenseGain
	base.Level++
	base.TimesEnhanced++
	base.FusedCards = append(base.FusedCards, result.Record)

	return result
}
