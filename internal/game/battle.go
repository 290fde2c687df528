package game

import (
	"math"

	"gorm.io/datatypes"

	"github.com/wfunc/card-game/internal/models"
)

// 战斗常量
const (
	DefaultAIDeckSize  = 5
	ScoreVarianceMin   = 0.8
	ScoreVarianceRange = 0.4
	ConsolationExp     = 10
	WinGoldBase        = 50
	WinExpBase         = 25
)

// BattleOutcome 战斗结算结果
type BattleOutcome struct {
	Winner        models.BattleWinner `json:"winner"`
	PlayerScore   int                 `json:"player_score"`
	OpponentScore int                 `json:"opponent_score"`
	PlayerPower   int                 `json:"player_power"`
	OpponentPower int                 `json:"opponent_power"`
	Rounds        int                 `json:"rounds"`
}

// SnapshotCard 生成卡牌快照
func SnapshotCard(card *models.UserCard) models.CardSnapshot {
	id := card.ID
	return models.CardSnapshot{
		CardID:     &id,
		TemplateID: card.TemplateID,
		Name:       card.Template.Name,
		Level:      card.Level,
		Attack:     card.CurrentAttack,
		Defense:    card.CurrentDefense,
	}
}

// SnapshotDeck 生成整个卡组的快照
func SnapshotDeck(cards []models.UserCard) []models.CardSnapshot {
	deck := make([]models.CardSnapshot, 0, len(cards))
	for i := range cards {
		deck = append(deck, SnapshotCard(&cards[i]))
	}
	return deck
}

// GenerateAIDeck 根据玩家等级生成AI卡组
//
// templates 需已按id排序且只包含启用的模板，最多取前size张。
// 属性为 floor(base*(1+(level-1)*0.1))，卡牌等级不超过模板上限。
func GenerateAIDeck(templates []models.CardTemplate, level, size int) []models.CardSnapshot {
	if level < 1 {
		level = 1
	}
	if size <= 0 {
		size = DefaultAIDeckSize
	}
	if len(templates) > size {
		templates = templates[:size]
	}

	deck := make([]models.CardSnapshot, 0, len(templates))
	for _, t := range templates {
		deck = append(deck, models.CardSnapshot{
			TemplateID: t.ID,
			Name:       t.Name,
			Level:      min(level, t.MaxLevel),
			Attack:     t.BaseAttack * (9 + level) / 10,
			Defense:    t.BaseDefense * (9 + level) / 10,
		})
	}
	return deck
}

// DeckPower 卡组总战力（攻击与防御之和）
func DeckPower(deck []models.CardSnapshot) int {
	total := 0
	for _, c := range deck {
		total += c.Attack + c.Defense
	}
	return total
}

// Score floor(total * U(0.8,1.2))，r 取值 [0,1)
func Score(total int, r float64) int {
	return int(math.Floor(float64(total) * (ScoreVarianceMin + ScoreVarianceRange*r)))
}

// ResolveBattle 结算战斗，双方各自独立抽取一次随机数（先玩家后对手）
func ResolveBattle(player, opponent []models.CardSnapshot, rng RandomGenerator) BattleOutcome {
	out := BattleOutcome{
		PlayerPower:   DeckPower(player),
		OpponentPower: DeckPower(opponent),
		Rounds:        min(len(player), len(opponent)),
	}
	out.PlayerScore = Score(out.PlayerPower, rng.Next())
	out.OpponentScore = Score(out.OpponentPower, rng.Next())

	switch {
	case out.PlayerScore > out.OpponentScore:
		out.Winner = models.WinnerPlayer
	case out.PlayerScore < out.OpponentScore:
		out.Winner = models.WinnerOpponent
	default:
		out.Winner = models.WinnerDraw
	}
	return out
}

// CalculateRewards 计算战斗奖励
//
// 胜利: 金币 floor(50*(1+level*0.1))，经验 floor(25*(1+level*0.15))
// 其他: 金币0，经验10
func CalculateRewards(winner models.BattleWinner, level int) models.BattleRewards {
	rewards := models.BattleRewards{Cards: datatypes.JSONSlice[uint]{}}
	if winner != models.WinnerPlayer {
		rewards.Experience = ConsolationExp
		return rewards
	}
	rewards.Gold = int64(WinGoldBase * (10 + level) / 10)
	rewards.Experience = int64(WinExpBase * (100 + 15*level) / 100)
	return rewards
}
