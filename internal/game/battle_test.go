package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/models"
)

func snapshots(stats ...int) []models.CardSnapshot {
	deck := make([]models.CardSnapshot, 0, len(stats)/2)
	for i := 0; i+1 < len(stats); i += 2 {
		deck = append(deck, models.CardSnapshot{Attack: stats[i], Defense: stats[i+1], Level: 1})
	}
	return deck
}

func TestGenerateAIDeck(t *testing.T) {
	templates := make([]models.CardTemplate, 0, 7)
	for i := 1; i <= 7; i++ {
		tpl := models.CardTemplate{Name: "t", BaseAttack: 10 * i, BaseDefense: 5 * i, MaxLevel: 3, IsActive: true}
		tpl.ID = uint(i)
		templates = append(templates, tpl)
	}

	deck := GenerateAIDeck(templates, 5, 5)
	require.Len(t, deck, 5)
	for i, c := range deck {
		assert.Equal(t, uint(i+1), c.TemplateID)
		assert.Nil(t, c.CardID)
		assert.Equal(t, 3, c.Level)               // 不超过模板上限
		assert.Equal(t, 10*(i+1)*14/10, c.Attack) // floor(base*1.4)
		assert.Equal(t, 5*(i+1)*14/10, c.Defense) // floor(base*1.4)
	}

	// 模板不足时按实际数量生成
	assert.Len(t, GenerateAIDeck(templates[:2], 1, 5), 2)
	assert.Empty(t, GenerateAIDeck(nil, 1, 5))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 80, Score(100, 0))
	assert.Equal(t, 100, Score(100, 0.5))
	assert.Equal(t, 119, Score(100, 0.999))
	assert.Equal(t, 0, Score(0, 0.7))
}

func TestResolveBattle(t *testing.T) {
	player := snapshots(10, 10, 10, 10, 10, 10) // 60
	opponent := snapshots(20, 20)               // 40

	t.Run("玩家胜利", func(t *testing.T) {
		out := ResolveBattle(player, opponent, NewSequenceRandomGenerator(0.5, 0.5))
		assert.Equal(t, models.WinnerPlayer, out.Winner)
		assert.Equal(t, 60, out.PlayerScore)
		assert.Equal(t, 40, out.OpponentScore)
		assert.Equal(t, 1, out.Rounds)
	})

	t.Run("随机波动导致失败", func(t *testing.T) {
		// 50*0.8=40, 40*1.1996=47
		out := ResolveBattle(snapshots(25, 25), snapshots(20, 20), NewSequenceRandomGenerator(0, 0.999))
		assert.Equal(t, 40, out.PlayerScore)
		assert.Equal(t, 47, out.OpponentScore)
		assert.Equal(t, models.WinnerOpponent, out.Winner)
	})

	t.Run("平局", func(t *testing.T) {
		out := ResolveBattle(snapshots(10, 10), snapshots(5, 15), NewSequenceRandomGenerator(0.5))
		assert.Equal(t, models.WinnerDraw, out.Winner)
		assert.Equal(t, out.PlayerScore, out.OpponentScore)
	})

	t.Run("回合数取较小的卡组", func(t *testing.T) {
		for p := 1; p <= 4; p++ {
			for o := 1; o <= 4; o++ {
				pd := make([]models.CardSnapshot, p)
				od := make([]models.CardSnapshot, o)
				out := ResolveBattle(pd, od, NewSequenceRandomGenerator(0.3, 0.6))
				assert.Equal(t, min(p, o), out.Rounds)
			}
		}
	})
}

func TestCalculateRewards(t *testing.T) {
	tests := []struct {
		name   string
		winner models.BattleWinner
		level  int
		gold   int64
		exp    int64
	}{
		{"1级胜利", models.WinnerPlayer, 1, 55, 28},
		{"5级胜利", models.WinnerPlayer, 5, 75, 43},
		{"10级胜利", models.WinnerPlayer, 10, 100, 62},
		{"失败", models.WinnerOpponent, 10, 0, 10},
		{"平局", models.WinnerDraw, 3, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CalculateRewards(tt.winner, tt.level)
			assert.Equal(t, tt.gold, r.Gold)
			assert.Equal(t, tt.exp, r.Experience)
			assert.NotNil(t, r.Cards)
			assert.Empty(t, r.Cards)
		})
	}
}
