package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

// newTestBattle 构造战斗记录
func newTestBattle(playerID uint, opponentID *uint, winner models.BattleWinner, at time.Time) *models.Battle {
	battleType := models.BattlePvE
	if opponentID != nil {
		battleType = models.BattlePvP
	}
	cardID := uint(1)
	return &models.Battle{
		BattleNo:   uuid.NewString(),
		PlayerID:   playerID,
		OpponentID: opponentID,
		BattleType: battleType,
		PlayerDeck: []models.CardSnapshot{
			{CardID: &cardID, TemplateID: 1, Name: "A", Level: 1, Attack: 50, Defense: 40},
		},
		OpponentDeck: []models.CardSnapshot{
			{TemplateID: 1, Name: "A", Level: 1, Attack: 50, Defense: 40},
		},
		Winner:        winner,
		PlayerScore:   90,
		OpponentScore: 80,
		Rounds:        1,
		Rewards:       models.BattleRewards{Gold: 55, Experience: 28, Cards: []uint{}},
		EnergyCost:    10,
		StartedAt:     at,
		CompletedAt:   at,
	}
}

func TestBattleRepository_CreateAndFind(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewBattleRepository(db)
	ctx := context.Background()

	user := CreateTestUser(t, db, "fighter")
	battle := newTestBattle(user.ID, nil, models.WinnerPlayer, time.Now())
	require.NoError(t, repo.Create(ctx, battle))

	found, err := repo.FindByID(ctx, battle.ID)
	require.NoError(t, err)
	assert.True(t, found.IsPvE())
	assert.Equal(t, models.WinnerPlayer, found.Winner)
	assert.Equal(t, int64(55), found.Rewards.Gold)
	assert.Equal(t, int64(28), found.Rewards.Experience)
	require.Len(t, found.PlayerDeck, 1)
	require.NotNil(t, found.PlayerDeck[0].CardID)
	assert.Equal(t, uint(1), *found.PlayerDeck[0].CardID)
	require.Len(t, found.OpponentDeck, 1)
	assert.Nil(t, found.OpponentDeck[0].CardID)

	byNo, err := repo.FindByBattleNo(ctx, battle.BattleNo)
	require.NoError(t, err)
	assert.Equal(t, battle.ID, byNo.ID)

	_, err = repo.FindByID(ctx, 9999)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = repo.FindByBattleNo(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestBattleRepository_ListByUser(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewBattleRepository(db)
	ctx := context.Background()

	player := CreateTestUser(t, db, "player")
	rival := CreateTestUser(t, db, "rival")
	base := time.Now().Add(-time.Hour)

	// 5场PvE，2场玩家对rival的PvP，1场rival挑战玩家
	for i := 0; i < 5; i++ {
		winner := models.WinnerPlayer
		if i%2 == 1 {
			winner = models.WinnerOpponent
		}
		battle := newTestBattle(player.ID, nil, winner, base.Add(time.Duration(i)*time.Minute))
		battle.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, battle))
	}
	for i := 0; i < 2; i++ {
		battle := newTestBattle(player.ID, &rival.ID, models.WinnerDraw, base)
		battle.CreatedAt = base.Add(time.Duration(10+i) * time.Minute)
		require.NoError(t, repo.Create(ctx, battle))
	}
	challenged := newTestBattle(rival.ID, &player.ID, models.WinnerPlayer, base)
	challenged.CreatedAt = base.Add(20 * time.Minute)
	require.NoError(t, repo.Create(ctx, challenged))

	// 默认查询包含双方身份，按时间倒序
	battles, hasMore, err := repo.ListByUser(ctx, player.ID, BattleFilter{})
	require.NoError(t, err)
	assert.Len(t, battles, 8)
	assert.False(t, hasMore)
	assert.Equal(t, challenged.ID, battles[0].ID)

	// 分页
	battles, hasMore, err = repo.ListByUser(ctx, player.ID, BattleFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, battles, 3)
	assert.True(t, hasMore)

	battles, hasMore, err = repo.ListByUser(ctx, player.ID, BattleFilter{Limit: 3, Skip: 6})
	require.NoError(t, err)
	assert.Len(t, battles, 2)
	assert.False(t, hasMore)

	// 类型和胜方筛选
	battles, _, err = repo.ListByUser(ctx, player.ID, BattleFilter{Type: models.BattlePvP})
	require.NoError(t, err)
	assert.Len(t, battles, 3)

	battles, _, err = repo.ListByUser(ctx, player.ID, BattleFilter{Type: models.BattlePvE, Winner: models.WinnerOpponent})
	require.NoError(t, err)
	assert.Len(t, battles, 2)

	// rival只能看到自己参与的3场
	battles, _, err = repo.ListByUser(ctx, rival.ID, BattleFilter{})
	require.NoError(t, err)
	assert.Len(t, battles, 3)

	count, err := repo.CountByUser(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	wins, err := repo.CountWinsByUser(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), wins)
}

func TestBattleFilter_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		filter    BattleFilter
		wantLimit int
		wantSkip  int
	}{
		{"默认值", BattleFilter{}, DefaultBattleHistoryLimit, 0},
		{"超过上限", BattleFilter{Limit: 500}, MaxBattleHistoryLimit, 0},
		{"负数偏移", BattleFilter{Limit: 5, Skip: -3}, 5, 0},
		{"正常值", BattleFilter{Limit: 10, Skip: 20}, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			f.Normalize()
			assert.Equal(t, tt.wantLimit, f.Limit, fmt.Sprintf("%+v", tt.filter))
			assert.Equal(t, tt.wantSkip, f.Skip)
		})
	}
}
