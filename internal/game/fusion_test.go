package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

func newFusionPair() (*models.UserCard, *models.UserCard) {
	base := &models.UserCard{
		UserID:         1,
		TemplateID:     1,
		CurrentAttack:  20,
		CurrentDefense: 15,
		Level:          3,
		Template:       models.CardTemplate{MaxLevel: 10, FusionMaterial: true},
	}
	base.ID = 10

	sacrifice := &models.UserCard{
		UserID:         1,
		TemplateID:     2,
		CurrentAttack:  30,
		CurrentDefense: 9,
		Level:          2,
		Template:       models.CardTemplate{MaxLevel: 10, FusionMaterial: true},
	}
	sacrifice.ID = 11
	return base, sacrifice
}

func TestCheckSelfFusion(t *testing.T) {
	assert.True(t, errors.Is(CheckSelfFusion(5, 5), errors.ErrSelfFusion))
	assert.NoError(t, CheckSelfFusion(5, 6))
}

func TestCheckFusion(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(base, sac *models.UserCard)
		want   errors.ErrorCode
	}{
		{"主卡不属于用户", func(b, s *models.UserCard) { b.UserID = 2 }, errors.ErrNotOwner},
		{"素材不属于用户", func(b, s *models.UserCard) { s.UserID = 2 }, errors.ErrNotOwner},
		{"主卡锁定", func(b, s *models.UserCard) { b.IsLocked = true }, errors.ErrCardLocked},
		{"素材锁定", func(b, s *models.UserCard) { s.IsLocked = true }, errors.ErrCardLocked},
		{"主卡在卡组", func(b, s *models.UserCard) { b.IsInDeck = true }, errors.ErrCardInDeck},
		{"素材在卡组", func(b, s *models.UserCard) { s.IsInDeck = true }, errors.ErrCardInDeck},
		{"主卡满级", func(b, s *models.UserCard) { b.Level = 10 }, errors.ErrMaxLevelReached},
		{"素材不可融合", func(b, s *models.UserCard) { s.Template.FusionMaterial = false }, errors.ErrNotFusionMaterial},
		{"所有权优先于锁定", func(b, s *models.UserCard) { s.UserID = 2; b.IsLocked = true }, errors.ErrNotOwner},
		{"锁定优先于卡组", func(b, s *models.UserCard) { s.IsLocked = true; b.IsInDeck = true }, errors.ErrCardLocked},
		{"满级优先于素材类型", func(b, s *models.UserCard) { b.Level = 10; s.Template.FusionMaterial = false }, errors.ErrMaxLevelReached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, sac := newFusionPair()
			tt.mutate(base, sac)
			err := CheckFusion(base, sac, 1)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.GetCode(err))
		})
	}

	base, sac := newFusionPair()
	assert.NoError(t, CheckFusion(base, sac, 1))
}

func TestApplyFusion(t *testing.T) {
	base, sac := newFusionPair()

	result := ApplyFusion(base, sac, baseTime)

	assert.Equal(t, 3, result.AttackGain)
	assert.Equal(t, 0, result.DefenseGain)
	assert.Equal(t, 23, base.CurrentAttack)
	assert.Equal(t, 15, base.CurrentDefense)
	assert.Equal(t, 4, base.Level)
	assert.Equal(t, 1, base.TimesEnhanced)
	require.Len(t, base.FusedCards, 1)
	assert.Equal(t, uint(2), base.FusedCards[0].TemplateID)
	assert.Equal(t, 2, base.FusedCards[0].Level)
	assert.Equal(t, baseTime, base.FusedCards[0].FusedAt)

	// 素材本身不被修改
	assert.Equal(t, 30, sac.CurrentAttack)
	assert.Equal(t, 2, sac.Level)
}
