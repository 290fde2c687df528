package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/errors"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestEnergyPolicy_Peek(t *testing.T) {
	p := NewEnergyPolicy(5 * time.Minute)

	tests := []struct {
		name    string
		state   EnergyState
		elapsed time.Duration
		want    int
	}{
		{"未经过时间", EnergyState{Energy: 10, MaxEnergy: 50, LastRefill: baseTime}, 0, 10},
		{"不足一个周期", EnergyState{Energy: 10, MaxEnergy: 50, LastRefill: baseTime}, 299 * time.Second, 10},
		{"恰好一个周期", EnergyState{Energy: 10, MaxEnergy: 50, LastRefill: baseTime}, 300 * time.Second, 11},
		{"多个周期", EnergyState{Energy: 10, MaxEnergy: 50, LastRefill: baseTime}, 25 * time.Minute, 15},
		{"不超过上限", EnergyState{Energy: 48, MaxEnergy: 50, LastRefill: baseTime}, 24 * time.Hour, 50},
		{"时钟回拨", EnergyState{Energy: 10, MaxEnergy: 50, LastRefill: baseTime}, -time.Hour, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Peek(tt.state, baseTime.Add(tt.elapsed)))
		})
	}
}

func TestEnergyPolicy_PeekMonotonic(t *testing.T) {
	p := NewEnergyPolicy(0)
	s := EnergyState{Energy: 0, MaxEnergy: 50, LastRefill: baseTime}

	prev := p.Peek(s, baseTime)
	for minutes := 1; minutes <= 600; minutes += 7 {
		cur := p.Peek(s, baseTime.Add(time.Duration(minutes)*time.Minute))
		assert.GreaterOrEqual(t, cur, prev)
		assert.LessOrEqual(t, cur, s.MaxEnergy)
		prev = cur
	}
}

func TestEnergyPolicy_Regenerate(t *testing.T) {
	p := NewEnergyPolicy(5 * time.Minute)
	s := EnergyState{Energy: 10, MaxEnergy: 50, LastRefill: baseTime}

	// 不足一个周期时不变化
	next, changed := p.Regenerate(s, baseTime.Add(4*time.Minute))
	assert.False(t, changed)
	assert.Equal(t, s, next)

	// 恢复后刷新时间重置为now
	now := baseTime.Add(17 * time.Minute)
	next, changed = p.Regenerate(s, now)
	assert.True(t, changed)
	assert.Equal(t, 13, next.Energy)
	assert.Equal(t, now, next.LastRefill)
}

func TestEnergyPolicy_Consume(t *testing.T) {
	p := NewEnergyPolicy(5 * time.Minute)

	t.Run("满体力消耗10点", func(t *testing.T) {
		s := EnergyState{Energy: 50, MaxEnergy: 50, LastRefill: baseTime}
		next, err := p.Consume(s, 10, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 40, next.Energy)
	})

	t.Run("先恢复再消耗", func(t *testing.T) {
		s := EnergyState{Energy: 3, MaxEnergy: 50, LastRefill: baseTime}
		next, err := p.Consume(s, 5, baseTime.Add(10*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 0, next.Energy)
	})

	t.Run("体力不足", func(t *testing.T) {
		s := EnergyState{Energy: 3, MaxEnergy: 50, LastRefill: baseTime}
		next, err := p.Consume(s, 5, baseTime)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInsufficientEnergy))
		assert.Equal(t, s, next)
	})

	t.Run("负数消耗", func(t *testing.T) {
		s := EnergyState{Energy: 3, MaxEnergy: 50, LastRefill: baseTime}
		_, err := p.Consume(s, -1, baseTime)
		assert.True(t, errors.Is(err, errors.ErrInvalidParam))
	})

	t.Run("消耗0点", func(t *testing.T) {
		s := EnergyState{Energy: 0, MaxEnergy: 50, LastRefill: baseTime}
		next, err := p.Consume(s, 0, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 0, next.Energy)
	})
}

func TestEnergyPolicy_ConsumeNeverNegative(t *testing.T) {
	p := NewEnergyPolicy(5 * time.Minute)
	for energy := 0; energy <= 12; energy++ {
		for amount := 0; amount <= 12; amount++ {
			s := EnergyState{Energy: energy, MaxEnergy: 50, LastRefill: baseTime}
			next, err := p.Consume(s, amount, baseTime)
			if amount > energy {
				assert.Error(t, err)
				assert.Equal(t, energy, next.Energy)
				continue
			}
			require.NoError(t, err)
			assert.Equal(t, energy-amount, next.Energy)
			assert.GreaterOrEqual(t, next.Energy, 0)
		}
	}
}

func TestEnergyPolicy_NextRegenAt(t *testing.T) {
	p := NewEnergyPolicy(5 * time.Minute)

	full := EnergyState{Energy: 50, MaxEnergy: 50, LastRefill: baseTime}
	assert.True(t, p.NextRegenAt(full, baseTime).IsZero())

	s := EnergyState{Energy: 10, MaxEnergy: 50, LastRefill: baseTime}
	assert.Equal(t, baseTime.Add(10*time.Minute), p.NextRegenAt(s, baseTime.Add(6*time.Minute)))
}
