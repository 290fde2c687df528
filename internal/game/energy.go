package game

import (
	"time"

	"github.com/wfunc/card-game/internal/errors"
)

// DefaultRegenInterval 每恢复1点体力所需时间
const DefaultRegenInterval = 5 * time.Minute

// EnergyState 体力状态
type EnergyState struct {
	Energy     int       `json:"energy"`
	MaxEnergy  int       `json:"max_energy"`
	LastRefill time.Time `json:"last_energy_refill"`
}

// EnergyPolicy 体力恢复与消耗规则
type EnergyPolicy struct {
	RegenInterval time.Duration
}

// NewEnergyPolicy 创建体力规则
func NewEnergyPolicy(interval time.Duration) EnergyPolicy {
	if interval <= 0 {
		interval = DefaultRegenInterval
	}
	return EnergyPolicy{RegenInterval: interval}
}

func (p EnergyPolicy) interval() time.Duration {
	if p.RegenInterval <= 0 {
		return DefaultRegenInterval
	}
	return p.RegenInterval
}

// Regenerated 计算自上次恢复以来累计的体力点数（不足一个周期的部分舍去）
func (p EnergyPolicy) Regenerated(s EnergyState, now time.Time) int {
	elapsed := now.Sub(s.LastRefill)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / p.interval())
}

// Peek 返回now时刻的体力值，不修改状态
func (p EnergyPolicy) Peek(s EnergyState, now time.Time) int {
	return min(s.Energy+p.Regenerated(s, now), s.MaxEnergy)
}

// Regenerate 应用体力恢复，changed为false时状态未变化
func (p EnergyPolicy) Regenerate(s EnergyState, now time.Time) (EnergyState, bool) {
	regen := p.Regenerated(s, now)
	if regen <= 0 {
		return s, false
	}
	s.Energy = min(s.Energy+regen, s.MaxEnergy)
	s.LastRefill = now
	return s, true
}

// Consume 先恢复再扣除体力，失败时返回原状态
func (p EnergyPolicy) Consume(s EnergyState, amount int, now time.Time) (EnergyState, error) {
	if amount < 0 {
		return s, errors.Newf(errors.ErrInvalidParam, "体力消耗不能为负数: %d", amount)
	}

	next, _ := p.Regenerate(s, now)
	if next.Energy < amount {
		return s, errors.Newf(errors.ErrInsufficientEnergy, "需要 %d 点体力，当前 %d", amount, next.Energy)
	}
	next.Energy -= amount
	return next, nil
}

// NextRegenAt 下一点体力的恢复时间，体力已满时返回零值
func (p EnergyPolicy) NextRegenAt(s EnergyState, now time.Time) time.Time {
	if p.Peek(s, now) >= s.MaxEnergy {
		return time.Time{}
	}
	regen := p.Regenerated(s, now)
	return s.LastRefill.Add(time.Duration(regen+1) * p.interval())
}
