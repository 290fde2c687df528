package service

import (
	"context"
	"time"

	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/logger"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"go.uber.org/zap"
)

// energyService 体力服务实现
type energyService struct {
	repos    *repository.Manager
	locker   Locker
	notifier Notifier
	clock    game.Clock
	policy   game.EnergyPolicy
	log      *zap.Logger
}

func newEnergyService(repos *repository.Manager, deps *dependencies, policy game.EnergyPolicy, log *zap.Logger) *energyService {
	return &energyService{
		repos:    repos,
		locker:   deps.locker,
		notifier: deps.notifier,
		clock:    deps.clock,
		policy:   policy,
		log:      log,
	}
}

// Status 返回当前体力（只读，不落库）
func (s *energyService) Status(ctx context.Context, userID uint) (*EnergyStatus, error) {
	user, err := s.repos.User().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	state := stateOf(user)
	state.Energy = s.policy.Peek(state, now)
	return s.status(state, now), nil
}

// Regenerate 结算自然恢复的体力
func (s *energyService) Regenerate(ctx context.Context, userID uint) (*EnergyStatus, error) {
	var (
		state   game.EnergyState
		changed bool
		now     time.Time
	)
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			user, err := tx.User().FindByID(ctx, userID)
			if err != nil {
				return err
			}
			now = s.clock()
			state, changed, err = s.regenerateTx(ctx, tx, user, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	status := s.status(state, now)
	if changed {
		s.notifier.Notify(userID, EventEnergyUpdated, status)
	}
	return status, nil
}

// Consume 消耗体力
func (s *energyService) Consume(ctx context.Context, userID uint, amount int) (*EnergyStatus, error) {
	var (
		state game.EnergyState
		now   time.Time
	)
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			user, err := tx.User().FindByID(ctx, userID)
			if err != nil {
				return err
			}
			now = s.clock()
			state, err = s.consumeTx(ctx, tx, user, amount, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	status := s.status(state, now)
	s.notifier.Notify(userID, EventEnergyUpdated, status)
	return status, nil
}

// regenerateTx 在事务内结算恢复，无变化时不写库
func (s *energyService) regenerateTx(ctx context.Context, tx *repository.Transaction, user *models.User, now time.Time) (game.EnergyState, bool, error) {
	before := stateOf(user)
	after, changed := s.policy.Regenerate(before, now)
	if !changed {
		return before, false, nil
	}
	if err := tx.User().UpdateEnergy(ctx, user.ID, before.Energy, after.Energy, after.LastRefill); err != nil {
		return before, false, err
	}
	applyState(user, after)
	logger.LogEnergyChange(user.ID, "regen", before.Energy, after.Energy)
	return after, true, nil
}

// consumeTx 在事务内先恢复后扣减体力，调用方需持有用户锁
func (s *energyService) consumeTx(ctx context.Context, tx *repository.Transaction, user *models.User, amount int, now time.Time) (game.EnergyState, error) {
	before := stateOf(user)
	after, err := s.policy.Consume(before, amount, now)
	if err != nil {
		return before, err
	}
	if err := tx.User().UpdateEnergy(ctx, user.ID, before.Energy, after.Energy, after.LastRefill); err != nil {
		return before, err
	}
	applyState(user, after)
	logger.LogEnergyChange(user.ID, "consume", before.Energy, after.Energy)
	return after, nil
}

func (s *energyService) status(state game.EnergyState, now time.Time) *EnergyStatus {
	status := &EnergyStatus{
		Energy:           state.Energy,
		MaxEnergy:        state.MaxEnergy,
		LastEnergyRefill: state.LastRefill,
		RegenSeconds:     int64(s.policy.RegenInterval / time.Second),
	}
	if next := s.policy.NextRegenAt(state, now); !next.IsZero() {
		status.NextRegenAt = &next
	}
	return status
}

func stateOf(user *models.User) game.EnergyState {
	return game.EnergyState{
		Energy:     user.Energy,
		MaxEnergy:  user.MaxEnergy,
		LastRefill: user.LastEnergyRefill,
	}
}

func applyState(user *models.User, state game.EnergyState) {
	user.Energy = state.Energy
	user.LastEnergyRefill = state.LastRefill
}
