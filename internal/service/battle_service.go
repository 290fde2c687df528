package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/logger"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// battleService 战斗服务实现
type battleService struct {
	repos      *repository.Manager
	energy     *energyService
	locker     Locker
	notifier   Notifier
	clock      game.Clock
	random     game.RandomGenerator
	energyCost int
	aiDeckSize int
	log        *zap.Logger
}

func newBattleService(repos *repository.Manager, energy *energyService, config *Config, deps *dependencies, log *zap.Logger) *battleService {
	return &battleService{
		repos:      repos,
		energy:     energy,
		locker:     deps.locker,
		notifier:   deps.notifier,
		clock:      deps.clock,
		random:     deps.random,
		energyCost: config.BattleEnergyCost,
		aiDeckSize: config.AIDeckSize,
		log:        log,
	}
}

// validateBattleRequest 校验战斗类型和对手
func validateBattleRequest(userID uint, req *StartBattleRequest) error {
	if req == nil || !req.BattleType.Valid() {
		var t models.BattleType
		if req != nil {
			t = req.BattleType
		}
		return errors.Newf(errors.ErrInvalidBattleType, "战斗类型: %q", t)
	}
	if req.BattleType != models.BattlePvP {
		return nil
	}
	if req.OpponentID == nil || *req.OpponentID == 0 {
		return errors.New(errors.ErrInvalidParam, "PvP战斗需要指定对手")
	}
	if *req.OpponentID == userID {
		return errors.New(errors.ErrInvalidParam, "不能与自己战斗")
	}
	return nil
}

// StartBattle 开始一场战斗
//
// 扣体力、加载卡组、结算、发放奖励和写入战斗记录在同一事务内，
// 任何一步失败都会回滚体力扣减。
func (s *battleService) StartBattle(ctx context.Context, userID uint, req *StartBattleRequest) (*BattleResult, error) {
	if err := validateBattleRequest(userID, req); err != nil {
		return nil, err
	}

	result := &BattleResult{}
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			user, err := tx.User().FindByID(ctx, userID)
			if err != nil {
				return err
			}

			startedAt := s.clock()
			state, err := s.energy.consumeTx(ctx, tx, user, s.energyCost, startedAt)
			if err != nil {
				return err
			}

			deck, err := tx.UserCard().FindDeck(ctx, userID)
			if err != nil {
				return err
			}
			if len(deck) == 0 {
				return errors.Newf(errors.ErrEmptyDeck, "用户 %d", userID)
			}
			playerDeck := game.SnapshotDeck(deck)

			battle := &models.Battle{
				BattleNo:   uuid.NewString(),
				PlayerID:   userID,
				BattleType: req.BattleType,
				EnergyCost: s.energyCost,
				StartedAt:  startedAt,
			}

			var opponentDeck []models.CardSnapshot
			if req.BattleType == models.BattlePvP {
				opponentDeck, err = s.loadOpponentDeck(ctx, tx, *req.OpponentID)
				if err != nil {
					return err
				}
				opponentID := *req.OpponentID
				battle.OpponentID = &opponentID
			} else {
				templates, err := tx.CardTemplate().FindActive(ctx, s.aiDeckSize)
				if err != nil {
					return err
				}
				if len(templates) == 0 {
					return errors.New(errors.ErrNoActiveTemplates)
				}
				opponentDeck = game.GenerateAIDeck(templates, user.Level, s.aiDeckSize)
			}

			outcome := game.ResolveBattle(playerDeck, opponentDeck, s.random)
			rewards := game.CalculateRewards(outcome.Winner, user.Level)
			if outcome.Winner == models.WinnerPlayer {
				if err := tx.User().AddGoldAndExperience(ctx, userID, rewards.Gold, rewards.Experience); err != nil {
					return err
				}
			}

			completedAt := s.clock()
			battle.PlayerDeck = datatypes.JSONSlice[models.CardSnapshot](playerDeck)
			battle.OpponentDeck = datatypes.JSONSlice[models.CardSnapshot](opponentDeck)
			battle.Winner = outcome.Winner
			battle.PlayerScore = outcome.PlayerScore
			battle.OpponentScore = outcome.OpponentScore
			battle.Rounds = outcome.Rounds
			battle.Rewards = rewards
			battle.CompletedAt = completedAt
			battle.DurationMs = completedAt.Sub(startedAt).Milliseconds()
			if err := tx.Battle().Create(ctx, battle); err != nil {
				return err
			}

			cardIDs := make([]uint, 0, len(deck))
			for _, card := range deck {
				cardIDs = append(cardIDs, card.ID)
			}
			if err := tx.UserCard().TouchLastUsed(ctx, cardIDs, completedAt); err != nil {
				return err
			}

			updated, err := tx.User().FindByID(ctx, userID)
			if err != nil {
				return err
			}
			result.Battle = battle
			result.Energy = state.Energy
			result.Gold = updated.Gold
			result.Experience = updated.Experience
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.LogGameEvent("battle_completed", userID, map[string]interface{}{
		"battle_no":      result.Battle.BattleNo,
		"type":           result.Battle.BattleType,
		"winner":         result.Battle.Winner,
		"player_score":   result.Battle.PlayerScore,
		"opponent_score": result.Battle.OpponentScore,
	})
	s.notifier.Notify(userID, EventBattleCompleted, result)
	return result, nil
}

// loadOpponentDeck 加载PvP对手卡组
func (s *battleService) loadOpponentDeck(ctx context.Context, tx *repository.Transaction, opponentID uint) ([]models.CardSnapshot, error) {
	if _, err := tx.User().FindByID(ctx, opponentID); err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.Newf(errors.ErrOpponentNotFound, "对手ID: %d", opponentID)
		}
		return nil, err
	}
	deck, err := tx.UserCard().FindDeck(ctx, opponentID)
	if err != nil {
		return nil, err
	}
	if len(deck) == 0 {
		return nil, errors.Newf(errors.ErrOpponentEmptyDeck, "对手ID: %d", opponentID)
	}
	return game.SnapshotDeck(deck), nil
}

// History 查询战斗历史，包含作为对手参与的战斗
func (s *battleService) History(ctx context.Context, userID uint, filter repository.BattleFilter) (*BattleHistory, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, errors.Newf(errors.ErrInvalidBattleType, "战斗类型: %q", filter.Type)
	}
	filter.Normalize()
	battles, hasMore, err := s.repos.Battle().ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &BattleHistory{
		Battles: battles,
		HasMore: hasMore,
		Limit:   filter.Limit,
		Skip:    filter.Skip,
	}, nil
}
