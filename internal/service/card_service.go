package service

import (
	"context"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/logger"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"go.uber.org/zap"
)

// cardService 用户卡牌服务实现
type cardService struct {
	repos        *repository.Manager
	energy       *energyService
	locker       Locker
	notifier     Notifier
	clock        game.Clock
	random       game.RandomGenerator
	fusionCost   int
	gachaCost    int64
	gachaWeights game.GachaWeights
	log          *zap.Logger
}

func newCardService(repos *repository.Manager, energy *energyService, config *Config, deps *dependencies, log *zap.Logger) *cardService {
	weights := config.GachaWeights
	if len(weights) == 0 {
		weights = game.DefaultGachaWeights()
	}
	return &cardService{
		repos:        repos,
		energy:       energy,
		locker:       deps.locker,
		notifier:     deps.notifier,
		clock:        deps.clock,
		random:       deps.random,
		fusionCost:   config.FusionEnergyCost,
		gachaCost:    config.GachaCost,
		gachaWeights: weights,
		log:          log,
	}
}

// List 分页列出用户卡牌
func (s *cardService) List(ctx context.Context, userID uint, query *CardListQuery) (*CardListResult, error) {
	if query == nil {
		query = &CardListQuery{}
	}
	pagination := repository.NewPagination(query.Page, query.PageSize)
	cards, err := s.repos.UserCard().List(ctx, userID, repository.CardFilter{
		InDeck:    query.InDeck,
		IsLocked:  query.IsLocked,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}, pagination)
	if err != nil {
		return nil, err
	}
	return &CardListResult{
		Cards:      cards,
		Total:      pagination.Total,
		Page:       pagination.Page,
		PageSize:   pagination.PageSize,
		TotalPages: pagination.TotalPages(),
	}, nil
}

// Get 获取用户自己的卡牌
func (s *cardService) Get(ctx context.Context, userID, cardID uint) (*models.UserCard, error) {
	card, err := s.repos.UserCard().FindByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := game.CheckOwner(card, userID); err != nil {
		return nil, err
	}
	return card, nil
}

// Deck 获取用户卡组，按位置升序
func (s *cardService) Deck(ctx context.Context, userID uint) ([]models.UserCard, error) {
	return s.repos.UserCard().FindDeck(ctx, userID)
}

// AddToDeck 将卡牌放入卡组指定位置
func (s *cardService) AddToDeck(ctx context.Context, userID, cardID uint, position int) (*models.UserCard, error) {
	var card *models.UserCard
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			var err error
			card, err = tx.UserCard().FindByID(ctx, cardID)
			if err != nil {
				return err
			}
			if err := game.CheckAddToDeck(card, userID, position); err != nil {
				return err
			}

			occupant, err := tx.UserCard().FindByDeckPosition(ctx, userID, position)
			switch {
			case err == nil:
				return errors.Newf(errors.ErrPositionOccupied, "位置 %d 已被卡牌 %d 占用", position, occupant.ID)
			case !errors.Is(err, errors.ErrCardNotFound):
				return err
			}

			game.PlaceInDeck(card, position)
			// 并发写入时由唯一索引兜底
			return tx.UserCard().UpdateDeckState(ctx, card)
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("卡牌加入卡组", zap.Uint("userID", userID), zap.Uint("cardID", cardID), zap.Int("position", position))
	return card, nil
}

// RemoveFromDeck 将卡牌移出卡组
func (s *cardService) RemoveFromDeck(ctx context.Context, userID, cardID uint) (*models.UserCard, error) {
	var card *models.UserCard
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			var err error
			card, err = tx.UserCard().FindByID(ctx, cardID)
			if err != nil {
				return err
			}
			if err := game.CheckRemoveFromDeck(card, userID); err != nil {
				return err
			}
			game.TakeFromDeck(card)
			return tx.UserCard().UpdateDeckState(ctx, card)
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("卡牌移出卡组", zap.Uint("userID", userID), zap.Uint("cardID", cardID))
	return card, nil
}

// SetLock 设置锁定状态，locked为nil时切换
func (s *cardService) SetLock(ctx context.Context, userID, cardID uint, locked *bool) (*models.UserCard, error) {
	var card *models.UserCard
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			var err error
			card, err = tx.UserCard().FindByID(ctx, cardID)
			if err != nil {
				return err
			}
			if err := game.CheckOwner(card, userID); err != nil {
				return err
			}

			target := !card.IsLocked
			if locked != nil {
				target = *locked
			}
			if target == card.IsLocked {
				return nil
			}
			if err := tx.UserCard().UpdateLock(ctx, card.ID, target); err != nil {
				return err
			}
			card.IsLocked = target
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Fuse 将素材卡融合进主卡
//
// 校验顺序固定：自融合、卡牌不存在、归属、锁定、卡组、等级上限、素材资格、体力。
// 扣体力、强化主卡、删除素材在同一事务内完成。
func (s *cardService) Fuse(ctx context.Context, userID, baseID, sacrificeID uint) (*FuseResult, error) {
	if err := game.CheckSelfFusion(baseID, sacrificeID); err != nil {
		return nil, err
	}

	result := &FuseResult{SacrificeID: sacrificeID}
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			base, err := tx.UserCard().FindByID(ctx, baseID)
			if err != nil {
				return err
			}
			sacrifice, err := tx.UserCard().FindByID(ctx, sacrificeID)
			if err != nil {
				return err
			}
			if err := game.CheckFusion(base, sacrifice, userID); err != nil {
				return err
			}

			user, err := tx.User().FindByID(ctx, userID)
			if err != nil {
				return err
			}
			now := s.clock()
			state, err := s.energy.consumeTx(ctx, tx, user, s.fusionCost, now)
			if err != nil {
				return err
			}

			fusion := game.ApplyFusion(base, sacrifice, now)
			if err := tx.UserCard().SaveEnhancement(ctx, base, &fusion.Record); err != nil {
				return err
			}
			if err := tx.UserCard().HardDelete(ctx, sacrifice.ID); err != nil {
				return err
			}

			fused, err := tx.UserCard().FindByID(ctx, base.ID)
			if err != nil {
				return err
			}
			result.Card = fused
			result.AttackGain = fusion.AttackGain
			result.DefenseGain = fusion.DefenseGain
			result.Energy = state.Energy
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.LogGameEvent("card_fused", userID, map[string]interface{}{
		"base_id":      baseID,
		"sacrifice_id": sacrificeID,
		"level":        result.Card.Level,
		"attack_gain":  result.AttackGain,
		"defense_gain": result.DefenseGain,
	})
	s.notifier.Notify(userID, EventCardFused, result)
	return result, nil
}

// Draw 花费金币按稀有度权重抽取一张卡牌
func (s *cardService) Draw(ctx context.Context, userID uint) (*DrawResult, error) {
	result := &DrawResult{Cost: s.gachaCost}
	err := withUserLock(ctx, s.locker, userID, func() error {
		return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
			if err := tx.User().DeductGold(ctx, userID, s.gachaCost); err != nil {
				return err
			}

			templates, err := tx.CardTemplate().FindActive(ctx, 0)
			if err != nil {
				return err
			}
			result.DrawnRarity = s.gachaWeights.DrawRarity(s.random)
			template, err := game.PickTemplate(templates, result.DrawnRarity, s.random)
			if err != nil {
				return err
			}

			card := game.NewCard(userID, template, models.ObtainedGacha, s.clock())
			if err := tx.UserCard().Create(ctx, card); err != nil {
				return err
			}
			card.Template = *template

			user, err := tx.User().FindByID(ctx, userID)
			if err != nil {
				return err
			}
			result.Card = card
			result.Gold = user.Gold
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.LogGameEvent("card_drawn", userID, map[string]interface{}{
		"card_id":  result.Card.ID,
		"template": result.Card.Template.Name,
		"rarity":   result.Card.Template.Rarity,
		"drawn":    result.DrawnRarity,
	})
	s.notifier.Notify(userID, EventCardDrawn, result)
	return result, nil
}
