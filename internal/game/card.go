package game

import (
	"time"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

// NewCard 根据模板生成一张1级卡牌
func NewCard(userID uint, t *models.CardTemplate, from models.ObtainedFrom, now time.Time) *models.UserCard {
	return &models.UserCard{
		UserID:         userID,
		TemplateID:     t.ID,
		CurrentAttack:  t.BaseAttack,
		CurrentDefense: t.BaseDefense,
		Level:          1,
		ObtainedFrom:   from,
		ObtainedAt:     now,
	}
}

// CheckOwner 检查卡牌归属
func CheckOwner(card *models.UserCard, userID uint) error {
	if card.UserID != userID {
		return errors.Newf(errors.ErrNotOwner, "卡牌 %d", card.ID)
	}
	return nil
}

// CheckAddToDeck 加入卡组前的校验，位置占用由存储层唯一索引保证
func CheckAddToDeck(card *models.UserCard, userID uint, position int) error {
	if err := CheckOwner(card, userID); err != nil {
		return err
	}
	if position < 1 {
		return errors.Newf(errors.ErrInvalidPosition, "位置: %d", position)
	}
	if card.IsInDeck {
		return errors.Newf(errors.ErrAlreadyInDeck, "卡牌 %d", card.ID)
	}
	if card.IsLocked {
		return errors.Newf(errors.ErrCardLocked, "卡牌 %d", card.ID)
	}
	return nil
}

// CheckRemoveFromDeck 移出卡组前的校验
func CheckRemoveFromDeck(card *models.UserCard, userID uint) error {
	if err := CheckOwner(card, userID); err != nil {
		return err
	}
	if !card.IsInDeck {
		return errors.Newf(errors.ErrNotInDeck, "卡牌 %d", card.ID)
	}
	return nil
}

// PlaceInDeck 放入卡组
func PlaceInDeck(card *models.UserCard, position int) {
	card.IsInDeck = true
	card.DeckPosition = &position
}

// TakeFromDeck 移出卡组
func TakeFromDeck(card *models.UserCard) {
	card.IsInDeck = false
	card.DeckPosition = nil
}
