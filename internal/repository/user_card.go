package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

// 卡牌列表允许的排序字段
var cardSortFields = map[string]bool{
	"level":           true,
	"current_attack":  true,
	"current_defense": true,
	"obtained_at":     true,
}

// CardFilter 用户卡牌查询条件
type CardFilter struct {
	InDeck    *bool
	IsLocked  *bool
	SortBy    string
	SortOrder string
}

// orderClause 生成排序语句，非法字段回退到obtained_at
func (f CardFilter) orderClause() string {
	field := f.SortBy
	if !cardSortFields[field] {
		field = "obtained_at"
	}
	order := "DESC"
	if f.SortOrder == "asc" {
		order = "ASC"
	}
	return fmt.Sprintf("%s %s, id ASC", field, order)
}

// UserCardRepository 用户卡牌仓储接口
type UserCardRepository interface {
	BaseRepository
	Create(ctx context.Context, card *models.UserCard) error
	FindByID(ctx context.Context, id uint) (*models.UserCard, error)
	List(ctx context.Context, userID uint, filter CardFilter, pagination *Pagination) ([]models.UserCard, error)
	FindDeck(ctx context.Context, userID uint) ([]models.UserCard, error)
	FindByDeckPosition(ctx context.Context, userID uint, position int) (*models.UserCard, error)
	UpdateDeckState(ctx context.Context, card *models.UserCard) error
	UpdateLock(ctx context.Context, cardID uint, locked bool) error
	SaveEnhancement(ctx context.Context, card *models.UserCard, record *models.FusionRecord) error
	HardDelete(ctx context.Context, cardID uint) error
	TouchLastUsed(ctx context.Context, cardIDs []uint, at time.Time) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	DeleteAll(ctx context.Context) error
}

// userCardRepo 用户卡牌仓储实现
type userCardRepo struct {
	*BaseRepo
}

// NewUserCardRepository 创建用户卡牌仓储
func NewUserCardRepository(db *gorm.DB) UserCardRepository {
	return &userCardRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建卡牌
func (r *userCardRepo) Create(ctx context.Context, card *models.UserCard) error {
	err := r.db.WithContext(ctx).Omit("Template").Create(card).Error
	if isDuplicateKeyError(err) {
		return apperrors.New(apperrors.ErrPositionOccupied)
	}
	return err
}

// FindByID 根据ID查找卡牌（预加载模板和融合记录）
func (r *userCardRepo) FindByID(ctx context.Context, id uint) (*models.UserCard, error) {
	var card models.UserCard
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("FusedCards", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&card, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrCardNotFound, "卡牌ID: %d", id)
		}
		return nil, err
	}
	return &card, nil
}

// List 查询用户卡牌（分页）
func (r *userCardRepo) List(ctx context.Context, userID uint, filter CardFilter, pagination *Pagination) ([]models.UserCard, error) {
	var cards []models.UserCard
	query := r.db.WithContext(ctx).Model(&models.UserCard{}).Where("user_id = ?", userID)

	if filter.InDeck != nil {
		query = query.Where("is_in_deck = ?", *filter.InDeck)
	}
	if filter.IsLocked != nil {
		query = query.Where("is_locked = ?", *filter.IsLocked)
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	pagination.Total = total

	err := query.
		Preload("Template").
		Order(filter.orderClause()).
		Scopes(Paginate(pagination)).
		Find(&cards).Error
	return cards, err
}

// FindDeck 获取用户卡组，按位置升序
func (r *userCardRepo) FindDeck(ctx context.Context, userID uint) ([]models.UserCard, error) {
	var cards []models.UserCard
	err := r.db.WithContext(ctx).
		Preload("Template").
		Where("user_id = ? AND is_in_deck = ?", userID, true).
		Order("deck_position ASC").
		Find(&cards).Error
	return cards, err
}

// FindByDeckPosition 查找卡组指定位置的卡牌
func (r *userCardRepo) FindByDeckPosition(ctx context.Context, userID uint, position int) (*models.UserCard, error) {
	var card models.UserCard
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_in_deck = ? AND deck_position = ?", userID, true, position).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrCardNotFound, "卡组位置: %d", position)
		}
		return nil, err
	}
	return &card, nil
}

// UpdateDeckState 保存卡组状态，位置冲突返回ErrPositionOccupied
func (r *userCardRepo) UpdateDeckState(ctx context.Context, card *models.UserCard) error {
	if !card.IsInDeck {
		card.DeckPosition = nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.UserCard{}).
		Where("id = ?", card.ID).
		Updates(map[string]interface{}{
			"is_in_deck":    card.IsInDeck,
			"deck_position": card.DeckPosition,
			"updated_at":    time.Now(),
		}).Error
	if isDuplicateKeyError(err) {
		return apperrors.New(apperrors.ErrPositionOccupied)
	}
	return err
}

// UpdateLock 更新锁定状态
func (r *userCardRepo) UpdateLock(ctx context.Context, cardID uint, locked bool) error {
	return r.db.WithContext(ctx).
		Model(&models.UserCard{}).
		Where("id = ?", cardID).
		Update("is_locked", locked).Error
}

// SaveEnhancement 保存强化后的属性并追加融合记录
func (r *userCardRepo) SaveEnhancement(ctx context.Context, card *models.UserCard, record *models.FusionRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserCard{}).
		Where("id = ?", card.ID).
		Updates(map[string]interface{}{
			"current_attack":  card.CurrentAttack,
			"current_defense": card.CurrentDefense,
			"level":           card.Level,
			"times_enhanced":  card.TimesEnhanced,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrCardNotFound, "卡牌ID: %d", card.ID)
	}
	if record == nil {
		return nil
	}
	record.UserCardID = card.ID
	return r.db.WithContext(ctx).Create(record).Error
}

// HardDelete 物理删除卡牌及其融合记录
func (r *userCardRepo) HardDelete(ctx context.Context, cardID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_card_id = ?", cardID).
		Delete(&models.FusionRecord{}).Error; err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Delete(&models.UserCard{}, cardID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrCardNotFound, "卡牌ID: %d", cardID)
	}
	return nil
}

// TouchLastUsed 更新卡牌最后使用时间
func (r *userCardRepo) TouchLastUsed(ctx context.Context, cardIDs []uint, at time.Time) error {
	if len(cardIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.UserCard{}).
		Where("id IN ?", cardIDs).
		Update("last_used_at", at).Error
}

// CountByUser 统计用户卡牌数量
func (r *userCardRepo) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserCard{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// DeleteAll 删除所有卡牌和融合记录
func (r *userCardRepo) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.FusionRecord{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.UserCard{}).Error
}

// WithTx 使用事务
func (r *userCardRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &userCardRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
