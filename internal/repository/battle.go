package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

const (
	// DefaultBattleHistoryLimit 战斗历史默认条数
	DefaultBattleHistoryLimit = 20
	// MaxBattleHistoryLimit 战斗历史最大条数
	MaxBattleHistoryLimit = 50
)

// BattleFilter 战斗历史查询条件
type BattleFilter struct {
	Type   models.BattleType
	Winner models.BattleWinner
	Limit  int
	Skip   int
}

// Normalize 规范化分页参数
func (f *BattleFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultBattleHistoryLimit
	}
	if f.Limit > MaxBattleHistoryLimit {
		f.Limit = MaxBattleHistoryLimit
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
}

// BattleRepository 战斗记录仓储接口
type BattleRepository interface {
	BaseRepository
	Create(ctx context.Context, battle *models.Battle) error
	FindByID(ctx context.Context, id uint) (*models.Battle, error)
	FindByBattleNo(ctx context.Context, battleNo string) (*models.Battle, error)
	ListByUser(ctx context.Context, userID uint, filter BattleFilter) ([]models.Battle, bool, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	CountWinsByUser(ctx context.Context, userID uint) (int64, error)
	DeleteAll(ctx context.Context) error
}

// battleRepo 战斗记录仓储实现
type battleRepo struct {
	*BaseRepo
}

// NewBattleRepository 创建战斗记录仓储
func NewBattleRepository(db *gorm.DB) BattleRepository {
	return &battleRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建战斗记录
func (r *battleRepo) Create(ctx context.Context, battle *models.Battle) error {
	return r.db.WithContext(ctx).Create(battle).Error
}

// FindByID 根据ID查找战斗记录
func (r *battleRepo) FindByID(ctx context.Context, id uint) (*models.Battle, error) {
	var battle models.Battle
	err := r.db.WithContext(ctx).First(&battle, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "战斗ID: %d", id)
		}
		return nil, err
	}
	return &battle, nil
}

// FindByBattleNo 根据战斗编号查找
func (r *battleRepo) FindByBattleNo(ctx context.Context, battleNo string) (*models.Battle, error) {
	var battle models.Battle
	err := r.db.WithContext(ctx).Where("battle_no = ?", battleNo).First(&battle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "战斗编号: %s", battleNo)
		}
		return nil, err
	}
	return &battle, nil
}

// ListByUser 查询用户参与的战斗（作为挑战方或被挑战方），按时间倒序
// 返回值中的bool表示是否还有更多记录
func (r *battleRepo) ListByUser(ctx context.Context, userID uint, filter BattleFilter) ([]models.Battle, bool, error) {
	filter.Normalize()

	var battles []models.Battle
	query := r.db.WithContext(ctx).
		Model(&models.Battle{}).
		Where("player_id = ? OR opponent_id = ?", userID, userID)

	if filter.Type != "" {
		query = query.Where("battle_type = ?", filter.Type)
	}
	if filter.Winner != "" {
		query = query.Where("winner = ?", filter.Winner)
	}

	// 多取一条用于判断是否还有更多
	err := query.
		Order("created_at DESC, id DESC").
		Offset(filter.Skip).
		Limit(filter.Limit + 1).
		Find(&battles).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(battles) > filter.Limit
	if hasMore {
		battles = battles[:filter.Limit]
	}
	return battles, hasMore, nil
}

// CountByUser 统计用户发起的战斗数
func (r *battleRepo) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Battle{}).Where("player_id = ?", userID).Count(&count).Error
	return count, err
}

// CountWinsByUser 统计用户作为发起方获胜的战斗数
func (r *battleRepo) CountWinsByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Battle{}).
		Where("player_id = ? AND winner = ?", userID, models.WinnerPlayer).
		Count(&count).Error
	return count, err
}

// DeleteAll 删除所有战斗记录
func (r *battleRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Battle{}).Error
}

// WithTx 使用事务
func (r *battleRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &battleRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
