package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

// TemplateFilter 卡牌模板查询条件
type TemplateFilter struct {
	Rarity   models.Rarity
	Element  models.Element
	IsActive *bool
}

// CardTemplateRepository 卡牌模板仓储接口
type CardTemplateRepository interface {
	BaseRepository
	Create(ctx context.Context, template *models.CardTemplate) error
	FindByID(ctx context.Context, id uint) (*models.CardTemplate, error)
	FindByName(ctx context.Context, name string) (*models.CardTemplate, error)
	FindByNames(ctx context.Context, names []string) ([]models.CardTemplate, error)
	List(ctx context.Context, filter TemplateFilter) ([]models.CardTemplate, error)
	FindActive(ctx context.Context, limit int) ([]models.CardTemplate, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// cardTemplateRepo 卡牌模板仓储实现
type cardTemplateRepo struct {
	*BaseRepo
}

// NewCardTemplateRepository 创建卡牌模板仓储
func NewCardTemplateRepository(db *gorm.DB) CardTemplateRepository {
	return &cardTemplateRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建卡牌模板
func (r *cardTemplateRepo) Create(ctx context.Context, template *models.CardTemplate) error {
	err := r.db.WithContext(ctx).Create(template).Error
	if isDuplicateKeyError(err) {
		return apperrors.Newf(apperrors.ErrAlreadyExists, "模板名称重复: %s", template.Name)
	}
	return err
}

// FindByID 根据ID查找模板
func (r *cardTemplateRepo) FindByID(ctx context.Context, id uint) (*models.CardTemplate, error) {
	var template models.CardTemplate
	err := r.db.WithContext(ctx).First(&template, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrTemplateNotFound, "模板ID: %d", id)
		}
		return nil, err
	}
	return &template, nil
}

// FindByName 根据名称查找模板
func (r *cardTemplateRepo) FindByName(ctx context.Context, name string) (*models.CardTemplate, error) {
	var template models.CardTemplate
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrTemplateNotFound, "模板名称: %s", name)
		}
		return nil, err
	}
	return &template, nil
}

// FindByNames 按名称批量查找模板
func (r *cardTemplateRepo) FindByNames(ctx context.Context, names []string) ([]models.CardTemplate, error) {
	var templates []models.CardTemplate
	if len(names) == 0 {
		return templates, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Order("id ASC").Find(&templates).Error
	return templates, err
}

// List 按条件查询模板
func (r *cardTemplateRepo) List(ctx context.Context, filter TemplateFilter) ([]models.CardTemplate, error) {
	var templates []models.CardTemplate
	query := r.db.WithContext(ctx).Model(&models.CardTemplate{})

	if filter.Rarity != "" {
		query = query.Where("rarity = ?", filter.Rarity)
	}
	if filter.Element != "" {
		query = query.Where("element = ?", filter.Element)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	err := query.Order("id ASC").Find(&templates).Error
	return templates, err
}

// FindActive 按ID顺序获取启用的模板，limit<=0时不限制数量
func (r *cardTemplateRepo) FindActive(ctx context.Context, limit int) ([]models.CardTemplate, error) {
	var templates []models.CardTemplate
	query := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&templates).Error
	return templates, err
}

// Count 模板总数
func (r *cardTemplateRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CardTemplate{}).Count(&count).Error
	return count, err
}

// DeleteAll 删除所有模板
func (r *cardTemplateRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.CardTemplate{}).Error
}

// WithTx 使用事务
func (r *cardTemplateRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &cardTemplateRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
