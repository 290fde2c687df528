package service

import (
	"context"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"go.uber.org/zap"
)

// 初始化动作
const (
	SeedActionSeed   = "seed"
	SeedActionReseed = "reseed"
	SeedActionSkip   = "skip"
)

// DefaultTemplates 初始卡牌模板
func DefaultTemplates() []models.CardTemplate {
	return []models.CardTemplate{
		// 普通
		{Name: "Chiến Binh Tân Binh", Description: "Một chiến binh trẻ tuổi, mới bắt đầu hành trình trở thành anh hùng.", BaseAttack: 10, BaseDefense: 8, Rarity: models.RarityCommon, Element: models.ElementNeutral, Cost: 1, MaxLevel: 10, ImageURL: "/images/cards/warrior-recruit.png"},
		{Name: "Cung Thủ Rừng Xanh", Description: "Cung thủ thiện xạ từ rừng sâu, mỗi mũi tên đều chính xác.", BaseAttack: 12, BaseDefense: 6, Rarity: models.RarityCommon, Element: models.ElementWind, Cost: 1, MaxLevel: 10, ImageURL: "/images/cards/forest-archer.png"},
		{Name: "Phù Thủy Lửa", Description: "Người sử dụng phép thuật lửa cơ bản, nguy hiểm với kẻ thù gần.", BaseAttack: 15, BaseDefense: 5, Rarity: models.RarityCommon, Element: models.ElementFire, Cost: 2, MaxLevel: 10, ImageURL: "/images/cards/fire-mage.png"},

		// 优秀
		{Name: "Kiếm Sĩ Thép", Description: "Chiến binh được trang bị giáp thép, phòng thủ vững chắc.", BaseAttack: 18, BaseDefense: 15, Rarity: models.RarityUncommon, Element: models.ElementEarth, Cost: 2, MaxLevel: 12, ImageURL: "/images/cards/steel-swordsman.png"},
		{Name: "Đạo Sĩ Băng Giá", Description: "Sử dụng sức mạnh băng tuyết để làm chậm và tấn công đối thủ.", BaseAttack: 20, BaseDefense: 12, Rarity: models.RarityUncommon, Element: models.ElementWater, Cost: 2, MaxLevel: 12, ImageURL: "/images/cards/ice-priest.png"},

		// 稀有
		{Name: "Hiệp Sĩ Rồng", Description: "Hiệp sĩ tinh nhuệ, được ban phước bởi sức mạnh của rồng.", BaseAttack: 28, BaseDefense: 22, Rarity: models.RarityRare, Element: models.ElementFire, Cost: 3, MaxLevel: 15, ImageURL: "/images/cards/dragon-knight.png"},
		{Name: "Pháp Sư Giông Bão", Description: "Chủ nhân của sấm sét, có thể triệu hồi giông bão mạnh mẽ.", BaseAttack: 32, BaseDefense: 18, Rarity: models.RarityRare, Element: models.ElementWind, Cost: 3, MaxLevel: 15, ImageURL: "/images/cards/storm-wizard.png"},

		// 史诗
		{Name: "Tướng Quân Thần Thánh", Description: "Vị tướng huyền thoại, lãnh đạo quân đội với sức mạnh phi thường.", BaseAttack: 40, BaseDefense: 35, Rarity: models.RarityEpic, Element: models.ElementLight, Cost: 4, MaxLevel: 20, ImageURL: "/images/cards/divine-general.png"},
		{Name: "Ám Sát Bóng Đêm", Description: "Sát thủ bí ẩn trong bóng tối, đòn tấn công chí mạng.", BaseAttack: 45, BaseDefense: 25, Rarity: models.RarityEpic, Element: models.ElementDark, Cost: 4, MaxLevel: 20, ImageURL: "/images/cards/shadow-assassin.png"},

		// 传说
		{Name: "Thần Rồng Lửa", Description: "Rồng huyền thoại kiểm soát ngọn lửa địa ngục, sức mạnh tuyệt đối.", BaseAttack: 60, BaseDefense: 50, Rarity: models.RarityLegendary, Element: models.ElementFire, Cost: 5, MaxLevel: 25, ImageURL: "/images/cards/fire-dragon-god.png"},
		{Name: "Đế Vương Ánh Sáng", Description: "Người cai trị với ánh sáng thiêng liêng, mang lại hy vọng và sức mạnh.", BaseAttack: 55, BaseDefense: 55, Rarity: models.RarityLegendary, Element: models.ElementLight, Cost: 5, MaxLevel: 25, ImageURL: "/images/cards/emperor-of-light.png"},
	}
}

// seedService 模板初始化实现
type seedService struct {
	repos     *repository.Manager
	catalog   CatalogService
	templates func() []models.CardTemplate
	log       *zap.Logger
}

func newSeedService(repos *repository.Manager, catalog CatalogService, log *zap.Logger) *seedService {
	return &seedService{
		repos:     repos,
		catalog:   catalog,
		templates: DefaultTemplates,
		log:       log,
	}
}

// Seed 初始化卡牌模板
//
// force为false时仅在模板表为空时写入；force为true时清空战斗、卡牌、融合记录和模板后重新写入。
func (s *seedService) Seed(ctx context.Context, force bool) (*SeedResult, error) {
	result := &SeedResult{Action: SeedActionSeed}
	if force {
		result.Action = SeedActionReseed
	}

	err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if force {
			// 先删除引用模板的数据
			if err := tx.Battle().DeleteAll(ctx); err != nil {
				return err
			}
			if err := tx.UserCard().DeleteAll(ctx); err != nil {
				return err
			}
			if err := tx.CardTemplate().DeleteAll(ctx); err != nil {
				return err
			}
		} else {
			count, err := tx.CardTemplate().Count(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				result.Action = SeedActionSkip
				return nil
			}
		}

		for _, template := range s.templates() {
			template := template
			template.FusionMaterial = true
			template.IsActive = true

			// 名称已存在时跳过
			if _, err := tx.CardTemplate().FindByName(ctx, template.Name); err == nil {
				continue
			} else if !errors.Is(err, errors.ErrTemplateNotFound) {
				return err
			}
			if err := tx.CardTemplate().Create(ctx, &template); err != nil {
				return err
			}
			result.Count++
		}
		return nil
	})
	if err != nil {
		s.log.Error("初始化卡牌模板失败", zap.Bool("force", force), zap.Error(err))
		return nil, err
	}

	if result.Action != SeedActionSkip {
		s.catalog.Invalidate()
	}
	s.log.Info("卡牌模板初始化完成", zap.String("action", result.Action), zap.Int("count", result.Count))
	return result, nil
}
