package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// cachedTemplate 缓存条目
type cachedTemplate struct {
	detail    *TemplateDetail
	expiresAt time.Time
}

// templateNames 模糊搜索数据源
type templateNames []models.CardTemplate

func (t templateNames) String(i int) string { return strings.ToLower(t[i].Name) }
func (t templateNames) Len() int            { return len(t) }

// catalogService 卡牌模板目录实现
type catalogService struct {
	repos *repository.Manager
	cache *lru.Cache
	ttl   time.Duration
	group singleflight.Group
	clock game.Clock
	log   *zap.Logger
}

func newCatalogService(repos *repository.Manager, config *Config, clock game.Clock, log *zap.Logger) *catalogService {
	s := &catalogService{
		repos: repos,
		ttl:   config.CacheTTL,
		clock: clock,
		log:   log,
	}
	if config.CacheEnabled {
		cache, err := lru.New(config.CacheSize)
		if err != nil {
			log.Warn("模板缓存初始化失败，禁用缓存", zap.Int("size", config.CacheSize), zap.Error(err))
		} else {
			s.cache = cache
		}
	}
	return s
}

// List 按条件列出模板，默认只返回启用的模板
//
// 带search时按匹配度排序，否则按稀有度等级和名称排序。
func (s *catalogService) List(ctx context.Context, query *TemplateQuery) ([]models.CardTemplate, error) {
	if query == nil {
		query = &TemplateQuery{}
	}
	if query.Rarity != "" && !query.Rarity.Valid() {
		return nil, errors.Newf(errors.ErrInvalidParam, "未知稀有度: %s", query.Rarity)
	}
	if query.Element != "" && !query.Element.Valid() {
		return nil, errors.Newf(errors.ErrInvalidParam, "未知元素: %s", query.Element)
	}

	active := true
	if query.IsActive != nil {
		active = *query.IsActive
	}
	templates, err := s.repos.CardTemplate().List(ctx, repository.TemplateFilter{
		Rarity:   query.Rarity,
		Element:  query.Element,
		IsActive: &active,
	})
	if err != nil {
		return nil, err
	}

	if search := strings.TrimSpace(query.Search); search != "" {
		return matchTemplates(templates, search, 0), nil
	}
	game.SortTemplates(templates)
	return templates, nil
}

// Get 获取模板详情，命中缓存时不访问数据库
func (s *catalogService) Get(ctx context.Context, id uint) (*TemplateDetail, error) {
	if detail, ok := s.cached(id); ok {
		return detail, nil
	}

	// 同一模板的并发未命中只查询一次
	v, err, _ := s.group.Do(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		template, err := s.repos.CardTemplate().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		detail := buildTemplateDetail(template)
		if s.cache != nil {
			s.cache.Add(id, cachedTemplate{detail: detail, expiresAt: s.clock().Add(s.ttl)})
		}
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TemplateDetail), nil
}

func (s *catalogService) cached(id uint) (*TemplateDetail, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	entry := v.(cachedTemplate)
	if s.ttl > 0 && !s.clock().Before(entry.expiresAt) {
		s.cache.Remove(id)
		return nil, false
	}
	return entry.detail, true
}

// Search 在启用的模板中模糊搜索名称
func (s *catalogService) Search(ctx context.Context, query string, limit int) ([]models.CardTemplate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrInvalidParam, "搜索关键字不能为空")
	}
	templates, err := s.repos.CardTemplate().FindActive(ctx, 0)
	if err != nil {
		return nil, err
	}
	return matchTemplates(templates, query, limit), nil
}

// Invalidate 清空模板缓存
func (s *catalogService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// matchTemplates 返回按匹配度排序的模板，limit<=0不限制
func matchTemplates(templates []models.CardTemplate, query string, limit int) []models.CardTemplate {
	matches := fuzzy.FindFrom(strings.ToLower(query), templateNames(templates))
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	result := make([]models.CardTemplate, 0, len(matches))
	for _, m := range matches {
		result = append(result, templates[m.Index])
	}
	return result
}

func buildTemplateDetail(t *models.CardTemplate) *TemplateDetail {
	detail := &TemplateDetail{
		CardTemplate:     *t,
		PowerRating:      game.PowerRating(t),
		RarityMultiplier: game.RarityMultiplier(t.Rarity),
		StatsAtLevel:     make([]LevelStats, 0, t.MaxLevel),
	}
	for level := 1; level <= t.MaxLevel; level++ {
		attack, defense := game.TemplateStats(t, level)
		detail.StatsAtLevel = append(detail.StatsAtLevel, LevelStats{Level: level, Attack: attack, Defense: defense})
	}
	return detail
}
