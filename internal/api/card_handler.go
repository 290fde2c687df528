package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/service"
)

// 卡组操作
const (
	DeckActionAdd    = "add"
	DeckActionRemove = "remove"
)

// CardHandler 卡牌处理器
type CardHandler struct {
	catalog service.CatalogService
	cards   service.CardService
}

// NewCardHandler 创建卡牌处理器
func NewCardHandler(catalog service.CatalogService, cards service.CardService) *CardHandler {
	return &CardHandler{
		catalog: catalog,
		cards:   cards,
	}
}

// ListTemplates 模板列表
// @Summary 卡牌模板列表
// @Description 默认只返回启用的模板，按稀有度和名称排序
// @Tags Cards
// @Produce json
// @Param rarity query string false "稀有度"
// @Param element query string false "元素"
// @Param is_active query bool false "是否启用"
// @Param search query string false "名称模糊搜索"
// @Success 200 {object} SuccessResponse{data=[]models.CardTemplate}
// @Router /api/v1/cards/templates [get]
func (h *CardHandler) ListTemplates(c *gin.Context) {
	var query service.TemplateQuery
	if !bindQuery(c, &query) {
		return
	}

	templates, err := h.catalog.List(c.Request.Context(), &query)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, templates)
}

// SearchTemplates 模糊搜索模板
// @Summary 模糊搜索卡牌模板
// @Tags Cards
// @Produce json
// @Param q query string true "关键字"
// @Param limit query int false "数量上限"
// @Success 200 {object} SuccessResponse{data=[]models.CardTemplate}
// @Router /api/v1/cards/templates/search [get]
func (h *CardHandler) SearchTemplates(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.AbortWithError(c, errors.Newf(errors.ErrInvalidParam, "无效的limit: %s", raw))
			return
		}
		limit = n
	}

	templates, err := h.catalog.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, templates)
}

// GetTemplate 模板详情
// @Summary 卡牌模板详情
// @Description 包含战力评分和各等级属性
// @Tags Cards
// @Produce json
// @Param id path int true "模板ID"
// @Success 200 {object} SuccessResponse{data=service.TemplateDetail}
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/cards/templates/{id} [get]
func (h *CardHandler) GetTemplate(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}

	detail, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, detail)
}

// ListCards 用户卡牌列表
// @Summary 我的卡牌
// @Tags Cards
// @Security Bearer
// @Produce json
// @Param in_deck query bool false "是否在卡组中"
// @Param is_locked query bool false "是否锁定"
// @Param sort_by query string false "level|current_attack|current_defense|obtained_at"
// @Param sort_order query string false "asc|desc"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} SuccessResponse{data=service.CardListResult}
// @Router /api/v1/user/cards [get]
func (h *CardHandler) ListCards(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var query service.CardListQuery
	if !bindQuery(c, &query) {
		return
	}

	result, err := h.cards.List(c.Request.Context(), userID, &query)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, result)
}

// GetCard 单张卡牌
// @Summary 卡牌详情
// @Tags Cards
// @Security Bearer
// @Produce json
// @Param id path int true "卡牌ID"
// @Success 200 {object} SuccessResponse{data=models.UserCard}
// @Router /api/v1/user/cards/{id} [get]
func (h *CardHandler) GetCard(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}
	cardID, valid := paramID(c, "id")
	if !valid {
		return
	}

	card, err := h.cards.Get(c.Request.Context(), userID, cardID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, card)
}

// Deck 当前卡组
// @Summary 我的卡组
// @Tags Cards
// @Security Bearer
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]models.UserCard}
// @Router /api/v1/user/deck [get]
func (h *CardHandler) Deck(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	deck, err := h.cards.Deck(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, deck)
}

// DeckRequest 卡组操作请求
type DeckRequest struct {
	Action   string `json:"action" binding:"required,oneof=add remove"`
	Position int    `json:"position"`
}

// UpdateDeck 加入或移出卡组
// @Summary 卡组操作
// @Tags Cards
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "卡牌ID"
// @Param request body DeckRequest true "操作"
// @Success 200 {object} SuccessResponse{data=models.UserCard}
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/user/cards/{id}/deck [put]
func (h *CardHandler) UpdateDeck(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}
	cardID, valid := paramID(c, "id")
	if !valid {
		return
	}

	var req DeckRequest
	if !bindJSON(c, &req) {
		return
	}

	var card *models.UserCard
	var err error
	if req.Action == DeckActionAdd {
		card, err = h.cards.AddToDeck(c.Request.Context(), userID, cardID, req.Position)
	} else {
		card, err = h.cards.RemoveFromDeck(c.Request.Context(), userID, cardID)
	}
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, card)
}

// LockRequest 锁定请求，locked为空时切换
type LockRequest struct {
	Locked *bool `json:"locked"`
}

// Lock 锁定或解锁卡牌
// @Summary 锁定卡牌
// @Tags Cards
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "卡牌ID"
// @Param request body LockRequest false "锁定状态"
// @Success 200 {object} SuccessResponse{data=models.UserCard}
// @Router /api/v1/user/cards/{id}/lock [put]
func (h *CardHandler) Lock(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}
	cardID, valid := paramID(c, "id")
	if !valid {
		return
	}

	var req LockRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	card, err := h.cards.SetLock(c.Request.Context(), userID, cardID, req.Locked)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, card)
}

// FuseRequest 融合请求
type FuseRequest struct {
	BaseCardID      uint `json:"base_card_id" binding:"required"`
	SacrificeCardID uint `json:"sacrifice_card_id" binding:"required"`
}

// Fuse 融合卡牌
// @Summary 融合卡牌
// @Description 消耗体力，素材卡被销毁，主卡提升一级
// @Tags Cards
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body FuseRequest true "融合参数"
// @Success 200 {object} SuccessResponse{data=service.FuseResult}
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/user/cards/fuse [post]
func (h *CardHandler) Fuse(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req FuseRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.cards.Fuse(c.Request.Context(), userID, req.BaseCardID, req.SacrificeCardID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, result)
}

// Draw 抽卡
// @Summary 抽卡
// @Description 消耗金币按稀有度权重抽取一张卡牌
// @Tags Cards
// @Security Bearer
// @Produce json
// @Success 201 {object} SuccessResponse{data=service.DrawResult}
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/user/cards/draw [post]
func (h *CardHandler) Draw(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	result, err := h.cards.Draw(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	created(c, result)
}
