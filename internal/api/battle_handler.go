package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/service"
)

// BattleHandler 战斗处理器
type BattleHandler struct {
	battles service.BattleService
}

// NewBattleHandler 创建战斗处理器
func NewBattleHandler(battles service.BattleService) *BattleHandler {
	return &BattleHandler{battles: battles}
}

// Start 发起战斗
// @Summary 发起战斗
// @Description 消耗体力，与AI或其他玩家的卡组对战并结算奖励
// @Tags Battle
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body service.StartBattleRequest true "战斗参数"
// @Success 200 {object} SuccessResponse{data=service.BattleResult}
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/battle/start [post]
func (h *BattleHandler) Start(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req service.StartBattleRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.battles.StartBattle(c.Request.Context(), userID, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, result)
}

// HistoryQuery 战斗历史查询参数
type HistoryQuery struct {
	BattleType string `form:"battle_type"`
	Winner     string `form:"winner"`
	Limit      int    `form:"limit" binding:"omitempty,min=0"`
	Skip       int    `form:"skip" binding:"omitempty,min=0"`
}

// History 战斗历史
// @Summary 战斗历史
// @Description 包含作为对手参与的战斗，按时间倒序
// @Tags Battle
// @Security Bearer
// @Produce json
// @Param battle_type query string false "pve|pvp"
// @Param winner query string false "player|opponent|draw"
// @Param limit query int false "数量，最大50"
// @Param skip query int false "偏移"
// @Success 200 {object} SuccessResponse{data=service.BattleHistory}
// @Router /api/v1/battle/history [get]
func (h *BattleHandler) History(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var query HistoryQuery
	if !bindQuery(c, &query) {
		return
	}

	winner := models.BattleWinner(query.Winner)
	switch winner {
	case "", models.WinnerPlayer, models.WinnerOpponent, models.WinnerDraw:
	default:
		middleware.AbortWithError(c, errors.Newf(errors.ErrInvalidParam, "未知胜方: %s", query.Winner))
		return
	}

	history, err := h.battles.History(c.Request.Context(), userID, repository.BattleFilter{
		Type:   models.BattleType(query.BattleType),
		Winner: winner,
		Limit:  query.Limit,
		Skip:   query.Skip,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, history)
}
