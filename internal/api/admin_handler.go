package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/service"
)

// AdminHandler 管理员处理器
type AdminHandler struct {
	seed  service.SeedService
	users service.UserService
}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler(seed service.SeedService, users service.UserService) *AdminHandler {
	return &AdminHandler{seed: seed, users: users}
}

// SeedRequest 初始化模板请求
type SeedRequest struct {
	Force bool `json:"force"`
}

// Seed 初始化卡牌模板
// @Summary 初始化卡牌模板
// @Description force为true时清空模板、卡牌和战斗记录后重新写入
// @Tags Admin
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body SeedRequest false "参数"
// @Success 200 {object} SuccessResponse{data=service.SeedResult}
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/admin/seed [post]
func (h *AdminHandler) Seed(c *gin.Context) {
	var req SeedRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.seed.Seed(c.Request.Context(), req.Force)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, result)
}

// UserStatusRequest 用户状态请求
type UserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateUserStatus 冻结或恢复用户
// @Summary 更新用户状态
// @Tags Admin
// @Security Bearer
// @Accept json
// @Param id path int true "用户ID"
// @Param request body UserStatusRequest true "active|frozen|banned"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/users/{id}/status [put]
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	userID, valid := paramID(c, "id")
	if !valid {
		return
	}

	var req UserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.UpdateUserStatus(c.Request.Context(), userID, req.Status); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	okMessage(c, "用户状态已更新")
}
