package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/service"
)

// UserHandler 用户处理器
type UserHandler struct {
	userService   service.UserService
	energyService service.EnergyService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userService service.UserService, energyService service.EnergyService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		energyService: energyService,
	}
}

// Energy 当前体力
// @Summary 查询体力
// @Description 按恢复规则计算当前体力并写回
// @Tags User
// @Security Bearer
// @Produce json
// @Success 200 {object} SuccessResponse{data=service.EnergyStatus}
// @Router /api/v1/user/energy [get]
func (h *UserHandler) Energy(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	status, err := h.energyService.Regenerate(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, status)
}

// GetProfile 获取用户资料
// @Summary 获取用户资料
// @Tags User
// @Security Bearer
// @Produce json
// @Success 200 {object} SuccessResponse{data=models.User}
// @Router /api/v1/user/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, user)
}

// UpdateProfile 更新用户资料
// @Summary 更新用户资料
// @Tags User
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body service.UserProfile true "用户资料"
// @Success 200 {object} SuccessResponse{data=models.User}
// @Router /api/v1/user/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var profile service.UserProfile
	if !bindJSON(c, &profile) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &profile)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, user)
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// UpdatePassword 修改密码
// @Summary 修改密码
// @Description 修改成功后所有会话失效
// @Tags User
// @Security Bearer
// @Accept json
// @Param request body UpdatePasswordRequest true "密码"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/user/password [put]
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req UpdatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.UpdatePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	okMessage(c, "密码修改成功，请重新登录")
}

// Stats 用户统计
// @Summary 用户统计
// @Tags User
// @Security Bearer
// @Produce json
// @Success 200 {object} SuccessResponse{data=service.UserStats}
// @Router /api/v1/user/stats [get]
func (h *UserHandler) Stats(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	stats, err := h.userService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, stats)
}
