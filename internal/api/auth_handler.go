package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService service.AuthService, userService service.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建新用户账号并发放初始卡牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body service.RegisterRequest true "注册信息"
// @Success 201 {object} SuccessResponse{data=service.AuthResponse}
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	// 获取客户端信息
	req.IP = c.ClientIP()
	req.Device = c.GetHeader("User-Agent")

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	created(c, resp)
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用用户名或邮箱登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body service.LoginRequest true "登录信息"
// @Success 200 {object} SuccessResponse{data=service.AuthResponse}
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	req.IP = c.ClientIP()
	req.Device = c.GetHeader("User-Agent")

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, resp)
}

// Logout 用户登出
// @Summary 用户登出
// @Tags Auth
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID, middleware.GetToken(c)); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	okMessage(c, "登出成功")
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "刷新令牌"
// @Success 200 {object} SuccessResponse{data=service.AuthResponse}
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, resp)
}

// Session 当前会话
// @Summary 当前用户与体力
// @Description 返回用户信息，体力已按时间恢复
// @Tags Auth
// @Security Bearer
// @Produce json
// @Success 200 {object} SuccessResponse{data=service.SessionInfo}
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	info, err := h.authService.Session(c.Request.Context(), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	ok(c, info)
}
