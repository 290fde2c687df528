package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/service"
)

// 上下文键
const (
	ContextUserID    = "userID"
	ContextUsername  = "username"
	ContextEmail     = "email"
	ContextRole      = "role"
	ContextSessionID = "sessionID"
	ContextToken     = "token"
)

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := m.authenticate(c); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选认证的中间件（不强制要求登录）
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ExtractToken(c) != "" {
			// 令牌无效时按匿名处理
			_, _ = m.authenticate(c)
		}
		c.Next()
	}
}

// RequireRole 需要特定角色的中间件
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := m.authenticate(c); err != nil {
			AbortWithError(c, err)
			return
		}

		for _, role := range roles {
			if HasRole(c, role) {
				c.Next()
				return
			}
		}
		AbortWithError(c, errors.New(errors.ErrPermissionDenied, "权限不足"))
	}
}

// authenticate 校验令牌并把用户信息写入上下文
func (m *AuthMiddleware) authenticate(c *gin.Context) (*service.TokenClaims, error) {
	token := ExtractToken(c)
	if token == "" {
		return nil, errors.New(errors.ErrAuthentication, "缺少认证令牌")
	}

	claims, err := m.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextSessionID, claims.SessionID)
	c.Set(ContextToken, token)
	return claims, nil
}

// ExtractToken 从请求中提取令牌
func ExtractToken(c *gin.Context) string {
	// 1. 从Authorization Header获取 (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. 从X-Access-Token Header获取
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. 从Cookie获取
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}

	// 4. 从Query参数获取（websocket握手无法设置Header）
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) (uint, bool) {
	if userID, exists := c.Get(ContextUserID); exists {
		if id, ok := userID.(uint); ok {
			return id, true
		}
	}
	return 0, false
}

// GetUserRole 从上下文获取用户角色
func GetUserRole(c *gin.Context) (string, bool) {
	if role, exists := c.Get(ContextRole); exists {
		if r, ok := role.(string); ok {
			return r, true
		}
	}
	return "", false
}

// GetToken 从上下文获取当前请求的令牌
func GetToken(c *gin.Context) string {
	return c.GetString(ContextToken)
}

// IsAuthenticated 检查是否已认证
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ContextUserID)
	return exists
}

// HasRole 检查是否有特定角色
func HasRole(c *gin.Context, role string) bool {
	if userRole, exists := GetUserRole(c); exists {
		return userRole == role
	}
	return false
}
