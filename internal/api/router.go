package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/config"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/service"
	"github.com/wfunc/card-game/internal/websocket"
	"go.uber.org/zap"
)

// Options 路由选项
type Options struct {
	AllowedOrigins   []string
	CORSMaxAge       time.Duration
	WebSocketEnabled bool
	WebSocketPath    string
	ReadBufferSize   int
	WriteBufferSize  int
	WebSocket        websocket.Options
}

// OptionsFrom 从应用配置构建路由选项
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		CORSMaxAge:       cfg.CORS.MaxAge,
		WebSocketEnabled: cfg.WebSocket.Enabled,
		WebSocketPath:    cfg.WebSocket.Path,
		ReadBufferSize:   cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  cfg.WebSocket.WriteBufferSize,
		WebSocket: websocket.Options{
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			PingInterval:   cfg.WebSocket.PingInterval,
		},
	}
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	services       *service.Services
	hub            *websocket.Hub
	opts           Options
	authMiddleware *middleware.AuthMiddleware
	authHandler    *AuthHandler
	userHandler    *UserHandler
	cardHandler    *CardHandler
	battleHandler  *BattleHandler
	adminHandler   *AdminHandler
	wsHandler      *websocket.Handler
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(services *service.Services, hub *websocket.Hub, opts Options, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(cors.New(corsConfig(opts)))

	router := &Router{
		engine:         engine,
		services:       services,
		hub:            hub,
		opts:           opts,
		authMiddleware: middleware.NewAuthMiddleware(services.Auth),
		authHandler:    NewAuthHandler(services.Auth, services.User),
		userHandler:    NewUserHandler(services.User, services.Energy),
		cardHandler:    NewCardHandler(services.Catalog, services.Card),
		battleHandler:  NewBattleHandler(services.Battle),
		adminHandler:   NewAdminHandler(services.Seed, services.User),
		log:            log,
	}
	if hub != nil && opts.WebSocketEnabled {
		router.wsHandler = websocket.NewHandler(hub, opts.ReadBufferSize, opts.WriteBufferSize, opts.WebSocket, middleware.GetUserID)
	}

	router.setupRoutes()
	return router
}

func corsConfig(opts Options) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Access-Token", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        opts.CORSMaxAge,
	}
	if len(opts.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range opts.AllowedOrigins {
		if strings.TrimSpace(origin) == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = opts.AllowedOrigins
	cfg.AllowCredentials = true
	return cfg
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", r.healthCheck)

		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.POST("/logout", r.authHandler.Logout)
				authRequired.GET("/session", r.authHandler.Session)
			}
		}

		// 卡牌模板目录
		cards := v1.Group("/cards")
		{
			cards.GET("/templates", r.cardHandler.ListTemplates)
			cards.GET("/templates/search", r.cardHandler.SearchTemplates)
			cards.GET("/templates/:id", r.cardHandler.GetTemplate)
		}

		// 用户相关路由（需要认证）
		user := v1.Group("/user")
		user.Use(r.authMiddleware.RequireAuth())
		{
			user.GET("/energy", r.userHandler.Energy)
			user.GET("/profile", r.userHandler.GetProfile)
			user.PUT("/profile", r.userHandler.UpdateProfile)
			user.PUT("/password", r.userHandler.UpdatePassword)
			user.GET("/stats", r.userHandler.Stats)

			user.GET("/cards", r.cardHandler.ListCards)
			user.GET("/cards/:id", r.cardHandler.GetCard)
			user.PUT("/cards/:id/deck", r.cardHandler.UpdateDeck)
			user.PUT("/cards/:id/lock", r.cardHandler.Lock)
			user.POST("/cards/fuse", r.cardHandler.Fuse)
			user.POST("/cards/draw", r.cardHandler.Draw)
			user.GET("/deck", r.cardHandler.Deck)
		}

		// 战斗路由
		battle := v1.Group("/battle")
		battle.Use(r.authMiddleware.RequireAuth())
		{
			battle.POST("/start", r.battleHandler.Start)
			battle.GET("/history", r.battleHandler.History)
		}

		// 管理员路由（需要管理员权限）
		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/seed", r.adminHandler.Seed)
			admin.PUT("/users/:id/status", r.adminHandler.UpdateUserStatus)
		}

		// WebSocket推送
		if r.wsHandler != nil {
			path := r.opts.WebSocketPath
			if path == "" {
				path = "/ws"
			}
			v1.GET(path, r.authMiddleware.RequireAuth(), r.wsHandler.Serve)
		}
	}

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, errors.Newf(errors.ErrNotFound, "接口不存在: %s %s", c.Request.Method, c.Request.URL.Path))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	online := 0
	if r.hub != nil {
		online = r.hub.GetOnlineCount()
	}

	sqlDB, err := r.services.Repos.GetDB().DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		r.log.Warn("健康检查失败", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "down",
			"online":   online,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "up",
		"online":   online,
	})
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
