package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/wfunc/card-game/internal/api"
	"github.com/wfunc/card-game/internal/config"
	"github.com/wfunc/card-game/internal/database"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/logger"
	"github.com/wfunc/card-game/internal/service"
	"github.com/wfunc/card-game/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	services   *service.Services
	hub        *websocket.Hub
	redis      *redis.Client
	httpServer *http.Server

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		seedOnly    = flag.Bool("seed", false, "仅初始化卡牌模板后退出")
		forceSeed   = flag.Bool("force", false, "与-seed同用，清空后重新初始化")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	setupSystem(&cfg.System)
	printStartInfo(cfg)

	server := NewServer(cfg)

	if *seedOnly {
		if err := server.runSeed(*forceSeed); err != nil {
			logger.Error("初始化卡牌模板失败", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动卡牌游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	if s.cfg.Database.SeedOnStart {
		result, err := s.services.Seed.Seed(s.ctx, false)
		if err != nil {
			return err
		}
		s.logger.Info("卡牌模板检查完成", zap.String("action", result.Action), zap.Int("count", result.Count))
	}

	s.startServices()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功", zap.String("http", s.httpServer.Addr))
	return nil
}

// runSeed 初始化数据库与服务后执行模板初始化
func (s *Server) runSeed(force bool) error {
	if err := s.initComponents(); err != nil {
		return err
	}
	defer s.closeComponents()

	result, err := s.services.Seed.Seed(s.ctx, force)
	if err != nil {
		return err
	}
	fmt.Printf("卡牌模板: %s, 写入 %d 条\n", result.Action, result.Count)
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	if err := s.initDatabase(); err != nil {
		return err
	}

	opts := []service.Option{}

	// 多实例部署时使用Redis用户锁
	if s.cfg.Redis.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
		defer cancel()
		if err := s.redis.Ping(pingCtx).Err(); err != nil {
			return errors.Wrap(err, errors.ErrLockUnavailable, "连接Redis失败")
		}
		opts = append(opts, service.WithLocker(service.NewRedisLocker(s.redis, s.cfg.Redis.LockTTL)))
		s.logger.Info("使用Redis用户锁", zap.String("addr", s.cfg.Redis.Addr))
	}

	if s.cfg.WebSocket.Enabled {
		s.hub = websocket.NewHub(logger.GetModuleLogger("websocket"))
		opts = append(opts, service.WithNotifier(s.hub))
	}

	s.services = service.NewServices(database.GetDB(), service.ConfigFrom(s.cfg), logger.GetModuleLogger("service"), opts...)

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...", zap.String("driver", s.cfg.Database.Driver))

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// startServices 启动服务
func (s *Server) startServices() {
	s.logger.Info("启动服务...")

	if s.hub != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.hub.Run(s.ctx)
		}()
	}

	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(s.services, s.hub, api.OptionsFrom(s.cfg), logger.GetModuleLogger("api"))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()

	s.logger.Info("所有服务启动完成")
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
		s.logger.Warn("服务已停止，准备退出")
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求，等待处理中的请求完成
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
		}
	}

	// 取消主上下文，Hub断开所有连接
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	s.closeComponents()

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}
	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	s.logger.Info("关闭组件...")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("关闭Redis失败", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	s.logger.Info("所有组件已关闭")
}

// reloadConfig 重新加载配置，仅日志级别与模块级别热更新
func (s *Server) reloadConfig(newCfg *config.Config) {
	if newCfg.Log.Level != s.cfg.Log.Level {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("日志级别已更新", zap.String("level", newCfg.Log.Level))
	}
	s.cfg = newCfg
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("卡牌游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("卡牌游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  card-game-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  CARD_GAME_SERVER_PORT       监听端口")
	fmt.Println("  CARD_GAME_DATABASE_DRIVER   数据库驱动 (sqlite/mysql/postgres)")
	fmt.Println("  CARD_GAME_DATABASE_DSN      数据库连接串")
	fmt.Println("  CARD_GAME_SECURITY_JWT_SECRET  JWT密钥")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  card-game-server -config=/path/to/config.yaml")
	fmt.Println("  card-game-server -seed -force")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("                     卡牌游戏后端服务器")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Printf("配置文件: %s\n", config.ConfigFile())
	fmt.Println("═══════════════════════════════════════════════════════════════")
}
