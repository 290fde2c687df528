package service

import (
	"time"

	"github.com/wfunc/card-game/internal/config"
	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Password           utils.PasswordParams

	// 新用户初始资源
	StartingGold  int64
	StarterCards  []string
	InitialEnergy int
	MaxEnergy     int

	EnergyRegenInterval time.Duration
	FusionEnergyCost    int
	BattleEnergyCost    int
	AIDeckSize          int
	GachaCost           int64
	GachaWeights        game.GachaWeights

	// 模板缓存
	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:           "your-secret-key-change-in-production",
		AccessTokenExpiry:   15 * time.Minute,
		RefreshTokenExpiry:  7 * 24 * time.Hour,
		Password:            utils.DefaultPasswordParams(),
		StartingGold:        1000,
		InitialEnergy:       50,
		MaxEnergy:           50,
		EnergyRegenInterval: game.DefaultRegenInterval,
		FusionEnergyCost:    5,
		BattleEnergyCost:    10,
		AIDeckSize:          game.DefaultAIDeckSize,
		GachaCost:           100,
		GachaWeights:        game.DefaultGachaWeights(),
		CacheEnabled:        true,
		CacheSize:           256,
		CacheTTL:            10 * time.Minute,
	}
}

// ConfigFrom 从应用配置构建服务配置
func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}

	jwt := cfg.Security.JWT
	if jwt.Secret != "" {
		c.JWTSecret = jwt.Secret
	}
	if jwt.ExpireHours > 0 {
		c.AccessTokenExpiry = time.Duration(jwt.ExpireHours) * time.Hour
	}
	if jwt.RefreshHours > 0 {
		c.RefreshTokenExpiry = time.Duration(jwt.RefreshHours) * time.Hour
	}

	pw := cfg.Security.Password
	c.Password = utils.PasswordParams{
		Time:    pw.Time,
		Memory:  pw.MemoryKB,
		Threads: pw.Threads,
		KeyLen:  pw.KeyLen,
		SaltLen: pw.SaltLen,
	}

	g := cfg.Game
	if g.StartingGold > 0 {
		c.StartingGold = g.StartingGold
	}
	c.StarterCards = g.StarterCards
	if g.Energy.Initial > 0 {
		c.InitialEnergy = g.Energy.Initial
	}
	if g.Energy.Max > 0 {
		c.MaxEnergy = g.Energy.Max
	}
	if g.Energy.RegenInterval > 0 {
		c.EnergyRegenInterval = g.Energy.RegenInterval
	}
	if g.Fusion.EnergyCost > 0 {
		c.FusionEnergyCost = g.Fusion.EnergyCost
	}
	if g.Battle.EnergyCost > 0 {
		c.BattleEnergyCost = g.Battle.EnergyCost
	}
	if g.Battle.AIDeckSize > 0 {
		c.AIDeckSize = g.Battle.AIDeckSize
	}
	if g.Gacha.Cost > 0 {
		c.GachaCost = g.Gacha.Cost
	}
	c.GachaWeights = game.ParseGachaWeights(g.Gacha.Weights)

	c.CacheEnabled = cfg.Cache.Enabled
	if cfg.Cache.Size > 0 {
		c.CacheSize = cfg.Cache.Size
	}
	if cfg.Cache.TTL > 0 {
		c.CacheTTL = cfg.Cache.TTL
	}
	return c
}

// Option 服务依赖选项
type Option func(*dependencies)

type dependencies struct {
	locker   Locker
	notifier Notifier
	clock    game.Clock
	random   game.RandomGenerator
}

// WithLocker 指定用户锁实现
func WithLocker(l Locker) Option {
	return func(d *dependencies) { d.locker = l }
}

// WithNotifier 指定事件推送实现
func WithNotifier(n Notifier) Option {
	return func(d *dependencies) { d.notifier = n }
}

// WithClock 指定时钟
func WithClock(c game.Clock) Option {
	return func(d *dependencies) { d.clock = c }
}

// WithRandom 指定随机数生成器
func WithRandom(r game.RandomGenerator) Option {
	return func(d *dependencies) { d.random = r }
}

// Services 服务集合
type Services struct {
	Repos   *repository.Manager
	Auth    AuthService
	User    UserService
	Energy  EnergyService
	Catalog CatalogService
	Card    CardService
	Battle  BattleService
	Seed    SeedService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, config *Config, log *zap.Logger, opts ...Option) *Services {
	if config == nil {
		config = DefaultConfig()
	}
	deps := &dependencies{
		locker:   NewLocalLocker(),
		notifier: NopNotifier{},
		clock:    game.SystemClock,
		random:   game.NewCryptoRandomGenerator(log.Named("random")),
	}
	for _, opt := range opts {
		opt(deps)
	}

	repos := repository.NewManager(db)

	// 初始化JWT管理器
	jwtManager := utils.NewJWTManager(
		config.JWTSecret,
		config.AccessTokenExpiry,
		config.RefreshTokenExpiry,
	)

	hasher := utils.NewPasswordHasher(config.Password)

	// 初始化服务
	energy := newEnergyService(repos, deps, game.NewEnergyPolicy(config.EnergyRegenInterval), log.Named("energy"))
	catalog := newCatalogService(repos, config, deps.clock, log.Named("catalog"))

	return &Services{
		Repos:   repos,
		Auth:    newAuthService(repos, energy, jwtManager, hasher, config, deps, log.Named("auth")),
		User:    newUserService(repos, hasher, log.Named("user")),
		Energy:  energy,
		Catalog: catalog,
		Card:    newCardService(repos, energy, config, deps, log.Named("card")),
		Battle:  newBattleService(repos, energy, config, deps, log.Named("battle")),
		Seed:    newSeedService(repos, catalog, log.Named("seed")),
	}
}
