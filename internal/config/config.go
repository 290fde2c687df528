package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	Cache     CacheConfig     `mapstructure:"cache"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Redis     RedisConfig     `mapstructure:"redis"`
	System    SystemConfig    `mapstructure:"system"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	SeedOnStart     bool          `mapstructure:"seed_on_start"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
}

// GameConfig 游戏配置
type GameConfig struct {
	StartingGold int64        `mapstructure:"starting_gold"`
	StarterCards []string     `mapstructure:"starter_cards"`
	Energy       EnergyConfig `mapstructure:"energy"`
	Fusion       FusionConfig `mapstructure:"fusion"`
	Battle       BattleConfig `mapstructure:"battle"`
	Gacha        GachaConfig  `mapstructure:"gacha"`
}

// EnergyConfig 体力配置
type EnergyConfig struct {
	RegenInterval time.Duration `mapstructure:"regen_interval"`
	Initial       int           `mapstructure:"initial"`
	Max           int           `mapstructure:"max"`
}

// FusionConfig 融合配置
type FusionConfig struct {
	EnergyCost int `mapstructure:"energy_cost"`
}

// BattleConfig 战斗配置
type BattleConfig struct {
	EnergyCost int `mapstructure:"energy_cost"`
	AIDeckSize int `mapstructure:"ai_deck_size"`
}

// GachaConfig 抽卡配置
type GachaConfig struct {
	Cost    int64          `mapstructure:"cost"`
	Weights map[string]int `mapstructure:"weights"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT      JWTConfig      `mapstructure:"jwt"`
	Password PasswordConfig `mapstructure:"password"`
}

// PasswordConfig Argon2id密码哈希参数
type PasswordConfig struct {
	Time     uint32 `mapstructure:"time"`
	MemoryKB uint32 `mapstructure:"memory_kb"`
	Threads  uint8  `mapstructure:"threads"`
	KeyLen   uint32 `mapstructure:"key_len"`
	SaltLen  uint32 `mapstructure:"salt_len"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret       string `mapstructure:"secret"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	RefreshHours int    `mapstructure:"refresh_hours"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

// RedisConfig Redis配置（用于分布式用户锁）
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	Timezone string `mapstructure:"timezone"`
	MaxProcs int    `mapstructure:"max_procs"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("CARD_GAME")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		newCfg := &Config{}
		if err = v.Unmarshal(newCfg); err != nil {
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()
	})

	return err
}

// Load 从指定文件加载一份独立的配置（不影响全局实例）
func Load(configPath string) (*Config, error) {
	lv := viper.New()
	if configPath != "" {
		lv.SetConfigFile(configPath)
	}
	lv.SetEnvPrefix("CARD_GAME")
	lv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	lv.AutomaticEnv()
	setDefaults(lv)

	if configPath != "" {
		if err := lv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	out := &Config{}
	if err := lv.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return out, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/card-game.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.seed_on_start", true)

	// WebSocket默认配置
	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")

	// 游戏默认配置
	v.SetDefault("game.starting_gold", 1000)
	v.SetDefault("game.starter_cards", []string{"Chiến Binh Tân Binh", "Cung Thủ Rừng Xanh", "Phù Thủy Lửa"})
	v.SetDefault("game.energy.regen_interval", "5m")
	v.SetDefault("game.energy.initial", 50)
	v.SetDefault("game.energy.max", 50)
	v.SetDefault("game.fusion.energy_cost", 5)
	v.SetDefault("game.battle.energy_cost", 10)
	v.SetDefault("game.battle.ai_deck_size", 5)
	v.SetDefault("game.gacha.cost", 100)
	v.SetDefault("game.gacha.weights", map[string]int{
		"common":    60,
		"uncommon":  25,
		"rare":      10,
		"epic":      4,
		"legendary": 1,
	})

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "card-game.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 安全默认配置
	v.SetDefault("security.jwt.secret", "change-me-in-production")
	v.SetDefault("security.jwt.expire_hours", 24)
	v.SetDefault("security.jwt.refresh_hours", 168)
	v.SetDefault("security.password.time", 1)
	v.SetDefault("security.password.memory_kb", 64*1024)
	v.SetDefault("security.password.threads", 4)
	v.SetDefault("security.password.key_len", 32)
	v.SetDefault("security.password.salt_len", 16)

	// 缓存默认配置
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", "10m")

	// 跨域默认配置
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", "12h")

	// Redis默认配置
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10s")
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			mu.Unlock()
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Printf("配置已重新加载: %s\n", e.Name)
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// ConfigFile 返回当前使用的配置文件路径
func ConfigFile() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
