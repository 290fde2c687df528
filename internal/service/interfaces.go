package service

import (
	"context"
	"time"

	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
)

// AuthService 认证服务接口
type AuthService interface {
	// 注册登录
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, userID uint, token string) error
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)

	// 验证
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	ValidateSession(ctx context.Context, sessionID string) (*models.UserSession, error)
	Session(ctx context.Context, userID uint) (*SessionInfo, error)

	// 会话管理
	GetActiveSessions(ctx context.Context, userID uint) ([]*models.UserSession, error)
	RevokeSession(ctx context.Context, sessionID string) error
	RevokeAllSessions(ctx context.Context, userID uint) error
}

// EnergyService 体力服务接口
type EnergyService interface {
	Status(ctx context.Context, userID uint) (*EnergyStatus, error)
	Regenerate(ctx context.Context, userID uint) (*EnergyStatus, error)
	Consume(ctx context.Context, userID uint, amount int) (*EnergyStatus, error)
}

// CatalogService 卡牌模板目录接口
type CatalogService interface {
	List(ctx context.Context, query *TemplateQuery) ([]models.CardTemplate, error)
	Get(ctx context.Context, id uint) (*TemplateDetail, error)
	Search(ctx context.Context, query string, limit int) ([]models.CardTemplate, error)
	Invalidate()
}

// CardService 用户卡牌服务接口
type CardService interface {
	// 查询
	List(ctx context.Context, userID uint, query *CardListQuery) (*CardListResult, error)
	Get(ctx context.Context, userID, cardID uint) (*models.UserCard, error)
	Deck(ctx context.Context, userID uint) ([]models.UserCard, error)

	// 卡组与锁定
	AddToDeck(ctx context.Context, userID, cardID uint, position int) (*models.UserCard, error)
	RemoveFromDeck(ctx context.Context, userID, cardID uint) (*models.UserCard, error)
	SetLock(ctx context.Context, userID, cardID uint, locked *bool) (*models.UserCard, error)

	// 融合与抽卡
	Fuse(ctx context.Context, userID, baseID, sacrificeID uint) (*FuseResult, error)
	Draw(ctx context.Context, userID uint) (*DrawResult, error)
}

// BattleService 战斗服务接口
type BattleService interface {
	StartBattle(ctx context.Context, userID uint, req *StartBattleRequest) (*BattleResult, error)
	History(ctx context.Context, userID uint, filter repository.BattleFilter) (*BattleHistory, error)
}

// SeedService 模板初始化服务接口
type SeedService interface {
	Seed(ctx context.Context, force bool) (*SeedResult, error)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=20"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Nickname        string `json:"nickname"`
	Device          string `json:"-"`
	IP              string `json:"-"` // 客户端IP，由handler设置
}

// LoginRequest 登录请求
type LoginRequest struct {
	Account  string `json:"account" binding:"required"` // 用户名/邮箱
	Password string `json:"password" binding:"required"`
	Device   string `json:"-"`
	IP       string `json:"-"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
}

// TokenClaims JWT Claims
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// SessionInfo 当前会话信息（体力已恢复）
type SessionInfo struct {
	User   *models.User  `json:"user"`
	Energy *EnergyStatus `json:"energy"`
}

// EnergyStatus 体力状态
type EnergyStatus struct {
	Energy           int        `json:"energy"`
	MaxEnergy        int        `json:"max_energy"`
	LastEnergyRefill time.Time  `json:"last_energy_refill"`
	NextRegenAt      *time.Time `json:"next_regen_at,omitempty"`
	RegenSeconds     int64      `json:"regen_seconds"`
}

// TemplateQuery 模板查询条件
type TemplateQuery struct {
	Rarity   models.Rarity  `form:"rarity"`
	Element  models.Element `form:"element"`
	IsActive *bool          `form:"is_active"`
	Search   string         `form:"search"`
}

// LevelStats 某一等级的属性
type LevelStats struct {
	Level   int `json:"level"`
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
}

// TemplateDetail 模板详情，派生属性按需计算
type TemplateDetail struct {
	models.CardTemplate
	PowerRating      int          `json:"power_rating"`
	RarityMultiplier float64      `json:"rarity_multiplier"`
	StatsAtLevel     []LevelStats `json:"stats_at_level"`
}

// CardListQuery 卡牌列表查询条件
type CardListQuery struct {
	InDeck    *bool  `form:"in_deck"`
	IsLocked  *bool  `form:"is_locked"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// CardListResult 卡牌列表
type CardListResult struct {
	Cards      []models.UserCard `json:"cards"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// FuseResult 融合结果
type FuseResult struct {
	Card        *models.UserCard `json:"card"`
	SacrificeID uint             `json:"sacrifice_id"`
	AttackGain  int              `json:"attack_gain"`
	DefenseGain int              `json:"defense_gain"`
	Energy      int              `json:"energy"`
}

// DrawResult 抽卡结果
type DrawResult struct {
	Card        *models.UserCard `json:"card"`
	DrawnRarity models.Rarity    `json:"drawn_rarity"`
	Cost        int64            `json:"cost"`
	Gold        int64            `json:"gold"`
}

// StartBattleRequest 开始战斗请求
type StartBattleRequest struct {
	BattleType models.BattleType `json:"battle_type" binding:"required"`
	OpponentID *uint             `json:"opponent_id"`
}

// BattleResult 战斗结果及玩家战后资源
type BattleResult struct {
	Battle     *models.Battle `json:"battle"`
	Energy     int            `json:"energy"`
	Gold       int64          `json:"gold"`
	Experience int64          `json:"experience"`
}

// BattleHistory 战斗历史
type BattleHistory struct {
	Battles []models.Battle `json:"battles"`
	HasMore bool            `json:"has_more"`
	Limit   int             `json:"limit"`
	Skip    int             `json:"skip"`
}

// SeedResult 初始化结果
type SeedResult struct {
	Action string `json:"action"` // seed, reseed, skip
	Count  int    `json:"count"`
}
