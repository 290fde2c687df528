package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/utils"
	"go.uber.org/zap"
)

// 登录失败锁定策略
const (
	maxLoginAttempts = 5
	loginLockout     = 15 * time.Minute
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// authService 认证服务实现
type authService struct {
	repos      *repository.Manager
	energy     *energyService
	jwtManager *utils.JWTManager
	hasher     *utils.PasswordHasher
	config     *Config
	clock      game.Clock
	log        *zap.Logger
}

func newAuthService(
	repos *repository.Manager,
	energy *energyService,
	jwtManager *utils.JWTManager,
	hasher *utils.PasswordHasher,
	config *Config,
	deps *dependencies,
	log *zap.Logger,
) *authService {
	return &authService{
		repos:      repos,
		energy:     energy,
		jwtManager: jwtManager,
		hasher:     hasher,
		config:     config,
		clock:      deps.clock,
		log:        log,
	}
}

// Register 用户注册，发放初始金币、体力和新手卡牌
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := validateRegisterRequest(req); err != nil {
		return nil, err
	}

	// 检查用户是否已存在
	if user, _ := s.repos.User().FindByUsername(ctx, req.Username); user != nil {
		return nil, errors.New(errors.ErrAlreadyExists, "用户名已存在")
	}
	if user, _ := s.repos.User().FindByEmail(ctx, req.Email); user != nil {
		return nil, errors.New(errors.ErrAlreadyExists, "邮箱已被使用")
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrEncryption, "密码加密失败")
	}

	var (
		user   *models.User
		tokens *AuthResponse
	)
	err = s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		now := s.clock()
		user = &models.User{
			Username:         req.Username,
			Email:            req.Email,
			Nickname:         req.Nickname,
			Status:           "active",
			Role:             models.RoleUser,
			Level:            1,
			Gold:             s.config.StartingGold,
			Energy:           s.config.InitialEnergy,
			MaxEnergy:        s.config.MaxEnergy,
			LastEnergyRefill: now,
		}
		if err := tx.User().Create(ctx, user); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "创建用户失败")
		}

		if err := tx.UserAuth().Create(ctx, &models.UserAuth{
			UserID:   user.ID,
			Password: hashedPassword,
		}); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "创建认证信息失败")
		}

		if err := s.grantStarterCards(ctx, tx, user.ID, now); err != nil {
			return err
		}

		var err error
		tokens, err = s.openSession(ctx, tx.UserSession(), user, req.IP, req.Device)
		return err
	})
	if err != nil {
		s.log.Error("用户注册失败", zap.String("username", req.Username), zap.Error(err))
		return nil, err
	}

	s.log.Info("用户注册成功", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	tokens.User = user
	return tokens, nil
}

// grantStarterCards 发放配置中的新手卡牌，不存在的模板名被忽略
func (s *authService) grantStarterCards(ctx context.Context, tx *repository.Transaction, userID uint, now time.Time) error {
	if len(s.config.StarterCards) == 0 {
		return nil
	}
	templates, err := tx.CardTemplate().FindByNames(ctx, s.config.StarterCards)
	if err != nil {
		return err
	}
	byName := make(map[string]*models.CardTemplate, len(templates))
	for i := range templates {
		byName[templates[i].Name] = &templates[i]
	}

	for _, name := range s.config.StarterCards {
		template, ok := byName[name]
		if !ok {
			s.log.Warn("新手卡牌模板不存在", zap.String("name", name))
			continue
		}
		if err := tx.UserCard().Create(ctx, game.NewCard(userID, template, models.ObtainedStarter, now)); err != nil {
			return err
		}
	}
	return nil
}

// Login 用户登录，登录时结算体力恢复
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(req.Account, "@") {
		user, err = s.repos.User().FindByEmail(ctx, req.Account)
	} else {
		user, err = s.repos.User().FindByUsername(ctx, req.Account)
	}
	if err != nil || user == nil {
		s.log.Warn("登录失败：用户不存在", zap.String("account", req.Account))
		return nil, errors.New(errors.ErrAuthentication, "用户名或密码错误")
	}

	if !user.CanLogin() {
		return nil, errors.Newf(errors.ErrPermissionDenied, "用户状态: %s", user.Status)
	}

	auth, err := s.repos.UserAuth().FindByUserID(ctx, user.ID)
	if err != nil {
		s.log.Error("获取认证信息失败", zap.Uint("userID", user.ID), zap.Error(err))
		return nil, errors.New(errors.ErrAuthentication, "用户名或密码错误")
	}

	now := s.clock()
	if auth.LockedUntil != nil && now.Before(*auth.LockedUntil) {
		return nil, errors.Newf(errors.ErrRateLimitExceeded, "账户已锁定至 %s", auth.LockedUntil.Format(time.RFC3339))
	}

	valid, err := s.hasher.Verify(req.Password, auth.Password)
	if err != nil || !valid {
		s.recordFailedLogin(ctx, auth, now)
		return nil, errors.New(errors.ErrAuthentication, "用户名或密码错误")
	}
	s.rehashPassword(ctx, user.ID, req.Password, auth.Password)

	tokens, err := s.openSession(ctx, s.repos.UserSession(), user, req.IP, req.Device)
	if err != nil {
		return nil, err
	}

	_ = s.repos.User().UpdateLastLogin(ctx, user.ID, req.IP)
	_ = s.repos.UserAuth().ResetLoginAttempts(ctx, user.ID)

	status, err := s.energy.Regenerate(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Energy = status.Energy
	user.LastEnergyRefill = status.LastEnergyRefill
	user.UpdateLoginInfo(req.IP)

	s.log.Info("用户登录成功", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	tokens.User = user
	return tokens, nil
}

// rehashPassword 哈希参数调整后在登录成功时升级存储的哈希，失败不影响登录
func (s *authService) rehashPassword(ctx context.Context, userID uint, password, encoded string) {
	if !s.hasher.NeedsRehash(encoded) {
		return
	}
	hashed, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repos.UserAuth().UpdatePassword(ctx, userID, hashed)
	}
	if err != nil {
		s.log.Warn("升级密码哈希失败", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	s.log.Info("密码哈希已升级", zap.Uint("userID", userID))
}

// recordFailedLogin 记录失败次数，超过上限锁定账户
func (s *authService) recordFailedLogin(ctx context.Context, auth *models.UserAuth, now time.Time) {
	attempts := auth.LoginAttempts + 1
	s.log.Warn("登录失败：密码错误", zap.Uint("userID", auth.UserID), zap.Int("attempts", attempts))
	_ = s.repos.UserAuth().UpdateLoginAttempts(ctx, auth.UserID, attempts)
	if attempts >= maxLoginAttempts {
		_ = s.repos.UserAuth().LockAccount(ctx, auth.UserID, now.Add(loginLockout))
	}
}

// openSession 创建会话并签发令牌
func (s *authService) openSession(ctx context.Context, sessions repository.UserSessionRepository, user *models.User, ip, device string) (*AuthResponse, error) {
	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成会话ID失败")
	}
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Email, user.Role, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成访问令牌失败")
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成刷新令牌失败")
	}

	// 会话有效期与JWT一致，使用墙上时间
	now := time.Now()
	session := &models.UserSession{
		UserID:       user.ID,
		SessionID:    sessionID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		IP:           ip,
		UserAgent:    device,
		IsOnline:     true,
		LastActiveAt: now,
		ExpireAt:     now.Add(s.jwtManager.GetTokenExpiry(utils.TokenTypeRefresh)),
	}
	if err := sessions.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseInsert, "创建会话失败")
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry(utils.TokenTypeAccess).Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// Logout 用户登出
func (s *authService) Logout(ctx context.Context, userID uint, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	if claims.UserID != userID {
		return errors.New(errors.ErrPermissionDenied, "令牌不属于当前用户")
	}

	if err := s.repos.UserSession().Delete(ctx, claims.SessionID); err != nil {
		s.log.Error("删除会话失败", zap.String("sessionID", claims.SessionID), zap.Error(err))
		return errors.Wrap(err, errors.ErrDatabaseDelete, "删除会话失败")
	}

	s.log.Info("用户登出", zap.Uint("userID", userID))
	return nil
}

// RefreshToken 刷新访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != utils.TokenTypeRefresh {
		return nil, errors.New(errors.ErrTokenInvalid, "不是刷新令牌")
	}

	session, err := s.repos.UserSession().FindBySessionID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.New(errors.ErrTokenInvalid, "会话不存在或已过期")
		}
		return nil, err
	}

	user, err := s.repos.User().FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Email, user.Role, session.SessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成访问令牌失败")
	}
	if err := s.repos.UserSession().UpdateTokens(ctx, session.SessionID, accessToken, refreshToken, session.ExpireAt); err != nil {
		return nil, err
	}

	s.log.Info("令牌已刷新", zap.Uint("userID", user.ID))
	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry(utils.TokenTypeAccess).Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken 验证访问令牌及其会话
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != utils.TokenTypeAccess {
		return nil, errors.New(errors.ErrTokenInvalid, "不是访问令牌")
	}
	if _, err := s.ValidateSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}

	return &TokenClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

// ValidateSession 验证会话
func (s *authService) ValidateSession(ctx context.Context, sessionID string) (*models.UserSession, error) {
	session, err := s.repos.UserSession().FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.New(errors.ErrTokenExpired, "会话不存在或已过期")
		}
		return nil, err
	}
	return session, nil
}

// Session 返回当前用户信息，读取前结算体力恢复
func (s *authService) Session(ctx context.Context, userID uint) (*SessionInfo, error) {
	status, err := s.energy.Regenerate(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.repos.User().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{User: user, Energy: status}, nil
}

// GetActiveSessions 获取活跃会话
func (s *authService) GetActiveSessions(ctx context.Context, userID uint) ([]*models.UserSession, error) {
	return s.repos.UserSession().FindByUserID(ctx, userID)
}

// RevokeSession 撤销会话
func (s *authService) RevokeSession(ctx context.Context, sessionID string) error {
	return s.repos.UserSession().Delete(ctx, sessionID)
}

// RevokeAllSessions 撤销所有会话
func (s *authService) RevokeAllSessions(ctx context.Context, userID uint) error {
	return s.repos.UserSession().DeleteByUserID(ctx, userID)
}

// parseToken 解析令牌并转换为业务错误
func (s *authService) parseToken(token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if err == utils.ErrExpiredToken {
			return nil, errors.Wrap(err, errors.ErrTokenExpired)
		}
		return nil, errors.Wrap(err, errors.ErrTokenInvalid)
	}
	return claims, nil
}

// validateRegisterRequest 验证注册请求
func validateRegisterRequest(req *RegisterRequest) error {
	if len(req.Username) < 3 || len(req.Username) > 20 {
		return errors.New(errors.ErrInvalidParam, "用户名长度必须在3-20个字符之间")
	}
	if !usernamePattern.MatchString(req.Username) {
		return errors.New(errors.ErrInvalidParam, "用户名只能包含字母、数字和下划线")
	}
	if !emailPattern.MatchString(req.Email) {
		return errors.New(errors.ErrInvalidParam, "邮箱格式不正确")
	}
	if len(req.Password) < 6 {
		return errors.New(errors.ErrInvalidParam, "密码长度至少6个字符")
	}
	if req.ConfirmPassword != "" && req.Password != req.ConfirmPassword {
		return errors.New(errors.ErrInvalidParam, "两次输入的密码不一致")
	}
	return nil
}
