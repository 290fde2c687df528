package service

import (
	"context"
	"strings"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/utils"
	"go.uber.org/zap"
)

// 用户状态
const (
	UserStatusActive = "active"
	UserStatusFrozen = "frozen"
	UserStatusBanned = "banned"
)

// UserService 用户服务接口
type UserService interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, profile *UserProfile) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	UpdateUserStatus(ctx context.Context, userID uint, status string) error
	GetUserStats(ctx context.Context, userID uint) (*UserStats, error)
}

// UserProfile 用户资料
type UserProfile struct {
	Nickname string `json:"nickname" binding:"required,max=100"`
}

// UserStats 用户统计
type UserStats struct {
	Level       int     `json:"level"`
	Experience  int64   `json:"experience"`
	Gold        int64   `json:"gold"`
	CardCount   int64   `json:"card_count"`
	DeckSize    int     `json:"deck_size"`
	TotalBattle int64   `json:"total_battles"`
	TotalWins   int64   `json:"total_wins"`
	WinRate     float64 `json:"win_rate"`
}

// userService 用户服务实现
type userService struct {
	repos  *repository.Manager
	hasher *utils.PasswordHasher
	log    *zap.Logger
}

func newUserService(repos *repository.Manager, hasher *utils.PasswordHasher, log *zap.Logger) *userService {
	return &userService{repos: repos, hasher: hasher, log: log}
}

// GetUser 根据ID获取用户
func (s *userService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.repos.User().FindByID(ctx, userID)
}

// UpdateProfile 更新用户资料
func (s *userService) UpdateProfile(ctx context.Context, userID uint, profile *UserProfile) (*models.User, error) {
	nickname := strings.TrimSpace(profile.Nickname)
	if nickname == "" {
		return nil, errors.New(errors.ErrInvalidParam, "昵称不能为空")
	}

	user, err := s.repos.User().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Nickname = nickname
	if err := s.repos.User().Update(ctx, user); err != nil {
		s.log.Error("更新用户资料失败", zap.Uint("userID", userID), zap.Error(err))
		return nil, errors.Wrap(err, errors.ErrDatabaseUpdate, "更新用户资料失败")
	}
	return user, nil
}

// UpdatePassword 修改密码，成功后撤销所有会话
func (s *userService) UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return errors.New(errors.ErrInvalidParam, "密码长度至少6个字符")
	}

	auth, err := s.repos.UserAuth().FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	valid, err := s.hasher.Verify(oldPassword, auth.Password)
	if err != nil || !valid {
		return errors.New(errors.ErrAuthentication, "原密码错误")
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errors.Wrap(err, errors.ErrEncryption, "密码加密失败")
	}
	if err := s.repos.UserAuth().UpdatePassword(ctx, userID, hashed); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate, "更新密码失败")
	}
	if err := s.repos.UserSession().DeleteByUserID(ctx, userID); err != nil {
		s.log.Warn("撤销会话失败", zap.Uint("userID", userID), zap.Error(err))
	}

	s.log.Info("密码已修改", zap.Uint("userID", userID))
	return nil
}

// UpdateUserStatus 更新用户状态，非active状态会撤销全部会话
func (s *userService) UpdateUserStatus(ctx context.Context, userID uint, status string) error {
	switch status {
	case UserStatusActive, UserStatusFrozen, UserStatusBanned:
	default:
		return errors.Newf(errors.ErrInvalidParam, "未知用户状态: %s", status)
	}

	if _, err := s.repos.User().FindByID(ctx, userID); err != nil {
		return err
	}
	if err := s.repos.User().UpdateStatus(ctx, userID, status); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate, "更新用户状态失败")
	}
	if status != UserStatusActive {
		if err := s.repos.UserSession().DeleteByUserID(ctx, userID); err != nil {
			s.log.Warn("撤销会话失败", zap.Uint("userID", userID), zap.Error(err))
		}
	}

	s.log.Info("用户状态已更新", zap.Uint("userID", userID), zap.String("status", status))
	return nil
}

// GetUserStats 获取用户统计
func (s *userService) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	user, err := s.repos.User().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		Level:      user.Level,
		Experience: user.Experience,
		Gold:       user.Gold,
	}
	if stats.CardCount, err = s.repos.UserCard().CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	deck, err := s.repos.UserCard().FindDeck(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.DeckSize = len(deck)
	if stats.TotalBattle, err = s.repos.Battle().CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalWins, err = s.repos.Battle().CountWinsByUser(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalBattle > 0 {
		stats.WinRate = float64(stats.TotalWins) / float64(stats.TotalBattle)
	}
	return stats, nil
}
