package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
)

// UserServiceTestSuite 用户服务测试套件
type UserServiceTestSuite struct {
	suite.Suite
	env  *testEnv
	ctx  context.Context
	user *models.User
	auth *AuthResponse
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.env = newTestEnv(suite.T(), nil)
	suite.ctx = context.Background()

	resp, err := suite.env.svc.Auth.Register(suite.ctx, &RegisterRequest{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
	})
	suite.Require().NoError(err)
	suite.auth = resp
	suite.user = resp.User
}

func (suite *UserServiceTestSuite) TestGetUser() {
	user, err := suite.env.svc.User.GetUser(suite.ctx, suite.user.ID)
	suite.Require().NoError(err)
	suite.Equal("testuser", user.Username)
	// 未设置昵称时使用用户名
	suite.Equal("testuser", user.Nickname)

	_, err = suite.env.svc.User.GetUser(suite.ctx, 9999)
	suite.True(apperrors.Is(err, apperrors.ErrUserNotFound))
}

func (suite *UserServiceTestSuite) TestUpdateProfile() {
	user, err := suite.env.svc.User.UpdateProfile(suite.ctx, suite.user.ID, &UserProfile{Nickname: "  Hero  "})
	suite.Require().NoError(err)
	suite.Equal("Hero", user.Nickname)
	suite.Equal("Hero", suite.env.reloadUser(suite.user.ID).Nickname)

	_, err = suite.env.svc.User.UpdateProfile(suite.ctx, suite.user.ID, &UserProfile{Nickname: "   "})
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))
}

func (suite *UserServiceTestSuite) TestUpdatePassword() {
	err := suite.env.svc.User.UpdatePassword(suite.ctx, suite.user.ID, "wrong", "newpassword")
	suite.True(apperrors.Is(err, apperrors.ErrAuthentication))

	err = suite.env.svc.User.UpdatePassword(suite.ctx, suite.user.ID, "password123", "123")
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))

	suite.Require().NoError(suite.env.svc.User.UpdatePassword(suite.ctx, suite.user.ID, "password123", "newpassword"))

	// 修改密码后旧会话失效
	_, err = suite.env.svc.Auth.ValidateToken(suite.ctx, suite.auth.AccessToken)
	suite.True(apperrors.Is(err, apperrors.ErrTokenExpired))

	_, err = suite.env.svc.Auth.Login(suite.ctx, &LoginRequest{Account: "testuser", Password: "password123"})
	suite.True(apperrors.Is(err, apperrors.ErrAuthentication))
	_, err = suite.env.svc.Auth.Login(suite.ctx, &LoginRequest{Account: "testuser", Password: "newpassword"})
	suite.NoError(err)
}

func (suite *UserServiceTestSuite) TestUpdateUserStatus() {
	err := suite.env.svc.User.UpdateUserStatus(suite.ctx, suite.user.ID, "deleted")
	suite.True(apperrors.Is(err, apperrors.ErrInvalidParam))

	err = suite.env.svc.User.UpdateUserStatus(suite.ctx, 9999, UserStatusBanned)
	suite.True(apperrors.Is(err, apperrors.ErrUserNotFound))

	suite.Require().NoError(suite.env.svc.User.UpdateUserStatus(suite.ctx, suite.user.ID, UserStatusBanned))
	suite.Equal(UserStatusBanned, suite.env.reloadUser(suite.user.ID).Status)

	suite.Require().NoError(suite.env.svc.User.UpdateUserStatus(suite.ctx, suite.user.ID, UserStatusActive))
	_, err = suite.env.svc.Auth.Login(suite.ctx, &LoginRequest{Account: "testuser", Password: "password123"})
	suite.NoError(err)
}

func (suite *UserServiceTestSuite) TestGetUserStats() {
	stats, err := suite.env.svc.User.GetUserStats(suite.ctx, suite.user.ID)
	suite.Require().NoError(err)
	suite.Equal(1, stats.Level)
	suite.Equal(int64(1000), stats.Gold)
	suite.Equal(int64(0), stats.CardCount)
	suite.Equal(int64(0), stats.TotalBattle)
	suite.Equal(0.0, stats.WinRate)

	knight := repository.CreateTestTemplate(suite.T(), suite.env.db, "Knight", models.RarityCommon, 20, 10)
	repository.CreateTestDeck(suite.T(), suite.env.db, suite.user.ID, knight, 2)
	repository.CreateTestCard(suite.T(), suite.env.db, suite.user.ID, knight)

	_, err = suite.env.svc.Battle.StartBattle(suite.ctx, suite.user.ID, &StartBattleRequest{BattleType: models.BattlePvE})
	suite.Require().NoError(err)

	stats, err = suite.env.svc.User.GetUserStats(suite.ctx, suite.user.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(3), stats.CardCount)
	suite.Equal(2, stats.DeckSize)
	suite.Equal(int64(1), stats.TotalBattle)
	suite.Equal(int64(1), stats.TotalWins)
	suite.Equal(1.0, stats.WinRate)
	suite.Equal(int64(1055), stats.Gold)
	suite.Equal(int64(28), stats.Experience)
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
