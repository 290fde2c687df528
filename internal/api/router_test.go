package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/service"
	"github.com/wfunc/card-game/internal/websocket"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Message string           `json:"message"`
	Error   *errors.AppError `json:"error"`
}

// RouterTestSuite 路由集成测试套件
type RouterTestSuite struct {
	suite.Suite
	services *service.Services
	hub      *websocket.Hub
	router   *Router
	cancel   context.CancelFunc
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db := repository.SetupTestDB()
	s.T().Cleanup(func() { repository.CleanupTestDB(db) })

	config := service.DefaultConfig()
	config.JWTSecret = "test-secret"
	config.StarterCards = []string{"Chiến Binh Tân Binh", "Cung Thủ Rừng Xanh"}

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.hub = websocket.NewHub(zap.NewNop())
	go s.hub.Run(ctx)

	s.services = service.NewServices(db, config, zap.NewNop(),
		service.WithRandom(game.NewSequenceRandomGenerator(0.5)),
		service.WithNotifier(s.hub),
	)
	_, err := s.services.Seed.Seed(context.Background(), false)
	s.Require().NoError(err)

	s.router = NewRouter(s.services, s.hub, Options{
		AllowedOrigins:   []string{"*"},
		WebSocketEnabled: true,
		WebSocketPath:    "/ws",
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}, zap.NewNop())
}

func (s *RouterTestSuite) TearDownTest() {
	s.cancel()
}

func (s *RouterTestSuite) do(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, *envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.GetEngine().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, &env
}

func (s *RouterTestSuite) decode(env *envelope, out interface{}) {
	s.Require().NoError(json.Unmarshal(env.Data, out))
}

func (s *RouterTestSuite) assertError(w *httptest.ResponseRecorder, env *envelope, status int, code errors.ErrorCode) {
	s.Equal(status, w.Code, w.Body.String())
	s.False(env.Success)
	s.Require().NotNil(env.Error)
	s.Equal(code, env.Error.Code)
	s.Empty(env.Error.Stack)
}

func (s *RouterTestSuite) register(username string) *service.AuthResponse {
	w, env := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp service.AuthResponse
	s.decode(env, &resp)
	return &resp
}

func (s *RouterTestSuite) cards(token string) []models.UserCard {
	w, env := s.do(http.MethodGet, "/api/v1/user/cards", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var result service.CardListResult
	s.decode(env, &result)
	return result.Cards
}

func (s *RouterTestSuite) TestHealth() {
	w, _ := s.do(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, w.Code)

	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("healthy", body["status"])
	s.Equal(float64(0), body["online"])
}

func (s *RouterTestSuite) TestNoRoute() {
	w, env := s.do(http.MethodGet, "/api/v1/nope", nil, "")
	s.assertError(w, env, http.StatusNotFound, errors.ErrNotFound)
}

func (s *RouterTestSuite) TestRegisterAndSession() {
	auth := s.register("player")
	s.NotEmpty(auth.AccessToken)
	s.Equal("Bearer", auth.TokenType)

	w, env := s.do(http.MethodGet, "/api/v1/auth/session", nil, auth.AccessToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var info service.SessionInfo
	s.decode(env, &info)
	s.Equal("player", info.User.Username)
	s.Equal(50, info.Energy.Energy)

	w, env = s.do(http.MethodGet, "/api/v1/user/energy", nil, auth.AccessToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var energy service.EnergyStatus
	s.decode(env, &energy)
	s.Equal(50, energy.MaxEnergy)

	s.Len(s.cards(auth.AccessToken), 2)

	w, env = s.do(http.MethodGet, "/api/v1/auth/session", nil, "")
	s.assertError(w, env, http.StatusUnauthorized, errors.ErrAuthentication)
}

func (s *RouterTestSuite) TestRegisterValidation() {
	w, env := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "ab"}, "")
	s.assertError(w, env, http.StatusBadRequest, errors.ErrInvalidParam)

	s.register("player")
	w, env = s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username":         "player",
		"email":            "other@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	}, "")
	s.assertError(w, env, http.StatusConflict, errors.ErrAlreadyExists)
}

func (s *RouterTestSuite) TestLoginRefreshLogout() {
	s.register("player")

	w, env := s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"account": "player", "password": "wrong-pass"}, "")
	s.assertError(w, env, http.StatusUnauthorized, errors.ErrAuthentication)

	w, env = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"account": "player@example.com", "password": "password123"}, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var login service.AuthResponse
	s.decode(env, &login)

	w, env = s.do(http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh_token": login.RefreshToken}, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var refreshed service.AuthResponse
	s.decode(env, &refreshed)
	s.NotEmpty(refreshed.AccessToken)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/logout", nil, refreshed.AccessToken)
	s.Require().Equal(http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/auth/session", nil, refreshed.AccessToken)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(env.Success)
}

func (s *RouterTestSuite) TestTemplates() {
	w, env := s.do(http.MethodGet, "/api/v1/cards/templates", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var templates []models.CardTemplate
	s.decode(env, &templates)
	s.Len(templates, 11)
	s.Equal(models.RarityCommon, templates[0].Rarity)

	w, env = s.do(http.MethodGet, "/api/v1/cards/templates?rarity=legendary", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(env, &templates)
	s.Len(templates, 2)

	w, env = s.do(http.MethodGet, "/api/v1/cards/templates?rarity=mythic", nil, "")
	s.assertError(w, env, http.StatusBadRequest, errors.ErrInvalidParam)

	w, env = s.do(http.MethodGet, fmt.Sprintf("/api/v1/cards/templates/%d", templates[0].ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var detail service.TemplateDetail
	s.decode(env, &detail)
	s.Equal(3.0, detail.RarityMultiplier)
	s.NotEmpty(detail.StatsAtLevel)

	w, env = s.do(http.MethodGet, "/api/v1/cards/templates/9999", nil, "")
	s.assertError(w, env, http.StatusNotFound, errors.ErrTemplateNotFound)

	w, env = s.do(http.MethodGet, "/api/v1/cards/templates/abc", nil, "")
	s.assertError(w, env, http.StatusBadRequest, errors.ErrInvalidParam)

	w, env = s.do(http.MethodGet, "/api/v1/cards/templates/search?q=binh&limit=1", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(env, &templates)
	s.Len(templates, 1)
}

func (s *RouterTestSuite) TestDeckLockAndFuse() {
	token := s.register("player").AccessToken
	cards := s.cards(token)
	s.Require().Len(cards, 2)
	base, sacrifice := cards[0], cards[1]

	path := func(id uint, action string) string {
		return fmt.Sprintf("/api/v1/user/cards/%d/%s", id, action)
	}

	w, env := s.do(http.MethodPut, path(base.ID, "deck"), gin.H{"action": "add", "position": 1}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var card models.UserCard
	s.decode(env, &card)
	s.True(card.IsInDeck)
	s.Require().NotNil(card.DeckPosition)
	s.Equal(1, *card.DeckPosition)

	w, env = s.do(http.MethodPut, path(sacrifice.ID, "deck"), gin.H{"action": "add", "position": 1}, token)
	s.assertError(w, env, http.StatusConflict, errors.ErrPositionOccupied)

	w, env = s.do(http.MethodPut, path(sacrifice.ID, "deck"), gin.H{"action": "swap"}, token)
	s.assertError(w, env, http.StatusBadRequest, errors.ErrInvalidParam)

	// 空请求体切换锁定状态
	w, env = s.do(http.MethodPut, path(sacrifice.ID, "lock"), nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(env, &card)
	s.True(card.IsLocked)

	fuse := gin.H{"base_card_id": base.ID, "sacrifice_card_id": sacrifice.ID}
	w, env = s.do(http.MethodPost, "/api/v1/user/cards/fuse", fuse, token)
	s.assertError(w, env, http.StatusConflict, errors.ErrCardLocked)

	w, _ = s.do(http.MethodPut, path(sacrifice.ID, "lock"), gin.H{"locked": false}, token)
	s.Require().Equal(http.StatusOK, w.Code)

	// 卡组中的卡牌不能参与融合
	w, env = s.do(http.MethodPost, "/api/v1/user/cards/fuse", fuse, token)
	s.assertError(w, env, http.StatusConflict, errors.ErrCardInDeck)

	w, env = s.do(http.MethodPut, path(base.ID, "deck"), gin.H{"action": "remove"}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(env, &card)
	s.False(card.IsInDeck)
	s.Nil(card.DeckPosition)

	w, env = s.do(http.MethodPost, "/api/v1/user/cards/fuse", fuse, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var fused service.FuseResult
	s.decode(env, &fused)
	s.Equal(2, fused.Card.Level)
	s.Equal(base.CurrentAttack+sacrifice.CurrentAttack/10, fused.Card.CurrentAttack)
	s.Equal(base.CurrentDefense+sacrifice.CurrentDefense/10, fused.Card.CurrentDefense)
	s.Equal(45, fused.Energy)

	w, env = s.do(http.MethodGet, "/api/v1/user/deck", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var deck []models.UserCard
	s.decode(env, &deck)
	s.Empty(deck)
	s.Len(s.cards(token), 1)
	s.False(fused.Card.IsInDeck)

	w, env = s.do(http.MethodGet, fmt.Sprintf("/api/v1/user/cards/%d", sacrifice.ID), nil, token)
	s.assertError(w, env, http.StatusNotFound, errors.ErrCardNotFound)
}

func (s *RouterTestSuite) TestDraw() {
	token := s.register("player").AccessToken

	w, env := s.do(http.MethodPost, "/api/v1/user/cards/draw", nil, token)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var result service.DrawResult
	s.decode(env, &result)
	s.Equal(int64(900), result.Gold)
	s.Equal(models.ObtainedGacha, result.Card.ObtainedFrom)
	s.Len(s.cards(token), 3)
}

func (s *RouterTestSuite) TestBattle() {
	token := s.register("player").AccessToken

	w, env := s.do(http.MethodPost, "/api/v1/battle/start", gin.H{"battle_type": "pve"}, token)
	s.assertError(w, env, http.StatusConflict, errors.ErrEmptyDeck)

	cards := s.cards(token)
	for i, card := range cards {
		w, _ = s.do(http.MethodPut, fmt.Sprintf("/api/v1/user/cards/%d/deck", card.ID), gin.H{"action": "add", "position": i + 1}, token)
		s.Require().Equal(http.StatusOK, w.Code)
	}

	w, env = s.do(http.MethodPost, "/api/v1/battle/start", gin.H{"battle_type": "raid"}, token)
	s.assertError(w, env, http.StatusBadRequest, errors.ErrInvalidBattleType)

	w, env = s.do(http.MethodPost, "/api/v1/battle/start", gin.H{"battle_type": "pve"}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var result service.BattleResult
	s.decode(env, &result)
	s.NotEmpty(result.Battle.BattleNo)
	s.Equal(40, result.Energy)

	w, env = s.do(http.MethodGet, "/api/v1/battle/history?limit=10", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var history service.BattleHistory
	s.decode(env, &history)
	s.Len(history.Battles, 1)
	s.False(history.HasMore)

	w, env = s.do(http.MethodGet, "/api/v1/battle/history?winner=nobody", nil, token)
	s.assertError(w, env, http.StatusBadRequest, errors.ErrInvalidParam)

	w, env = s.do(http.MethodGet, "/api/v1/user/stats", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var stats service.UserStats
	s.decode(env, &stats)
	s.Equal(int64(1), stats.TotalBattle)
	s.Equal(2, stats.DeckSize)
}

func (s *RouterTestSuite) TestProfileAndPassword() {
	token := s.register("player").AccessToken

	w, env := s.do(http.MethodPut, "/api/v1/user/profile", gin.H{"nickname": "  Hero "}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var user models.User
	s.decode(env, &user)
	s.Equal("Hero", user.Nickname)

	w, env = s.do(http.MethodPut, "/api/v1/user/password", gin.H{"old_password": "nope", "new_password": "newpass123"}, token)
	s.assertError(w, env, http.StatusUnauthorized, errors.ErrAuthentication)

	w, _ = s.do(http.MethodPut, "/api/v1/user/password", gin.H{"old_password": "password123", "new_password": "newpass123"}, token)
	s.Require().Equal(http.StatusOK, w.Code)

	// 修改密码后旧令牌失效
	w, _ = s.do(http.MethodGet, "/api/v1/user/profile", nil, token)
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"account": "player", "password": "newpass123"}, "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterTestSuite) TestAdmin() {
	admin := s.register("admin")
	player := s.register("player")

	w, env := s.do(http.MethodPost, "/api/v1/admin/seed", nil, admin.AccessToken)
	s.assertError(w, env, http.StatusForbidden, errors.ErrPermissionDenied)

	s.Require().NoError(s.services.Repos.GetDB().Model(&models.User{}).
		Where("id = ?", admin.User.ID).Update("role", models.RoleAdmin).Error)
	w, env = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"account": "admin", "password": "password123"}, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var login service.AuthResponse
	s.decode(env, &login)

	w, env = s.do(http.MethodPost, "/api/v1/admin/seed", nil, login.AccessToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var seed service.SeedResult
	s.decode(env, &seed)
	s.Equal(service.SeedActionSkip, seed.Action)

	w, env = s.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/status", player.User.ID), gin.H{"status": "gone"}, login.AccessToken)
	s.assertError(w, env, http.StatusBadRequest, errors.ErrInvalidParam)

	w, _ = s.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/status", player.User.ID), gin.H{"status": service.UserStatusFrozen}, login.AccessToken)
	s.Require().Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/user/profile", nil, player.AccessToken)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterTestSuite) TestWebSocketNotifications() {
	token := s.register("player").AccessToken

	server := httptest.NewServer(s.router.Handler())
	defer server.Close()

	w, _ := s.do(http.MethodGet, "/api/v1/ws", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer conn.Close()

	read := func() *websocket.Message {
		require.NoError(s.T(), conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		s.Require().NoError(err)
		var msg websocket.Message
		s.Require().NoError(json.Unmarshal(data, &msg))
		return &msg
	}
	s.Equal(websocket.MessageTypeConnected, read().Type)

	w, _ = s.do(http.MethodPost, "/api/v1/user/cards/draw", nil, token)
	s.Require().Equal(http.StatusCreated, w.Code)

	msg := read()
	s.Equal(service.EventCardDrawn, msg.Type)
	s.NotEmpty(msg.Data)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
