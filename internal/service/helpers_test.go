package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/game"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier 记录推送的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(_ uint, event string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// testEnv 服务层测试环境
type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	svc      *Services
	clock    *fakeClock
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, rng game.RandomGenerator, configure ...func(*Config)) *testEnv {
	t.Helper()
	db := repository.SetupTestDB()
	t.Cleanup(func() { repository.CleanupTestDB(db) })

	config := DefaultConfig()
	config.JWTSecret = "test-secret"
	config.Password = utils.PasswordParams{Time: 1, Memory: 1024, Threads: 1}
	for _, fn := range configure {
		fn(config)
	}
	if rng == nil {
		rng = game.NewSequenceRandomGenerator(0.5)
	}

	env := &testEnv{
		t:        t,
		db:       db,
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
	}
	env.svc = NewServices(db, config, zap.NewNop(),
		WithClock(env.clock.Now),
		WithRandom(rng),
		WithNotifier(env.notifier),
	)
	return env
}

// createUser 创建用户，体力恢复时间为当前时钟
func (e *testEnv) createUser(username string, energy int) *models.User {
	e.t.Helper()
	user := repository.CreateTestUser(e.t, e.db, username)
	e.setEnergy(user.ID, energy, e.clock.Now())
	user.Energy = energy
	user.LastEnergyRefill = e.clock.Now()
	return user
}

func (e *testEnv) setEnergy(userID uint, energy int, refill time.Time) {
	e.t.Helper()
	require.NoError(e.t, e.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"energy":             energy,
		"last_energy_refill": refill,
	}).Error)
}

func (e *testEnv) reloadUser(userID uint) *models.User {
	e.t.Helper()
	var user models.User
	require.NoError(e.t, e.db.First(&user, userID).Error)
	return &user
}

func (e *testEnv) reloadCard(cardID uint) *models.UserCard {
	e.t.Helper()
	var card models.UserCard
	require.NoError(e.t, e.db.First(&card, cardID).Error)
	return &card
}

func (e *testEnv) updateCard(card *models.UserCard, updates map[string]interface{}) {
	e.t.Helper()
	require.NoError(e.t, e.db.Model(&models.UserCard{}).Where("id = ?", card.ID).Updates(updates).Error)
}

func (e *testEnv) count(model interface{}) int64 {
	e.t.Helper()
	var n int64
	require.NoError(e.t, e.db.Model(model).Count(&n).Error)
	return n
}
