package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 用户相关（懒加载）
	userOnce sync.Once
	user     UserRepository

	userAuthOnce sync.Once
	userAuth     UserAuthRepository

	userSessionOnce sync.Once
	userSession     UserSessionRepository

	// 卡牌相关
	cardTemplateOnce sync.Once
	cardTemplate     CardTemplateRepository

	userCardOnce sync.Once
	userCard     UserCardRepository

	// 战斗相关
	battleOnce sync.Once
	battle     BattleRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Transaction 获取事务管理器
func (m *Manager) Transaction() TransactionManager {
	return m.txManager
}

// User 获取用户仓储
func (m *Manager) User() UserRepository {
	m.userOnce.Do(func() {
		m.user = NewUserRepository(m.db)
	})
	return m.user
}

// UserAuth 获取用户认证仓储
func (m *Manager) UserAuth() UserAuthRepository {
	m.userAuthOnce.Do(func() {
		m.userAuth = NewUserAuthRepository(m.db)
	})
	return m.userAuth
}

// UserSession 获取用户会话仓储
func (m *Manager) UserSession() UserSessionRepository {
	m.userSessionOnce.Do(func() {
		m.userSession = NewUserSessionRepository(m.db)
	})
	return m.userSession
}

// CardTemplate 获取卡牌模板仓储
func (m *Manager) CardTemplate() CardTemplateRepository {
	m.cardTemplateOnce.Do(func() {
		m.cardTemplate = NewCardTemplateRepository(m.db)
	})
	return m.cardTemplate
}

// UserCard 获取用户卡牌仓储
func (m *Manager) UserCard() UserCardRepository {
	m.userCardOnce.Do(func() {
		m.userCard = NewUserCardRepository(m.db)
	})
	return m.userCard
}

// Battle 获取战斗记录仓储
func (m *Manager) Battle() BattleRepository {
	m.battleOnce.Do(func() {
		m.battle = NewBattleRepository(m.db)
	})
	return m.battle
}

// WithTransaction 在事务中执行操作
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}

// UnitOfWork 工作单元模式实现
type UnitOfWork struct {
	manager    *Manager
	operations []func(*Transaction) error
}

// NewUnitOfWork 创建工作单元
func NewUnitOfWork(manager *Manager) *UnitOfWork {
	return &UnitOfWork{
		manager:    manager,
		operations: make([]func(*Transaction) error, 0),
	}
}

// Register 注册操作
func (u *UnitOfWork) Register(op func(*Transaction) error) {
	u.operations = append(u.operations, op)
}

// Len 已注册的操作数
func (u *UnitOfWork) Len() int {
	return len(u.operations)
}

// Commit 在同一事务中按注册顺序执行所有操作
func (u *UnitOfWork) Commit(ctx context.Context) error {
	return u.manager.WithTransaction(ctx, func(tx *Transaction) error {
		for _, op := range u.operations {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear 清除所有操作
func (u *UnitOfWork) Clear() {
	u.operations = u.operations[:0]
}
