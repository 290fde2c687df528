package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// BeginWithOptions 使用选项开始事务
	BeginWithOptions(ctx context.Context, opts *TxOptions) (*Transaction, error)
	// WithTransaction 在事务中执行函数
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
	// WithTransactionOptions 使用选项在事务中执行函数
	WithTransactionOptions(ctx context.Context, opts *TxOptions, fn func(tx *Transaction) error) error
}

// TxOptions 事务选项
type TxOptions struct {
	// IsolationLevel 事务隔离级别
	IsolationLevel string
	// ReadOnly 是否只读事务
	ReadOnly bool
	// Timeout 事务超时时间（秒）
	Timeout int
}

// Transaction 事务包装器
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	// 事务中的仓储实例
	user         UserRepository
	userAuth     UserAuthRepository
	userSession  UserSessionRepository
	cardTemplate CardTemplateRepository
	userCard     UserCardRepository
	battle       BattleRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	return m.BeginWithOptions(ctx, nil)
}

// BeginWithOptions 使用选项开始事务
func (m *txManager) BeginWithOptions(ctx context.Context, opts *TxOptions) (*Transaction, error) {
	tx := m.db.WithContext(ctx)

	// 开始事务
	tx = tx.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	// 应用事务选项，SQLite不支持SET TRANSACTION
	if opts != nil && tx.Dialector.Name() != "sqlite" {
		if opts.IsolationLevel != "" {
			if err := tx.Exec(fmt.Sprintf("SET TRANSACTION ISOLATION LEVEL %s", opts.IsolationLevel)).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		if opts.ReadOnly {
			if err := tx.Exec("SET TRANSACTION READ ONLY").Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions 使用选项在事务中执行函数
func (m *txManager) WithTransactionOptions(ctx context.Context, opts *TxOptions, fn func(tx *Transaction) error) error {
	tx, err := m.BeginWithOptions(ctx, opts)
	if err != nil {
		return err
	}

	// 确保事务被处理
	defer func() {
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	// 执行业务逻辑
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	// 提交事务
	return tx.Commit()
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return err
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Rollback().Error; err != nil {
		return err
	}

	t.rolledback = true
	return nil
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// User 获取事务中的用户仓储
func (t *Transaction) User() UserRepository {
	if t.user == nil {
		t.user = &userRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.user
}

// UserAuth 获取事务中的用户认证仓储
func (t *Transaction) UserAuth() UserAuthRepository {
	if t.userAuth == nil {
		t.userAuth = &userAuthRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.userAuth
}

// UserSession 获取事务中的用户会话仓储
func (t *Transaction) UserSession() UserSessionRepository {
	if t.userSession == nil {
		t.userSession = &userSessionRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.userSession
}

// CardTemplate 获取事务中的卡牌模板仓储
func (t *Transaction) CardTemplate() CardTemplateRepository {
	if t.cardTemplate == nil {
		t.cardTemplate = &cardTemplateRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.cardTemplate
}

// UserCard 获取事务中的用户卡牌仓储
func (t *Transaction) UserCard() UserCardRepository {
	if t.userCard == nil {
		t.userCard = &userCardRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.userCard
}

// Battle 获取事务中的战斗记录仓储
func (t *Transaction) Battle() BattleRepository {
	if t.battle == nil {
		t.battle = &battleRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.battle
}

// SavePoint 创建保存点
func (t *Transaction) SavePoint(name string) error {
	return t.tx.SavePoint(name).Error
}

// RollbackToSavePoint 回滚到保存点
func (t *Transaction) RollbackToSavePoint(name string) error {
	return t.tx.RollbackTo(name).Error
}

// TransactionHelper 事务辅助函数
type TransactionHelper struct {
	manager TransactionManager
}

// NewTransactionHelper 创建事务辅助器
func NewTransactionHelper(manager TransactionManager) *TransactionHelper {
	return &TransactionHelper{manager: manager}
}

// ExecuteInTransaction 在事务中执行多个操作
func (h *TransactionHelper) ExecuteInTransaction(ctx context.Context, operations ...func(tx *Transaction) error) error {
	return h.manager.WithTransaction(ctx, func(tx *Transaction) error {
		for i, op := range operations {
			// 创建保存点
			savePoint := fmt.Sprintf("sp_%d", i)
			if err := tx.SavePoint(savePoint); err != nil {
				return err
			}

			// 执行操作
			if err := op(tx); err != nil {
				// 回滚到保存点
				tx.RollbackToSavePoint(savePoint)
				return err
			}
		}
		return nil
	})
}

// RunInReadOnlyTransaction 在只读事务中执行
func (h *TransactionHelper) RunInReadOnlyTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	opts := &TxOptions{
		ReadOnly: true,
	}
	return h.manager.WithTransactionOptions(ctx, opts, fn)
}

// RunWithRetry 带重试的事务执行
func (h *TransactionHelper) RunWithRetry(ctx context.Context, maxRetries int, fn func(tx *Transaction) error) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := h.manager.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err

		// 检查是否是可重试的错误（如死锁）
		if !isRetryableError(err) {
			return err
		}

		// 指数退避
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(1<<uint(i)) * 50 * time.Millisecond):
		}
	}

	return fmt.Errorf("事务执行失败，已重试%d次: %w", maxRetries, lastErr)
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	errStr := err.Error()

	// MySQL死锁错误
	if contains(errStr, "Deadlock") {
		return true
	}

	// PostgreSQL死锁错误
	if contains(errStr, "deadlock detected") {
		return true
	}

	// SQLite锁冲突
	if contains(errStr, "database is locked") {
		return true
	}

	// 连接错误
	if contains(errStr, "connection") && contains(errStr, "timeout") {
		return true
	}

	return false
}

// contains 检查字符串是否包含子串
func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// 事务隔离级别常量
const (
	// IsolationLevelReadUncommitted 读未提交
	IsolationLevelReadUncommitted = "READ UNCOMMITTED"
	// IsolationLevelReadCommitted 读已提交
	IsolationLevelReadCommitted = "READ COMMITTED"
	// IsolationLevelRepeatableRead 可重复读
	IsolationLevelRepeatableRead = "REPEATABLE READ"
	// IsolationLevelSerializable 串行化
	IsolationLevelSerializable = "SERIALIZABLE"
)
