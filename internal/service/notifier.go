package service

// 推送事件类型
const (
	EventEnergyUpdated   = "energy_updated"
	EventCardFused       = "card_fused"
	EventBattleCompleted = "battle_completed"
	EventCardDrawn       = "card_drawn"
)

// Notifier 向用户推送事件，在事务提交后调用
type Notifier interface {
	Notify(userID uint, event string, data interface{})
}

// NopNotifier 不推送任何事件
type NopNotifier struct{}

// Notify 忽略事件
func (NopNotifier) Notify(uint, string, interface{}) {}
