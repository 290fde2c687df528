package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"` // 消息类型
	UserID    uint            `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"` // 消息数据
	Timestamp int64           `json:"timestamp"`      // 时间戳
}

// 系统消息类型，业务事件类型与service中的事件名一致
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// Hub WebSocket连接管理中心，按用户推送游戏事件
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 用户ID到客户端的映射
	userClients map[uint][]*Client
	userMu      sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		userClients: make(map[uint][]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run 运行Hub直到ctx结束，结束时断开所有客户端
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.userMu.Lock()
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	h.userMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID))

	h.SendToClient(client.ID, &Message{
		Type:      MessageTypeConnected,
		UserID:    client.UserID,
		Timestamp: time.Now().Unix(),
	})
}

// unregisterClient 注销客户端，重复注销无副作用
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
	h.clientsMu.Unlock()

	h.userMu.Lock()
	clients := h.userClients[client.UserID]
	for i, c := range clients {
		if c.ID == client.ID {
			h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.userMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID))
}

func (h *Hub) closeAll() {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		h.unregisterClient(c)
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToUser 发送消息给指定用户的所有客户端
func (h *Hub) SendToUser(userID uint, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.userMu.RLock()
	clients := append([]*Client(nil), h.userClients[userID]...)
	h.userMu.RUnlock()

	if len(clients) == 0 {
		return ErrUserNotConnected
	}

	// 持有clientsMu期间Send不会被关闭
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range clients {
		if _, ok := h.clients[client.ID]; !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("用户客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.Uint("user_id", userID))
		}
	}
	return nil
}

// Notify 推送游戏事件，用户不在线时丢弃
func (h *Hub) Notify(userID uint, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("序列化事件失败", zap.String("event", event), zap.Error(err))
		return
	}

	err = h.SendToUser(userID, &Message{
		Type:      event,
		UserID:    userID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
	switch {
	case err == nil:
		h.logger.Debug("推送事件", zap.String("event", event), zap.Uint("user_id", userID))
	case err != ErrUserNotConnected:
		h.logger.Warn("推送事件失败", zap.String("event", event), zap.Uint("user_id", userID), zap.Error(err))
	}
}

// IsOnline 用户是否有在线连接
func (h *Hub) IsOnline(userID uint) bool {
	h.userMu.RLock()
	defer h.userMu.RUnlock()
	return len(h.userClients[userID]) > 0
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端，Hub已停止时直接关闭发送通道
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
