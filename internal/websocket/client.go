package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrClientNotFound   = errors.New("客户端未找到")
	ErrUserNotConnected = errors.New("用户未连接")
	ErrSendBufferFull   = errors.New("发送缓冲区已满")
)

// 写超时
const writeWait = 10 * time.Second

// Options 连接参数
type Options struct {
	MaxMessageSize int64
	PingInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 8192
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// pongWait 读取pong超时，必须大于ping周期
func (o Options) pongWait() time.Duration {
	return o.PingInterval * 10 / 9
}

// Client WebSocket客户端
type Client struct {
	ID     string          // 客户端ID
	UserID uint            // 用户ID
	Hub    *Hub            // Hub引用
	Conn   *websocket.Conn // WebSocket连接
	Send   chan []byte     // 发送通道

	opts Options
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, opts Options) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		opts:   opts.withDefaults(),
	}
}

// ReadPump 读取消息，连接是只推送的，客户端只允许发送ping
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.opts.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.opts.pongWait()))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.opts.pongWait()))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("消息格式错误")
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.Hub.SendToClient(c.ID, &Message{Type: MessageTypePong, Timestamp: time.Now().Unix()})
	case MessageTypePong:
	default:
		c.Hub.logger.Debug("忽略客户端消息",
			zap.String("client_id", c.ID),
			zap.String("type", msg.Type))
		c.sendError("不支持的消息类型: " + msg.Type)
	}
}

// sendError 发送错误消息
func (c *Client) sendError(message string) {
	payload, _ := json.Marshal(map[string]string{"error": message})
	c.Hub.SendToClient(c.ID, &Message{
		Type:      MessageTypeError,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
}
