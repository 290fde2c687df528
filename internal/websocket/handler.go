package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler 将已认证的HTTP请求升级为推送连接
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	opts     Options
	userID   func(c *gin.Context) (uint, bool)
}

// NewHandler 创建WebSocket处理器，userID从认证中间件写入的上下文读取
func NewHandler(hub *Hub, readBuffer, writeBuffer int, opts Options, userID func(c *gin.Context) (uint, bool)) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			// 跨域由CORS中间件和令牌校验控制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts:   opts,
		userID: userID,
	}
}

// Serve 处理WebSocket握手
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("WebSocket升级失败", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, userID, h.opts)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
