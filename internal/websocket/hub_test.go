package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	handler := NewHandler(hub, 1024, 1024, Options{}, func(c *gin.Context) (uint, bool) {
		id, err := strconv.Atoi(c.Query("uid"))
		return uint(id), err == nil && id > 0
	})
	engine := gin.New()
	engine.GET("/ws", handler.Serve)

	server := httptest.NewServer(engine)
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return &msg
}

func TestHub_NotifyUser(t *testing.T) {
	hub, url := setupServer(t)

	conn := dial(t, url+"?uid=7")
	assert.Equal(t, MessageTypeConnected, readMessage(t, conn).Type)
	other := dial(t, url+"?uid=8")
	assert.Equal(t, MessageTypeConnected, readMessage(t, other).Type)

	require.Eventually(t, func() bool { return hub.IsOnline(7) && hub.IsOnline(8) }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, hub.GetOnlineCount())

	hub.Notify(7, "card_fused", map[string]int{"attack_gain": 3})

	msg := readMessage(t, conn)
	assert.Equal(t, "card_fused", msg.Type)
	assert.Equal(t, uint(7), msg.UserID)
	assert.JSONEq(t, `{"attack_gain":3}`, string(msg.Data))

	// 其他用户收不到
	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_PingPongAndDisconnect(t *testing.T) {
	hub, url := setupServer(t)

	conn := dial(t, url+"?uid=3")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "spin"}))
	assert.Equal(t, MessageTypeError, readMessage(t, conn).Type)

	conn.Close()
	require.Eventually(t, func() bool { return !hub.IsOnline(3) }, time.Second, 10*time.Millisecond)

	// 离线时推送直接丢弃
	hub.Notify(3, "energy_updated", nil)
	assert.Equal(t, ErrUserNotConnected, hub.SendToUser(3, &Message{Type: "x"}))
}

func TestHandler_RequiresUser(t *testing.T) {
	_, url := setupServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
