package realtime

import (
	"net/http"
	"time"

	"github.com/comanda-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 跨域由 CORS 中间件与令牌校验约束
	},
}

// ServeWS 升级连接并推送租户事件，直到客户端断开
func ServeWS(c *gin.Context, hub *Hub, tenantID uint, filter func(Event) bool) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnw("realtime_ws_upgrade_failed", "tenant_id", tenantID, "error", err)
		return
	}
	sub := hub.Subscribe(tenantID, filter)
	logger.Debugw("realtime_ws_connected", "tenant_id", tenantID, "subscribers", hub.SubscriberCount(tenantID))

	done := make(chan struct{})
	go readPump(conn, done)
	writePump(conn, sub, done)

	sub.Close()
	_ = conn.Close()
	logger.Debugw("realtime_ws_disconnected", "tenant_id", tenantID, "dropped", sub.Dropped())
}

// readPump 只处理 pong 与关闭；客户端不通过该通道写入业务数据
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warnw("realtime_ws_read_failed", "error", err)
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case event, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
