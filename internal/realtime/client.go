// Package realtime relays chat messages and call signaling over WebSockets.
// Delivery is best effort: frames to disconnected or slow peers are dropped and
// nothing is queued for later.
package realtime

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"conduit/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Outbound frame types.
const (
	FrameConnected   = "connected"
	FrameError       = "error"
	FramePong        = "pong"
	FrameNewMessage  = "new_message"
	FrameMessageSent = "message_sent"
	FrameUserJoined  = "user_joined"
	FrameUserLeft    = "user_left"
	FrameCallEnded   = "call_ended"
)

// Frame is the JSON envelope written to clients.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// inbound is the JSON envelope read from clients.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorFrame(code, message string) Frame {
	return Frame{Type: FrameError, Data: errorData{Code: code, Message: message}}
}

// NewUpgrader returns a WebSocket upgrader that accepts requests without an Origin
// header (native clients) or from one of allowedOrigins. "*" allows any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
		},
	}
}

// client owns one WebSocket. Writes are serialised by mu; a failed write closes the socket.
type client struct {
	userID  string
	channel string
	ws      *websocket.Conn

	mu        sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(ws *websocket.Conn, userID, channel string) *client {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	c := &client{userID: userID, channel: channel, ws: ws, done: make(chan struct{})}
	metrics.WebSocketConnections.WithLabelValues(channel).Inc()
	go c.keepAlive()
	return c
}

func (c *client) send(f Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		metrics.WebSocketMessagesDropped.WithLabelValues(c.channel).Inc()
		return false
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(f); err != nil {
		metrics.WebSocketMessagesDropped.WithLabelValues(c.channel).Inc()
		c.close()
		return false
	}
	return true
}

func (c *client) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		}
	}
}

// close sends a normal close frame and releases the socket. Safe to call repeatedly.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = c.ws.Close()
		metrics.WebSocketConnections.WithLabelValues(c.channel).Dec()
	})
}
