package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/codecraft-ai/backend/internal/infrastructure/monitoring"
	"github.com/codecraft-ai/backend/internal/logging"
	"github.com/codecraft-ai/backend/internal/shared/id"
	"github.com/codecraft-ai/backend/internal/shared/types"
)

// Client roles.
const (
	RoleHost    = "host"
	RolePreview = "preview"
)

// Message types on the bridge.
const (
	TypeElementSelect      = "element-select"
	TypeUpdateElementText  = "update-element-text"
	TypeSessionNameUpdated = "session-name-updated"
	TypeComponentUpdated   = "component-updated"
	TypePing               = "ping"
	TypePong               = "pong"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin policy is enforced by CORS on the HTTP surface
	},
}

// Message is the bridge envelope. Unknown fields are dropped on re-encode.
type Message struct {
	Type      string `json:"type"`
	Selector  string `json:"selector,omitempty"`
	Tag       string `json:"tag,omitempty"`
	ClassName string `json:"className,omitempty"`
	ID        string `json:"id,omitempty"`
	Text      string `json:"text,omitempty"`
	Name      string `json:"name,omitempty"`
	JSX       string `json:"jsx,omitempty"`
	CSS       string `json:"css,omitempty"`
}

// TokenVerifier resolves host bearer tokens.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	role string
}

type channel struct {
	key      string
	hosts    map[*client]bool
	previews map[*client]bool
}

// Bridge routes messages between hosts and previews of the same session.
type Bridge struct {
	verifier  TokenVerifier
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	sanitizer *bluemonday.Policy

	mu       sync.RWMutex
	channels map[string]*channel
}

func NewBridge(verifier TokenVerifier, logger *logging.Logger, metrics *monitoring.Metrics) *Bridge {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Bridge{
		verifier:  verifier,
		logger:    logger,
		metrics:   metrics,
		sanitizer: bluemonday.StrictPolicy(),
		channels:  make(map[string]*channel),
	}
}

// ChannelKey returns the session's preview key, minting one on first use.
func (b *Bridge) ChannelKey(sessionID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := b.ensureChannelLocked(sessionID)
	return ch.key
}

func (b *Bridge) ensureChannelLocked(sessionID string) *channel {
	ch, ok := b.channels[sessionID]
	if !ok {
		ch = &channel{
			key:      id.NewChannelID().String(),
			hosts:    make(map[*client]bool),
			previews: make(map[*client]bool),
		}
		b.channels[sessionID] = ch
	}
	return ch
}

// HandleConnection upgrades a websocket client. Hosts present a bearer
// token, previews present the channel key.
func (b *Bridge) HandleConnection(c *gin.Context) {
	sessionID := c.Query("session")
	role := c.Query("role")
	if sessionID == "" || (role != RoleHost && role != RolePreview) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session and role required"})
		return
	}

	switch role {
	case RoleHost:
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c.GetHeader("Authorization"))
		}
		if _, err := b.verifier.Verify(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	case RolePreview:
		if c.Query("key") != b.ChannelKey(sessionID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid channel key"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer), role: role}

	b.mu.Lock()
	ch := b.ensureChannelLocked(sessionID)
	if role == RoleHost {
		ch.hosts[cl] = true
	} else {
		ch.previews[cl] = true
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.WSConnections.Inc()
	}

	go b.writePump(cl)
	b.readPump(sessionID, cl)
}

func (b *Bridge) readPump(sessionID string, cl *client) {
	defer b.drop(sessionID, cl)

	cl.conn.SetReadLimit(1 << 20)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		b.record("in", msg.Type)

		switch {
		case msg.Type == TypePing:
			b.deliver(cl, Message{Type: TypePong})

		case cl.role == RolePreview && msg.Type == TypeElementSelect:
			msg.Text = b.sanitizer.Sanitize(msg.Text)
			b.broadcast(sessionID, RoleHost, msg)

		case cl.role == RoleHost && msg.Type == TypeUpdateElementText:
			msg.Text = b.sanitizer.Sanitize(msg.Text)
			b.broadcast(sessionID, RolePreview, msg)

		default:
			// Outside the allowed vocabulary for this role.
			b.logger.Debug("dropped bridge message",
				zap.String("role", cl.role), zap.String("type", msg.Type))
		}
	}
}

func (b *Bridge) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Bridge) drop(sessionID string, cl *client) {
	b.mu.Lock()
	if ch, ok := b.channels[sessionID]; ok {
		delete(ch.hosts, cl)
		delete(ch.previews, cl)
	}
	b.mu.Unlock()

	close(cl.send)
	cl.conn.Close()
	if b.metrics != nil {
		b.metrics.WSConnections.Dec()
	}
}

// broadcast sends a message to every client of the given role.
func (b *Bridge) broadcast(sessionID, role string, msg Message) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	b.record("out", msg.Type)

	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.channels[sessionID]
	if !ok {
		return
	}

	targets := ch.hosts
	if role == RolePreview {
		targets = ch.previews
	}
	for cl := range targets {
		select {
		case cl.send <- data:
		default:
			// Slow client; drop the message rather than the bridge.
		}
	}
}

func (b *Bridge) deliver(cl *client, msg Message) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case cl.send <- data:
	default:
	}
}

func (b *Bridge) record(direction, msgType string) {
	if b.metrics != nil {
		b.metrics.WSMessages.WithLabelValues(direction, msgType).Inc()
	}
}

// SessionNameUpdated notifies hosts that the session was renamed.
func (b *Bridge) SessionNameUpdated(sessionID, name string) {
	b.broadcast(sessionID, RoleHost, Message{Type: TypeSessionNameUpdated, Name: name})
}

// ElementTextUpdated pushes a live text edit to previews and hosts.
func (b *Bridge) ElementTextUpdated(sessionID, selector, text string) {
	msg := Message{Type: TypeUpdateElementText, Selector: selector, Text: text}
	b.broadcast(sessionID, RolePreview, msg)
	b.broadcast(sessionID, RoleHost, msg)
}

// ComponentUpdated tells hosts to reload the preview with new code.
func (b *Bridge) ComponentUpdated(sessionID string, component types.WorkingComponent) {
	b.broadcast(sessionID, RoleHost, Message{
		Type: TypeComponentUpdated,
		JSX:  component.Body,
		CSS:  component.Style,
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
