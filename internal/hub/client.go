package hub

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ClientConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// Client pumps a session's events onto a WebSocket connection.
// Clients never send commands over the socket; inbound frames are read only
// to process pongs and detect a closed peer.
type Client struct {
	conn      *websocket.Conn
	session   *Session
	expiresAt time.Time
	cfg       ClientConfig
	logger    *zap.Logger
}

func NewClient(conn *websocket.Conn, session *Session, expiresAt time.Time, cfg ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		conn:      conn,
		session:   session,
		expiresAt: expiresAt,
		cfg:       cfg,
		logger: logger.With(
			zap.String("owner_id", session.OwnerID()),
			zap.String("session_id", session.ID()),
		),
	}
}

// Run blocks until the connection is finished: peer close, read or write
// error, missed pong, token expiry, session close or ctx cancellation.
// On return the session is closed and the connection released.
func (c *Client) Run(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	c.readPump()
	c.session.Close()
	<-writerDone
}

func (c *Client) readPump() {
	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("connection closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	expiry := time.NewTimer(time.Until(c.expiresAt))
	defer func() {
		ticker.Stop()
		expiry.Stop()
		c.session.Close()
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.session.Events():
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteJSON(ev.Frame()); err != nil {
				c.logger.Warn("failed to write event", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-expiry.C:
			c.logger.Info("token expired, closing session")
			c.closeWith(websocket.ClosePolicyViolation, "token expired")
			return
		case <-c.session.Done():
			c.closeWith(websocket.CloseNormalClosure, "")
			return
		case <-ctx.Done():
			c.closeWith(websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (c *Client) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
}
