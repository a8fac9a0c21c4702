package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"railquiz/internal/session"
)

// ConnectionConfig holds the per-connection transport knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// Connection is one live WebSocket. Outbound frames flow through send so
// the write pump is the sole writer on the socket.
type Connection struct {
	recipient session.Recipient
	sess      *session.Session
	conn      *websocket.Conn
	send      chan []byte
	cfg       ConnectionConfig
	registry  *Registry
	logger    zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(r session.Recipient, sess *session.Session, ws *websocket.Conn, cfg ConnectionConfig, reg *Registry, logger zerolog.Logger) *Connection {
	return &Connection{
		recipient: r,
		sess:      sess,
		conn:      ws,
		send:      make(chan []byte, cfg.SendBuffer),
		done:      make(chan struct{}),
		cfg:       cfg,
		registry:  reg,
		logger: logger.With().
			Str("connection_id", r.ConnectionID).
			Str("session_id", sess.ID()).
			Logger(),
	}
}

// enqueue queues a frame without blocking; false means the connection is
// closing or its buffer is full. The send channel is never closed, so
// concurrent fanout cannot race a shutdown.
func (c *Connection) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// reply delivers session responses addressed to this connection only.
func (c *Connection) reply(data []byte) {
	if !c.enqueue(data) {
		c.logger.Warn().Msg("reply dropped, send buffer full")
	}
}

func (c *Connection) closeNow() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.registry.remove(c.sess.ID(), c)
		c.closeNow()
		if err := c.sess.Disconnect(c.recipient); err != nil {
			c.logger.Debug().Err(err).Msg("disconnect after session close")
		}
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("unexpected close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		if err := c.sess.Submit(c.recipient, data, c.reply); err != nil {
			c.logger.Debug().Err(err).Msg("command dropped, session closed")
			return
		}
	}
}
