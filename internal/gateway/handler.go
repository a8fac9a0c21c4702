package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"railquiz/internal/auth"
	"railquiz/internal/session"
)

// Application close codes. Sent after the upgrade completes so browser
// clients can read them; a plain HTTP 401 is invisible to the WebSocket
// API.
const (
	CloseTokenInvalid   = 4001
	CloseTokenExpired   = 4002
	CloseUnknownSession = 4004
)

// Handler upgrades /ws requests, authenticates them, and binds each
// connection to its session.
type Handler struct {
	store    *session.Store
	verifier *auth.Verifier
	registry *Registry
	cfg      ConnectionConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHandler(store *session.Store, verifier *auth.Verifier, registry *Registry, cfg ConnectionConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		verifier: verifier,
		registry: registry,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	identity, err := h.verifier.Verify(bearerToken(r))
	if err != nil {
		code := CloseTokenInvalid
		if errors.Is(err, auth.ErrTokenExpired) {
			code = CloseTokenExpired
		}
		closeWith(ws, code, err.Error())
		return
	}

	sess, err := h.store.Get(identity.SessionID)
	if err != nil {
		closeWith(ws, CloseUnknownSession, "unknown session")
		return
	}

	recipient := session.Recipient{
		ConnectionID: uuid.NewString(),
		Role:         identity.Role,
		PlayerID:     identity.PlayerID,
	}

	conn := newConnection(recipient, sess, ws, h.cfg, h.registry, h.logger)

	go conn.writePump()
	go conn.readPump()

	// Registration happens on the session loop, right before WELCOME, so
	// the first frames on this connection are always WELCOME then snapshot.
	if err := sess.Connect(recipient, func() {
		h.registry.add(sess.ID(), conn)
	}); err != nil {
		conn.closeNow()
		return
	}

	h.logger.Info().
		Str("connection_id", recipient.ConnectionID).
		Str("session_id", sess.ID()).
		Str("role", string(recipient.Role)).
		Msg("websocket connected")
}

// bearerToken pulls the session token from the Authorization header or,
// for browser clients that cannot set headers on WebSocket upgrades, the
// token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return after
		}
	}
	return r.URL.Query().Get("token")
}

func closeWith(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	ws.WriteMessage(websocket.CloseMessage, msg)
	ws.Close()
}
