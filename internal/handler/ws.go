package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/auth"
	"github.com/BuzzLyutic/tasksync/internal/config"
	"github.com/BuzzLyutic/tasksync/internal/hub"
	"github.com/BuzzLyutic/tasksync/internal/middleware"
	"github.com/BuzzLyutic/tasksync/pkg/respond"
)

// WSHandler is the persistent-connection gateway. The token is checked once,
// before the upgrade; a connection that fails never becomes live.
type WSHandler struct {
	verifier   middleware.Verifier
	registry   *hub.Registry
	upgrader   websocket.Upgrader
	client     hub.ClientConfig
	sendBuffer int
	logger     *zap.Logger
}

func NewWSHandler(v middleware.Verifier, registry *hub.Registry, cfg config.WSConfig, origins []string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		verifier: v,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigins(origins),
		},
		client: hub.ClientConfig{
			WriteWait:      cfg.WriteWait,
			PongWait:       cfg.PongWait,
			PingInterval:   cfg.PingInterval,
			MaxMessageSize: cfg.MaxMessageSize,
		},
		sendBuffer: cfg.SendBuffer,
		logger:     logger,
	}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Verify(auth.HandshakeToken(r))
	if err != nil {
		h.logger.Info("websocket handshake rejected", zap.Error(err))
		respond.Error(w, r, http.StatusUnauthorized, "authentication error: invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := hub.NewSession(identity.OwnerID, h.sendBuffer)
	if err := h.registry.Register(identity.OwnerID, session); err != nil {
		h.logger.Error("failed to register session", zap.Error(err))
		conn.Close()
		return
	}
	// every exit path of Run ends here: peer close, missed pong, write
	// failure, token expiry, shutdown
	defer func() {
		h.registry.Unregister(session)
		session.Close()
	}()

	hub.NewClient(conn, session, identity.ExpiresAt, h.client, h.logger).Run(r.Context())
}

func allowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
