// Package httpserver exposes the HTTP surface: health, the contact listing,
// and the /ws endpoint where voice sessions are admitted and run.
package httpserver

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/config"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/contacts"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/relay"
)

// contactListLimit caps the /api/contacts response.
const contactListLimit = 50

// DialFunc opens the upstream leg for one new session.
type DialFunc func(ctx context.Context) (relay.Upstream, error)

// Server bundles the router, the contact store, and the upstream dialer.
type Server struct {
	Echo *echo.Echo

	store    contacts.Store
	dial     DialFunc
	maxConns int64
	opts     relay.Options
	upgrader websocket.Upgrader

	active atomic.Int64
}

// New constructs the HTTP server with routes.
func New(cfg config.Config, store contacts.Store, dial DialFunc) *Server {
	s := &Server{
		Echo:     newRouter(cfg.FrontendURL),
		store:    store,
		dial:     dial,
		maxConns: int64(cfg.MaxConnections),
		opts:     relay.Options{SetupTimeout: cfg.SetupTimeout},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  65536,
			WriteBufferSize: 65536,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == cfg.FrontendURL
			},
		},
	}

	s.Echo.GET("/health", s.health)
	s.Echo.GET("/api/contacts", s.listContacts)
	s.Echo.GET("/ws", s.handleWS)
	return s
}

// ActiveSessions reports the number of live voice sessions.
func (s *Server) ActiveSessions() int64 { return s.active.Load() }

func (s *Server) health(c echo.Context) error {
	if _, err := s.store.List(c.Request().Context(), 1); err != nil {
		log.Printf("health: store unreachable: %v", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  "unreachable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"store":  "reachable",
	})
}

func (s *Server) listContacts(c echo.Context) error {
	list, err := s.store.List(c.Request().Context(), contactListLimit)
	if err != nil {
		log.Printf("list contacts: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list contacts"})
	}
	if list == nil {
		list = []contacts.Contact{}
	}
	return c.JSON(http.StatusOK, list)
}

// handleWS admits a session against the connection ceiling, upgrades, dials
// the upstream, and runs the relay until either leg closes.
func (s *Server) handleWS(c echo.Context) error {
	if s.active.Add(1) > s.maxConns {
		s.active.Add(-1)
		// Upgrade anyway so the client receives a proper close frame
		// instead of a bare HTTP error.
		conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return nil
		}
		closeWith(conn, relay.CloseCodePolicy, "Server at capacity")
		return nil
	}
	defer s.active.Add(-1)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return nil
	}

	up, err := s.dial(c.Request().Context())
	if err != nil {
		log.Printf("upstream dial: %v", err)
		_ = conn.WriteJSON(relay.ServerMessage{Type: relay.MsgError, Data: "failed to reach speech service"})
		closeWith(conn, websocket.CloseInternalServerErr, "upstream unavailable")
		return nil
	}

	sess := relay.NewSession(conn, up, s.store, s.opts)
	sess.Run(c.Request().Context())
	return nil
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
