// Package server exposes matches to clients over WebSocket: one
// connection per player, command frames in, acks and match events out.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/auragrid/auragrid-server-go/internal/auth"
	"github.com/auragrid/auragrid-server-go/internal/config"
	"github.com/auragrid/auragrid-server-go/internal/match"
	"github.com/auragrid/auragrid-server-go/internal/match/command"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
)

const (
	writeTimeout   = 10 * time.Second
	eventQueueSize = 64
)

// Gateway serves match connections.
type Gateway struct {
	cfg      config.ServerConfig
	manager  *match.Manager
	tokens   *auth.TokenStore
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates the WebSocket gateway.
func NewGateway(cfg config.ServerConfig, manager *match.Manager, tokens *auth.TokenStore, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		cfg:     cfg,
		manager: manager,
		tokens:  tokens,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// createMatchResponse is returned from POST /matches.
type createMatchResponse struct {
	MatchID   string `json:"match_id"`
	JoinToken string `json:"join_token"`
}

// ackFrame answers one command frame.
type ackFrame struct {
	Ack    bool   `json:"ack"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// eventFrame pushes one match event to the client.
type eventFrame struct {
	Event  rules.EventType `json:"event"`
	Phase  string          `json:"phase,omitempty"`
	Player int             `json:"player,omitempty"`
	UnitID int             `json:"unit_id,omitempty"`
	Amount int             `json:"amount,omitempty"`
	X      int             `json:"x,omitempty"`
	Y      int             `json:"y,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// Run serves until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /matches", g.handleCreateMatch)
	mux.HandleFunc(g.cfg.WebSocket.Path, g.handleMatchSocket)

	srv := &http.Server{
		Addr:    g.cfg.WebSocket.Address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	g.logger.Info("websocket gateway listening",
		zap.String("address", g.cfg.WebSocket.Address),
		zap.String("path", g.cfg.WebSocket.Path),
	)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	if g.manager.Count() >= g.cfg.MaxSessions {
		http.Error(w, "session limit reached", http.StatusServiceUnavailable)
		return
	}

	var fwd command.Forwarder
	if g.cfg.BackendURL != "" {
		dialed, err := command.DialBackend(g.cfg.BackendURL, g.logger)
		if err != nil {
			g.logger.Error("backend dial failed", zap.Error(err))
			http.Error(w, "backend unavailable", http.StatusBadGateway)
			return
		}
		fwd = dialed
	}

	s := g.manager.Create(fwd)
	token, err := g.tokens.Issue(s.ID)
	if err != nil {
		g.manager.Remove(s.ID)
		http.Error(w, "failed to issue join token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(createMatchResponse{MatchID: s.ID, JoinToken: token})
}

func (g *Gateway) handleMatchSocket(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match")
	token := r.URL.Query().Get("token")

	if !g.tokens.Verify(matchID, token) {
		http.Error(w, "invalid join token", http.StatusUnauthorized)
		return
	}
	session, err := g.manager.Get(matchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	g.logger.Info("client connected",
		zap.String("match_id", matchID),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	g.serveConn(conn, session)
}

// serveConn pumps events out and commands in until the client hangs up.
func (g *Gateway) serveConn(conn *websocket.Conn, session *match.Session) {
	defer conn.Close()

	// Match events arrive on the tick goroutine; buffer them toward the
	// writer. A slow client loses events rather than stalling the match.
	events := make(chan eventFrame, eventQueueSize)
	handle := session.Bus().Subscribe(func(e rules.Event) {
		frame := eventFrame{
			Event:  e.Type,
			Player: e.Player,
			UnitID: e.UnitID,
			Amount: e.Amount,
			X:      e.X,
			Y:      e.Y,
			Reason: e.Reason,
		}
		if e.Phase.Valid() {
			frame.Phase = e.Phase.String()
		}
		select {
		case events <- frame:
		default:
			g.logger.Warn("event queue full, dropping event",
				zap.String("match_id", session.ID),
				zap.String("event", string(e.Type)),
			)
		}
	})
	defer session.Bus().Unsubscribe(handle)

	// Writer goroutine owns all writes on this connection. The events
	// channel is never closed; once the writer exits, the buffer fills
	// and further events are dropped by the subscriber.
	acks := make(chan ackFrame, eventQueueSize)
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var payload any
			select {
			case frame := <-events:
				payload = frame
			case frame := <-acks:
				payload = frame
			case <-quit:
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		ok, reason := session.SubmitWire(data, nil)
		select {
		case acks <- ackFrame{Ack: true, OK: ok, Reason: reason}:
		case <-done:
			return
		}
	}
	close(quit)
	<-done
}
