package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/euforicio/deckmd/internal/hub"
	"github.com/euforicio/deckmd/internal/watch"
)

// ErrSerialization reports that a push message could not be encoded.
var ErrSerialization = errors.New("serialization failed")

// Event is the message pushed to open decks.
type Event struct {
	Type string `json:"type"`
}

// reloadEvent tells the browser to reload the deck.
var reloadEvent = Event{Type: "reload"}

func encodeEvent(evt Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return payload, nil
}

// relayReloads broadcasts a reload message for every change until ctx ends or
// the event stream closes.
func (s *Server) relayReloads(ctx context.Context, events <-chan watch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := encodeEvent(reloadEvent)
			if err != nil {
				s.logger.Error("encode reload event", slog.Any("err", err))
				continue
			}
			s.logger.Debug("reloading decks",
				slog.String("path", evt.Path),
				slog.Int("connections", s.conns.Len()),
			)
			s.conns.Broadcast(payload)
		}
	}
}

// handlePush upgrades to a websocket and keeps the connection registered until
// the client goes away. Inbound messages are read and discarded.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.DebugContext(r.Context(), "push upgrade failed", slog.Any("err", err))
		return
	}

	id, out := s.conns.Register()
	logger := s.logger.With(slog.Uint64("conn", id))
	logger.Debug("push connection opened", slog.String("remote", conn.RemoteAddr().String()))

	go s.writePump(r.Context(), conn, id, out, logger)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("push connection closed unexpectedly", slog.Any("err", err))
			}
			break
		}
		logger.Debug("push message ignored", slog.Int("bytes", len(msg)))
	}

	s.conns.Unregister(id)
	_ = conn.Close()
	logger.Debug("push connection closed")
}

// writePump drains the outbox onto the socket. It owns every write to conn.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, id uint64, out *hub.Outbox, logger *slog.Logger) {
	defer func() { _ = conn.Close() }()
	for {
		msg, err := out.Next(ctx)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Warn("push send failed", slog.Any("err", err))
			s.conns.Unregister(id)
			return
		}
	}
}
