package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

// ErrShuttingDown is returned by Connect after Shutdown.
var ErrShuttingDown = errors.New("sse: server shutting down")

// Source yields the acting user's bookcases each time they change.
type Source interface {
	WatchBookCases(ctx context.Context, userID string) iter.Seq2[[]*domain.BookCase, error]
}

// UserFunc resolves the authenticated user of a request.
type UserFunc func(r *http.Request) (string, bool)

// Handler handles SSE connections at GET /api/v1/bookcases/stream.
type Handler struct {
	manager *Manager
	source  Source
	user    UserFunc
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, source Source, user UserFunc, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		source:  source,
		user:    user,
		logger:  logger,
	}
}

type update struct {
	bookCases []*domain.BookCase
	err       error
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := h.user(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if r.Context().Err() != nil {
		return
	}

	client, err := h.manager.Connect(userID)
	if err != nil {
		h.logger.Warn("refused SSE client", slog.String("error", err.Error()))
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	defer h.manager.Disconnect(client.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		return
	}

	clientLogger := h.logger.With(slog.String("client_id", client.ID), slog.String("user_id", userID))

	if err := h.sendEvent(w, rc, NewConnectedEvent(client.ID)); err != nil {
		clientLogger.Warn("failed to send initial connection message", slog.String("error", err.Error()))
		return
	}

	// The subscription lives exactly as long as this stream.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan update, 1)
	go func() {
		defer close(updates)
		for bookCases, err := range h.source.WatchBookCases(ctx, userID) {
			select {
			case updates <- update{bookCases: bookCases, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(h.manager.HeartbeatInterval())
	defer heartbeat.Stop()

	for {
		select {
		case u, open := <-updates:
			if !open {
				clientLogger.Info("subscription ended")
				return
			}
			if u.err != nil {
				clientLogger.Error("bookcase subscription failed", slog.String("error", u.err.Error()))
				_ = h.sendEvent(w, rc, NewErrorEvent("subscription failed"))
				return
			}
			if err := h.sendEvent(w, rc, NewSnapshotEvent(u.bookCases)); err != nil {
				clientLogger.Info("client disconnected during send")
				return
			}

		case <-heartbeat.C:
			if err := h.sendEvent(w, rc, NewHeartbeatEvent()); err != nil {
				clientLogger.Info("client disconnected during heartbeat")
				return
			}

		case <-client.Done:
			clientLogger.Info("client closed by manager")
			return

		case <-ctx.Done():
			clientLogger.Info("client context canceled")
			return
		}
	}
}

// sendEvent writes one event in SSE wire format and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Reset after each successful write so a stalled client cannot pin the handler.
	if err := rc.SetWriteDeadline(time.Now().Add(60 * time.Second)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
