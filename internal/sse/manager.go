package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/id"
)

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	Done        chan struct{}
	ID          string
	UserID      string
}

// Observer is notified when streams open and close.
type Observer interface {
	StreamOpened()
	StreamClosed()
}

type noopObserver struct{}

func (noopObserver) StreamOpened() {}
func (noopObserver) StreamClosed() {}

// Manager tracks open streams so they can be counted and closed on shutdown.
type Manager struct {
	clients           map[string]*Client
	logger            *slog.Logger
	observer          Observer
	heartbeatInterval time.Duration
	mu                sync.RWMutex
	shutdown          bool
}

// NewManager creates a new SSE Manager. observer may be nil.
func NewManager(logger *slog.Logger, observer Observer) *Manager {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Manager{
		clients:           make(map[string]*Client),
		logger:            logger,
		observer:          observer,
		heartbeatInterval: 30 * time.Second,
	}
}

// SetHeartbeatInterval overrides the keepalive period.
func (m *Manager) SetHeartbeatInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeatInterval = d
}

// HeartbeatInterval returns the keepalive period.
func (m *Manager) HeartbeatInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heartbeatInterval
}

// Connect registers a new SSE client for userID.
func (m *Manager) Connect(userID string) (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		UserID:      userID,
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.observer.StreamOpened()
	m.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.String("user_id", userID),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and closes its Done channel.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	m.observer.StreamClosed()

	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Shutdown closes every open stream and refuses new ones. Handlers return
// once they observe Done, which releases their store subscriptions.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		m.Disconnect(c.ID)
	}

	m.logger.Info("SSE manager shutdown complete", slog.Int("closed", len(clients)))
	return ctx.Err()
}
