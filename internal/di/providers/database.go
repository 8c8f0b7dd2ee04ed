package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/bookcaseapp/bookcase-server/internal/config"
	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/logger"
	"github.com/bookcaseapp/bookcase-server/internal/metrics"
	"github.com/bookcaseapp/bookcase-server/internal/sse"
	"github.com/bookcaseapp/bookcase-server/internal/store"
	"github.com/bookcaseapp/bookcase-server/internal/store/sqlite"
)

// ProvideMetrics provides the Prometheus registry shared by the HTTP
// server, the document store and the SSE manager.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(true), nil
}

// SSEManagerHandle wraps the SSE manager for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	manager := sse.NewManager(log.Logger, m)
	log.Info("SSE manager started", "heartbeat", manager.HeartbeatInterval())

	return &SSEManagerHandle{Manager: manager}, nil
}

// StoreHandle wraps the document store with shutdown capability.
// DocumentStore is the instrumented store every repository uses.
type StoreHandle struct {
	store.DocumentStore
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured document store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	docs, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("Document store initialized",
		"backend", cfg.Store.Backend,
		"path", cfg.StorePath(),
	)

	return &StoreHandle{
		DocumentStore: store.Instrument(docs, cfg.Store.Backend, m),
		Backend:       cfg.Store.Backend,
	}, nil
}

// OpenStore opens the backend named by cfg without instrumentation.
// The CLI uses it directly.
func OpenStore(cfg *config.Config, log *logger.Logger) (store.DocumentStore, error) {
	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.StorePath(), log.Logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendBadger:
		db, err := store.New(cfg.StorePath(), log.Logger,
			store.WithIndex(domain.CollectionBookCases, "userId"),
		)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// ProvideBookCaseRepository provides the bookcase repository.
func ProvideBookCaseRepository(i do.Injector) (*store.BookCaseRepository, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return store.NewBookCaseRepository(storeHandle), nil
}

// ProvideProfileRepository provides the user profile repository.
func ProvideProfileRepository(i do.Injector) (*store.ProfileRepository, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return store.NewProfileRepository(storeHandle), nil
}
