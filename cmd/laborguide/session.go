package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/danielpatrickdp/laborguide/internal/config"
	"github.com/danielpatrickdp/laborguide/internal/engine"
	"github.com/danielpatrickdp/laborguide/internal/gate"
	"github.com/danielpatrickdp/laborguide/internal/logging"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

var errNoAuditLog = errors.New("the audit trail is only kept by the sqlite store")

// session bundles an engine with the backing stores it was opened on.
type session struct {
	Engine *engine.Engine
	Store  state.Store
	SQLite *state.SQLiteStore // nil unless the sqlite backend is configured
	Audit  *logging.AuditLog  // nil unless the sqlite backend is configured
}

func (s *session) Close() error {
	if s.SQLite != nil {
		return s.SQLite.Close()
	}
	return nil
}

// openSession opens the configured store and builds an engine on it.
// registry may be nil.
func openSession(ctx context.Context, cfg config.Config, fs afero.Fs, registry *prometheus.Registry) (*session, error) {
	s := &session{}

	switch cfg.Store {
	case config.StoreSQLite:
		// The sqlite driver opens real paths, not the afero filesystem.
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		store, err := state.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		audit, err := logging.NewAuditLog(store.DB())
		if err != nil {
			store.Close()
			return nil, err
		}
		s.Store, s.SQLite, s.Audit = store, store, audit
	case config.StoreFile:
		store, err := state.NewFileStore(fs, cfg.StatePath)
		if err != nil {
			return nil, err
		}
		s.Store = store
	case config.StoreMemory:
		s.Store = state.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	opts := []engine.Option{
		engine.WithLogger(slog.Default()),
		engine.WithGateConfig(gate.Config{RetainedPlacentaMinutes: cfg.RetainedPlacentaMinutes}),
		engine.WithMetrics(registry),
	}
	if s.Audit != nil {
		opts = append(opts, engine.WithAudit(s.Audit))
	}
	s.Engine = engine.New(s.Store, opts...)

	slog.DebugContext(ctx, "session store opened", "store", cfg.Store)
	return s, nil
}

func openFromCmd(ctx context.Context, registry *prometheus.Registry) (*session, error) {
	return openSession(ctx, getConfig(ctx), getFileSystem(ctx), registry)
}
