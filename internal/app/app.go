// Package app assembles a POS terminal from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"pizzas-pos/internal/catalog"
	"pizzas-pos/internal/config"
	"pizzas-pos/internal/database"
	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/messaging"
	"pizzas-pos/internal/metrics"
	"pizzas-pos/internal/services/session"
	"pizzas-pos/internal/services/syncer"
)

// Terminal is one operator station: a store, the sync engine over it and the
// session controller driving both.
type Terminal struct {
	Config  *config.Config
	Store   docstore.Store
	Catalog *catalog.Catalog
	Engine  *syncer.Engine
	Session *session.Controller

	log     *logger.Logger
	closers []func()
}

// OpenStore returns the configured document store and a function releasing it.
// The memory backend is seeded from the catalog file when one is configured.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (docstore.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		store := docstore.NewMemory()
		if cfg.Catalog.File != "" {
			products, err := catalog.LoadFile(cfg.Catalog.File)
			if err != nil {
				return nil, nil, err
			}
			if _, err := catalog.New(store, log).Seed(ctx, products); err != nil {
				return nil, nil, err
			}
		}
		log.Info("store_opened", "Using in-memory document store", nil)
		return store, func() {}, nil

	case config.BackendPostgres:
		db, err := database.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return database.NewDocumentStore(db, log), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Open wires a terminal. Nothing is subscribed until Start.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (*Terminal, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, closeStore, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	t := &Terminal{Config: cfg, Store: store, log: log}
	t.closers = append(t.closers, closeStore)

	t.Catalog = catalog.New(store, log)
	t.Engine = syncer.New(store,
		syncer.WithLogger(log),
		syncer.WithMetrics(metrics.NewSyncMetrics(reg)),
		syncer.WithLocation(loc),
		syncer.WithWriteTimeout(cfg.Store.WriteTimeout),
	)

	opts := []session.Option{
		session.WithLogger(log),
		session.WithTerminal(cfg.Session.Terminal),
		session.WithOrderTTL(cfg.Session.OrderTTL),
	}
	if cfg.NotificationsEnabled() {
		conn, err := messaging.New(cfg, log)
		if err != nil {
			// orders keep flowing through the store without the broker
			log.Error("notifications_disabled", "RabbitMQ unavailable, status changes are only logged", err, nil)
		} else {
			publisher := messaging.NewPublisher(conn, log)
			opts = append(opts, session.WithNotifier(publisher))
			t.closers = append(t.closers, func() { _ = publisher.Close() })
		}
	}
	t.Session = session.New(t.Engine, store, t.Catalog, opts...)

	return t, nil
}

// Start opens the realtime feed and loads the catalog for the session.
func (t *Terminal) Start(ctx context.Context, onChange syncer.StateFunc) error {
	if err := t.Engine.OpenRealtimeFeed(ctx, onChange); err != nil {
		return err
	}
	if err := t.Session.LoadCatalog(ctx); err != nil {
		return err
	}
	t.log.Info("terminal_started", "Terminal ready", map[string]any{
		"terminal": t.Config.Session.Terminal,
		"backend":  t.Config.Store.Backend,
		"active":   len(t.Engine.ActiveOrders()),
	})
	return nil
}

// Close stops the session and releases the store and broker, in reverse order
// of acquisition.
func (t *Terminal) Close() {
	t.Session.Close()
	t.Engine.Close()
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
}
