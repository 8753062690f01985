// Package app wires the streaming server runtime: config, logging, stores,
// HTTP routes, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/freegatik/music-streaming/cmd/identity"
	authapi "github.com/freegatik/music-streaming/cmd/internal/auth/api"
	"github.com/freegatik/music-streaming/cmd/internal/auth/session"
	"github.com/freegatik/music-streaming/cmd/internal/catalog"
	libraryapi "github.com/freegatik/music-streaming/cmd/internal/library/api"
	"github.com/freegatik/music-streaming/cmd/internal/playlist"
	"github.com/freegatik/music-streaming/cmd/security/password"
)

// stores bundles the persistence backends. Either all in-memory (dev mode,
// no STREAM_DATABASE_URL) or all Postgres-backed over one shared pool.
type stores struct {
	users     identity.Store
	sessions  session.Store
	catalog   catalog.Store
	playlists playlist.Store
}

// App is the server runtime: it owns HTTP wiring and store lifecycle.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	registry *prometheus.Registry

	auth    *authapi.Handler
	library *libraryapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	st, dbPool, dbEnabled, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		closePool(dbPool)
		return nil, err
	}
	codec, err := session.NewCodec(sessCfg.SigningSecret)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}
	sessions := session.NewService(sessCfg, codec, st.sessions)

	pwdCfg, err := password.FromEnv()
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), st.users, sessions, pwdCfg, authapi.NewMetrics(registry))
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	library, err := libraryapi.NewHandler(log, auth, st.users, playlist.NewService(st.playlists, st.catalog), st.catalog)
	if err != nil {
		closePool(dbPool)
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		registry:  registry,
		auth:      auth,
		library:   library,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.registry, a.auth, a.library)

	var handler http.Handler = mux
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	closePool(a.dbPool)

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

// newStores decides between Postgres-backed persistence and in-memory dev
// stores. The app owns the pool lifecycle; the stores never close it.
func newStores(ctx context.Context, cfg Config, log Logger) (stores, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return stores{
			users:     identity.NewMemoryStore(),
			sessions:  session.NewMemoryStore(),
			catalog:   catalog.NewMemoryStore(),
			playlists: playlist.NewMemoryStore(),
		}, nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return stores{}, nil, false, err
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, nil, false, err
	}

	log.Info("db.enabled.postgres_store")

	return stores{
		users:     users,
		sessions:  session.NewPostgresStore(pool),
		catalog:   catalog.NewPostgresStore(pool),
		playlists: playlist.NewPostgresStore(pool),
	}, pool, true, nil
}
