// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"grccore/internal/asset"
	"grccore/internal/control"
	"grccore/internal/domain"
	"grccore/internal/httpapi"
	"grccore/internal/platform/config"
	"grccore/internal/platform/logging"
	"grccore/internal/platform/metrics"
	"grccore/internal/platform/tracing"
	"grccore/internal/postgres"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := tracing.Init(ctx, cfg.OTLPEndpoint, "grccore")
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	registry := domain.NewRegistry()
	asset.RegisterEvents(registry)
	control.RegisterEvents(registry)

	busMetrics := metrics.NewBus(prometheus.DefaultRegisterer)
	projectionMetrics := metrics.NewAssetProjection(prometheus.DefaultRegisterer)

	var (
		bus         *domain.EventBus
		eventStore  domain.EventStore
		assetRepo   domain.Repository[*asset.Asset]
		controlRepo domain.Repository[*control.Control]
	)

	switch cfg.Storage {
	case "memory":
		log.Info("using in-memory storage")
		store := domain.NewMemoryEventStore()
		bus = domain.NewEventBus(log, store, busMetrics)
		eventStore = store
		assetRepo = domain.NewMemoryRepository(store, bus, func() *asset.Asset { return &asset.Asset{} })
		controlRepo = domain.NewMemoryRepository(store, bus, func() *control.Control { return &control.Control{} })
	default:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}

		store := postgres.NewEventStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := (asset.Mapper{}).EnsureSchema(ctx, db); err != nil {
			return err
		}
		if err := (control.Mapper{}).EnsureSchema(ctx, db); err != nil {
			return err
		}

		bus = domain.NewEventBus(log, store, busMetrics)
		eventStore = store
		assetRepo = postgres.NewRepository[*asset.Asset](db, store, bus, asset.Mapper{}, log)
		controlRepo = postgres.NewRepository[*control.Control](db, store, bus, control.Mapper{}, log)
	}

	// Read-model projections subscribe before traffic starts.
	projection := asset.NewStateCountProjection(registry, projectionMetrics)
	projection.Register(bus)

	assetService := asset.NewService(assetRepo, eventStore, bus, log)
	controlService := control.NewService(controlRepo, log)

	router := httpapi.NewRouter(httpapi.Options{
		Log:          log,
		Assets:       asset.NewHandler(assetService),
		Controls:     control.NewHandler(controlService),
		APITokenHash: cfg.APITokenHash,
		APITokenSalt: cfg.APITokenSalt,
		WriteLimiter: rate.NewLimiter(rate.Limit(cfg.WriteRPS), cfg.WriteBurst),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
