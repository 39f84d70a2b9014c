// Command server wires the progress core and serves it over HTTP. Business
// logic lives in the internal service packages; main only builds the
// dependency graph and manages the process lifecycle.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"phdpeer/internal/idempotency"
	"phdpeer/internal/ledger"
	ledgermetrics "phdpeer/internal/ledger/metrics"
	ledgerservice "phdpeer/internal/ledger/service"
	ledgermemory "phdpeer/internal/ledger/store/memory"
	ledgerpostgres "phdpeer/internal/ledger/store/postgres"
	"phdpeer/internal/ledger/stream"
	lifecyclemetrics "phdpeer/internal/lifecycle/metrics"
	"phdpeer/internal/lifecycle/tracker"
	"phdpeer/internal/platform/config"
	"phdpeer/internal/platform/httpserver"
	"phdpeer/internal/platform/logger"
	"phdpeer/internal/platform/postgres"
	platformredis "phdpeer/internal/platform/redis"
	"phdpeer/internal/query"
	"phdpeer/internal/query/handler"
	querymetrics "phdpeer/internal/query/metrics"
	"phdpeer/internal/token"
	"phdpeer/internal/visibility"
	adminmw "phdpeer/pkg/platform/middleware/admin"
	authmw "phdpeer/pkg/platform/middleware/auth"
	"phdpeer/pkg/platform/middleware/metadata"
	requestmw "phdpeer/pkg/platform/middleware/request"
	"phdpeer/pkg/platform/middleware/requesttime"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		ledgerStore     ledger.Store
		trackerStore    tracker.Store
		assignmentStore visibility.AssignmentStore
	)
	if db != nil {
		defer db.Close()
		ledgerStore = ledgerpostgres.New(db)
		trackerStore = tracker.NewPostgresStore(db)
		assignmentStore = visibility.NewPostgresStore(db)
		log.Info("using postgres storage")
	} else {
		ledgerStore = ledgermemory.NewInMemoryStore()
		trackerStore = tracker.NewInMemoryStore()
		assignmentStore = visibility.NewInMemoryStore()
		log.Warn("POSTGRES_URL not set, using in-memory storage")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var handlerOpts []handler.Option
	if redisClient != nil {
		defer redisClient.Close()
		handlerOpts = append(handlerOpts, handler.WithReserver(idempotency.NewReserver(redisClient.Client)))
		log.Info("redis idempotency reservations enabled")
	}

	publisher, err := stream.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		log.Error("kafka producer setup failed", "error", err)
		os.Exit(1)
	}

	recorderOpts := []ledgerservice.Option{
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithPageSizes(cfg.MaxPageSize, cfg.DefaultPageSize),
	}
	if publisher != nil {
		defer publisher.Close()
		recorderOpts = append(recorderOpts, ledgerservice.WithStream(publisher))
		log.Info("ledger stream fan-out enabled", "topic", cfg.Kafka.Topic)
	}
	recorder := ledgerservice.NewRecorder(ledgerStore, recorderOpts...)

	trk := tracker.New(trackerStore, recorder,
		tracker.WithLogger(log),
		tracker.WithMetrics(lifecyclemetrics.New()),
	)
	resolver := visibility.NewResolver(assignmentStore)
	assignmentService := visibility.NewService(assignmentStore, recorder,
		visibility.WithServiceLogger(log),
	)
	queryService := query.NewService(recorder, resolver,
		query.WithLogger(log),
		query.WithMetrics(querymetrics.New()),
	)

	tokenService := token.NewService(cfg.JWTSigningKey, "phdpeer")
	h := handler.New(queryService, trk, resolver, assignmentService, log, handlerOpts...)

	router := chi.NewRouter()
	router.Use(requestmw.ID)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(authmw.RequireActor(tokenService, log))
		h.Register(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
		h.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
