package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"railledger/internal/auditcase"
	"railledger/internal/certification"
	"railledger/internal/employee"
	"railledger/internal/enforcement"
	"railledger/internal/evidence"
	"railledger/internal/history"
	jwttoken "railledger/internal/jwt_token"
	"railledger/internal/platform/config"
	"railledger/internal/platform/httpserver"
	"railledger/internal/platform/logger"
	platformredis "railledger/internal/platform/redis"
	"railledger/internal/sweep"
)

// main wires stores, services, handlers, and background workers, then runs
// the HTTP server until a shutdown signal. Business logic lives in the
// internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

type stores struct {
	evidence  evidence.Store
	certs     certification.Store
	employees employee.Store
	enf       enforcement.Store
	cases     auditcase.Store
	runner    evidence.TxRunner
	outbox    evidence.OutboxStore
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	evidenceService := evidence.NewService(st.evidence, st.runner, log)
	certService := certification.NewService(st.certs, evidenceService)
	employeeService := employee.NewService(st.employees, st.certs, evidenceService, nil)
	enforcementService := enforcement.NewService(st.enf, st.certs, evidenceService, cache, log)
	historyService := history.NewService(st.certs, st.employees, evidenceService, nil, log)
	caseService := auditcase.NewService(st.cases, evidenceService)

	validator := jwttoken.NewJWTService(cfg.JWTSigningKey, "railledger", "railledger")

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	evidence.NewHandler(evidenceService, log, validator).Register(router)
	certification.NewHandler(certService, log, validator).Register(router)
	employee.NewHandler(employeeService, log, validator).Register(router)
	enforcement.NewHandler(enforcementService, log, validator).Register(router)
	history.NewHandler(historyService, log, validator).Register(router)
	auditcase.NewHandler(caseService, log, validator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting railledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return err
		}
		defer client.Close()
		if err := evidence.EnsureTopic(ctx, client, cfg.Kafka.Topic); err != nil {
			return err
		}
		publisher := evidence.NewPublisher(st.outbox, client, cfg.Kafka.Topic, log)
		g.Go(func() error {
			return ignoreCancel(publisher.Run(ctx))
		})
	}

	expiration := sweep.NewExpirationSweep(st.certs, enforcementService, evidenceService, log)
	archival := sweep.NewArchivalSweep(st.evidence, cfg.Sweep.EvidenceRetention, log)
	scheduler := sweep.NewScheduler(log,
		sweep.Job{Name: "certification-expiration", Interval: cfg.Sweep.ExpirationInterval, Run: expiration.Run},
		sweep.Job{Name: "evidence-archival", Interval: cfg.Sweep.ArchivalInterval, Run: archival.Run},
	)
	g.Go(func() error {
		return ignoreCancel(scheduler.Start(ctx))
	})

	return g.Wait()
}

// buildStores selects PostgreSQL when DATABASE_URL is set, otherwise the
// in-memory stores for local development.
func buildStores(cfg config.Config, log *slog.Logger) (*stores, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		ledger := evidence.NewMemory()
		certs := certification.NewMemory()
		employees := employee.NewMemory()
		enf := enforcement.NewMemory()
		cases := auditcase.NewMemory()
		runner := evidence.NewMemoryRunner(ledger, certs, employees, enf, cases)
		return &stores{
			evidence:  ledger,
			certs:     certs,
			employees: employees,
			enf:       enf,
			cases:     cases,
			runner:    runner,
			outbox:    ledger,
		}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	ledger := evidence.NewPostgres(db)
	return &stores{
		evidence:  ledger,
		certs:     certification.NewPostgres(db),
		employees: employee.NewPostgres(db),
		enf:       enforcement.NewPostgres(db),
		cases:     auditcase.NewPostgres(db),
		runner:    evidence.NewPostgresRunner(db),
		outbox:    ledger,
	}, func() { db.Close() }, nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
