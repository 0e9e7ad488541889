package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pollguard/internal/alerts"
	"pollguard/internal/claim"
	"pollguard/internal/fraud"
	"pollguard/internal/fraud/adapters"
	fraudmetrics "pollguard/internal/fraud/metrics"
	"pollguard/internal/ledger"
	"pollguard/internal/platform/config"
	"pollguard/internal/platform/httpserver"
	"pollguard/internal/platform/logger"
	"pollguard/internal/platform/postgres"
	redisclient "pollguard/internal/platform/redis"
	"pollguard/internal/registry"
	"pollguard/internal/terminal"
	terminalhandler "pollguard/internal/terminal/handler"
	httptransport "pollguard/internal/transport/http"
	"pollguard/internal/verification"
	verificationhandler "pollguard/internal/verification/handler"
	verificationmetrics "pollguard/internal/verification/metrics"
)

// main wires dependencies and owns the process lifecycle. Every backing
// service degrades to an in-process fallback when unconfigured, so a single
// binary runs a full pilot deployment with no infrastructure.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]httptransport.HealthCheck{}

	// Claim guard: Redis when configured, in-memory otherwise.
	var guard claim.Guard
	rdb, err := redisclient.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		guard = claim.NewRedisGuard(rdb.Client, cfg.Claim.Horizon)
		health["redis"] = rdb.Health
		log.Info("claim guard backed by redis")
	} else {
		guard = claim.NewMemoryGuard(cfg.Claim.Horizon)
		log.Warn("redis not configured, using in-memory claim guard")
	}

	// Audit ledger: Postgres when configured, in-memory otherwise.
	var auditLedger ledger.Ledger
	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		pgStore := ledger.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("ledger schema setup failed", "error", err)
			os.Exit(1)
		}
		auditLedger = pgStore
		health["postgres"] = db.PingContext
		log.Info("audit ledger backed by postgres")
	} else {
		auditLedger = ledger.NewMemoryStore()
		log.Warn("postgres not configured, using in-memory audit ledger")
	}

	// Voter registry: remote HTTP when configured, seeded roll otherwise.
	var voterRegistry registry.Registry
	if cfg.Registry.URL != "" {
		voterRegistry = registry.NewHTTPClient(cfg.Registry.URL)
		log.Info("voter registry backed by remote service", "url", cfg.Registry.URL)
	} else {
		roll := registry.NewMemoryRegistry()
		if cfg.Registry.VoterRollFile != "" {
			n, err := loadVoterRoll(cfg.Registry.VoterRollFile, roll)
			if err != nil {
				log.Error("voter roll load failed", "file", cfg.Registry.VoterRollFile, "error", err)
				os.Exit(1)
			}
			log.Info("voter roll loaded", "file", cfg.Registry.VoterRollFile, "voters", n)
		} else {
			log.Warn("no registry URL or voter roll file, all lookups will miss")
		}
		voterRegistry = roll
	}

	// Fraud engine over the ledger history.
	history := adapters.NewLedgerHistory(auditLedger, cfg.Fraud.RateWindow, cfg.Fraud.RateThreshold)
	engine, err := fraud.NewEngine(fraud.Config{
		Rules: fraud.Rules{
			SpeedThresholdSeconds: cfg.Fraud.SpeedThresholdSeconds,
			RateThreshold:         cfg.Fraud.RateThreshold,
			RateWindow:            cfg.Fraud.RateWindow,
			TravelWindow:          cfg.Fraud.TravelWindow,
		},
		MinTrainingRecords: cfg.Fraud.MinTrainingRecords,
		TrainingWindow:     cfg.Fraud.TrainingWindow,
	}, history, fraud.BaselineTrainer{}, log, fraudmetrics.New())
	if err != nil {
		log.Error("fraud engine setup failed", "error", err)
		os.Exit(1)
	}

	// Alert fan-out: Kafka when configured.
	var alertPublisher alerts.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := alerts.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		if err != nil {
			log.Error("kafka publisher setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPub.Close()
		alertPublisher = kafkaPub
		log.Info("fraud alerts streaming to kafka", "topic", cfg.Kafka.AlertTopic)
	}

	verifyService, err := verification.NewService(
		voterRegistry, guard, auditLedger, engine, alertPublisher,
		cfg.Fraud.BlockThreshold, log, verificationmetrics.New(),
	)
	if err != nil {
		log.Error("verification service setup failed", "error", err)
		os.Exit(1)
	}

	// Terminal sessions and heartbeats.
	tokens := terminal.NewTokenService(cfg.JWTSigningKey, cfg.Terminal.TokenTTL)
	enrollments := terminal.NewMemoryEnrollments()
	if cfg.Terminal.EnrollmentsFile != "" {
		n, err := loadEnrollments(ctx, cfg.Terminal.EnrollmentsFile, enrollments)
		if err != nil {
			log.Error("terminal enrollments load failed", "file", cfg.Terminal.EnrollmentsFile, "error", err)
			os.Exit(1)
		}
		log.Info("terminal enrollments loaded", "file", cfg.Terminal.EnrollmentsFile, "terminals", n)
	}
	terminalService, err := terminal.NewService(enrollments, tokens, terminal.NewMonitor(), log)
	if err != nil {
		log.Error("terminal service setup failed", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Routes{
		Verification: verificationhandler.New(verifyService, log),
		Terminal:     terminalhandler.New(terminalService, log),
		Tokens:       tokens,
		Logger:       log,
		Health:       health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting pollguard", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return engine.RunRetrainer(gctx, cfg.Fraud.RetrainInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("pollguard stopped")
}
