// main wires the mediation engine: policy registry, budget ledger, secure
// computation gateway, audit log, events publisher, and the HTTP surface.
// Business logic lives in the internal packages; this file only assembles
// them and supervises the background workers.
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

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"privacygate/internal/audit"
	auditmem "privacygate/internal/audit/store/memory"
	auditpg "privacygate/internal/audit/store/postgres"
	"privacygate/internal/budget"
	budgetmem "privacygate/internal/budget/store/memory"
	budgetpg "privacygate/internal/budget/store/postgres"
	budgetredis "privacygate/internal/budget/store/redis"
	"privacygate/internal/events"
	"privacygate/internal/mediation"
	mediationhandler "privacygate/internal/mediation/handler"
	"privacygate/internal/mediation/metrics"
	"privacygate/internal/platform/config"
	"privacygate/internal/platform/httpserver"
	"privacygate/internal/platform/logger"
	platformredis "privacygate/internal/platform/redis"
	"privacygate/internal/policy"
	"privacygate/internal/securecompute"
	httptransport "privacygate/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	registry := policy.NewRegistry([]policy.Technique{
		policy.TechniqueNoise,
		policy.TechniqueEncryption,
		policy.TechniqueAnonymization,
	})
	if err := registry.LoadFile(cfg.PolicyFile); err != nil {
		return err
	}
	log.Info("policies loaded", "file", cfg.PolicyFile, "categories", len(registry.Categories()))

	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		for _, schema := range []string{auditpg.Schema(), budgetpg.Schema()} {
			if _, err := db.ExecContext(ctx, schema); err != nil {
				return err
			}
		}
	}

	var auditStore audit.Store
	if db != nil {
		auditStore = auditpg.New(db)
	} else {
		auditStore = auditmem.New()
		log.Warn("postgres not configured, audit records are not durable")
	}
	auditLog, err := audit.New(auditStore,
		audit.WithLogger(log),
		audit.WithRetention(cfg.AuditRetention),
	)
	if err != nil {
		return err
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var budgetStore budget.Store
	switch {
	case redisClient != nil:
		budgetStore = budgetredis.New(redisClient.Client)
	case db != nil:
		budgetStore = budgetpg.New(db)
	default:
		budgetStore = budgetmem.New()
		log.Warn("neither redis nor postgres configured, budget state is not durable")
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		publisher = kafka
	} else {
		publisher = events.NewMemoryPublisher()
		log.Warn("kafka not configured, outbound events stay in process")
	}
	defer publisher.Close()

	budgetCfg := budget.DefaultConfig()
	budgetCfg.Window = cfg.BudgetWindow
	ledger, err := budget.New(budgetStore, budgetCfg,
		budget.WithLogger(log),
		budget.WithEvents(publisher),
		budget.WithAudit(auditLog),
	)
	if err != nil {
		return err
	}

	caps := securecompute.NewCapabilityIssuer(cfg.DecryptJWTKey, "privacygate")
	gateway, err := securecompute.NewGateway(
		securecompute.NewMaskStream(), registry, auditLog, caps,
		securecompute.WithGatewayLogger(log),
	)
	if err != nil {
		return err
	}

	service, err := mediation.New(registry, ledger, gateway, auditLog,
		mediation.WithLogger(log),
		mediation.WithEvents(publisher),
		mediation.WithMetrics(metrics.New()),
	)
	if err != nil {
		return err
	}

	handler := mediationhandler.New(service, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, log))

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting privacygate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	group.Go(func() error { return ledger.RunResetSweeper(ctx, time.Hour) })
	group.Go(func() error { return auditLog.RunPruner(ctx, 12*time.Hour) })
	group.Go(func() error { return gateway.RunRetentionSweeper(ctx, time.Hour) })
	group.Go(func() error { return gateway.RunKeyRotation(ctx, cfg.KeyRotation) })

	return group.Wait()
}
