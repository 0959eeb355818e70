// Command server runs the badge authority: the public transaction endpoints,
// the JWT-gated admin API and the metrics/health surface.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	adminHandler "sigil/internal/admin/handler"
	appService "sigil/internal/application/service"
	appStore "sigil/internal/application/store"
	"sigil/internal/audit"
	"sigil/internal/badge/issuer"
	badgeStore "sigil/internal/badge/store"
	"sigil/internal/inference/resolver"
	inferenceStore "sigil/internal/inference/store"
	"sigil/internal/jwtauth"
	"sigil/internal/notify"
	"sigil/internal/platform/config"
	"sigil/internal/platform/httpserver"
	"sigil/internal/platform/logger"
	"sigil/internal/platform/metrics"
	platformredis "sigil/internal/platform/redis"
	transactionHandler "sigil/internal/transaction/handler"
	transactionService "sigil/internal/transaction/service"
	transactionStore "sigil/internal/transaction/store"
	httptransport "sigil/internal/transport/http"
)

const auditInboxSize = 256

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var (
		applications appService.Store         = appStore.NewInMemoryStore()
		badges       issuer.Store             = badgeStore.NewInMemoryStore()
		graph        adminHandler.Graph       = inferenceStore.NewInMemoryStore()
		transactions transactionService.Store = transactionStore.NewInMemoryStore()
	)

	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		applications = appStore.NewPostgresStore(db)
		badges = badgeStore.NewPostgresStore(db)
		graph = inferenceStore.NewPostgresStore(db)
		transactions = transactionStore.NewPostgresStore(db)
		log.Info("using postgres stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		// Transactions are hot, short-lived records; they go to redis even
		// when the durable stores live in postgres.
		transactions = transactionStore.NewRedisStore(redisClient.Client)
		log.Info("using redis transaction store")
	}

	var mailer notify.Mailer
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTP, log)
	} else {
		log.Warn("smtp not configured, verification emails will only be logged")
		mailer = notify.NewLogMailer(log)
	}

	auditInbox := make(chan audit.Event, auditInboxSize)
	auditWorker := audit.NewWorker(audit.NewInMemoryStore(), auditInbox, log)
	auditPublisher := audit.NewPublisher(auditInbox, log)

	apps := appService.NewService(applications, log)
	badgeIssuer := issuer.New(badges, log, m)
	dispatcher := notify.NewDispatcher(cfg.Callback, cfg.AuthorityDomain, log, m)
	jwtService := jwtauth.NewService(cfg.JWTSigningKey, cfg.AuthorityDomain)

	orchestrator := transactionService.NewService(transactionService.Deps{
		Transactions:   transactions,
		Applications:   apps,
		Resolver:       resolver.New(graph),
		Issuer:         badgeIssuer,
		Notifier:       dispatcher,
		Mailer:         mailer,
		Audit:          auditPublisher,
		Policy:         cfg.Policy,
		Authority:      cfg.AuthorityDomain,
		SupportAddress: cfg.SMTP.SupportAddress,
		Logger:         log,
		Metrics:        m,
	})

	router := httptransport.NewRouter(httptransport.Deps{
		Transactions: transactionHandler.New(orchestrator, log),
		Admin:        adminHandler.New(apps, graph, auditPublisher, log),
		JWTValidator: jwtService,
		Logger:       log,
		Metrics:      m,
	})
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("badge authority listening", "addr", cfg.Addr, "authority", cfg.AuthorityDomain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
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

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
