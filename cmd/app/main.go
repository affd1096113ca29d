package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"spotvibe-backend/internal/config"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
	"spotvibe-backend/internal/infra/adapters/momo"
	"spotvibe-backend/internal/infra/api"
	pg "spotvibe-backend/internal/infra/db/postgres"
	"spotvibe-backend/internal/infra/logging"
	"spotvibe-backend/internal/infra/metrics"
	"spotvibe-backend/internal/infra/notify"
	red "spotvibe-backend/internal/infra/redis"
	"spotvibe-backend/internal/infra/sched"
	"spotvibe-backend/internal/infra/security"
	"spotvibe-backend/internal/infra/worker"
	"spotvibe-backend/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateways, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	statusCache := red.NewStatusCache(redisClient, cfg.Redis.StatusTTL)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	transactionRepo := pg.NewTransactionRepo(pool)
	ticketRepo := pg.NewTicketRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	planRepo := pg.NewSubscriptionPlanRepo(pool)
	commissionRepo := pg.NewCommissionRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	auditRepo := pg.NewAuditRepo(pool)
	eventRepo := pg.NewEventRepo(pool)

	// ---- Gateways ----
	gateways := make(map[model.Operator]adapter.MomoGateway)
	for name, opCfg := range cfg.Payment.Operators {
		var gw adapter.MomoGateway
		switch {
		case cfg.Runtime.Dev:
			gw = momo.NewNoopGateway(model.Operator(name), opCfg.WebhookSecret)
		case name == string(model.OperatorMTN):
			gw, err = momo.NewMTNGateway(opCfg)
		case name == string(model.OperatorMoov):
			gw, err = momo.NewMoovGateway(opCfg)
		default:
			logger.Fatal().Str("operator", name).Msg("unknown operator in payment.operators")
		}
		if err != nil {
			logger.Fatal().Err(err).Str("operator", name).Msg("gateway setup")
		}
		gateways[model.Operator(name)] = gw
	}

	// ---- Notifications ----
	pool2 := worker.NewPool(cfg.Worker.Count)
	pool2.Start(ctx)
	defer pool2.Stop()
	notifier := notify.NewDispatcher(pool2, logger)

	// ---- QR ----
	qrSigner := security.NewQRSigner(cfg.Security.QRSecret)

	// ---- Use cases ----
	fulfillmentUC := usecase.NewFulfillmentUseCase(ticketRepo, subRepo, planRepo, qrSigner, logger)
	commissionUC := usecase.NewCommissionUseCase(commissionRepo, ticketRepo, eventRepo, subRepo, planRepo, cfg.Commission, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, transactionRepo, auditRepo, fulfillmentUC, commissionUC, tm, notifier, cfg.Payment, logger)
	transactionUC := usecase.NewTransactionUseCase(transactionRepo, paymentRepo, paymentUC, gateways, locker, tm, notifier, logger)
	refundUC := usecase.NewRefundUseCase(refundRepo, paymentRepo, ticketRepo, transactionRepo, auditRepo, gateways, tm, notifier, logger)
	ticketUC := usecase.NewTicketUseCase(ticketRepo, auditRepo, qrSigner, tm, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)

	// ---- HTTP server ----
	srv := api.NewServer(paymentUC, transactionUC, refundUC, ticketUC, statusCache, cfg.Security.JWTSecret, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Background workers ----
	expiryWorker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, cfg.Scheduler.ReconcileStaleAfter, paymentRepo, paymentUC, transactionUC, logger)
	go func() { _ = expiryWorker.Run(ctx) }()

	usageWorker := sched.NewUsageResetWorker(cfg.Scheduler.UsageResetInterval, subUC, logger)
	go func() { _ = usageWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	_ = server.Shutdown(context.Background())
}
