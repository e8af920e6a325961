package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/tradesim/tradesim-api/internal/config"
	"github.com/tradesim/tradesim-api/internal/domain/catalog"
	"github.com/tradesim/tradesim-api/internal/domain/invoice"
	"github.com/tradesim/tradesim-api/internal/domain/ledger"
	"github.com/tradesim/tradesim-api/internal/domain/order"
	"github.com/tradesim/tradesim-api/internal/domain/payment"
	"github.com/tradesim/tradesim-api/internal/events"
	"github.com/tradesim/tradesim-api/internal/middleware"
	"github.com/tradesim/tradesim-api/internal/pkg/database"
	"github.com/tradesim/tradesim-api/internal/pkg/gateway"
	"github.com/tradesim/tradesim-api/internal/pkg/jwt"
	"github.com/tradesim/tradesim-api/internal/pkg/logger"
	pkgresponse "github.com/tradesim/tradesim-api/internal/pkg/response"
	"github.com/tradesim/tradesim-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting TradeSim top-up API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:       cfg.GatewayBaseURL,
		MerchantID:    cfg.GatewayMerchantID,
		SigningSecret: cfg.GatewaySigningSecret,
		Timeout:       time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
	})

	var docStore storage.Storage
	if cfg.StorageBackend == "s3" {
		docStore, err = storage.NewS3Storage(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
	} else {
		docStore, err = storage.NewLocalStorage(cfg.StoragePath)
	}
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to create invoice document storage")
	}

	// ---------- Event hub ----------
	eventHub := events.NewHub(redis)
	go eventHub.Run()
	defer eventHub.Stop()

	// ---------- Repositories ----------
	packageCatalog := catalog.New(cfg.CoinsPerUnit)
	orderRepo := order.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	invoiceRepo := invoice.NewRepository(db)

	// ---------- Services ----------
	orderService := order.NewService(orderRepo, packageCatalog, gatewayClient, order.Config{
		Ceiling:  cfg.TopUpCeiling,
		Currency: cfg.SettlementCurrency,
	})
	ledgerService := ledger.NewService(ledgerRepo, redis, cfg.BalanceCacheTTL)
	verifierService := payment.NewService(orderRepo, paymentRepo, cfg.GatewaySigningSecret)
	invoiceService := invoice.NewService(invoiceRepo, orderRepo, docStore, cfg.SettlementCurrency)

	// ---------- Background sweep ----------
	sweeper := order.NewSweeper(orderRepo, cfg.OrderExpiry, cfg.SweepInterval, eventHub)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	// ---------- Handlers ----------
	catalogHandler := catalog.NewHandler(packageCatalog)
	orderHandler := order.NewHandler(orderService)
	ledgerHandler := ledger.NewHandler(ledgerService)
	paymentHandler := payment.NewHandler(verifierService, ledgerService, orderRepo, eventHub)
	invoiceHandler := invoice.NewHandler(invoiceService)
	eventsHandler := events.NewHandler(eventHub)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/packages", catalogHandler.Routes())
		r.Mount("/orders", orderHandler.Routes(authMiddleware, invoiceHandler.Generate))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
		r.Mount("/wallet", ledgerHandler.Routes(authMiddleware))
		r.Mount("/invoices", invoiceHandler.Routes(authMiddleware))
		r.Mount("/events", eventsHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
