package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhiweijz/membership-payments/internal"
	"github.com/zhiweijz/membership-payments/internal/auth"
	"github.com/zhiweijz/membership-payments/internal/catalog"
	"github.com/zhiweijz/membership-payments/internal/core/events"
	"github.com/zhiweijz/membership-payments/internal/h5gateway"
	"github.com/zhiweijz/membership-payments/internal/membership"
	"github.com/zhiweijz/membership-payments/internal/order"
	orderpostgres "github.com/zhiweijz/membership-payments/internal/order/postgres"
	"github.com/zhiweijz/membership-payments/internal/signature"
	"github.com/zhiweijz/membership-payments/internal/transport"
	"github.com/zhiweijz/membership-payments/internal/transport/rest"
	"github.com/zhiweijz/membership-payments/internal/transport/swagger"
	"github.com/zhiweijz/membership-payments/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	Router         *chi.Mux
	AuthMiddleware *auth.Middleware
	CatalogHandler *catalog.Handler
	OrderHandler   *order.Handler
	WebhookHandler *order.WebhookHandler
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.AuthMiddleware, deps.CatalogHandler, deps.OrderHandler, deps.WebhookHandler, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	// A broken catalog or gateway credential set must stop the process here,
	// not surface on the first order.
	productCatalog := catalog.Default()
	if err := productCatalog.Validate(); err != nil {
		return nil, err
	}

	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		log.Warn("openapi spec validation failed, swagger UI may be broken", "error", err)
	}

	eventBus := events.NewEventBus(log)
	eventBus.Subscribe(events.EventTypeUpgradeFailed, func(ctx context.Context, event events.Event) error {
		// Failed upgrades retry via gateway redelivery; this is the alert
		// trail for ones that keep failing.
		log.Error("membership upgrade failed, awaiting redelivery",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})

	codec := signature.NewCodec(config.Gateway.AppSecret)
	gatewayClient := h5gateway.NewClient(h5gateway.Config{
		APIBaseURL: config.Gateway.APIBaseURL,
		AppID:      config.Gateway.AppID,
		NotifyURL:  config.Gateway.NotifyURL,
		Timeout:    config.Gateway.Timeout(),
	}, codec, log)

	orderRepo := orderpostgres.NewOrderRepository(gormDB)
	orderService := order.NewOrderService(orderRepo, gatewayClient, productCatalog, eventBus, config.Gateway.TTL(), log)

	membershipClient := membership.NewClient(config.Membership.BaseURL, config.Membership.Timeout(), log)
	dispatcher := membership.NewDispatcher(membershipClient, productCatalog, log)

	processor := order.NewCallbackProcessor(orderRepo, codec, dispatcher, eventBus, log)

	baseHandler := transport.NewBaseHandler(log)
	tokenValidator := auth.NewJWTTokenValidator(config.Server.SessionSecret)

	return &Dependencies{
		Config:         config,
		Logger:         log,
		DB:             db,
		Router:         chi.NewRouter(),
		AuthMiddleware: auth.NewMiddleware(tokenValidator),
		CatalogHandler: catalog.NewHandler(productCatalog, log),
		OrderHandler:   order.NewHandler(orderService, &config.Gateway, log),
		WebhookHandler: order.NewWebhookHandler(baseHandler, processor, log),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
