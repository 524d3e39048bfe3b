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

	"github.com/frahmantamala/college-erp/internal"
	"github.com/frahmantamala/college-erp/internal/audit"
	"github.com/frahmantamala/college-erp/internal/auth"
	authPostgres "github.com/frahmantamala/college-erp/internal/auth/postgres"
	"github.com/frahmantamala/college-erp/internal/core/events"
	"github.com/frahmantamala/college-erp/internal/establishment"
	establishmentPostgres "github.com/frahmantamala/college-erp/internal/establishment/postgres"
	"github.com/frahmantamala/college-erp/internal/master"
	masterPostgres "github.com/frahmantamala/college-erp/internal/master/postgres"
	"github.com/frahmantamala/college-erp/internal/notification"
	"github.com/frahmantamala/college-erp/internal/transport/rest"
	"github.com/frahmantamala/college-erp/internal/user"
	userPostgres "github.com/frahmantamala/college-erp/internal/user/postgres"
	"github.com/frahmantamala/college-erp/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
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
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

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

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	bus := events.NewEventBus(lg)
	recorder := audit.NewGormRecorder(lg)

	passwords := auth.NewPasswordManager(cfg.Security.BCryptCost, cfg.Security.PasswordHistoryDepth)
	otpEngine := auth.NewOTPEngine(cfg.Security.OTPExpiry)
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	mailer := notification.NewMailer(cfg.Mail, lg)

	authRepo := authPostgres.NewRepository(deps.Gorm, recorder)
	authService := auth.NewService(authRepo, mailer, tokens, otpEngine, passwords, bus, lg)
	authHandler := auth.NewHandler(authService)

	userRepo := userPostgres.NewRepository(deps.Gorm, recorder)
	userService := user.NewService(userRepo, passwords, bus, lg)
	userHandler := user.NewHandler(userService)

	masterRepo := masterPostgres.NewRepository(deps.Gorm, recorder)
	masterService := master.NewService(masterRepo, lg)
	masterHandler := master.NewHandler(masterService)

	sequenceRepo := establishmentPostgres.NewRepository(deps.Gorm)
	establishmentService := establishment.NewService(userRepo, sequenceRepo, passwords, mailer, lg)
	establishmentHandler := establishment.NewHandler(establishmentService)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, authHandler, userHandler, masterHandler, establishmentHandler, lg)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx pool: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),
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
