package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orflow/orflow/internal/config"
	"github.com/orflow/orflow/internal/domain/analytics"
	"github.com/orflow/orflow/internal/domain/block"
	"github.com/orflow/orflow/internal/domain/emergency"
	"github.com/orflow/orflow/internal/domain/equipment"
	"github.com/orflow/orflow/internal/domain/identity"
	"github.com/orflow/orflow/internal/domain/optimizer"
	"github.com/orflow/orflow/internal/domain/prediction"
	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/internal/platform/db"
	"github.com/orflow/orflow/internal/platform/locking"
	"github.com/orflow/orflow/internal/platform/metrics"
	"github.com/orflow/orflow/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orflow-server",
		Short: "Surgical scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(metrics.HTTPMetrics())

	// Prometheus
	metrics.Register()
	e.GET("/metrics", metrics.Handler())

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiV1 := e.Group("/api/v1")

	// Shared infrastructure: the room catalog is fixed, the keyed mutex
	// serializes all schedule writes per room and date.
	rooms := room.DefaultCatalog()
	locks := locking.NewKeyedMutex()

	// Identity directory
	resolver := identity.NewResolver(identity.NewDirectoryPG(pool), logger)

	// Surgery domain
	caseRepo := surgery.NewCaseRepoPG(pool)
	historyRepo := surgery.NewHistoryRepoPG(pool)
	surgerySvc := surgery.NewService(caseRepo, historyRepo, rooms, resolver, locks, logger,
		cfg.DayStartMinutes, cfg.TurnoverMinutes)
	surgery.NewHandler(surgerySvc).RegisterRoutes(apiV1)

	// Block time domain
	blockRepo := block.NewRepoPG(pool)
	blockSvc := block.NewService(blockRepo, rooms, resolver, surgerySvc, logger)
	block.NewHandler(blockSvc).RegisterRoutes(apiV1)

	// Equipment domain
	equipRegistry := equipment.NewRegistryPG(pool)
	equipSchedule := equipment.NewScheduleRepoPG(pool)
	equipSvc := equipment.NewService(equipRegistry, equipSchedule, locks, logger,
		cfg.EquipmentBufferMinutes)
	equipment.NewHandler(equipSvc).RegisterRoutes(apiV1)

	// Prediction domain
	predSvc := prediction.NewService(surgerySvc, historyRepo, logger,
		cfg.RiskHighThreshold, cfg.RiskMediumThreshold)
	prediction.NewHandler(predSvc).RegisterRoutes(apiV1)

	// Schedule optimizer
	optSvc := optimizer.NewService(surgerySvc, rooms, logger,
		cfg.DayEndMinutes, cfg.TurnoverMinutes)
	optimizer.NewHandler(optSvc).RegisterRoutes(apiV1)

	// Emergency insertion
	emergSvc := emergency.NewService(surgerySvc, rooms, resolver, equipSvc, locks, logger,
		cfg.TurnoverMinutes)
	emergency.NewHandler(emergSvc).RegisterRoutes(apiV1)

	// Analytics
	analyticsSvc := analytics.NewService(surgerySvc, rooms, logger, cfg.DayEndMinutes,
		analytics.Thresholds{
			UtilizationLowPct:   cfg.UtilizationLowPct,
			UtilizationHighPct:  cfg.UtilizationHighPct,
			TurnoverWarnMinutes: cfg.TurnoverWarnMinutes,
			CancellationWarnPct: cfg.CancellationWarnPct,
		})
	analytics.NewHandler(analyticsSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
