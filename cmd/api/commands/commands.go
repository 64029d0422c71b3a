package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/bacheca/internal/application/services"
	"github.com/taskmaster/bacheca/internal/infrastructure/config"
	"github.com/taskmaster/bacheca/internal/infrastructure/database"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/infrastructure/scheduler"
	"github.com/taskmaster/bacheca/internal/infrastructure/server"
	"github.com/taskmaster/bacheca/internal/ports"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "none"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var (
		storage string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Bacheca API server",
		Long:  "Start the Bacheca API server with all configured routes, middleware and housekeeping jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if storage != "" {
				cfg.Database.Driver = storage
			}
			return runServer(cmd.Context(), cfg, migrate)
		},
	}

	cmd.Flags().StringVar(&storage, "storage", "", "Storage driver override (postgres, sqlite, memory)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending postgres migrations before serving")
	return cmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the postgres schema (up, down, version). SQLite databases migrate themselves on open.",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				changed, err := m.Up()
				if err != nil {
					return err
				}
				reportChange(cmd, "up", changed)
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				changed, err := m.Down()
				if err != nil {
					return err
				}
				reportChange(cmd, "down", changed)
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("Current migration version: %d\n", version)
				cmd.Printf("Dirty: %t\n", dirty)
				return nil
			})
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Create users directly in the configured storage",
	}

	var req ports.RegisterRequest
	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user with one board per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return errors.New("user create needs persistent storage, not the memory driver")
			}

			log := logger.NewNop()
			b, err := openBackend(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer b.Close()

			svc := services.New(b.repos, b.cache, cfg, log)
			user, err := svc.Auth.CreateAccount(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			cmd.Println("User created successfully:")
			cmd.Printf("  ID: %s\n", user.ID)
			cmd.Printf("  Name: %s\n", user.Name)
			cmd.Printf("  Login: %s\n", user.Login)
			return nil
		},
	}

	createUserCmd.Flags().StringVar(&req.Name, "name", "", "Display name (required)")
	createUserCmd.Flags().StringVar(&req.Login, "login", "", "Login (required)")
	createUserCmd.Flags().StringVar(&req.Password, "password", "", "Password (required)")
	_ = createUserCmd.MarkFlagRequired("name")
	_ = createUserCmd.MarkFlagRequired("login")
	_ = createUserCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Bacheca version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Bacheca %s\n", Version)
			cmd.Printf("Build Date: %s\n", BuildDate)
			cmd.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(parent context.Context, cfg *config.Config, migrate bool) error {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, appLogger, migrate)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			appLogger.Errorw("Failed to close storage", "error", err)
		}
	}()

	svc := services.New(b.repos, b.cache, cfg, appLogger)

	if cfg.App.SeedDemo {
		if err := seedDemo(ctx, svc, appLogger); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	if cfg.Housekeeping.Enabled {
		jobs := scheduler.New(appLogger)
		if _, err := jobs.ScheduleTokenCleanup(cfg.Housekeeping.TokenCleanupSpec, svc.Auth); err != nil {
			return err
		}
		jobs.Start()
		defer jobs.Stop()
	}

	srv, err := server.New(cfg, svc, appLogger, b.checks...)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	appLogger.Infow("Starting Bacheca API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"storage", cfg.Database.Driver,
		"redis", cfg.Redis.Enabled,
	)

	serveErr := make(chan error, 1)
	go func() {
		address := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		if err := srv.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	appLogger.Info("Server stopped")
	return nil
}

func withMigrator(fn func(m *database.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations apply to the postgres driver, configured driver is %q", cfg.Database.Driver)
	}

	m, err := database.NewMigrator(cfg.Database)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(m)
}

func reportChange(cmd *cobra.Command, direction string, changed bool) {
	if !changed {
		cmd.Println("No migrations to run")
		return
	}
	cmd.Printf("Migration %s completed successfully\n", direction)
}
