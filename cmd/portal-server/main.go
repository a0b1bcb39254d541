package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orvio/clinic-portal/internal/config"
	"github.com/orvio/clinic-portal/internal/domain/admin"
	"github.com/orvio/clinic-portal/internal/domain/audit"
	"github.com/orvio/clinic-portal/internal/domain/cases"
	"github.com/orvio/clinic-portal/internal/domain/identity"
	"github.com/orvio/clinic-portal/internal/domain/patient"
	"github.com/orvio/clinic-portal/internal/platform/auth"
	"github.com/orvio/clinic-portal/internal/platform/db"
	"github.com/orvio/clinic-portal/internal/platform/esign"
	"github.com/orvio/clinic-portal/internal/platform/metrics"
	"github.com/orvio/clinic-portal/internal/platform/middleware"
	"github.com/orvio/clinic-portal/internal/platform/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "Clinic/pharmacy referral portal API server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	var migrationsDir string

	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(migrationsDir, false)
		},
	}
	migrateUpCmd.Flags().StringVar(&migrationsDir, "dir", "./migrations", "migrations directory")

	migrateStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(migrationsDir, true)
		},
	}
	migrateStatusCmd.Flags().StringVar(&migrationsDir, "dir", "./migrations", "migrations directory")

	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo organizations and admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "portal-server").Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	cancel()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	sessions := auth.NewManager([]byte(cfg.AuthSecret), cfg.SessionTTL, cfg.IsProduction())
	store := storage.NewLocalDriver(cfg.StorageDir)

	provider, err := esign.Select(cfg.ESignProvider, cfg.FormsDir)
	if err != nil {
		return fmt.Errorf("select e-sign provider: %w", err)
	}
	logger.Info().Str("provider", provider.Name()).Msg("e-sign provider selected")

	metrics.Init()

	orgRepo := admin.NewOrganizationRepo(pool)
	userRepo := identity.NewUserRepo(pool)
	patientRepo := patient.NewRepo(pool)
	auditRepo := audit.NewRepo(pool)
	caseRepo := cases.NewCaseRepo(pool)
	docRepo := cases.NewDocumentRepo(pool)
	envelopeRepo := cases.NewEnvelopeRepo(pool)

	orgSvc := admin.NewService(orgRepo)
	userSvc := identity.NewService(userRepo)
	patientSvc := patient.NewService(patientRepo)
	auditSvc := audit.NewService(auditRepo, logger)
	caseSvc := cases.NewService(caseRepo, docRepo, envelopeRepo, orgRepo, patientRepo, store, provider, auditSvc, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(metrics.Middleware())
	e.Use(sessions.Load())
	e.Use(middleware.AccessLog(logger, accessRecorder(auditSvc)))

	e.GET("/healthz", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	identity.NewHandler(userSvc, sessions).RegisterRoutes(e, api)
	admin.NewHandler(orgSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	cases.NewHandler(caseSvc).RegisterRoutes(api)
	audit.NewHandler(auditSvc).RegisterRoutes(api)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// accessRecorder feeds the HTTP access trail into the audit store. Reads are
// skipped so the table stays focused on writes; the workflow records its own
// domain-level events on top of these.
func accessRecorder(svc *audit.Service) middleware.AccessRecorderFunc {
	return func(entry middleware.AccessEntry) error {
		if entry.Action == "read" {
			return nil
		}
		ev := &audit.Event{
			Action:     "HTTP_" + entry.Action,
			EntityType: entry.EntityType,
			Meta: map[string]any{
				"method":     entry.Method,
				"path":       entry.Path,
				"status":     entry.StatusCode,
				"request_id": entry.RequestID,
				"ip":         entry.IPAddress,
			},
		}
		if id, err := uuid.Parse(entry.UserID); err == nil {
			ev.UserID = &id
		}
		if id, err := uuid.Parse(entry.OrgID); err == nil {
			ev.OrgID = &id
		}
		svc.Record(context.Background(), ev)
		return nil
	}
}

func runMigrate(dir string, statusOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrator := db.NewMigrator(pool, dir)
	if err := migrator.EnsureMigrationsTable(ctx); err != nil {
		return err
	}

	if statusOnly {
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%03d  %-30s %s\n", s.Version, s.Name, state)
		}
		return nil
	}

	applied, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("applied %d migration(s)\n", applied)
	return nil
}

// Demo fixtures. The fixed org IDs let re-runs and local links stay stable;
// org inserts are idempotent on id so seeding twice is harmless.
var (
	seedClinicOrgID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	seedPharmacyOrgID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func runSeed() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	orgRepo := admin.NewOrganizationRepo(pool)
	userRepo := identity.NewUserRepo(pool)
	userSvc := identity.NewService(userRepo)

	err = db.RunInTx(ctx, pool, func(ctx context.Context) error {
		orgs := []*admin.Organization{
			{ID: seedClinicOrgID, Type: auth.OrgClinic, Name: "Orvio Clinic (Demo)"},
			{ID: seedPharmacyOrgID, Type: auth.OrgPharmacy, Name: "Pharmacie Kévin Boivin inc."},
		}
		for _, org := range orgs {
			if err := orgRepo.Create(ctx, org); err != nil {
				return fmt.Errorf("seed org %s: %w", org.Name, err)
			}
		}

		users := []struct {
			email string
			name  string
			orgID uuid.UUID
			role  auth.Role
		}{
			{"clinic.admin@example.com", "Clinic Admin", seedClinicOrgID, auth.ClinicAdmin},
			{"pharmacy.admin@example.com", "Pharmacy Admin", seedPharmacyOrgID, auth.PharmacyAdmin},
		}
		for _, u := range users {
			if existing, err := userRepo.GetByEmail(ctx, u.email); err == nil && existing != nil {
				logger.Info().Str("email", u.email).Msg("user already seeded, skipping")
				continue
			}
			if _, err := userSvc.CreateUser(ctx, u.email, u.name, "changeme", u.orgID, u.role); err != nil {
				return fmt.Errorf("seed user %s: %w", u.email, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().Msg("seed complete")
	return nil
}
