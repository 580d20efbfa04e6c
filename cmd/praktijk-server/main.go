package main

import (
	"context"
	"crypto/rand"
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

	"github.com/praktijk/praktijk/internal/config"
	"github.com/praktijk/praktijk/internal/domain/appointment"
	"github.com/praktijk/praktijk/internal/domain/billing"
	"github.com/praktijk/praktijk/internal/domain/clinical"
	"github.com/praktijk/praktijk/internal/domain/consent"
	"github.com/praktijk/praktijk/internal/domain/messaging"
	"github.com/praktijk/praktijk/internal/domain/patient"
	"github.com/praktijk/praktijk/internal/domain/practice"
	"github.com/praktijk/praktijk/internal/domain/staff"
	"github.com/praktijk/praktijk/internal/platform/audit"
	"github.com/praktijk/praktijk/internal/platform/auth"
	"github.com/praktijk/praktijk/internal/platform/db"
	"github.com/praktijk/praktijk/internal/platform/metrics"
	"github.com/praktijk/praktijk/internal/platform/middleware"
	"github.com/praktijk/praktijk/internal/platform/privacy"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "praktijk-server",
		Short: "Dental practice management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(practiceCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

			fmt.Printf("Applied %d migration(s).\n", count)
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
				return fmt.Errorf("migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration instead.")
			return nil
		},
	})

	return cmd
}

func practiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Manage practices",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new practice",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			agb, _ := cmd.Flags().GetString("agb-code")
			if name == "" || email == "" {
				return fmt.Errorf("--name and --email are required")
			}

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

			svc := practice.NewService(practice.NewRepo(pool), pool)
			p := &practice.Practice{Name: name, Email: email, AGBCode: &agb}
			if err := svc.CreatePractice(ctx, p); err != nil {
				return err
			}
			fmt.Printf("Practice created: %s\n", p.ID)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Practice name")
	createCmd.Flags().String("email", "", "Practice contact email")
	createCmd.Flags().String("agb-code", "", "AGB code of the practice")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Key material for the identifier vault, from Vault or the environment.
	material, err := loadKeyMaterial(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load bsn key material")
	}
	keyring, err := material.Keyring()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build keyring")
	}

	auditLog := audit.NewLogger(pool)
	vault, err := privacy.NewVault(keyring, material.HashKey, auditLog)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build identifier vault")
	}
	logger.Info().Int("key_version", keyring.CurrentVersion()).Msg("identifier vault ready")

	// Token revocation backed by redis when available.
	var revocations auth.RevocationStore
	if cfg.RedisURL != "" {
		store, err := auth.NewRedisRevocationStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer store.Close()
		revocations = store
		logger.Info().Msg("token revocation backed by redis")
	} else {
		revocations = auth.NewMemoryRevocationStore()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(metrics.Middleware())

	// Health and metrics stay outside the practice scope.
	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	if cfg.IsDev() {
		devPractice := uuid.New()
		if cfg.DevPracticeID != "" {
			devPractice, err = uuid.Parse(cfg.DevPracticeID)
			if err != nil {
				logger.Fatal().Err(err).Msg("invalid DEV_PRACTICE_ID")
			}
		}
		logger.Warn().Str("practice_id", devPractice.String()).Msg("dev auth active")
		api.Use(auth.DevAuthMiddleware(devPractice))
	} else {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:      cfg.AuthIssuer,
			Audience:    cfg.AuthAudience,
			JWKSURL:     cfg.AuthJWKSURL,
			SigningKey:  []byte(cfg.AuthSigningKey),
			Revocations: revocations,
		}))
	}

	// Every request below runs inside a practice-scoped transaction.
	api.Use(db.PracticeMiddleware(pool))

	practiceSvc := practice.NewService(practice.NewRepo(pool), pool)
	practice.NewHandler(practiceSvc).RegisterRoutes(api)

	staffSvc := staff.NewService(staff.NewRepo(pool))
	staff.NewHandler(staffSvc).RegisterRoutes(api)

	patientSvc := patient.NewService(patient.NewRepo(pool), vault)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	appointmentSvc := appointment.NewService(appointment.NewRepo(pool))
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)

	clinicalSvc := clinical.NewService(clinical.NewRepo(pool), auditLog)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(api)

	billingSvc := billing.NewService(billing.NewRepo(pool), patientSvc)
	billing.NewHandler(billingSvc).RegisterRoutes(api)

	consentSvc := consent.NewService(consent.NewRepo(pool))
	consent.NewHandler(consentSvc).RegisterRoutes(api)

	messagingSvc := messaging.NewService(messaging.NewRepo(pool))
	messaging.NewHandler(messagingSvc).RegisterRoutes(api)

	auditGroup := api.Group("", auth.RequirePermission(auth.PermAuditRead))
	audit.NewHandler(auditLog).RegisterRoutes(auditGroup)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()
	logger.Info().Str("port", cfg.Port).Bool("tls", cfg.TLSEnabled).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func loadKeyMaterial(ctx context.Context, cfg *config.Config) (*privacy.KeyMaterial, error) {
	if cfg.UseVaultKeys() {
		source, err := privacy.NewVaultKeySource(cfg.VaultAddr, cfg.VaultToken, cfg.VaultKeyPath)
		if err != nil {
			return nil, err
		}
		return source.Load(ctx)
	}
	if cfg.IsDev() && cfg.BSNEncryptionKey == "" {
		// Throwaway keys so a dev server starts without configuration.
		// Everything encrypted with them is unreadable after a restart.
		return &privacy.KeyMaterial{
			CurrentKey:     randomKey(),
			CurrentVersion: 1,
			HashKey:        randomKey(),
		}, nil
	}
	return privacy.ParseKeyMaterial(cfg.BSNEncryptionKey, cfg.BSNKeyVersion, cfg.BSNHashKey, cfg.BSNPreviousKeys)
}

func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}
