package cmd

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
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vantagehq/vantage/internal/api"
	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/config"
	"github.com/vantagehq/vantage/internal/google"
	"github.com/vantagehq/vantage/internal/logging"
	"github.com/vantagehq/vantage/internal/metrics"
	"github.com/vantagehq/vantage/internal/ratelimit"
	"github.com/vantagehq/vantage/internal/rbac"
	"github.com/vantagehq/vantage/internal/service"
	"github.com/vantagehq/vantage/internal/session"
	"github.com/vantagehq/vantage/internal/tasks"
	"github.com/vantagehq/vantage/internal/users"
)

const (
	refreshSweepInterval = 5 * time.Minute
	bucketSweepInterval  = 10 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Vantage server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}
		burstPerSecond, _ := cmd.Flags().GetInt("burst-rps")
		burstSize, _ := cmd.Flags().GetInt("burst-size")

		metrics.Init()

		registry := rbac.NewRegistry()

		var tokenOpts []auth.ServiceOption
		if cfg.Auth.AccessTTL > 0 {
			tokenOpts = append(tokenOpts, auth.WithAccessTTL(cfg.Auth.AccessTTL))
		}
		if cfg.Auth.RefreshTTL > 0 {
			tokenOpts = append(tokenOpts, auth.WithRefreshTTL(cfg.Auth.RefreshTTL))
		}
		if cfg.Auth.Issuer != "" {
			tokenOpts = append(tokenOpts, auth.WithIssuer(cfg.Auth.Issuer))
		}
		tokens, err := auth.NewTokenService(
			cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret,
			registry, auth.NewMemoryRefreshStore(), tokenOpts...,
		)
		if err != nil {
			return fmt.Errorf("building token service: %w", err)
		}

		store := users.NewMemoryStore()
		seeded, err := seedUsers(cmd.Context(), store, cfg.Users)
		if err != nil {
			return fmt.Errorf("seeding users: %w", err)
		}
		if seeded > 0 {
			log.Info().Msgf("Seeded %d user(s) from config", seeded)
		}

		var verifier google.Verifier
		if cfg.Google != nil {
			log.Info().Msg("Initializing Google sign-in...")
			v, err := google.NewOIDCVerifier(cmd.Context(), cfg.Google.ClientID)
			if err != nil {
				return fmt.Errorf("building google verifier: %w", err)
			}
			verifier = v
		}

		auditor, err := buildAuditor(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			if err := auditor.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing audit sink")
			}
		}()

		authSvc := service.NewAuthService(store, tokens, verifier, auditor)
		sessions := session.NewManager(!cfg.Server.IsDevelopment(), tokens.AccessTTL(), tokens.RefreshTTL())

		tiers, err := cfg.Tiers()
		if err != nil {
			return fmt.Errorf("resolving rate-limit tiers: %w", err)
		}
		limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())

		manager := tasks.NewManager()
		manager.Register("refresh-token-sweep", refreshSweepInterval, func(ctx context.Context, logger logging.InternalLogger) error {
			swept, err := tokens.SweepExpired(ctx)
			if err != nil {
				return err
			}
			active, err := tokens.ActiveSessions(ctx)
			if err != nil {
				return err
			}
			metrics.SetActiveRefreshTokens(active)
			logger.Info("swept %d expired refresh token(s), %d active", swept, active)
			return nil
		})
		manager.Register("ratelimit-bucket-sweep", bucketSweepInterval, func(ctx context.Context, logger logging.InternalLogger) error {
			dropped, err := limiter.SweepExpired(ctx)
			if err != nil {
				return err
			}
			logger.Info("dropped %d lapsed rate-limit bucket(s)", dropped)
			return nil
		})

		srv := api.NewServer(api.Deps{
			AuthService:    authSvc,
			Sessions:       sessions,
			Users:          store,
			Registry:       registry,
			Limiter:        limiter,
			Tiers:          tiers,
			TaskManager:    manager,
			Auditor:        auditor,
			Ownership:      cfg.OwnershipRules(),
			CORSOrigin:     cfg.Server.CORSOrigin,
			BurstPerSecond: burstPerSecond,
			BurstSize:      burstSize,
		})

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting server on %s (%s)...", addr, cfg.Server.Environment)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

// seedUsers creates the configured accounts, skipping emails that already
// exist so restarts do not trip over their own seeds.
func seedUsers(ctx context.Context, store users.Store, seeds []config.SeedUser) (int, error) {
	seeded := 0
	for _, seed := range seeds {
		_, err := store.FindByEmail(ctx, seed.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, users.ErrNotFound) {
			return seeded, err
		}

		id := seed.ID
		if id == "" {
			id = uuid.NewString()
		}
		if err := store.Create(ctx, users.User{
			ID:           id,
			Email:        seed.Email,
			FullName:     seed.FullName,
			PasswordHash: seed.PasswordHash,
			Role:         rbac.Role(seed.Role),
			Provider:     users.ProviderLocal,
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			return seeded, fmt.Errorf("creating user '%s': %w", seed.Email, err)
		}
		seeded++
	}
	return seeded, nil
}

func buildAuditor(cfg config.AuditConfig) (audit.Auditor, error) {
	switch cfg.Type {
	case "memory":
		return audit.NewInMemoryAuditor(), nil
	case "file":
		return audit.NewFileAuditor(cfg.Path)
	case "none":
		return audit.NewNoopAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (defaults to server.addr from config)")
	serveCmd.Flags().Int("burst-rps", 50, "per-client burst guard, sustained requests per second (0 disables)")
	serveCmd.Flags().Int("burst-size", 100, "per-client burst guard, bucket size (0 disables)")
}
