package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vibevids/internal/domain"
	httpapi "vibevids/internal/http"
	"vibevids/internal/http/handlers"
	"vibevids/internal/infra"
	"vibevids/internal/provider"
	"vibevids/internal/referrals"
	"vibevids/internal/storage"
	"vibevids/internal/store"
	"vibevids/internal/vibes"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		videoStore    domain.VideoStore
		profileStore  domain.ProfileStore
		referralStore domain.ReferralStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		pg := store.NewPostgres(pool)
		videoStore, profileStore, referralStore = pg, pg, pg
	} else {
		mem := store.NewMemory()
		seedDevProfile(ctx, mem, logger)
		videoStore, profileStore, referralStore = mem, mem, mem
		logger.Warn().Msg("api: DATABASE_URL not set, using in-memory store")
	}

	// Object storage: S3-compatible when configured, local filesystem in
	// development, none otherwise (provider URLs stored as-is).
	var objects storage.ObjectStore
	switch {
	case cfg.StorageConfigured():
		s3, err := storage.NewMinio(storage.MinioOptions{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("api: failed to configure object storage")
		}
		objects = s3
	case cfg.AppEnv == "development":
		fs, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: failed to configure file storage")
		}
		objects = fs
	default:
		logger.Warn().Msg("api: no object storage configured, provider URLs will be served directly")
	}

	var genClient provider.Client
	if cfg.VideoProvider == "kling" {
		kling, err := provider.NewKling(provider.KlingOptions{
			APIKey:     cfg.FalKey,
			Model:      cfg.KlingModel,
			BaseURL:    cfg.FalBaseURL,
			HTTPClient: &http.Client{Timeout: 60 * time.Second},
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("api: failed to configure kling provider")
		}
		genClient = kling
	} else {
		genClient = provider.NewMock(3 * time.Second)
		logger.Info().Msg("api: using mock generation provider")
	}

	reconciler := vibes.NewReconciler(videoStore, logger)
	dispatcher := vibes.NewDispatcher(videoStore, genClient, objects, reconciler, logger, vibes.DispatcherOptions{
		SubmitMaxAttempts: cfg.SubmitMaxAttempts,
		SubmitBackoffBase: cfg.SubmitBackoffBase,
		PollInterval:      cfg.PollInterval,
		PollMaxAttempts:   cfg.PollMaxAttempts,
	})
	referralSvc := referrals.NewService(profileStore, referralStore, logger)
	vibeSvc := vibes.NewService(videoStore, dispatcher, reconciler, referralSvc, objects, logger)

	app := handlers.NewApp(vibeSvc, referralSvc, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("workers did not drain before deadline")
	}
	logger.Info().Msg("server stopped")
}

// seedDevProfile makes the in-memory mode usable without an identity
// service: DEV_USER_ID gets a profile with a small quota.
func seedDevProfile(ctx context.Context, mem *store.Memory, logger infra.Logger) {
	userID := os.Getenv("DEV_USER_ID")
	if userID == "" {
		return
	}
	profile := &domain.Profile{
		UserID:       userID,
		StorageLimit: 5,
		ReferralCode: referrals.GenerateCode(referrals.DefaultCodeLength),
	}
	if err := mem.CreateProfile(ctx, profile); err != nil {
		logger.Warn().Err(err).Msg("api: failed to seed dev profile")
		return
	}
	logger.Info().Str("user_id", userID).Str("referral_code", profile.ReferralCode).Msg("api: seeded dev profile")
}
