package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecomai-shopify-bridge/internal/application"
	"ecomai-shopify-bridge/internal/application/webhook_handlers"
	"ecomai-shopify-bridge/internal/config"
	"ecomai-shopify-bridge/internal/infrastructure/api"
	"ecomai-shopify-bridge/internal/infrastructure/connect"
	"ecomai-shopify-bridge/internal/infrastructure/encryption"
	"ecomai-shopify-bridge/internal/infrastructure/events"
	"ecomai-shopify-bridge/internal/infrastructure/metrics"
	"ecomai-shopify-bridge/internal/infrastructure/migrate"
	"ecomai-shopify-bridge/internal/infrastructure/repository"
	shopifyinfra "ecomai-shopify-bridge/internal/infrastructure/shopify"
	"ecomai-shopify-bridge/internal/infrastructure/statestore"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	outbound := &http.Client{Timeout: cfg.OutboundTimeout}

	store, closeStore := newCredentialStore(ctx, cfg, encryptionService, outbound, logger)
	defer closeStore()

	// The Redis ledger is optional; without it the state cookie alone guards the callback
	var ledger ports.StateLedger
	if cfg.RedisURL != "" {
		redisLedger, err := statestore.NewRedisLedgerFromURL(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisLedger.Close()
		ledger = redisLedger
		logger.Info().Msg("OAuth state ledger enabled")
	}

	recorder := metrics.NewRecorder()

	shopifyClient := shopifyinfra.NewClientWithOptions(
		cfg.ShopifyAPIKey,
		cfg.ShopifyAPISecret,
		cfg.ShopifyAPIVersion,
		outbound,
		logger.With().Str("component", "shopify").Logger(),
	)
	notifier := connect.NewNotifier(cfg.ConnectBase, cfg.ConnectWebhookSecret, outbound, logger)
	registrar := connect.NewRegistrar(cfg.WebhookRegistrationURL, cfg.WebhookRegistrationSecret, outbound, logger)
	publisher, err := events.NewSNSPublisher(ctx, cfg.InstallEventsTopicARN, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize SNS publisher")
	}

	runner := application.NewSideEffectRunner(cfg.OutboundTimeout, recorder, logger)

	// Initialize application services
	oauthService := application.NewOAuthService(
		shopifyClient,
		store,
		ledger,
		runner,
		application.InstallSideEffects(shopifyClient, registrar, notifier, publisher, cfg.UninstallWebhookAddress()),
		recorder,
		application.OAuthConfig{
			APISecret:   cfg.ShopifyAPISecret,
			Scopes:      cfg.Scopes,
			RedirectURI: cfg.RedirectURI(),
			AdminPath:   cfg.AdminPath,
		},
		logger,
	)

	ssoService := application.NewSSOService(application.SSOConfig{
		Secret:         cfg.SSOSecret,
		Target:         cfg.SSOTarget,
		AllowQueryShop: cfg.SSOAllowQueryShop,
	}, recorder, logger)

	credentialsService := application.NewCredentialsService(store, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.Register(webhook_handlers.NewAppUninstalledHandler(
		logger,
		store,
		runner,
		application.UninstallSideEffects(notifier, publisher),
		recorder,
	))

	handlers := api.NewHandlers(
		oauthService,
		ssoService,
		credentialsService,
		webhookDispatcher,
		recorder,
		cfg.ShopifyAPISecret,
		logger,
	)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        recorder.Handler(),
		SwaggerFile:    "./docs/swagger.json",
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down server")
		}
	}()

	logger.Info().Str("port", cfg.Port).Str("credential_store", cfg.CredentialStore).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
	logger.Info().Msg("Server stopped")
}

// newCredentialStore builds the backend selected by CREDENTIAL_STORE and a
// func that releases it
func newCredentialStore(
	ctx context.Context,
	cfg *config.Config,
	enc ports.EncryptionService,
	httpClient *http.Client,
	logger zerolog.Logger,
) (ports.CredentialStore, func()) {
	storeLogger := logger.With().Str("credential_store", cfg.CredentialStore).Logger()

	switch cfg.CredentialStore {
	case config.StorePostgres:
		if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		return repository.NewPostgresCredentialStore(db, enc, storeLogger), db.Close

	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		db := client.Database(cfg.MongoDatabase)
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		return repository.NewMongoCredentialStore(db, enc, storeLogger), func() {
			client.Disconnect(context.Background())
		}

	default:
		return repository.NewRESTCredentialStore(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, enc, httpClient, storeLogger), func() {}
	}
}
