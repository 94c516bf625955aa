package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ecomai-shopify-bridge/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Credential store backends
const (
	StoreREST     = "rest"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config is built once at startup and passed to constructors
type Config struct {
	Port string

	ShopifyAPIKey     string
	ShopifyAPISecret  string
	Scopes            []string
	AppURL            string
	ShopifyAPIVersion string
	AdminPath         string

	EncryptionKey string

	CredentialStore        string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	DatabaseURL            string
	MongoURI               string
	MongoDatabase          string

	SSOSecret         string
	SSOTarget         string
	SSOAllowQueryShop bool

	ConnectBase               string
	ConnectWebhookSecret      string
	WebhookRegistrationURL    string
	WebhookRegistrationSecret string

	RedisURL              string
	InstallEventsTopicARN string

	OutboundTimeout    time.Duration
	CORSAllowedOrigins []string
}

// Load reads .env when present, then the process environment
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults and validating it
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:                      get("PORT", "8080"),
		ShopifyAPIKey:             get("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:          get("SHOPIFY_API_SECRET", ""),
		Scopes:                    domain.ParseScopes(get("SCOPES", "")),
		AppURL:                    strings.TrimRight(get("APP_URL", ""), "/"),
		ShopifyAPIVersion:         get("SHOPIFY_API_VERSION", "2025-10"),
		AdminPath:                 get("ADMIN_PATH", "/admin"),
		EncryptionKey:             get("CONNECT_ENCRYPTION_KEY", ""),
		CredentialStore:           strings.ToLower(get("CREDENTIAL_STORE", StoreREST)),
		SupabaseURL:               strings.TrimRight(get("CONNECT_SUPABASE_URL", ""), "/"),
		SupabaseServiceRoleKey:    get("CONNECT_SUPABASE_SERVICE_ROLE_KEY", ""),
		DatabaseURL:               get("DATABASE_URL", ""),
		MongoURI:                  get("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:             get("MONGODB_DATABASE", "ecomai"),
		SSOSecret:                 get("CONNECT_SSO_JWT_SECRET", ""),
		SSOTarget:                 get("ECOMAI_SSO_TARGET", "http://localhost:3000/sso"),
		ConnectBase:               get("ECOMAI_CONNECT_BASE", ""),
		ConnectWebhookSecret:      get("CONNECT_WEBHOOK_SECRET", ""),
		WebhookRegistrationURL:    get("CONNECT_WEBHOOK_REGISTRATION_URL", ""),
		WebhookRegistrationSecret: get("CONNECT_WEBHOOK_REGISTRATION_SECRET", ""),
		RedisURL:                  get("REDIS_URL", ""),
		InstallEventsTopicARN:     get("INSTALL_EVENTS_TOPIC_ARN", ""),
	}

	var errs []error

	allowQuery, err := strconv.ParseBool(get("SSO_ALLOW_QUERY_SHOP", "true"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SSO_ALLOW_QUERY_SHOP: %w", err))
	}
	cfg.SSOAllowQueryShop = allowQuery

	timeout, err := time.ParseDuration(get("OUTBOUND_TIMEOUT", "5s"))
	if err != nil || timeout <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOUND_TIMEOUT must be a positive duration"))
		timeout = 5 * time.Second
	}
	cfg.OutboundTimeout = timeout

	for _, origin := range strings.Split(get("CORS_ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if !strings.HasPrefix(cfg.AdminPath, "/") {
		cfg.AdminPath = "/" + cfg.AdminPath
	}

	if err := errors.Join(append(errs, cfg.Validate())...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required value at once
func (c *Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", domain.ErrConfiguration, name))
		}
	}

	require("SHOPIFY_API_KEY", c.ShopifyAPIKey)
	require("SHOPIFY_API_SECRET", c.ShopifyAPISecret)
	require("APP_URL", c.AppURL)
	require("CONNECT_ENCRYPTION_KEY", c.EncryptionKey)
	if len(c.Scopes) == 0 {
		errs = append(errs, fmt.Errorf("%w: SCOPES is required", domain.ErrConfiguration))
	}

	switch c.CredentialStore {
	case StoreREST:
		require("CONNECT_SUPABASE_URL", c.SupabaseURL)
		require("CONNECT_SUPABASE_SERVICE_ROLE_KEY", c.SupabaseServiceRoleKey)
	case StorePostgres:
		require("DATABASE_URL", c.DatabaseURL)
	case StoreMongo:
		require("MONGODB_URI", c.MongoURI)
	default:
		errs = append(errs, fmt.Errorf("%w: CREDENTIAL_STORE must be one of rest, postgres, mongo", domain.ErrConfiguration))
	}

	return errors.Join(errs...)
}

// RedirectURI is the OAuth callback registered with Shopify
func (c *Config) RedirectURI() string {
	return c.AppURL + "/oauth/callback"
}

// UninstallWebhookAddress is where Shopify delivers app/uninstalled
func (c *Config) UninstallWebhookAddress() string {
	return c.AppURL + "/webhooks/app-uninstalled"
}
