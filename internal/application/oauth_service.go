package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/infrastructure/shopify"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultStateTTL bounds how long an issued state nonce stays valid
const DefaultStateTTL = 10 * time.Minute

// Callback outcomes reported to metrics
const (
	installSuccess          = "success"
	installRejected         = "rejected"
	installUpstreamError    = "upstream_error"
	installPersistenceError = "persistence_error"
	installInternalError    = "internal_error"
)

// OAuthConfig holds the install flow settings
type OAuthConfig struct {
	APISecret   string
	Scopes      []string
	RedirectURI string
	AdminPath   string
	StateTTL    time.Duration
}

// OAuthService drives the Shopify install round trip
type OAuthService struct {
	shopify     ports.ShopifyClient
	store       ports.CredentialStore
	ledger      ports.StateLedger
	runner      *SideEffectRunner
	sideEffects []SideEffect
	metrics     ports.MetricsRecorder
	config      OAuthConfig
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOAuthService creates a new OAuth service. ledger may be nil, in which
// case the state cookie alone protects the callback.
func NewOAuthService(
	shopifyClient ports.ShopifyClient,
	store ports.CredentialStore,
	ledger ports.StateLedger,
	runner *SideEffectRunner,
	sideEffects []SideEffect,
	metrics ports.MetricsRecorder,
	config OAuthConfig,
	logger zerolog.Logger,
) *OAuthService {
	if config.StateTTL <= 0 {
		config.StateTTL = DefaultStateTTL
	}
	if config.AdminPath == "" {
		config.AdminPath = "/admin"
	}
	return &OAuthService{
		shopify:     shopifyClient,
		store:       store,
		ledger:      ledger,
		runner:      runner,
		sideEffects: sideEffects,
		metrics:     metrics,
		config:      config,
		now:         time.Now,
		logger:      logger,
	}
}

// StartResult is what the adapter needs to redirect the merchant to Shopify
type StartResult struct {
	Shop         string
	State        string
	AuthorizeURL string
	ExpiresAt    time.Time
}

// Start validates the shop and builds the authorization redirect
func (s *OAuthService) Start(ctx context.Context, shop string) (*StartResult, error) {
	s.stage(domain.StageStart, shop).Msg("OAuth install started")

	if !domain.IsValidShopDomain(shop) {
		s.reject(shop, "invalid shop domain")
		return nil, fmt.Errorf("%w: missing or invalid shop", domain.ErrValidation)
	}

	state, err := generateState()
	if err != nil {
		return nil, err
	}

	now := s.now()
	if s.ledger != nil {
		if err := s.ledger.Save(ctx, state, shop, s.config.StateTTL); err != nil {
			s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to record OAuth state")
			return nil, err
		}
	}

	authURL, err := s.shopify.GenerateAuthURL(shop, s.config.Scopes, s.config.RedirectURI, state)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to generate auth URL")
		return nil, err
	}

	s.stage(domain.StageRedirectedToProvider, shop).
		Str("redirect_uri", s.config.RedirectURI).
		Msg("Redirecting to Shopify authorization")

	return &StartResult{
		Shop:         shop,
		State:        state,
		AuthorizeURL: authURL,
		ExpiresAt:    now.Add(s.config.StateTTL),
	}, nil
}

// CallbackInput is the raw callback request as seen by the adapter
type CallbackInput struct {
	Query       url.Values
	StateCookie string
}

// CallbackResult carries what the adapter must set on the response
type CallbackResult struct {
	Shop        string
	AccessToken string
	Scopes      []string
	RedirectURL string
}

// Callback verifies Shopify's redirect, exchanges the code and persists the credential
func (s *OAuthService) Callback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	query := in.Query
	shop := query.Get("shop")
	code := query.Get("code")
	s.stage(domain.StageCallbackReceived, shop).Msg("OAuth callback received")

	if shop == "" || code == "" {
		s.reject(shop, "missing shop or code")
		return nil, fmt.Errorf("%w: missing params", domain.ErrValidation)
	}
	if !domain.IsValidShopDomain(shop) {
		s.reject(shop, "invalid shop domain")
		return nil, fmt.Errorf("%w: missing or invalid shop", domain.ErrValidation)
	}

	if !shopify.VerifyQueryHMAC(query, query.Get("hmac"), s.config.APISecret) {
		s.metrics.ObserveHMACRejection("oauth_callback")
		s.reject(shop, "hmac mismatch")
		return nil, fmt.Errorf("%w: invalid HMAC", domain.ErrAuthentication)
	}

	state := query.Get("state")
	if state == "" || in.StateCookie == "" || subtle.ConstantTimeCompare([]byte(state), []byte(in.StateCookie)) != 1 {
		s.reject(shop, "state mismatch")
		return nil, fmt.Errorf("%w: invalid state", domain.ErrAuthentication)
	}
	if s.ledger != nil {
		issuedFor, err := s.ledger.Consume(ctx, state)
		if err != nil {
			s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to consume OAuth state")
			s.metrics.ObserveInstall(installInternalError)
			return nil, err
		}
		if issuedFor != shop {
			s.reject(shop, "state not issued for shop or already used")
			return nil, fmt.Errorf("%w: invalid state", domain.ErrAuthentication)
		}
	}
	s.stage(domain.StageVerified, shop).Msg("OAuth callback verified")

	grant, err := s.shopify.ExchangeToken(ctx, shop, code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		s.metrics.ObserveInstall(installUpstreamError)
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return nil, err
	}
	scopes := domain.ParseScopes(grant.Scope)
	s.stage(domain.StageTokenExchanged, shop).Strs("scopes", scopes).Msg("Access token obtained")

	if err := s.store.UpsertCredential(ctx, shop, grant.AccessToken, scopes); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save shop installation")
		s.metrics.ObserveInstall(installPersistenceError)
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return nil, err
	}
	s.stage(domain.StagePersisted, shop).Msg("Shop installation saved")

	s.runner.Dispatch(ctx, domain.InstallationUpdate{
		ShopDomain:  shop,
		AccessToken: grant.AccessToken,
		Scopes:      scopes,
		Status:      domain.StatusInstalled,
		OccurredAt:  s.now(),
	}, s.sideEffects)
	s.stage(domain.StageSideEffectsDispatched, shop).Int("count", len(s.sideEffects)).Msg("Install side effects finished")

	redirect := s.config.AdminPath + "?shop=" + url.QueryEscape(shop)
	if host := query.Get("host"); host != "" {
		redirect += "&host=" + url.QueryEscape(host)
	}

	s.metrics.ObserveInstall(installSuccess)
	s.stage(domain.StageDone, shop).Msg("OAuth install completed")

	return &CallbackResult{
		Shop:        shop,
		AccessToken: grant.AccessToken,
		Scopes:      scopes,
		RedirectURL: redirect,
	}, nil
}

func (s *OAuthService) stage(stage domain.OAuthStage, shop string) *zerolog.Event {
	return s.logger.Info().Str("stage", stage.String()).Str("shop", shop)
}

func (s *OAuthService) reject(shop, reason string) {
	s.metrics.ObserveInstall(installRejected)
	s.logger.Warn().
		Str("stage", domain.StageRejected.String()).
		Str("shop", shop).
		Str("reason", reason).
		Msg("OAuth request rejected")
}

// generateState returns 16 random bytes as hex
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
