package application

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SSO token defaults
const (
	DefaultSSOIssuer   = "ecomai-connect"
	DefaultSSOAudience = "ecomai"
	DefaultSSOTTL      = 120 * time.Second
	DefaultSSOTarget   = "http://localhost:3000/sso"
)

// SSOConfig holds the handoff token settings
type SSOConfig struct {
	Secret         string
	Target         string
	AllowQueryShop bool
	Issuer         string
	Audience       string
	TTL            time.Duration
}

// SSOClaims is the payload of a handoff token
type SSOClaims struct {
	Shop  string `json:"shop"`
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// SSORequest carries the shop candidates of an SSO call
type SSORequest struct {
	CookieShop string
	QueryShop  string
}

// SSOResult is the redirect target handed back to the embedded admin page
type SSOResult struct {
	URL       string
	Shop      string
	ExpiresAt time.Time
}

// SSOService issues short-lived tokens that hand an admin session to the Ecomai web app
type SSOService struct {
	config  SSOConfig
	metrics ports.MetricsRecorder
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSSOService creates a new SSO service
func NewSSOService(config SSOConfig, metrics ports.MetricsRecorder, logger zerolog.Logger) *SSOService {
	if config.Issuer == "" {
		config.Issuer = DefaultSSOIssuer
	}
	if config.Audience == "" {
		config.Audience = DefaultSSOAudience
	}
	if config.TTL <= 0 {
		config.TTL = DefaultSSOTTL
	}
	if config.Target == "" {
		config.Target = DefaultSSOTarget
	}
	return &SSOService{config: config, metrics: metrics, now: time.Now, logger: logger}
}

// Issue signs a token for the session's shop and returns the target URL
func (s *SSOService) Issue(ctx context.Context, req SSORequest) (*SSOResult, error) {
	shop := req.CookieShop
	if !domain.IsValidShopDomain(shop) {
		shop = ""
		if s.config.AllowQueryShop && domain.IsValidShopDomain(req.QueryShop) {
			shop = req.QueryShop
			s.logger.Warn().Str("shop", shop).Msg("SSO shop taken from query parameter, no session cookie")
		}
	}
	if shop == "" {
		return nil, fmt.Errorf("%w: no shop session", domain.ErrAuthentication)
	}

	if s.config.Secret == "" {
		s.logger.Error().Msg("CONNECT_SSO_JWT_SECRET is not set")
		return nil, fmt.Errorf("%w: missing CONNECT_SSO_JWT_SECRET", domain.ErrConfiguration)
	}

	now := s.now()
	expiresAt := now.Add(s.config.TTL)
	claims := SSOClaims{
		Shop:  shop,
		Nonce: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign sso token: %w", err)
	}

	s.metrics.ObserveSSOIssued()
	s.logger.Info().Str("shop", shop).Time("expires_at", expiresAt).Msg("SSO token issued")

	return &SSOResult{
		URL:       s.config.Target + "#token=" + url.QueryEscape(token),
		Shop:      shop,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken verifies a handoff token's signature, algorithm, issuer, audience and expiry
func (s *SSOService) ParseToken(tokenStr string) (*SSOClaims, error) {
	if s.config.Secret == "" {
		return nil, fmt.Errorf("%w: missing CONNECT_SSO_JWT_SECRET", domain.ErrConfiguration)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenStr, &SSOClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	claims, ok := token.Claims.(*SSOClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}
