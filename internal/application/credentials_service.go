package application

import (
	"context"
	"fmt"
	"time"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

// CredentialsService answers installation status questions for the embedded admin page
type CredentialsService struct {
	store  ports.CredentialStore
	logger zerolog.Logger
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(store ports.CredentialStore, logger zerolog.Logger) *CredentialsService {
	return &CredentialsService{
		store:  store,
		logger: logger,
	}
}

// InstallationStatus is the public view of a shop credential. It never
// includes the token.
type InstallationStatus struct {
	Shop           string     `json:"shop"`
	Installed      bool       `json:"installed"`
	Scopes         []string   `json:"scopes"`
	TokenCreatedAt *time.Time `json:"token_created_at"`
	TokenUpdatedAt *time.Time `json:"token_updated_at"`
	UninstalledAt  *time.Time `json:"uninstalled_at,omitempty"`
}

// GetStatus reports whether shop currently has an active installation
func (s *CredentialsService) GetStatus(ctx context.Context, shop string) (*InstallationStatus, error) {
	if !domain.IsValidShopDomain(shop) {
		return nil, fmt.Errorf("%w: no shop session", domain.ErrAuthentication)
	}

	cred, err := s.store.FetchCredential(ctx, shop)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to get shop credential")
		return nil, err
	}

	status := &InstallationStatus{Shop: shop, Scopes: []string{}}
	if cred == nil {
		return status, nil
	}

	status.Installed = cred.IsActive()
	status.Scopes = cred.Scopes
	status.TokenCreatedAt = cred.TokenCreatedAt
	status.UninstalledAt = cred.DeletedAt
	if !cred.TokenUpdatedAt.IsZero() {
		updated := cred.TokenUpdatedAt
		status.TokenUpdatedAt = &updated
	}
	return status, nil
}
