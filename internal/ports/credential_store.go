package ports

import (
	"context"

	"ecomai-shopify-bridge/internal/domain"
)

// CredentialStore persists one credential record per shop domain
type CredentialStore interface {
	// FetchCredential returns (nil, nil) when the shop has never been installed
	FetchCredential(ctx context.Context, shop string) (*domain.ShopCredential, error)

	// UpsertCredential encrypts accessToken and creates or refreshes the shop's record
	UpsertCredential(ctx context.Context, shop string, accessToken string, scopes []string) error

	// MarkUninstalled soft-deletes the shop's record
	MarkUninstalled(ctx context.Context, shop string) error
}
