package ports

import (
	"context"

	"ecomai-shopify-bridge/internal/domain"
)

// ShopifyClient defines the Shopify calls made during installation
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	ExchangeToken(ctx context.Context, shop string, code string) (*domain.AccessGrant, error)

	// Webhook API
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error
}
