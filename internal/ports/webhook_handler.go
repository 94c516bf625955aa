package ports

import (
	"context"

	"ecomai-shopify-bridge/internal/domain"
)

// WebhookHandler processes one kind of verified Shopify webhook
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}
