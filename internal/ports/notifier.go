package ports

import (
	"context"

	"ecomai-shopify-bridge/internal/domain"
)

// InstallationNotifier relays install and uninstall events to a downstream service.
// Implementations return domain.ErrNotConfigured when switched off.
type InstallationNotifier interface {
	NotifyInstallation(ctx context.Context, update domain.InstallationUpdate) error
}

// WebhookRegistrar asks an external service to register a Shopify webhook for a shop
type WebhookRegistrar interface {
	RegisterWebhook(ctx context.Context, shop string, topic string, address string) error
}

// LifecyclePublisher fans installation lifecycle events out to subscribers
type LifecyclePublisher interface {
	PublishLifecycle(ctx context.Context, update domain.InstallationUpdate) error
}
