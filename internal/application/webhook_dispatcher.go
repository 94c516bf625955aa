package application

import (
	"context"
	"fmt"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookDispatcher routes verified webhooks to the handler for their topic
type WebhookDispatcher struct {
	handlers []ports.WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(logger zerolog.Logger, handlers ...ports.WebhookHandler) *WebhookDispatcher {
	return &WebhookDispatcher{handlers: handlers, logger: logger}
}

// Register adds a handler
func (d *WebhookDispatcher) Register(handler ports.WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch hands event to the first handler that accepts its topic.
// Unverified events are refused.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	if !event.Verified {
		return fmt.Errorf("%w: webhook signature not verified", domain.ErrAuthentication)
	}
	for _, h := range d.handlers {
		if h.CanHandle(event.Topic) {
			return h.Handle(ctx, event)
		}
	}
	d.logger.Warn().Str("topic", event.Topic).Str("shop", event.Shop).Msg("No handler for webhook topic")
	return nil
}
