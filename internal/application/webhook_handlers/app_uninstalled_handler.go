package webhook_handlers

import (
	"context"
	"encoding/json"
	"time"

	"ecomai-shopify-bridge/internal/application"
	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

// Uninstall outcomes reported to metrics
const (
	uninstallSuccess          = "success"
	uninstallPersistenceError = "persistence_error"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger      zerolog.Logger
	store       ports.CredentialStore
	runner      *application.SideEffectRunner
	sideEffects []application.SideEffect
	metrics     ports.MetricsRecorder
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(
	logger zerolog.Logger,
	store ports.CredentialStore,
	runner *application.SideEffectRunner,
	sideEffects []application.SideEffect,
	metrics ports.MetricsRecorder,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:      logger,
		store:       store,
		runner:      runner,
		sideEffects: sideEffects,
		metrics:     metrics,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle soft-deletes the shop and tells downstream services. Failures are
// logged; the webhook is acknowledged either way.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var shopData struct {
			MyshopifyDomain string `json:"myshopify_domain"`
		}
		if err := json.Unmarshal(event.Payload, &shopData); err == nil {
			shopDomain = shopData.MyshopifyDomain
		}
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("Processing app uninstalled webhook event")

	if err := h.store.MarkUninstalled(ctx, shopDomain); err != nil {
		h.logger.Error().Err(err).Str("shop", shopDomain).Msg("Failed to mark shop as uninstalled")
		h.metrics.ObserveUninstall(uninstallPersistenceError)
	} else {
		h.metrics.ObserveUninstall(uninstallSuccess)
	}

	occurred := event.ReceivedAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	h.runner.Dispatch(ctx, domain.InstallationUpdate{
		ShopDomain:  shopDomain,
		AccessToken: "",
		Scopes:      []string{},
		Status:      domain.StatusUninstalled,
		OccurredAt:  occurred,
	}, h.sideEffects)

	h.logger.Info().Str("shop", shopDomain).Msg("App uninstalled - cleanup completed")
	return nil
}
