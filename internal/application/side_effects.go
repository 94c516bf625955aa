package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Side effect outcomes reported to metrics
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomePanic   = "panic"
)

// SideEffect is a named best-effort action run after an install or uninstall
type SideEffect struct {
	Name string
	Run  func(ctx context.Context, update domain.InstallationUpdate) error
}

// SideEffectRunner runs side effects concurrently. A failing, panicking or
// unconfigured effect is logged and counted, never returned.
type SideEffectRunner struct {
	timeout time.Duration
	metrics ports.MetricsRecorder
	logger  zerolog.Logger
}

// NewSideEffectRunner creates a runner that bounds every effect by timeout
func NewSideEffectRunner(timeout time.Duration, metrics ports.MetricsRecorder, logger zerolog.Logger) *SideEffectRunner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SideEffectRunner{timeout: timeout, metrics: metrics, logger: logger}
}

// Dispatch runs effects and waits for all of them. Request cancellation does
// not abort effects that already started.
func (r *SideEffectRunner) Dispatch(ctx context.Context, update domain.InstallationUpdate, effects []SideEffect) {
	if len(effects) == 0 {
		return
	}

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	// run reports through logs and metrics, so the group never carries an error
	var g errgroup.Group
	for _, effect := range effects {
		g.Go(func() error {
			r.run(detached, effect, update)
			return nil
		})
	}
	g.Wait()
}

func (r *SideEffectRunner) run(ctx context.Context, effect SideEffect, update domain.InstallationUpdate) {
	log := r.logger.With().
		Str("side_effect", effect.Name).
		Str("shop", update.ShopDomain).
		Str("status", string(update.Status)).
		Logger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Side effect panicked")
			r.metrics.ObserveSideEffect(effect.Name, OutcomePanic)
		}
	}()

	err := effect.Run(ctx, update)
	switch {
	case err == nil:
		log.Info().Msg("Side effect completed")
		r.metrics.ObserveSideEffect(effect.Name, OutcomeSuccess)
	case errors.Is(err, domain.ErrNotConfigured):
		log.Warn().Err(err).Msg("Side effect skipped")
		r.metrics.ObserveSideEffect(effect.Name, OutcomeSkipped)
	default:
		log.Error().Err(err).Msg("Side effect failed")
		r.metrics.ObserveSideEffect(effect.Name, OutcomeFailure)
	}
}

// InstallSideEffects lists what happens after a shop installs the app.
// Nil dependencies are left out.
func InstallSideEffects(
	shopifyClient ports.ShopifyClient,
	registrar ports.WebhookRegistrar,
	notifier ports.InstallationNotifier,
	publisher ports.LifecyclePublisher,
	uninstallWebhookAddress string,
) []SideEffect {
	var effects []SideEffect
	if shopifyClient != nil {
		effects = append(effects, SideEffect{
			Name: "shopify_webhook_registration",
			Run: func(ctx context.Context, update domain.InstallationUpdate) error {
				if uninstallWebhookAddress == "" {
					return fmt.Errorf("%w: APP_URL is not set", domain.ErrNotConfigured)
				}
				return shopifyClient.CreateWebhook(ctx, update.ShopDomain, update.AccessToken, domain.TopicAppUninstalled, uninstallWebhookAddress)
			},
		})
	}
	if registrar != nil {
		effects = append(effects, SideEffect{
			Name: "webhook_registration_service",
			Run: func(ctx context.Context, update domain.InstallationUpdate) error {
				return registrar.RegisterWebhook(ctx, update.ShopDomain, domain.TopicAppUninstalled, uninstallWebhookAddress)
			},
		})
	}
	return append(effects, lifecycleEffects(notifier, publisher)...)
}

// UninstallSideEffects lists what happens after a verified uninstall webhook
func UninstallSideEffects(notifier ports.InstallationNotifier, publisher ports.LifecyclePublisher) []SideEffect {
	return lifecycleEffects(notifier, publisher)
}

func lifecycleEffects(notifier ports.InstallationNotifier, publisher ports.LifecyclePublisher) []SideEffect {
	var effects []SideEffect
	if notifier != nil {
		effects = append(effects, SideEffect{Name: "connect_push", Run: notifier.NotifyInstallation})
	}
	if publisher != nil {
		effects = append(effects, SideEffect{Name: "lifecycle_event", Run: publisher.PublishLifecycle})
	}
	return effects
}
