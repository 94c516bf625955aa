package webhook_handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ecomai-shopify-bridge/internal/application"
	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubStore struct {
	uninstalled []string
	err         error
}

func (s *stubStore) FetchCredential(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	return nil, nil
}

func (s *stubStore) UpsertCredential(ctx context.Context, shop string, accessToken string, scopes []string) error {
	return nil
}

func (s *stubStore) MarkUninstalled(ctx context.Context, shop string) error {
	s.uninstalled = append(s.uninstalled, shop)
	return s.err
}

type capture struct {
	mu      sync.Mutex
	updates []domain.InstallationUpdate
}

func (c *capture) effect() application.SideEffect {
	return application.SideEffect{Name: "capture", Run: func(ctx context.Context, u domain.InstallationUpdate) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.updates = append(c.updates, u)
		return nil
	}}
}

type uninstallCounter struct {
	metrics.Nop
	outcomes []string
}

func (u *uninstallCounter) ObserveUninstall(outcome string) {
	u.outcomes = append(u.outcomes, outcome)
}

func newHandler(store *stubStore, c *capture) *AppUninstalledHandler {
	return newCountingHandler(store, c, &uninstallCounter{})
}

func newCountingHandler(store *stubStore, c *capture, counter *uninstallCounter) *AppUninstalledHandler {
	runner := application.NewSideEffectRunner(time.Second, metrics.Nop{}, zerolog.Nop())
	return NewAppUninstalledHandler(zerolog.Nop(), store, runner, []application.SideEffect{c.effect()}, counter)
}

func TestAppUninstalledHandler_CanHandle(t *testing.T) {
	h := newHandler(&stubStore{}, &capture{})
	assert.True(t, h.CanHandle("app/uninstalled"))
	assert.False(t, h.CanHandle("orders/create"))
}

func TestAppUninstalledHandler_Handle(t *testing.T) {
	store := &stubStore{}
	c := &capture{}
	h := newHandler(store, c)

	err := h.Handle(context.Background(), &domain.WebhookEvent{
		Topic:    domain.TopicAppUninstalled,
		Shop:     "foo.myshopify.com",
		Payload:  []byte(`{"id":1}`),
		Verified: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"foo.myshopify.com"}, store.uninstalled)
	if assert.Len(t, c.updates, 1) {
		u := c.updates[0]
		assert.Equal(t, "foo.myshopify.com", u.ShopDomain)
		assert.Empty(t, u.AccessToken)
		assert.Equal(t, []string{}, u.Scopes)
		assert.Equal(t, domain.StatusUninstalled, u.Status)
	}
}

func TestAppUninstalledHandler_ShopFromPayload(t *testing.T) {
	store := &stubStore{}
	h := newHandler(store, &capture{})

	err := h.Handle(context.Background(), &domain.WebhookEvent{
		Topic:   domain.TopicAppUninstalled,
		Payload: []byte(`{"myshopify_domain":"bar.myshopify.com"}`),
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"bar.myshopify.com"}, store.uninstalled)
}

func TestAppUninstalledHandler_StoreFailureStillAcknowledged(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	c := &capture{}
	counter := &uninstallCounter{}
	h := newCountingHandler(store, c, counter)

	err := h.Handle(context.Background(), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "foo.myshopify.com"})
	assert.NoError(t, err)
	assert.Len(t, c.updates, 1)
	assert.Equal(t, []string{"persistence_error"}, counter.outcomes)
}

func TestAppUninstalledHandler_CountsSuccessfulWrite(t *testing.T) {
	counter := &uninstallCounter{}
	h := newCountingHandler(&stubStore{}, &capture{}, counter)

	err := h.Handle(context.Background(), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "foo.myshopify.com"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"success"}, counter.outcomes)
}
