package application

import (
	"context"
	"sync"
	"time"

	"ecomai-shopify-bridge/internal/domain"
)

type fakeShopifyClient struct {
	mu        sync.Mutex
	grant     *domain.AccessGrant
	err       error
	exchanged []string
	webhooks  []string
}

func (f *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state, nil
}

func (f *fakeShopifyClient) ExchangeToken(ctx context.Context, shop string, code string) (*domain.AccessGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.grant, nil
}

func (f *fakeShopifyClient) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks = append(f.webhooks, topic+" "+address)
	return nil
}

type upsertCall struct {
	shop   string
	token  string
	scopes []string
}

type fakeStore struct {
	mu          sync.Mutex
	creds       map[string]*domain.ShopCredential
	upserts     []upsertCall
	uninstalled []string
	err         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{creds: map[string]*domain.ShopCredential{}}
}

func (f *fakeStore) FetchCredential(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.creds[shop], nil
}

func (f *fakeStore) UpsertCredential(ctx context.Context, shop string, accessToken string, scopes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, upsertCall{shop: shop, token: accessToken, scopes: scopes})
	f.creds[shop] = domain.Install(f.creds[shop], shop, []byte("enc:"+accessToken), scopes, time.Now())
	return nil
}

func (f *fakeStore) MarkUninstalled(ctx context.Context, shop string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.uninstalled = append(f.uninstalled, shop)
	if cred, ok := f.creds[shop]; ok {
		cred.Uninstall(time.Now())
	}
	return nil
}

type fakeLedger struct {
	mu     sync.Mutex
	states map[string]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{states: map[string]string{}}
}

func (f *fakeLedger) Save(ctx context.Context, state string, shop string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = shop
	return nil
}

func (f *fakeLedger) Consume(ctx context.Context, state string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shop := f.states[state]
	delete(f.states, state)
	return shop, nil
}

type fakeMetrics struct {
	mu          sync.Mutex
	installs    map[string]int
	uninstalls  map[string]int
	hmac        map[string]int
	sideEffects map[string]int
	sso         int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{installs: map[string]int{}, uninstalls: map[string]int{}, hmac: map[string]int{}, sideEffects: map[string]int{}}
}

func (f *fakeMetrics) ObserveInstall(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs[outcome]++
}

func (f *fakeMetrics) ObserveUninstall(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninstalls[outcome]++
}

func (f *fakeMetrics) ObserveHMACRejection(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hmac[kind]++
}

func (f *fakeMetrics) ObserveSideEffect(name string, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sideEffects[name+"/"+outcome]++
}

func (f *fakeMetrics) ObserveSSOIssued() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sso++
}

func (f *fakeMetrics) sideEffect(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sideEffects[key]
}
