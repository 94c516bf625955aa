package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the request body
	SignatureHeader = "X-Connect-Signature"

	installedPath = "/api/shopify/installed"
	maxErrorBody  = 4 << 10
)

type installationPayload struct {
	ShopDomain  string   `json:"shop_domain"`
	AccessToken string   `json:"access_token"`
	Scopes      []string `json:"scopes"`
	Status      string   `json:"status,omitempty"`
}

// Notifier pushes installation updates to the Connect service
type Notifier struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewNotifier creates a Connect notifier. It is switched off unless both
// baseURL and secret are set.
func NewNotifier(baseURL, secret string, httpClient *http.Client, logger zerolog.Logger) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Notifier{
		baseURL:    strings.TrimSpace(baseURL),
		secret:     secret,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NotifyInstallation posts the update to <base>/api/shopify/installed with a signed body
func (n *Notifier) NotifyInstallation(ctx context.Context, update domain.InstallationUpdate) error {
	if n.baseURL == "" {
		return fmt.Errorf("%w: ECOMAI_CONNECT_BASE is not set", domain.ErrNotConfigured)
	}
	if n.secret == "" {
		return fmt.Errorf("%w: CONNECT_WEBHOOK_SECRET is not set", domain.ErrNotConfigured)
	}

	base, err := url.Parse(n.baseURL)
	if err != nil {
		return fmt.Errorf("%w: invalid connect base url: %w", domain.ErrConfiguration, err)
	}
	target := base.ResolveReference(&url.URL{Path: installedPath})

	scopes := update.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	body, err := json.Marshal(installationPayload{
		ShopDomain:  update.ShopDomain,
		AccessToken: update.AccessToken,
		Scopes:      scopes,
		Status:      string(update.Status),
	})
	if err != nil {
		return fmt.Errorf("failed to encode installation payload: %w", err)
	}

	if err := post(ctx, n.httpClient, target.String(), body, shopify.SignHex(body, n.secret)); err != nil {
		return err
	}

	n.logger.Info().
		Str("shop", update.ShopDomain).
		Str("status", string(update.Status)).
		Msg("Installation pushed to Connect")
	return nil
}

type registrationPayload struct {
	ShopDomain string `json:"shop_domain"`
	Topic      string `json:"topic"`
	Address    string `json:"address"`
}

// Registrar asks the webhook-registration service to subscribe a shop to a topic
type Registrar struct {
	endpoint   string
	secret     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewRegistrar creates a registration client. The secret is optional; when
// set the body is signed the same way as Connect pushes.
func NewRegistrar(endpoint, secret string, httpClient *http.Client, logger zerolog.Logger) *Registrar {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Registrar{
		endpoint:   strings.TrimSpace(endpoint),
		secret:     secret,
		httpClient: httpClient,
		logger:     logger,
	}
}

// RegisterWebhook posts the registration request
func (r *Registrar) RegisterWebhook(ctx context.Context, shop string, topic string, address string) error {
	if r.endpoint == "" {
		return fmt.Errorf("%w: CONNECT_WEBHOOK_REGISTRATION_URL is not set", domain.ErrNotConfigured)
	}

	body, err := json.Marshal(registrationPayload{ShopDomain: shop, Topic: topic, Address: address})
	if err != nil {
		return fmt.Errorf("failed to encode registration payload: %w", err)
	}

	signature := ""
	if r.secret != "" {
		signature = shopify.SignHex(body, r.secret)
	}
	if err := post(ctx, r.httpClient, r.endpoint, body, signature); err != nil {
		return err
	}

	r.logger.Info().Str("shop", shop).Str("topic", topic).Msg("Webhook registration requested")
	return nil
}

func post(ctx context.Context, httpClient *http.Client, target string, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request to %s failed: %w", domain.ErrUpstream, req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", domain.ErrUpstream, req.URL.Host, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
