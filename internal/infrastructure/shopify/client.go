package shopify

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
	"ecomai-shopify-bridge/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultAPIVersion is the Admin API version used for webhook registration
const DefaultAPIVersion = "2025-10"

// maxErrorBody bounds how much of an upstream error body is read
const maxErrorBody = 4 << 10

type client struct {
	apiKey     string
	apiSecret  string
	apiVersion string
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	return NewClientWithOptions(apiKey, apiSecret, DefaultAPIVersion, &http.Client{Timeout: 5 * time.Second}, logger)
}

// NewClientWithOptions creates a client bound to an API version and HTTP client
func NewClientWithOptions(
	apiKey, apiSecret string,
	apiVersion string,
	httpClient *http.Client,
	logger zerolog.Logger,
) ports.ShopifyClient {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		apiVersion: apiVersion,
		app:        app,
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(
		c.app,
		shopDomain,
		accessToken,
		goshopify.WithVersion(c.apiVersion),
		goshopify.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Authentication methods

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	if !domain.IsValidShopDomain(shop) {
		return "", fmt.Errorf("%w: invalid shop domain", domain.ErrValidation)
	}

	// Shopify expects scopes to be comma-separated (no spaces)
	params := url.Values{}
	params.Set("client_id", c.apiKey)
	params.Set("scope", strings.Join(scopes, ","))
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)

	authURL := url.URL{
		Scheme:   "https",
		Host:     shop,
		Path:     "/admin/oauth/authorize",
		RawQuery: params.Encode(),
	}

	c.logger.Debug().
		Str("shop", shop).
		Strs("scopes", scopes).
		Str("redirect_uri", redirectURI).
		Msg("Generated OAuth authorization URL")

	return authURL.String(), nil
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (*domain.AccessGrant, error) {
	body, err := json.Marshal(tokenRequest{
		ClientID:     c.apiKey,
		ClientSecret: c.apiSecret,
		Code:         code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange token: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().
			Str("shop", shop).
			Int("status", resp.StatusCode).
			Int("body_bytes", len(detail)).
			Msg("Token exchange rejected")
		return nil, fmt.Errorf("%w: token exchange returned status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var grant domain.AccessGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token response: %v", domain.ErrUpstream, err)
	}
	if grant.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", domain.ErrUpstream)
	}

	return &grant, nil
}

// Webhook API

func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	created, err := client.Webhook.Create(ctx, webhook)
	if err != nil {
		return fmt.Errorf("%w: failed to create webhook: %v", domain.ErrUpstream, err)
	}

	event := c.logger.Info().Str("shop", shopDomain).Str("topic", topic)
	if created != nil {
		event = event.Uint64("webhook_id", created.Id)
	}
	event.Msg("Registered Shopify webhook")
	return nil
}
