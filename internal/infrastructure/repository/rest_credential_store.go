package repository

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
	"ecomai-shopify-bridge/internal/infrastructure/repository/entity"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

const (
	shopsPath    = "/rest/v1/shops"
	shopsColumns = "shop_domain,access_token,access_scopes,is_active,token_created_at,token_updated_at,deleted_at"
	maxErrorBody = 4 << 10
)

// RESTCredentialStore implements CredentialStore against a PostgREST (Supabase) shops table
type RESTCredentialStore struct {
	baseURL    string
	serviceKey string
	encryption ports.EncryptionService
	httpClient *http.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// NewRESTCredentialStore creates a new PostgREST credential store
func NewRESTCredentialStore(
	baseURL string,
	serviceKey string,
	encryption ports.EncryptionService,
	httpClient *http.Client,
	logger zerolog.Logger,
) *RESTCredentialStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &RESTCredentialStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		encryption: encryption,
		httpClient: httpClient,
		now:        time.Now,
		logger:     logger,
	}
}

// FetchCredential retrieves a shop's credential by domain
func (s *RESTCredentialStore) FetchCredential(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	query := url.Values{}
	query.Set("select", shopsColumns)
	query.Set("shop_domain", "eq."+shop)
	query.Set("limit", "1")

	resp, err := s.do(ctx, http.MethodGet, shopsPath+"?"+query.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows []entity.ShopRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: failed to decode shop rows: %w", domain.ErrPersistence, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// UpsertCredential encrypts the token and merges the shop row on shop_domain
func (s *RESTCredentialStore) UpsertCredential(ctx context.Context, shop string, accessToken string, scopes []string) error {
	encrypted, err := s.encryption.EncryptToken(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	existing, err := s.FetchCredential(ctx, shop)
	if err != nil {
		return err
	}

	cred := domain.Install(existing, shop, encrypted, scopes, s.now())
	row := entity.ShopRowFromDomain(cred)
	if existing != nil && existing.TokenCreatedAt != nil {
		// token_created_at is only written when the row does not carry one yet
		row.TokenCreatedAt = nil
	}

	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode shop row: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, shopsPath+"?on_conflict=shop_domain", body, map[string]string{
		"Prefer": "resolution=merge-duplicates,return=minimal",
	})
	if err != nil {
		return err
	}
	resp.Body.Close()

	s.logger.Info().Str("shop", shop).Bool("reinstall", existing != nil).Msg("Shop installation saved")
	return nil
}

// MarkUninstalled soft-deletes the shop row, keeping token_created_at
func (s *RESTCredentialStore) MarkUninstalled(ctx context.Context, shop string) error {
	body, err := json.Marshal(entity.UninstallPatchAt(s.now()))
	if err != nil {
		return fmt.Errorf("failed to encode uninstall patch: %w", err)
	}

	query := url.Values{}
	query.Set("shop_domain", "eq."+shop)
	resp, err := s.do(ctx, http.MethodPatch, shopsPath+"?"+query.Encode(), body, map[string]string{
		"Prefer": "return=minimal",
	})
	if err != nil {
		return err
	}
	resp.Body.Close()

	s.logger.Info().Str("shop", shop).Msg("Shop marked as uninstalled")
	return nil
}

// do sends an authenticated PostgREST request and fails on any non-2xx status
func (s *RESTCredentialStore) do(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	if s.baseURL == "" || s.serviceKey == "" {
		return nil, fmt.Errorf("%w: credential store URL or service key missing", domain.ErrConfiguration)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", domain.ErrPersistence, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrPersistence, method, shopsPath, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}
