package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PostgresCredentialStore implements CredentialStore on a shops table reached directly over pgx
type PostgresCredentialStore struct {
	db         *DB
	encryption ports.EncryptionService
	now        func() time.Time
	logger     zerolog.Logger
}

// NewPostgresCredentialStore creates a new Postgres credential store
func NewPostgresCredentialStore(db *DB, encryption ports.EncryptionService, logger zerolog.Logger) *PostgresCredentialStore {
	return &PostgresCredentialStore{
		db:         db,
		encryption: encryption,
		now:        time.Now,
		logger:     logger,
	}
}

// FetchCredential selects a shop row by domain
func (s *PostgresCredentialStore) FetchCredential(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	const q = `
SELECT shop_domain, access_token, access_scopes, is_active, token_created_at, token_updated_at, deleted_at
FROM shops WHERE shop_domain=$1`
	var (
		cred   domain.ShopCredential
		active bool
	)
	err := s.db.Pool.QueryRow(ctx, q, shop).Scan(
		&cred.ShopDomain,
		&cred.EncryptedToken,
		&cred.Scopes,
		&active,
		&cred.TokenCreatedAt,
		&cred.TokenUpdatedAt,
		&cred.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get shop: %w", domain.ErrPersistence, err)
	}
	cred.Status = domain.StatusFromActive(active)
	if cred.Scopes == nil {
		cred.Scopes = []string{}
	}
	return &cred, nil
}

// UpsertCredential inserts or refreshes the shop row in one statement.
// token_created_at keeps the stored value when there is one.
func (s *PostgresCredentialStore) UpsertCredential(ctx context.Context, shop string, accessToken string, scopes []string) error {
	encrypted, err := s.encryption.EncryptToken(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	cred := domain.Install(nil, shop, encrypted, scopes, s.now())

	const q = `
INSERT INTO shops (shop_domain, access_token, access_scopes, is_active, token_created_at, token_updated_at, deleted_at)
VALUES ($1, $2, $3, TRUE, $4, $5, NULL)
ON CONFLICT (shop_domain) DO UPDATE SET
	access_token = EXCLUDED.access_token,
	access_scopes = EXCLUDED.access_scopes,
	is_active = TRUE,
	token_created_at = COALESCE(shops.token_created_at, EXCLUDED.token_created_at),
	token_updated_at = EXCLUDED.token_updated_at,
	deleted_at = NULL`
	_, err = s.db.Pool.Exec(ctx, q, cred.ShopDomain, cred.EncryptedToken, cred.Scopes, *cred.TokenCreatedAt, cred.TokenUpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save shop: %w", domain.ErrPersistence, err)
	}

	s.logger.Info().Str("shop", shop).Msg("Shop installation saved")
	return nil
}

// MarkUninstalled clears the token and scopes and stamps deleted_at
func (s *PostgresCredentialStore) MarkUninstalled(ctx context.Context, shop string) error {
	now := s.now().UTC()

	const q = `
UPDATE shops
SET access_token = NULL, access_scopes = '{}', is_active = FALSE, token_updated_at = $2, deleted_at = $2
WHERE shop_domain = $1`
	tag, err := s.db.Pool.Exec(ctx, q, shop, now)
	if err != nil {
		return fmt.Errorf("%w: failed to mark shop uninstalled: %w", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Warn().Str("shop", shop).Msg("Uninstall for unknown shop")
		return nil
	}

	s.logger.Info().Str("shop", shop).Msg("Shop marked as uninstalled")
	return nil
}
