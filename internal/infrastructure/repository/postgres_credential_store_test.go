package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecomai-shopify-bridge/internal/domain"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEncryption tags tokens instead of encrypting them
type stubEncryption struct{ err error }

func (s stubEncryption) EncryptToken(plaintext string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("enc:" + plaintext), nil
}

func (s stubEncryption) DecryptToken(blob []byte) (string, error) {
	return string(blob[len("enc:"):]), nil
}

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var shopColumns = []string{"shop_domain", "access_token", "access_scopes", "is_active", "token_created_at", "token_updated_at", "deleted_at"}

const selectShopSQL = `SELECT shop_domain, access_token, access_scopes, is_active, token_created_at, token_updated_at, deleted_at FROM shops WHERE shop_domain=\$1`

func TestPostgresStore_Fetch(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresCredentialStore(db, stubEncryption{}, zerolog.Nop())
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectQuery(selectShopSQL).
		WithArgs("foo.myshopify.com").
		WillReturnRows(pgxmock.NewRows(shopColumns).
			AddRow("foo.myshopify.com", []byte("enc:tok"), []string{"read_orders"}, true, &created, updated, nil))

	cred, err := s.FetchCredential(ctx, "foo.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, domain.CredentialActive, cred.Status)
	assert.Equal(t, []string{"read_orders"}, cred.Scopes)
	assert.Equal(t, created, *cred.TokenCreatedAt)
	assert.Equal(t, updated, cred.TokenUpdatedAt)
	assert.Nil(t, cred.DeletedAt)

	mock.ExpectQuery(selectShopSQL).
		WithArgs("none.myshopify.com").
		WillReturnError(pgx.ErrNoRows)
	cred, err = s.FetchCredential(ctx, "none.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, cred)

	mock.ExpectQuery(selectShopSQL).
		WithArgs("foo.myshopify.com").
		WillReturnError(errors.New("connection reset"))
	_, err = s.FetchCredential(ctx, "foo.myshopify.com")
	require.ErrorIs(t, err, domain.ErrPersistence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresCredentialStore(db, stubEncryption{}, zerolog.Nop())
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mock.ExpectExec(`INSERT INTO shops .* ON CONFLICT \(shop_domain\) DO UPDATE SET .*token_created_at = COALESCE\(shops.token_created_at, EXCLUDED.token_created_at\)`).
		WithArgs("foo.myshopify.com", []byte("enc:shpat_1"), []string{"read_orders"}, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertCredential(context.Background(), "foo.myshopify.com", "shpat_1", []string{"read_orders"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertFailures(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresCredentialStore(db, stubEncryption{}, zerolog.Nop())

	mock.ExpectExec(`INSERT INTO shops`).
		WillReturnError(errors.New("disk full"))
	err := s.UpsertCredential(context.Background(), "foo.myshopify.com", "shpat_1", nil)
	require.ErrorIs(t, err, domain.ErrPersistence)

	broken := NewPostgresCredentialStore(db, stubEncryption{err: errors.New("no key")}, zerolog.Nop())
	err = broken.UpsertCredential(context.Background(), "foo.myshopify.com", "shpat_1", nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkUninstalled(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresCredentialStore(db, stubEncryption{}, zerolog.Nop())
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mock.ExpectExec(`UPDATE shops SET access_token = NULL, access_scopes = '\{\}', is_active = FALSE, token_updated_at = \$2, deleted_at = \$2 WHERE shop_domain = \$1`).
		WithArgs("foo.myshopify.com", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.MarkUninstalled(context.Background(), "foo.myshopify.com"))

	mock.ExpectExec(`UPDATE shops`).
		WithArgs("gone.myshopify.com", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.NoError(t, s.MarkUninstalled(context.Background(), "gone.myshopify.com"))

	mock.ExpectExec(`UPDATE shops`).
		WithArgs("foo.myshopify.com", now).
		WillReturnError(errors.New("timeout"))
	require.ErrorIs(t, s.MarkUninstalled(context.Background(), "foo.myshopify.com"), domain.ErrPersistence)

	require.NoError(t, mock.ExpectationsWereMet())
}
