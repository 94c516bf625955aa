package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstall_FreshShopSetsCreatedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cred := Install(nil, "foo.myshopify.com", []byte("enc"), []string{"read_orders"}, now)

	require.NotNil(t, cred.TokenCreatedAt)
	assert.Equal(t, now, *cred.TokenCreatedAt)
	assert.Equal(t, now, cred.TokenUpdatedAt)
	assert.Equal(t, CredentialActive, cred.Status)
	assert.Nil(t, cred.DeletedAt)
	assert.True(t, cred.IsActive())
}

func TestInstall_ReinstallKeepsCreatedAtAndAdvancesUpdatedAt(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	cred := Install(nil, "foo.myshopify.com", []byte("old"), []string{"read_orders"}, first)
	again := Install(cred, "foo.myshopify.com", []byte("new"), []string{"read_orders", "write_orders"}, second)

	assert.Equal(t, first, *again.TokenCreatedAt)
	assert.Equal(t, second, again.TokenUpdatedAt)
	assert.Equal(t, []byte("new"), again.EncryptedToken)
	assert.Equal(t, []string{"read_orders", "write_orders"}, again.Scopes)
}

func TestInstall_ExistingWithoutCreatedAtGetsOne(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	legacy := &ShopCredential{ShopDomain: "foo.myshopify.com", Status: CredentialInactive}

	cred := Install(legacy, "foo.myshopify.com", []byte("enc"), nil, now)

	require.NotNil(t, cred.TokenCreatedAt)
	assert.Equal(t, now, *cred.TokenCreatedAt)
	assert.NotNil(t, cred.Scopes)
}

func TestUninstallThenReinstall(t *testing.T) {
	installedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	uninstalledAt := installedAt.Add(24 * time.Hour)
	reinstalledAt := uninstalledAt.Add(24 * time.Hour)

	cred := Install(nil, "foo.myshopify.com", []byte("enc"), []string{"read_orders"}, installedAt)
	cred.Uninstall(uninstalledAt)

	assert.Equal(t, CredentialInactive, cred.Status)
	assert.Nil(t, cred.EncryptedToken)
	assert.Empty(t, cred.Scopes)
	require.NotNil(t, cred.DeletedAt)
	assert.Equal(t, uninstalledAt, *cred.DeletedAt)
	assert.Equal(t, uninstalledAt, cred.TokenUpdatedAt)
	assert.Equal(t, installedAt, *cred.TokenCreatedAt)

	back := Install(cred, "foo.myshopify.com", []byte("enc2"), []string{"read_orders"}, reinstalledAt)
	assert.True(t, back.IsActive())
	assert.Nil(t, back.DeletedAt)
	assert.Equal(t, installedAt, *back.TokenCreatedAt)
}

func TestStatusFromActive(t *testing.T) {
	assert.Equal(t, CredentialActive, StatusFromActive(true))
	assert.Equal(t, CredentialInactive, StatusFromActive(false))
	var missing *ShopCredential
	assert.False(t, missing.IsActive())
}
