package domain

import "time"

// CredentialStatus is the lifecycle state of a shop credential
type CredentialStatus string

const (
	CredentialActive   CredentialStatus = "active"
	CredentialInactive CredentialStatus = "inactive"
)

// StatusFromActive maps the persisted is_active flag onto a CredentialStatus
func StatusFromActive(active bool) CredentialStatus {
	if active {
		return CredentialActive
	}
	return CredentialInactive
}

// ShopCredential is the persisted access credential of one installed shop.
// EncryptedToken holds IV || tag || ciphertext and is never the plaintext token.
type ShopCredential struct {
	ShopDomain     string           `json:"shop_domain"`
	EncryptedToken []byte           `json:"-"`
	Scopes         []string         `json:"access_scopes"`
	Status         CredentialStatus `json:"status"`
	TokenCreatedAt *time.Time       `json:"token_created_at"`
	TokenUpdatedAt time.Time        `json:"token_updated_at"`
	DeletedAt      *time.Time       `json:"deleted_at"`
}

// IsActive reports whether the credential belongs to a currently installed shop
func (c *ShopCredential) IsActive() bool {
	return c != nil && c.Status == CredentialActive
}

// Install builds the record written on (re)installation. TokenCreatedAt is
// carried over from existing when it was set; otherwise it becomes now.
func Install(existing *ShopCredential, shop string, encryptedToken []byte, scopes []string, now time.Time) *ShopCredential {
	now = now.UTC()
	created := now
	if existing != nil && existing.TokenCreatedAt != nil {
		created = *existing.TokenCreatedAt
	}
	if scopes == nil {
		scopes = []string{}
	}
	return &ShopCredential{
		ShopDomain:     shop,
		EncryptedToken: encryptedToken,
		Scopes:         scopes,
		Status:         CredentialActive,
		TokenCreatedAt: &created,
		TokenUpdatedAt: now,
		DeletedAt:      nil,
	}
}

// Uninstall soft-deletes the credential in place. TokenCreatedAt is kept so a
// later reinstall can preserve it.
func (c *ShopCredential) Uninstall(now time.Time) {
	now = now.UTC()
	c.EncryptedToken = nil
	c.Scopes = []string{}
	c.Status = CredentialInactive
	c.TokenUpdatedAt = now
	c.DeletedAt = &now
}
