package entity

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"ecomai-shopify-bridge/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShopRow is a row of the shops table as exchanged with PostgREST
type ShopRow struct {
	ShopDomain     string     `json:"shop_domain"`
	AccessToken    *string    `json:"access_token"`
	AccessScopes   []string   `json:"access_scopes"`
	IsActive       bool       `json:"is_active"`
	TokenCreatedAt *time.Time `json:"token_created_at,omitempty"`
	TokenUpdatedAt *time.Time `json:"token_updated_at,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at"`
}

// ShopRowFromDomain converts a credential into the row written on install.
// bytea columns travel as base64 text.
func ShopRowFromDomain(cred *domain.ShopCredential) *ShopRow {
	row := &ShopRow{
		ShopDomain:     cred.ShopDomain,
		AccessScopes:   cred.Scopes,
		IsActive:       cred.IsActive(),
		TokenCreatedAt: cred.TokenCreatedAt,
		DeletedAt:      cred.DeletedAt,
	}
	if row.AccessScopes == nil {
		row.AccessScopes = []string{}
	}
	if !cred.TokenUpdatedAt.IsZero() {
		updated := cred.TokenUpdatedAt
		row.TokenUpdatedAt = &updated
	}
	if cred.EncryptedToken != nil {
		encoded := base64.StdEncoding.EncodeToString(cred.EncryptedToken)
		row.AccessToken = &encoded
	}
	return row
}

// ToDomain converts the row to a domain credential
func (r *ShopRow) ToDomain() *domain.ShopCredential {
	cred := &domain.ShopCredential{
		ShopDomain:     r.ShopDomain,
		Scopes:         r.AccessScopes,
		Status:         domain.StatusFromActive(r.IsActive),
		TokenCreatedAt: r.TokenCreatedAt,
		DeletedAt:      r.DeletedAt,
	}
	if cred.Scopes == nil {
		cred.Scopes = []string{}
	}
	if r.TokenUpdatedAt != nil {
		cred.TokenUpdatedAt = *r.TokenUpdatedAt
	}
	if r.AccessToken != nil {
		cred.EncryptedToken = DecodeBytea(*r.AccessToken)
	}
	return cred
}

// DecodeBytea decodes a bytea value returned by PostgREST. Postgres renders
// bytea as \x-prefixed hex. Tokens are written as base64 text, which the
// column stores as its ASCII bytes, so hex that decodes to base64 is unwrapped
// once more. Plain base64 values are accepted too.
func DecodeBytea(value string) []byte {
	if strings.HasPrefix(value, `\x`) {
		raw, err := hex.DecodeString(value[2:])
		if err != nil {
			return nil
		}
		if inner, err := base64.StdEncoding.DecodeString(string(raw)); err == nil && len(inner) > 0 {
			return inner
		}
		return raw
	}
	if raw, err := base64.StdEncoding.DecodeString(value); err == nil {
		return raw
	}
	return nil
}

// UninstallPatch is the PATCH body that soft-deletes a shop row
type UninstallPatch struct {
	AccessToken    *string   `json:"access_token"`
	AccessScopes   []string  `json:"access_scopes"`
	IsActive       bool      `json:"is_active"`
	TokenUpdatedAt time.Time `json:"token_updated_at"`
	DeletedAt      time.Time `json:"deleted_at"`
}

// UninstallPatchAt builds the soft-delete body for the given instant
func UninstallPatchAt(now time.Time) *UninstallPatch {
	now = now.UTC()
	return &UninstallPatch{
		AccessToken:    nil,
		AccessScopes:   []string{},
		IsActive:       false,
		TokenUpdatedAt: now,
		DeletedAt:      now,
	}
}

// MongoShopDoc represents a shop credential in MongoDB
type MongoShopDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ShopDomain     string             `bson:"shopDomain"`
	AccessToken    []byte             `bson:"accessToken"`
	AccessScopes   []string           `bson:"accessScopes"`
	IsActive       bool               `bson:"isActive"`
	TokenCreatedAt *time.Time         `bson:"tokenCreatedAt"`
	TokenUpdatedAt time.Time          `bson:"tokenUpdatedAt"`
	DeletedAt      *time.Time         `bson:"deletedAt"`
}

// ToDomain converts the MongoDB document to a domain credential
func (d *MongoShopDoc) ToDomain() *domain.ShopCredential {
	scopes := d.AccessScopes
	if scopes == nil {
		scopes = []string{}
	}
	return &domain.ShopCredential{
		ShopDomain:     d.ShopDomain,
		EncryptedToken: d.AccessToken,
		Scopes:         scopes,
		Status:         domain.StatusFromActive(d.IsActive),
		TokenCreatedAt: d.TokenCreatedAt,
		TokenUpdatedAt: d.TokenUpdatedAt,
		DeletedAt:      d.DeletedAt,
	}
}

// MongoShopDocFromDomain converts a domain credential to a MongoDB document
func MongoShopDocFromDomain(cred *domain.ShopCredential) *MongoShopDoc {
	scopes := cred.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return &MongoShopDoc{
		ShopDomain:     cred.ShopDomain,
		AccessToken:    cred.EncryptedToken,
		AccessScopes:   scopes,
		IsActive:       cred.IsActive(),
		TokenCreatedAt: cred.TokenCreatedAt,
		TokenUpdatedAt: cred.TokenUpdatedAt,
		DeletedAt:      cred.DeletedAt,
	}
}
