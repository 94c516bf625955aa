package application

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"ecomai-shopify-bridge/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSSO(allowQuery bool) (*SSOService, *fakeMetrics) {
	metrics := newFakeMetrics()
	return NewSSOService(SSOConfig{
		Secret:         "sso-secret",
		Target:         "https://app.ecomai.example/sso",
		AllowQueryShop: allowQuery,
	}, metrics, zerolog.Nop()), metrics
}

func tokenFromURL(t *testing.T, raw string) string {
	t.Helper()
	prefix := "https://app.ecomai.example/sso#token="
	require.True(t, strings.HasPrefix(raw, prefix), raw)
	token, err := url.QueryUnescape(strings.TrimPrefix(raw, prefix))
	require.NoError(t, err)
	return token
}

func TestSSO_IssueFromCookie(t *testing.T) {
	svc, metrics := newSSO(true)

	res, err := svc.Issue(context.Background(), SSORequest{CookieShop: "foo.myshopify.com", QueryShop: "bar.myshopify.com"})
	require.NoError(t, err)
	assert.Equal(t, "foo.myshopify.com", res.Shop)

	claims, err := svc.ParseToken(tokenFromURL(t, res.URL))
	require.NoError(t, err)
	assert.Equal(t, "foo.myshopify.com", claims.Shop)
	assert.NotEmpty(t, claims.Nonce)
	assert.Equal(t, "ecomai-connect", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"ecomai"}, claims.Audience)
	assert.Equal(t, 120*time.Second, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, 1, metrics.sso)
}

func TestSSO_NoncesDiffer(t *testing.T) {
	svc, _ := newSSO(true)
	a, err := svc.Issue(context.Background(), SSORequest{CookieShop: "foo.myshopify.com"})
	require.NoError(t, err)
	b, err := svc.Issue(context.Background(), SSORequest{CookieShop: "foo.myshopify.com"})
	require.NoError(t, err)

	ca, err := svc.ParseToken(tokenFromURL(t, a.URL))
	require.NoError(t, err)
	cb, err := svc.ParseToken(tokenFromURL(t, b.URL))
	require.NoError(t, err)
	assert.NotEqual(t, ca.Nonce, cb.Nonce)
}

func TestSSO_QueryFallback(t *testing.T) {
	svc, _ := newSSO(true)
	res, err := svc.Issue(context.Background(), SSORequest{CookieShop: "garbage", QueryShop: "bar.myshopify.com"})
	require.NoError(t, err)
	assert.Equal(t, "bar.myshopify.com", res.Shop)

	strict, _ := newSSO(false)
	_, err = strict.Issue(context.Background(), SSORequest{QueryShop: "bar.myshopify.com"})
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestSSO_NoSession(t *testing.T) {
	svc, metrics := newSSO(true)
	_, err := svc.Issue(context.Background(), SSORequest{})
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	_, err = svc.Issue(context.Background(), SSORequest{QueryShop: "shop.example.com"})
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Equal(t, 0, metrics.sso)
}

func TestSSO_MissingSecret(t *testing.T) {
	svc := NewSSOService(SSOConfig{}, newFakeMetrics(), zerolog.Nop())
	_, err := svc.Issue(context.Background(), SSORequest{CookieShop: "foo.myshopify.com"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSSO_ParseRejectsBadTokens(t *testing.T) {
	svc, _ := newSSO(true)
	res, err := svc.Issue(context.Background(), SSORequest{CookieShop: "foo.myshopify.com"})
	require.NoError(t, err)
	token := tokenFromURL(t, res.URL)

	other := NewSSOService(SSOConfig{Secret: "different"}, newFakeMetrics(), zerolog.Nop())
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	svc.now = func() time.Time { return time.Now().Add(5 * time.Minute) }
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	wrongAud := jwt.NewWithClaims(jwt.SigningMethodHS256, SSOClaims{
		Shop: "foo.myshopify.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultSSOIssuer,
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := wrongAud.SignedString([]byte("sso-secret"))
	require.NoError(t, err)
	fresh, _ := newSSO(true)
	_, err = fresh.ParseToken(signed)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}
