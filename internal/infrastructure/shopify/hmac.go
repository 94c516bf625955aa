package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Query parameters that carry signatures and are left out of the signed message
const (
	hmacParam      = "hmac"
	signatureParam = "signature"
)

// CanonicalQuery renders the message Shopify signs for a redirect query:
// every parameter except hmac and signature, sorted by key, joined by '&'.
// A repeated key is rendered in Shopify's array form key=["a", "b"].
func CanonicalQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == hmacParam || k == signatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		values := query[k]
		switch len(values) {
		case 0:
			parts = append(parts, k+"=")
		case 1:
			parts = append(parts, k+"="+values[0])
		default:
			quoted := make([]string, len(values))
			for i, v := range values {
				quoted[i] = `"` + v + `"`
			}
			parts = append(parts, k+"=["+strings.Join(quoted, ", ")+"]")
		}
	}
	return strings.Join(parts, "&")
}

// EncodedCanonicalQuery renders the same sorted parameters form-encoded, the
// way application/x-www-form-urlencoded serializers (URLSearchParams) do.
// A repeated key is rendered once with its values joined by ','.
func EncodedCanonicalQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == hmacParam || k == signatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, formEscape(k)+"="+formEscape(strings.Join(query[k], ",")))
	}
	return strings.Join(parts, "&")
}

// formEscape differs from url.QueryEscape only in '*' (kept) and '~' (escaped)
func formEscape(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "%2A", "*")
	return strings.ReplaceAll(escaped, "~", "%7E")
}

// SignQuery returns the hex HMAC-SHA256 of the canonical query
func SignQuery(query url.Values, secret string) string {
	return hex.EncodeToString(digest(CanonicalQuery(query), secret))
}

// VerifyQueryHMAC checks the hex digest Shopify attached to a redirect query.
// The digest may cover either the decoded or the form-encoded rendering; both
// are identical unless a value holds characters such as '=', '+', '/' or '%'.
func VerifyQueryHMAC(query url.Values, providedHex string, secret string) bool {
	if providedHex == "" || secret == "" {
		return false
	}
	provided, err := hex.DecodeString(providedHex)
	if err != nil {
		return false
	}
	decoded := hmac.Equal(provided, digest(CanonicalQuery(query), secret))
	encoded := hmac.Equal(provided, digest(EncodedCanonicalQuery(query), secret))
	return decoded || encoded
}

func digest(message string, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// SignWebhookBody returns the base64 HMAC-SHA256 of a raw webhook body
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookHMAC checks the X-Shopify-Hmac-Sha256 header against the raw body bytes
func VerifyWebhookHMAC(body []byte, providedBase64 string, secret string) bool {
	if providedBase64 == "" || secret == "" {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(providedBase64)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

// SignHex returns the hex HMAC-SHA256 of body, the format of X-Connect-Signature
func SignHex(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
