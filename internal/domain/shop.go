package domain

import "strings"

// ShopDomainSuffix is the required suffix of every Shopify store domain
const ShopDomainSuffix = ".myshopify.com"

// IsValidShopDomain reports whether shop is a fully-qualified myshopify.com store domain
func IsValidShopDomain(shop string) bool {
	if shop == "" || strings.TrimSpace(shop) != shop {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(shop), ShopDomainSuffix) {
		return false
	}
	if strings.ContainsAny(shop, "/ ?#@:\\") {
		return false
	}
	return len(shop) > len(ShopDomainSuffix)
}

// ParseScopes splits a comma-separated scope string into trimmed, non-empty,
// de-duplicated scopes, keeping the order of first occurrence
func ParseScopes(raw string) []string {
	scopes := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		scopes = append(scopes, scope)
	}
	return scopes
}
