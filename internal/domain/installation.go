package domain

import "time"

// InstallStatus is the lifecycle status relayed to downstream services
type InstallStatus string

const (
	StatusInstalled   InstallStatus = "installed"
	StatusUninstalled InstallStatus = "uninstalled"
)

// TopicAppUninstalled is the Shopify webhook topic fired on uninstall
const TopicAppUninstalled = "app/uninstalled"

// InstallationUpdate is what the bridge tells downstream services after an
// install or uninstall
type InstallationUpdate struct {
	ShopDomain  string
	AccessToken string
	Scopes      []string
	Status      InstallStatus
	OccurredAt  time.Time
}

// WebhookEvent is a verified inbound Shopify webhook
type WebhookEvent struct {
	Topic      string
	Shop       string
	Payload    []byte
	Verified   bool
	ReceivedAt time.Time
}
