package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"ecomai-shopify-bridge/internal/application"
	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/infrastructure/shopify"
	"ecomai-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

// Cookie names shared with the embedded admin page
const (
	StateCookie = "shopifyState"
	ShopCookie  = "shop"
	TokenCookie = "tok"
)

const (
	stateCookieMaxAge  = 600
	maxWebhookBodySize = 1 << 20
)

// Handlers adapts HTTP requests onto the application services
type Handlers struct {
	oauth         *application.OAuthService
	sso           *application.SSOService
	credentials   *application.CredentialsService
	dispatcher    *application.WebhookDispatcher
	metrics       ports.MetricsRecorder
	webhookSecret string
	logger        zerolog.Logger
}

// NewHandlers creates the HTTP handlers. webhookSecret is the app's Shopify API secret.
func NewHandlers(
	oauth *application.OAuthService,
	sso *application.SSOService,
	credentials *application.CredentialsService,
	dispatcher *application.WebhookDispatcher,
	metrics ports.MetricsRecorder,
	webhookSecret string,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		oauth:         oauth,
		sso:           sso,
		credentials:   credentials,
		dispatcher:    dispatcher,
		metrics:       metrics,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// OAuthStart sets the state cookie and redirects the merchant to Shopify
func (h *Handlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	result, err := h.oauth.Start(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		writeError(w, err, domain.StatusCode(err))
		return
	}

	setCookie(w, StateCookie, result.State, stateCookieMaxAge)
	http.Redirect(w, r, result.AuthorizeURL, http.StatusFound)
}

// OAuthCallback completes the installation and redirects into the admin
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	var stateCookie string
	if c, err := r.Cookie(StateCookie); err == nil {
		stateCookie = c.Value
	}

	result, err := h.oauth.Callback(r.Context(), application.CallbackInput{
		Query:       r.URL.Query(),
		StateCookie: stateCookie,
	})
	if err != nil {
		status := domain.StatusCode(err)
		// Shopify redirects the merchant here, so a bad signature or state is a bad request
		if errors.Is(err, domain.ErrAuthentication) {
			status = http.StatusBadRequest
		}
		writeError(w, err, status)
		return
	}

	setCookie(w, ShopCookie, result.Shop, 0)
	setCookie(w, TokenCookie, result.AccessToken, 0)
	setCookie(w, StateCookie, "", -1)
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// SSO hands back a one-time URL into the Ecomai web app
func (h *Handlers) SSO(w http.ResponseWriter, r *http.Request) {
	req := application.SSORequest{QueryShop: r.URL.Query().Get("shop")}
	if c, err := r.Cookie(ShopCookie); err == nil {
		req.CookieShop = c.Value
	}

	result, err := h.sso.Issue(r.Context(), req)
	if err != nil {
		writeError(w, err, domain.StatusCode(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": result.URL})
}

// Status reports the installation state of the session's shop
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	var shop string
	if c, err := r.Cookie(ShopCookie); err == nil {
		shop = c.Value
	}

	status, err := h.credentials.GetStatus(r.Context(), shop)
	if err != nil {
		writeError(w, err, domain.StatusCode(err))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// AppUninstalledWebhook verifies and dispatches Shopify's app/uninstalled webhook
func (h *Handlers) AppUninstalledWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hmacHeader := r.Header.Get("X-Shopify-Hmac-Sha256")
	if hmacHeader == "" {
		h.metrics.ObserveHMACRejection("webhook")
		h.logger.Warn().Msg("Webhook without HMAC header")
		http.Error(w, "Missing HMAC", http.StatusUnauthorized)
		return
	}

	// The signature covers the exact bytes received, so nothing may parse the body first
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read webhook payload")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !shopify.VerifyWebhookHMAC(payload, hmacHeader, h.webhookSecret) {
		h.metrics.ObserveHMACRejection("webhook")
		h.logger.Warn().Msg("Webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	shop := r.Header.Get("X-Shopify-Shop-Domain")
	if shop == "" {
		h.logger.Warn().Msg("Missing X-Shopify-Shop-Domain header")
		http.Error(w, "Missing shop", http.StatusBadRequest)
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		topic = domain.TopicAppUninstalled
	}

	event := &domain.WebhookEvent{
		Topic:      topic,
		Shop:       shop,
		Payload:    payload,
		Verified:   true,
		ReceivedAt: time.Now().UTC(),
	}
	if err := h.dispatcher.Dispatch(ctx, event); err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Str("shop", shop).Msg("Failed to dispatch webhook event")
	}

	w.WriteHeader(http.StatusOK)
}

// Health answers liveness probes
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func writeError(w http.ResponseWriter, err error, status int) {
	http.Error(w, domain.PublicMessage(err), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
