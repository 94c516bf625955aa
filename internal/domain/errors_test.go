package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusBadRequest, StatusCode(fmt.Errorf("%w: missing shop", ErrValidation)))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(fmt.Errorf("%w: bad hmac", ErrAuthentication)))
	assert.Equal(t, http.StatusBadGateway, StatusCode(fmt.Errorf("%w: status 500", ErrUpstream)))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(fmt.Errorf("%w: write", ErrPersistence)))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}

func TestPublicMessage_HidesUpstreamDetails(t *testing.T) {
	err := fmt.Errorf("%w: status 500, body: client_secret=abc", ErrUpstream)
	assert.Equal(t, "Token exchange failed", PublicMessage(err))
	assert.NotContains(t, PublicMessage(fmt.Errorf("%w: supabase said key=xyz", ErrPersistence)), "xyz")
	assert.Equal(t, "validation failed: missing shop", PublicMessage(fmt.Errorf("%w: missing shop", ErrValidation)))
}

func TestOAuthStageString(t *testing.T) {
	assert.Equal(t, "START", StageStart.String())
	assert.Equal(t, "REJECTED", StageRejected.String())
	assert.Equal(t, "UNKNOWN", OAuthStage(42).String())
}
