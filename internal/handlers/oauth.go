package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finity-auth/apiserver/internal/services"
)

// OAuthHandler exposes the social login entry points.
type OAuthHandler struct {
	oauthService *services.OAuthService
}

func NewOAuthHandler(oauthService *services.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService}
}

// SocialRouter registers the social login routes on the given router.
func SocialRouter(r chi.Router, oauthService *services.OAuthService) {
	handler := NewOAuthHandler(oauthService)

	r.Get("/{provider}/login", handler.Login)
}

// SocialLoginResponse carries the provider's authorization URL.
type SocialLoginResponse struct {
	Provider         string `json:"provider"`
	AuthorizationURL string `json:"authorization_url"`
}

// Login returns the authorization URL the client should redirect to.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	state, err := newState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}

	authURL, err := h.oauthService.AuthorizationURL(provider, state)
	if err != nil {
		var unknown *services.ErrUnknownProvider
		if errors.As(err, &unknown) {
			writeError(w, http.StatusNotFound, unknown.Error())
			return
		}
		var unconfigured *services.ErrProviderNotConfigured
		if errors.As(err, &unconfigured) {
			writeError(w, http.StatusBadRequest, unconfigured.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build authorization url")
		return
	}

	writeJSON(w, http.StatusOK, SocialLoginResponse{
		Provider:         provider,
		AuthorizationURL: authURL,
	})
}

func newState() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
