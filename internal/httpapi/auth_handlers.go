package httpapi

import (
	"net/http"
	"strings"
	"time"

	"kebeleportal.org/internal/identity"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	IDToken string `json:"id_token,omitempty"`
	Code    string `json:"code,omitempty"`
}

type sessionResponse struct {
	User      identity.User `json:"user"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

func sessionPayload(s identity.Session) sessionResponse {
	return sessionResponse{User: s.User, Token: s.Token, ExpiresAt: s.ExpiresAt}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.identity.RegisterLocal(r.Context(), identity.Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.audit(r.Context(), "identity.register", "user", session.User.ID, map[string]string{
		"email": session.User.Email,
		"role":  string(session.User.Role),
	})

	w.Header().Set("Location", "/v1/users/"+session.User.ID)
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.identity.AuthenticateLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.audit(r.Context(), "identity.login", "user", session.User.ID, map[string]string{
		"email": session.User.Email,
	})

	writeJSON(w, http.StatusOK, sessionPayload(session))
}

// handleGoogleURL hands the client the provider consent URL for the
// authorization-code flow.
func (a *API) handleGoogleURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.federation == nil {
		writeError(w, r, http.StatusServiceUnavailable, "federated login is not configured")
		return
	}
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "" {
		writeError(w, r, http.StatusBadRequest, "state query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": a.federation.AuthCodeURL(state),
	})
}

// handleGoogleLogin finishes federated sign-in from either an ID token the
// client already holds or an authorization code to exchange.
func (a *API) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.federation == nil {
		writeError(w, r, http.StatusServiceUnavailable, "federated login is not configured")
		return
	}
	var req googleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var (
		profile identity.ExternalProfile
		err     error
	)
	switch {
	case strings.TrimSpace(req.IDToken) != "":
		profile, err = a.federation.VerifyIDToken(r.Context(), req.IDToken)
	case strings.TrimSpace(req.Code) != "":
		profile, err = a.federation.Exchange(r.Context(), req.Code)
	default:
		writeError(w, r, http.StatusBadRequest, "id_token or code is required")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "federated identity could not be verified")
		return
	}

	session, err := a.identity.AuthenticateFederated(r.Context(), profile)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.audit(r.Context(), "identity.login.federated", "user", session.User.ID, map[string]string{
		"email":   session.User.Email,
		"subject": profile.Subject,
	})

	writeJSON(w, http.StatusOK, sessionPayload(session))
}
