package httpapi

import (
	"net/http"
	"strings"

	"kebeleportal.org/internal/identity"
)

type provisionAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

type suspendRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p := principal(r)
	user, err := a.identity.Get(r.Context(), p, p.UserID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.identity.List(r.Context(), principal(r))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users})
	case http.MethodPost:
		a.provisionAdmin(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) provisionAdmin(w http.ResponseWriter, r *http.Request) {
	var req provisionAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unsupported role")
		return
	}
	user, err := a.identity.ProvisionAdmin(r.Context(), principal(r), identity.Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     role,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "identity.provision", "user", user.ID, map[string]string{
		"email": user.Email,
		"role":  string(user.Role),
	})
	w.Header().Set("Location", "/v1/users/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "review":
			a.reviewUser(w, r, id)
		case "suspend":
			a.suspendUser(w, r, id)
		case "reinstate":
			a.reinstateUser(w, r, id)
		case "documents":
			a.listUserDocuments(w, r, id)
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := a.identity.Get(r.Context(), principal(r), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.identity.Delete(r.Context(), principal(r), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "identity.delete", "user", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) reviewUser(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	decision := identity.Status(strings.ToLower(strings.TrimSpace(req.Decision)))
	user, err := a.identity.Review(r.Context(), principal(r), id, decision, req.Reason)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "identity.review", "user", user.ID, map[string]string{
		"decision": string(decision),
	})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) suspendUser(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req suspendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.identity.Suspend(r.Context(), principal(r), id, req.Reason)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "identity.suspend", "user", user.ID, nil)
	writeJSON(w, http.StatusOK, user)
}

func (a *API) reinstateUser(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	user, err := a.identity.Reinstate(r.Context(), principal(r), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "identity.reinstate", "user", user.ID, nil)
	writeJSON(w, http.StatusOK, user)
}

func (a *API) listUserDocuments(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	docs, err := a.documents.ListByOwner(r.Context(), principal(r), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": docs})
}
