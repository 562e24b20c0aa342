package httpapi

import (
	"net/http"
	"strings"

	"kebeleportal.org/internal/requests"
)

type submitRequestRequest struct {
	Type       string                      `json:"type"`
	Documents  []requests.AttachedDocument `json:"documents,omitempty"`
	PreviousID *requests.PreviousIDDetails `json:"previous_id_details,omitempty"`
	Priority   string                      `json:"priority,omitempty"`
}

type advanceRequestRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (a *API) handleRequestsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.submitRequest(w, r)
	case http.MethodGet:
		p := principal(r)
		if p.Role.IsAdmin() {
			items, err := a.requests.List(r.Context(), p)
			if err != nil {
				handleDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
			return
		}
		items, err := a.requests.ListByOwner(r.Context(), p, p.UserID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) submitRequest(w http.ResponseWriter, r *http.Request) {
	var req submitRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	reqType, ok := requests.ParseType(req.Type)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "type must be NewID or Renewal")
		return
	}
	var priority requests.Priority
	if strings.TrimSpace(req.Priority) != "" {
		priority, ok = requests.ParsePriority(req.Priority)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "priority must be Low, Medium or High")
			return
		}
	}
	sr, err := a.requests.Submit(r.Context(), principal(r), requests.Submission{
		Type:       reqType,
		Documents:  req.Documents,
		PreviousID: req.PreviousID,
		Priority:   priority,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "requests.submit", "service_request", sr.ID, map[string]string{
		"type":     string(sr.Type),
		"priority": string(sr.Priority),
		"receipt":  sr.Receipt,
	})
	w.Header().Set("Location", "/v1/requests/"+sr.ID)
	writeJSON(w, http.StatusCreated, sr)
}

func (a *API) handleRequestQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	items, err := a.requests.Queue(r.Context(), principal(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleRequestResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/requests/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 && parts[1] == "status" {
		a.advanceRequest(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sr, err := a.requests.Get(r.Context(), principal(r), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sr)
	case http.MethodDelete:
		if err := a.requests.Delete(r.Context(), principal(r), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "requests.delete", "service_request", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) advanceRequest(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req advanceRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	next, ok := requests.ParseStatus(req.Status)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "status must be Queued, InReview, Approved or Rejected")
		return
	}
	sr, err := a.requests.Advance(r.Context(), principal(r), id, next, req.Note)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "requests.advance", "service_request", sr.ID, map[string]string{
		"status": string(sr.Status),
	})
	writeJSON(w, http.StatusOK, sr)
}
