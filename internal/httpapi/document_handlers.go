package httpapi

import (
	"net/http"
	"strings"
	"time"

	"kebeleportal.org/internal/documents"
)

type submitDocumentRequest struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Link      string         `json:"link,omitempty"`
	Number    string         `json:"number,omitempty"`
	IssuedAt  *time.Time     `json:"issued_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type updateDocumentRequest struct {
	Title    *string        `json:"title,omitempty"`
	Link     *string        `json:"link,omitempty"`
	Number   *string        `json:"number,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (a *API) handleDocumentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.submitDocument(w, r)
	case http.MethodGet:
		docs, err := a.documents.List(r.Context(), principal(r))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": docs})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) submitDocument(w http.ResponseWriter, r *http.Request) {
	var req submitDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := a.documents.Submit(r.Context(), principal(r), documents.Submission{
		Type:      req.Type,
		Title:     req.Title,
		Link:      req.Link,
		Number:    req.Number,
		IssuedAt:  req.IssuedAt,
		ExpiresAt: req.ExpiresAt,
		Metadata:  req.Metadata,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "documents.submit", "document", doc.ID, map[string]string{
		"type": doc.Type,
	})
	w.Header().Set("Location", "/v1/documents/"+doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 && parts[1] == "review" {
		a.reviewDocument(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := a.documents.Get(r.Context(), principal(r), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut:
		a.updateDocument(w, r, id)
	case http.MethodDelete:
		if err := a.documents.Delete(r.Context(), principal(r), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "documents.delete", "document", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) reviewDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	decision := documents.Status(strings.ToLower(strings.TrimSpace(req.Decision)))
	doc, err := a.documents.Review(r.Context(), principal(r), id, decision, req.Reason)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "documents.review", "document", doc.ID, map[string]string{
		"decision": string(decision),
	})
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) updateDocument(w http.ResponseWriter, r *http.Request, id string) {
	var req updateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := a.documents.Update(r.Context(), principal(r), id, documents.Update{
		Title:    req.Title,
		Link:     req.Link,
		Number:   req.Number,
		Metadata: req.Metadata,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r.Context(), "documents.update", "document", doc.ID, nil)
	writeJSON(w, http.StatusOK, doc)
}
