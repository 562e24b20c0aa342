package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kebeleportal.org/internal/documents"
	"kebeleportal.org/internal/identity"
	"kebeleportal.org/internal/notify"
	"kebeleportal.org/internal/requests"
)

func newTestAPI(t *testing.T) (*API, *identity.Service) {
	t.Helper()
	tokens, err := identity.NewTokens("handlers-test-secret")
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	notifySvc, err := notify.NewService(notify.NewMemoryStore())
	if err != nil {
		t.Fatalf("notify.NewService: %v", err)
	}
	idSvc, err := identity.NewService(identity.NewMemoryStore(), tokens, identity.WithNotifier(notifySvc))
	if err != nil {
		t.Fatalf("identity.NewService: %v", err)
	}
	docSvc, err := documents.NewService(documents.NewMemoryStore(), documents.WithNotifier(notifySvc))
	if err != nil {
		t.Fatalf("documents.NewService: %v", err)
	}
	reqSvc, err := requests.NewService(requests.NewMemoryStore(), requests.WithNotifier(notifySvc))
	if err != nil {
		t.Fatalf("requests.NewService: %v", err)
	}
	api := New(Deps{
		Identity:  idSvc,
		Tokens:    tokens,
		Documents: docSvc,
		Requests:  reqSvc,
		Notify:    notifySvc,
	}, ReadyProbe{}, "test")
	return api, idSvc
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	api, _ := newTestAPI(t)
	rr := doJSON(t, api.Handler(), http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["service"] != "kebele-api" {
		t.Fatalf("unexpected service name: %v", body["service"])
	}
}

func TestRegisterLoginApprovalFlow(t *testing.T) {
	api, idSvc := newTestAPI(t)
	handler := api.Handler()

	if _, err := idSvc.EnsureBootstrapAdmin(context.Background(), "admin@kebele.example", "bootstrap-pass"); err != nil {
		t.Fatalf("EnsureBootstrapAdmin: %v", err)
	}

	// resident self-registration
	rr := doJSON(t, handler, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    "abebe@example.com",
		"password": "s3cret-pass",
		"name":     "Abebe Bikila",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var reg sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	if reg.User.Status != identity.StatusPending {
		t.Fatalf("expected pending account, got %s", reg.User.Status)
	}
	if reg.Token == "" {
		t.Fatal("expected immediate session token")
	}

	// pending resident cannot log in
	rr = doJSON(t, handler, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "abebe@example.com",
		"password": "s3cret-pass",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("pending login: expected 403, got %d", rr.Code)
	}

	// bootstrap admin logs in even though no one reviewed it
	rr = doJSON(t, handler, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "admin@kebele.example",
		"password": "bootstrap-pass",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var adminSession sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &adminSession); err != nil {
		t.Fatalf("decode admin login: %v", err)
	}

	// kebele admin cannot approve a resident directly (exact next tier only)
	rr = doJSON(t, handler, http.MethodPut, "/v1/users/"+reg.User.ID+"/review", adminSession.Token, map[string]any{
		"decision": "approved",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("skip-tier review: expected 403, got %d: %s", rr.Code, rr.Body.String())
	}

	// provision a goxe admin, approve it as kebele, then approve the resident
	rr = doJSON(t, handler, http.MethodPost, "/v1/users", adminSession.Token, map[string]any{
		"email":    "goxe@kebele.example",
		"password": "goxe-pass-1",
		"name":     "Goxe Admin",
		"role":     "goxe_admin",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("provision: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var goxe identity.User
	if err := json.Unmarshal(rr.Body.Bytes(), &goxe); err != nil {
		t.Fatalf("decode provision: %v", err)
	}

	rr = doJSON(t, handler, http.MethodPut, "/v1/users/"+goxe.ID+"/review", adminSession.Token, map[string]any{
		"decision": "approved",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("goxe review: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, handler, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "goxe@kebele.example",
		"password": "goxe-pass-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("goxe login: expected 200, got %d", rr.Code)
	}
	var goxeSession sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &goxeSession); err != nil {
		t.Fatalf("decode goxe login: %v", err)
	}

	rr = doJSON(t, handler, http.MethodPut, "/v1/users/"+reg.User.ID+"/review", goxeSession.Token, map[string]any{
		"decision": "approved",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("resident review: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// a second approval hits the already-decided record
	rr = doJSON(t, handler, http.MethodPut, "/v1/users/"+reg.User.ID+"/review", goxeSession.Token, map[string]any{
		"decision": "approved",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("double review: expected 409, got %d", rr.Code)
	}

	// approved resident logs in
	rr = doJSON(t, handler, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "abebe@example.com",
		"password": "s3cret-pass",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("approved login: expected 200, got %d", rr.Code)
	}
}

func TestDocumentOwnershipOverHTTP(t *testing.T) {
	api, idSvc := newTestAPI(t)
	handler := api.Handler()
	ctx := context.Background()

	// two residents, approved directly through the service for brevity
	first, err := idSvc.RegisterLocal(ctx, identity.Registration{
		Email: "first@example.com", Password: "first-pass1", Name: "First",
	})
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	second, err := idSvc.RegisterLocal(ctx, identity.Registration{
		Email: "second@example.com", Password: "second-pass1", Name: "Second",
	})
	if err != nil {
		t.Fatalf("register second: %v", err)
	}

	rr := doJSON(t, handler, http.MethodPost, "/v1/documents", first.Token, map[string]any{
		"type":  "birth_certificate",
		"title": "Birth Certificate",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var doc documents.Document
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.OwnerID != first.User.ID {
		t.Fatalf("owner stamped from principal, got %s", doc.OwnerID)
	}

	// another resident cannot read it
	rr = doJSON(t, handler, http.MethodGet, "/v1/documents/"+doc.ID, second.Token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cross-owner read: expected 403, got %d", rr.Code)
	}

	// the owner can
	rr = doJSON(t, handler, http.MethodGet, "/v1/documents/"+doc.ID, first.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner read: expected 200, got %d", rr.Code)
	}

	// no token at all
	rr = doJSON(t, handler, http.MethodGet, "/v1/documents/"+doc.ID, "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous read: expected 401, got %d", rr.Code)
	}
}

func TestServiceRequestFlowOverHTTP(t *testing.T) {
	api, idSvc := newTestAPI(t)
	handler := api.Handler()
	ctx := context.Background()

	resident, err := idSvc.RegisterLocal(ctx, identity.Registration{
		Email: "resident@example.com", Password: "resident-pw1", Name: "Resident",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	admin, err := idSvc.EnsureBootstrapAdmin(ctx, "admin@kebele.example", "bootstrap-pass")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	adminSession, err := idSvc.AuthenticateLocal(ctx, admin.Email, "bootstrap-pass")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}

	// renewal without previous id details is rejected
	rr := doJSON(t, handler, http.MethodPost, "/v1/requests", resident.Token, map[string]any{
		"type": "Renewal",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("renewal without previous id: expected 400, got %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodPost, "/v1/requests", resident.Token, map[string]any{
		"type":     "NewID",
		"priority": "High",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var sr requests.ServiceRequest
	if err := json.Unmarshal(rr.Body.Bytes(), &sr); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if sr.Status != requests.StatusQueued {
		t.Fatalf("expected Queued, got %s", sr.Status)
	}
	if sr.Receipt == "" {
		t.Fatal("expected confirmation receipt")
	}

	// residents cannot see the processing queue
	rr = doJSON(t, handler, http.MethodGet, "/v1/requests/queue", resident.Token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("resident queue: expected 403, got %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodGet, "/v1/requests/queue", adminSession.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin queue: expected 200, got %d", rr.Code)
	}

	// Queued -> Approved skips InReview
	rr = doJSON(t, handler, http.MethodPut, "/v1/requests/"+sr.ID+"/status", adminSession.Token, map[string]any{
		"status": "Approved",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("illegal transition: expected 409, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, handler, http.MethodPut, "/v1/requests/"+sr.ID+"/status", adminSession.Token, map[string]any{
		"status": "InReview",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("to InReview: expected 200, got %d", rr.Code)
	}
	rr = doJSON(t, handler, http.MethodPut, "/v1/requests/"+sr.ID+"/status", adminSession.Token, map[string]any{
		"status": "Approved",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("to Approved: expected 200, got %d", rr.Code)
	}

	// owner sees a notification for the decision
	rr = doJSON(t, handler, http.MethodGet, "/v1/notifications", resident.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("notifications: expected 200, got %d", rr.Code)
	}
	var list struct {
		Items []notify.Notification `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(list.Items) == 0 {
		t.Fatal("expected a decision notification")
	}
}
