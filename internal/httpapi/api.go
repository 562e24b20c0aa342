package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"kebeleportal.org/internal/documents"
	"kebeleportal.org/internal/federation"
	"kebeleportal.org/internal/identity"
	"kebeleportal.org/internal/notify"
	"kebeleportal.org/internal/obs"
	"kebeleportal.org/internal/requests"
	"kebeleportal.org/internal/stream"
)

// ReadyProbe reports whether the API's backing store is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the portal services.
type API struct {
	mux        *http.ServeMux
	identity   *identity.Service
	tokens     *identity.Tokens
	documents  *documents.Service
	requests   *requests.Service
	notify     *notify.Service
	federation *federation.Verifier
	stream     *stream.Stream
	readyProbe ReadyProbe
	version    string
}

// Deps bundles the services the API exposes. Federation is optional; when
// nil the google login routes answer 503.
type Deps struct {
	Identity   *identity.Service
	Tokens     *identity.Tokens
	Documents  *documents.Service
	Requests   *requests.Service
	Notify     *notify.Service
	Federation *federation.Verifier
	Stream     *stream.Stream
}

func New(deps Deps, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		identity:   deps.Identity,
		tokens:     deps.Tokens,
		documents:  deps.Documents,
		requests:   deps.Requests,
		notify:     deps.Notify,
		federation: deps.Federation,
		stream:     deps.Stream,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/google", a.handleGoogleLogin)
	a.mux.HandleFunc("/v1/auth/google/url", a.handleGoogleURL)

	// users
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	// documents
	a.mux.HandleFunc("/v1/documents", a.handleDocumentsCollection)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)

	// service requests
	a.mux.HandleFunc("/v1/requests", a.handleRequestsCollection)
	a.mux.HandleFunc("/v1/requests/queue", a.handleRequestQueue)
	a.mux.HandleFunc("/v1/requests/", a.handleRequestResource)

	// notifications
	a.mux.HandleFunc("/v1/notifications", a.handleNotifications)
	a.mux.HandleFunc("/v1/notifications/stream", a.NotificationStream)
	a.mux.HandleFunc("/v1/notifications/", a.handleNotificationResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler: metrics on the outside,
// then token authentication, then the routing mux.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}
