package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"kebeleportal.org/internal/config"
	"kebeleportal.org/internal/documents"
	"kebeleportal.org/internal/federation"
	"kebeleportal.org/internal/httpapi"
	"kebeleportal.org/internal/identity"
	"kebeleportal.org/internal/notify"
	"kebeleportal.org/internal/obs"
	"kebeleportal.org/internal/requests"
	"kebeleportal.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Postgres when a DSN is configured, in-memory stores otherwise. The
	// memory mode keeps local development and demos free of external deps.
	var (
		db        *sql.DB
		userStore identity.UserStore
		docStore  documents.Store
		reqStore  requests.Store
		noteStore notify.Store
	)
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		userStore = identity.NewPGStore(db)
		docStore = documents.NewPGStore(db)
		reqStore = requests.NewPGStore(db)
		noteStore = notify.NewPGStore(db)
	} else {
		log.Println("KEBELE_PG_DSN is empty, using in-memory stores")
		userStore = identity.NewMemoryStore()
		docStore = documents.NewMemoryStore()
		reqStore = requests.NewMemoryStore()
		noteStore = notify.NewMemoryStore()
	}

	tokens, err := identity.NewTokens(cfg.TokenSecret, identity.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	events := stream.New()
	notifySvc, err := notify.NewService(noteStore, notify.WithPublisher(func(n notify.Notification) {
		events.Publish(stream.Event{
			UserID:    n.UserID,
			Message:   n.Message,
			Channel:   n.Channel,
			Timestamp: n.CreatedAt,
		})
	}))
	if err != nil {
		log.Fatalf("notify service: %v", err)
	}
	identitySvc, err := identity.NewService(userStore, tokens, identity.WithNotifier(notifySvc))
	if err != nil {
		log.Fatalf("identity service: %v", err)
	}
	documentSvc, err := documents.NewService(docStore, documents.WithNotifier(notifySvc))
	if err != nil {
		log.Fatalf("document service: %v", err)
	}
	requestSvc, err := requests.NewService(reqStore, requests.WithNotifier(notifySvc))
	if err != nil {
		log.Fatalf("request service: %v", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	var verifier *federation.Verifier
	if cfg.OIDCClientID != "" {
		verifier, err = federation.NewVerifier(startupCtx, federation.Config{
			IssuerURL:    cfg.OIDCIssuerURL,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		})
		if err != nil {
			log.Fatalf("oidc: %v", err)
		}
	} else {
		log.Println("KEBELE_OIDC_CLIENT_ID is empty, federated login disabled")
	}

	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		admin, err := identitySvc.EnsureBootstrapAdmin(startupCtx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		log.Printf("bootstrap admin ready: %s", admin.Email)
	}

	api := httpapi.New(httpapi.Deps{
		Identity:   identitySvc,
		Tokens:     tokens,
		Documents:  documentSvc,
		Requests:   requestSvc,
		Notify:     notifySvc,
		Federation: verifier,
		Stream:     events,
	}, httpapi.ReadyProbe{DB: db}, version)

	// outermost first: CORS, headers, request id, logging, rate limit, body cap
	handler := httpapi.MaxBodyBytes(api.Handler(), 1<<20)
	handler = httpapi.RateLimit(handler, cfg.RateLimitBurst, cfg.RateLimitPerSecond)
	handler = httpapi.LoggingJSON(handler)
	handler = httpapi.RequestID(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.CORS(handler)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	log.Printf("Starting kebele-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
