package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"surveyhub.org/internal/auth"
	"surveyhub.org/internal/job"
	"surveyhub.org/internal/obs"
	"surveyhub.org/internal/survey"
)

const serviceName = "surveyhub-api"

// ReadyProbe reports whether the API can serve traffic (e.g. ping the DB).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the HTTP layer needs. All fields except Events and
// Ready.DB are required.
type Deps struct {
	Ready    ReadyProbe
	Version  string
	Codec    *auth.Codec
	Resolver *auth.Resolver
	Engine   *auth.Engine
	Roles    *auth.Registry
	Service  *survey.Service
	Events   *job.Broadcast
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	codec    *auth.Codec
	resolver *auth.Resolver
	engine   *auth.Engine
	roles    *auth.Registry
	svc      *survey.Service
	events   *job.Broadcast
}

func New(d Deps) (*API, error) {
	if d.Codec == nil || d.Resolver == nil || d.Engine == nil || d.Roles == nil || d.Service == nil {
		return nil, errors.New("httpapi: codec, resolver, engine, roles and service are required")
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: d.Ready,
		version:    d.Version,
		codec:      d.Codec,
		resolver:   d.Resolver,
		engine:     d.Engine,
		roles:      d.Roles,
		svc:        d.Service,
		events:     d.Events,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// token issuance
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// resources
	a.mux.HandleFunc("/v1/organizations", a.handleOrganizations)
	a.mux.HandleFunc("/v1/organizations/", a.handleOrganizationScoped)
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/members/", a.handleMemberResource)
	a.mux.HandleFunc("/v1/surveys/", a.handleSurveyResource)

	// deletion-job event stream
	a.mux.HandleFunc("/v1/jobs/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a, nil
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, 50, 25)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
