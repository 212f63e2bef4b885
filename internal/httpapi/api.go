package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"guildstock.gg/internal/guild"
	"guildstock.gg/internal/ledger"
	"guildstock.gg/internal/obs"
	"guildstock.gg/internal/resource"
	"guildstock.gg/internal/session"
)

// ReadyProbe checks readiness (e.g. a database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the API's collaborators and tunables.
type Options struct {
	Version        string
	ReadyProbe     ReadyProbe
	Sessions       *session.Manager
	Guilds         *guild.Engine
	Board          *ledger.Service
	Resources      *resource.Service
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	sessions   *session.Manager
	guilds     *guild.Engine
	board      *ledger.Service
	resources  *resource.Service
	opts       Options
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
		sessions:   opts.Sessions,
		guilds:     opts.Guilds,
		board:      opts.Board,
		resources:  opts.Resources,
		opts:       opts,
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/session", a.handleSessionCreate)
	a.mux.HandleFunc("POST /v1/session/refresh", a.handleSessionRefresh)

	a.mux.HandleFunc("GET /v1/guilds", a.handleGuilds)
	a.mux.HandleFunc("GET /v1/leaderboard", a.handleLeaderboard)
	a.mux.HandleFunc("GET /v1/users/{id}/contributions", a.handleContributions)
	a.mux.HandleFunc("GET /v1/users/{id}/rank", a.handleRank)
	a.mux.HandleFunc("PUT /v1/resources/{id}/quantity", a.handleResourceQuantity)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withSession(a.mux)

	burst, rps := a.opts.RateLimitBurst, a.opts.RateLimitRPS
	if burst <= 0 {
		burst = 20
	}
	if rps <= 0 {
		rps = 10
	}
	h = RateLimit(h, burst, rps)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.opts.AllowedOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "guildstock-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "guildstock-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parseTimeFilter(raw string) (ledger.TimeFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ledger.FilterAll, nil
	}
	f := ledger.TimeFilter(raw)
	if !f.Valid() {
		return "", errors.New("filter must be one of 24h, 7d, 30d, all")
	}
	return f, nil
}
