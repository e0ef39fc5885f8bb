// Package fixture serves a fake stock dashboard for local runs and tests.
//
// The DOM mirrors what the Streamlit app renders: the same ids, aria labels
// and glide data-grid test ids, so every driver can be exercised without the
// hosted deployment. A configurable number of initial loads render the
// cold-start screen the real app shows while its cache warms.
package fixture

import (
	"html/template"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/obs"
	"github.com/kuitang/stockdash-e2e/internal/ratelimit"
	"github.com/kuitang/stockdash-e2e/internal/urlutil"
)

// AppPath is where the app page lives in iframe mode.
const AppPath = "/~/+/"

// Options configures a Server.
type Options struct {
	Mode dashboard.ContainerMode
	// ColdStartLoads is how many app-page loads render the starting screen.
	ColdStartLoads int
	// RateLimit, when set, throttles each client with 429s like the
	// hosting platform does. Health checks are never limited.
	RateLimit *ratelimit.Config
}

// Server is the fake dashboard.
type Server struct {
	opts   Options
	loads   atomic.Int64
	router  chi.Router
	limiter *ratelimit.RateLimiter
}

// New builds a fixture server. An empty mode means root.
func New(opts Options) *Server {
	if opts.Mode == "" {
		opts.Mode = dashboard.ContainerRoot
	}
	if opts.ColdStartLoads < 0 {
		opts.ColdStartLoads = 0
	}
	s := &Server{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(obs.RequestContextMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return obs.AccessLogMiddleware("fixture", next)
	})

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		if opts.RateLimit != nil {
			s.limiter = ratelimit.NewRateLimiter(*opts.RateLimit)
			r.Use(ratelimit.RateLimitMiddleware(s.limiter, nil))
		}
		if opts.Mode == dashboard.ContainerIframe {
			r.Get("/", s.handleHost)
			r.Get(AppPath, s.handleApp)
		} else {
			r.Get("/", s.handleApp)
		}
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the rate limiter, if any.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Mode returns the container mode being served.
func (s *Server) Mode() dashboard.ContainerMode {
	return s.opts.Mode
}

// Loads returns how many times the app page has been served.
func (s *Server) Loads() int {
	return int(s.loads.Load())
}

// Reset puts the server back into cold start.
func (s *Server) Reset() {
	s.loads.Store(0)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	origin := urlutil.OriginFromRequest(r, "http://localhost")
	data := hostData{
		Title:    dashboard.DashboardTitle,
		FrameSrc: urlutil.BuildAbsolute(origin, AppPath),
	}
	if q := r.URL.RawQuery; q != "" {
		data.FrameSrc += "?" + q
	}
	s.render(w, r, hostTemplate, data)
}

func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	load := int(s.loads.Add(1))

	data := appData{
		Title:             dashboard.DashboardTitle,
		IndustryTitle:     dashboard.IndustryDataTitle,
		ColdStart:         load <= s.opts.ColdStartLoads,
		BackgroundStarted: load == 1,
		Sectors:           Sectors(),
		Columns:           Columns,
	}
	sector := strings.TrimSpace(r.URL.Query().Get("sector"))
	data.Sector = sector
	for _, c := range InSector(sector) {
		data.Rows = append(data.Rows, row{Sector: c.Sector, Cells: c.Cells()})
	}

	obs.From(r.Context()).Debug("fixture app load", "load", load, "cold_start", data.ColdStart, "sector", sector)
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, appTemplate, data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		obs.From(r.Context()).Error("fixture render failed", "error", err)
	}
}

type hostData struct {
	Title    string
	FrameSrc string
}

type row struct {
	Sector string
	Cells  []string
}

type appData struct {
	Title             string
	IndustryTitle     string
	ColdStart         bool
	BackgroundStarted bool
	Sector            string
	Sectors           []string
	Columns           []string
	Rows              []row
}
