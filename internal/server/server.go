package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/campaign"
	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var (
	md        = goldmark.New()
	sanitizer = bluemonday.UGCPolicy()
)

// sampleVars fill template previews when no query parameters are given.
var sampleVars = campaign.Vars{
	Greeting: "Hi Sarah",
	Company:  "Bright Smile Dental",
	Domain:   "brightsmiledental.com",
	Issues:   campaign.FormatIssues([]string{"No online booking system", "No chatbot or live chat"}),
	Sender:   "Your Name",
}

// Server is the read-mostly dashboard over the store.
type Server struct {
	db      *database.DB
	catalog *campaign.Catalog
	metrics *metrics.Metrics
	pages   map[string]*template.Template
	router  chi.Router
	logger  *zap.Logger
}

// New creates a new Server. A nil metrics disables /metrics.
func New(db *database.DB, catalog *campaign.Catalog, m *metrics.Metrics, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"comma":    func(n int) string { return humanize.Comma(int64(n)) },
		"money":    func(f float64) string { return "$" + humanize.FormatFloat("#,###.##", f) },
		"ago":      relativeDate,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so their "content" blocks don't collide.
	pageNames := []string{"index.html", "leads.html", "campaign.html", "templates.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, catalog: catalog, metrics: m, pages: pages, logger: logger}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", s.handleIndex)
	r.Get("/leads", s.handleLeads)
	r.Get("/campaign", s.handleCampaign)
	r.Post("/campaign/{domain}/replied", s.handleMarkReplied)
	r.Get("/templates", s.handleTemplates)
	r.Get("/templates/{name}", s.handleTemplates)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	s.router = r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		s.serverError(w, err)
		return
	}
	runs, err := s.db.RecentRunStats(14)
	if err != nil {
		s.serverError(w, err)
		return
	}
	totals, err := s.db.OutreachTotals()
	if err != nil {
		s.serverError(w, err)
		return
	}
	today, err := s.db.OutreachOn(database.GetToday())
	if err != nil {
		s.serverError(w, err)
		return
	}

	var cost float64
	for _, run := range runs {
		cost += run.Cost
	}
	s.render(w, "index.html", map[string]any{
		"Stats":         stats,
		"Runs":          runs,
		"RecentCost":    cost,
		"OutreachTotal": totals,
		"OutreachToday": today,
	})
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.db.RecentLeads(200)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, "leads.html", map[string]any{"Leads": leads})
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", database.StatusSent, database.StatusReplied, database.StatusBounced:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	records, err := s.db.SentMessages(status, 500)
	if err != nil {
		s.serverError(w, err)
		return
	}
	counts, err := s.db.CountByStatus()
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, "campaign.html", map[string]any{
		"Status":  status,
		"Records": records,
		"Counts":  counts,
	})
}

func (s *Server) handleMarkReplied(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	n, err := s.db.MarkReplied(domain)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.logger.Info("marked replied from dashboard", zap.String("domain", domain), zap.Int64("records", n))
	http.Redirect(w, r, "/campaign", http.StatusSeeOther)
}

type preview struct {
	Name     string
	Subjects []string
	Bodies   []template.HTML
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		http.Error(w, "no template catalog loaded", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	vars := previewVars(r.URL.Query())

	var previews []preview
	for _, tmpl := range s.catalog.All() {
		if name != "" && tmpl.Name != name {
			continue
		}
		subjects, bodies, err := tmpl.Variants(vars)
		if err != nil {
			s.serverError(w, err)
			return
		}
		p := preview{Name: tmpl.Name, Subjects: subjects}
		for _, b := range bodies {
			p.Bodies = append(p.Bodies, renderMarkdown(b))
		}
		previews = append(previews, p)
	}
	if name != "" && len(previews) == 0 {
		http.NotFound(w, r)
		return
	}

	s.render(w, "templates.html", map[string]any{
		"Previews": previews,
		"Vars":     vars,
	})
}

func previewVars(q url.Values) campaign.Vars {
	v := sampleVars
	if d := q.Get("domain"); d != "" {
		v.Domain = d
	}
	if c := q.Get("company"); c != "" {
		v.Company = c
	}
	if e := q.Get("email"); e != "" {
		v.Greeting = (&campaign.Template{Greeting: "Hi there"}).Greet(campaign.GuessFirstName(e))
	}
	if sender := q.Get("sender"); sender != "" {
		v.Sender = sender
	}
	return v
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("dashboard request failed", zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.serverError(w, fmt.Errorf("rendering %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// renderMarkdown converts plain message text to sanitized HTML.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())) //nolint: gosec
}

func relativeDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	if t.Format("2006-01-02") == database.GetToday() {
		return "today"
	}
	return humanize.Time(t)
}

// Serve starts the HTTP server on the given port.
func Serve(s *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	s.logger.Info("server listening", zap.String("url", "http://"+addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
