package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/leadcrawler/internal/campaign"
	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, db *database.DB) *Server {
	t.Helper()
	cat, err := campaign.DefaultCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	m := metrics.New()
	m.RegisterStore(db, nil)
	srv, err := New(db, cat, m, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func seedSent(t *testing.T, db *database.DB, domain string) {
	t.Helper()
	if _, err := db.LogSent(database.SentMessage{
		Domain: domain, Email: "info@" + domain, SentDate: "2026-03-01",
		TemplateUsed: "quick_audit", Subject: "Hello",
	}); err != nil {
		t.Fatal(err)
	}
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	if err := db.AddRunStats(database.RunStats{RunDate: "2026-03-01", LeadsFound: 1200, DomainsSearched: 4000, APICalls: 300, Cost: 0.9}); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, db)

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Overview", "1,200", "4,000", "$0.9"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}
}

func TestLeadsRoute(t *testing.T) {
	db := openTestDB(t)
	if err := db.MarkDomainSeen("brightsmiledental.com", true, "Dental", 72, "2026-03-01"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkDomainSeen("nolead.com", false, "Dental", 0, "2026-03-01"); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, db)

	body := get(t, srv, "/leads").Body.String()
	if !strings.Contains(body, "brightsmiledental.com") {
		t.Error("expected lead in response")
	}
	if strings.Contains(body, "nolead.com") {
		t.Error("non-lead should not be listed")
	}
}

func TestCampaignRoute(t *testing.T) {
	db := openTestDB(t)
	seedSent(t, db, "a.com")
	seedSent(t, db, "b.com")
	if _, err := db.MarkBounced("b.com"); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, db)

	body := get(t, srv, "/campaign?status=bounced").Body.String()
	if !strings.Contains(body, "b.com") || strings.Contains(body, "info@a.com") {
		t.Error("expected only the bounced record")
	}
	if !strings.Contains(body, "Bounced (1)") {
		t.Error("expected status counts")
	}

	if rec := get(t, srv, "/campaign?status=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestMarkRepliedRoute(t *testing.T) {
	db := openTestDB(t)
	seedSent(t, db, "a.com")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("POST", "/campaign/a.com/replied", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected 303, got %d", rec.Code)
	}
	m, err := db.GetSent("a.com", "info@a.com")
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != database.StatusReplied {
		t.Errorf("expected replied, got %s", m.Status)
	}
}

func TestTemplatesRoute(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))

	body := get(t, srv, "/templates?domain=oakdental.com&company=Oak+Dental").Body.String()
	for _, want := range []string{"quick_audit", "followup_2", "oakdental.com", "<p>"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}

	one := get(t, srv, "/templates/competitor").Body.String()
	if !strings.Contains(one, "competitor") || strings.Contains(one, "helpful_tip") {
		t.Error("expected only the competitor template")
	}

	if rec := get(t, srv, "/templates/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	got := string(renderMarkdown("Hi there,\n\n<script>alert(1)</script>"))
	if !strings.Contains(got, "<p>Hi there,</p>") {
		t.Errorf("expected paragraph, got %q", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("script tag survived: %q", got)
	}
}

func TestMetricsRoute(t *testing.T) {
	db := openTestDB(t)
	seedSent(t, db, "a.com")
	srv := newTestServer(t, db)

	body := get(t, srv, "/metrics").Body.String()
	if !strings.Contains(body, "leadcrawler_store_domains_contacted 1") {
		t.Errorf("expected store gauge in metrics output, got:\n%s", body)
	}
}

func TestStaticRoute(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	if rec := get(t, srv, "/static/style.css"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
