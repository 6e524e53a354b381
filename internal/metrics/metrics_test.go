package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TobiSchelling/leadcrawler/internal/database"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()
	m.Audited("lead")
	m.Audited("lead")
	m.Audited("junk_title")
	m.Sent("fresh", "sent")
	m.SearchCall()

	body := scrape(t, m)
	for _, want := range []string{
		`leadcrawler_domains_audited_total{outcome="lead"} 2`,
		`leadcrawler_domains_audited_total{outcome="junk_title"} 1`,
		`leadcrawler_emails_sent_total{kind="fresh",result="sent"} 1`,
		"leadcrawler_search_api_calls_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output:\n%s", want, body)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Audited("x")
	m.Lead("HOT")
	m.Sent("fresh", "sent")
	m.InboxError("a@b.com")
	m.SearchCall()
}

type fakeStats struct{}

func (fakeStats) GetStats() (*database.Stats, error) {
	return &database.Stats{DomainsSeen: 12, Leads: 3, Replied: 1}, nil
}

func TestHandlerExposesStoreGauges(t *testing.T) {
	m := New()
	m.RegisterStore(fakeStats{}, nil)
	m.Lead("HOT")

	body := scrape(t, m)
	for _, want := range []string{
		"leadcrawler_store_domains_seen 12",
		"leadcrawler_store_leads 3",
		`leadcrawler_leads_total{tier="HOT"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output:\n%s", want, body)
		}
	}
}
