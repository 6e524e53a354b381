package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/discover"
	"github.com/TobiSchelling/leadcrawler/internal/export"
	"github.com/TobiSchelling/leadcrawler/internal/fetch"
	"github.com/TobiSchelling/leadcrawler/internal/qualify"
	"github.com/TobiSchelling/leadcrawler/internal/score"
	"github.com/TobiSchelling/leadcrawler/internal/signals"
)

const testDate = "2026-03-10"

type fakeCollector struct {
	candidates []discover.Candidate
	apiCalls   int
	err        error
	gotTarget  int
	gotSeen    int
}

func (f *fakeCollector) Collect(_ context.Context, _ string, seen map[string]struct{}, target int) ([]discover.Candidate, discover.Result, error) {
	f.gotTarget = target
	f.gotSeen = len(seen)
	return f.candidates, discover.Result{QueriesRun: f.apiCalls, APICalls: f.apiCalls, Candidates: len(f.candidates)}, f.err
}

// fakeQualifier treats domains starting with "lead" as HOT leads and rejects
// the rest as unreachable.
type fakeQualifier struct {
	db      *database.DB
	audited []string
}

func (f *fakeQualifier) Qualify(_ context.Context, c discover.Candidate) (*qualify.Lead, qualify.Outcome, error) {
	f.audited = append(f.audited, c.Domain)
	isLead := strings.HasPrefix(c.Domain, "lead")
	if err := f.db.MarkDomainSeen(c.Domain, isLead, c.Niche, 0, testDate); err != nil {
		return nil, "", err
	}
	if !isLead {
		return nil, qualify.OutcomeUnreachable, nil
	}
	return &qualify.Lead{
		Domain: c.Domain,
		Niche:  c.Niche,
		Emails: []string{"info@" + c.Domain},
		Audit:  &signals.AuditResult{CMS: signals.CMSWordPress},
		Score:  score.Breakdown{Total: 70, Tier: score.Hot},
	}, qualify.OutcomeLead, nil
}

type memSink struct{ rows []export.LeadRow }

func (m *memSink) Append(row export.LeadRow) bool {
	m.rows = append(m.rows, row)
	return true
}

func newTestPipeline(t *testing.T, target int, collector *fakeCollector) (*Pipeline, *database.DB, *fakeQualifier, *memSink) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	q := &fakeQualifier{db: db}
	sink := &memSink{}
	p := New(Config{DailyLeadTarget: target, CostPer1000: 3.0}, db, collector, q, sink, zaptest.NewLogger(t),
		WithSleeper(fetch.NoSleep{}),
		WithClock(func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }),
	)
	return p, db, q, sink
}

func candidates(domains ...string) []discover.Candidate {
	var out []discover.Candidate
	for _, d := range domains {
		out = append(out, discover.Candidate{Domain: d, Niche: "Dental"})
	}
	return out
}

func TestRunQualifiesUntilTarget(t *testing.T) {
	collector := &fakeCollector{candidates: candidates("a.com", "lead1.com", "b.com", "lead2.com", "lead3.com"), apiCalls: 10}
	p, db, q, sink := newTestPipeline(t, 2, collector)

	r := p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.RunID == "" {
		t.Error("expected a run id")
	}
	if collector.gotTarget != 8 {
		t.Errorf("expected candidate target 8, got %d", collector.gotTarget)
	}
	if diff := cmp.Diff([]string{"a.com", "lead1.com", "b.com", "lead2.com"}, q.audited); diff != "" {
		t.Errorf("audited domains mismatch (-want +got):\n%s", diff)
	}
	if len(sink.rows) != 2 || sink.rows[0].Domain != "lead1.com" || sink.rows[0].RunDate != testDate {
		t.Errorf("unexpected exported rows: %+v", sink.rows)
	}
	wantOutcomes := map[qualify.Outcome]int{qualify.OutcomeLead: 2, qualify.OutcomeUnreachable: 2}
	if diff := cmp.Diff(wantOutcomes, r.Outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}

	stats, err := db.GetRunStats(testDate)
	if err != nil {
		t.Fatal(err)
	}
	want := &database.RunStats{RunDate: testDate, LeadsFound: 2, DomainsSearched: 4, APICalls: 10, Cost: 0.03}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("run stats mismatch (-want +got):\n%s", diff)
	}
	if len(r.Steps) != 2 || !strings.Contains(r.Steps[1].Summary, "2 leads (HOT 2") {
		t.Errorf("unexpected steps: %+v", r.Steps)
	}
}

func TestRunResumesTowardTarget(t *testing.T) {
	collector := &fakeCollector{candidates: candidates("lead1.com", "lead2.com")}
	p, db, q, _ := newTestPipeline(t, 3, collector)
	if err := db.AddRunStats(database.RunStats{RunDate: testDate, LeadsFound: 2}); err != nil {
		t.Fatal(err)
	}

	r := p.Run(context.Background())
	if r.Err() != nil {
		t.Fatal(r.Err())
	}
	if collector.gotTarget != 4 {
		t.Errorf("expected candidate target 4, got %d", collector.gotTarget)
	}
	if len(q.audited) != 1 {
		t.Errorf("expected one audit, got %v", q.audited)
	}
}

func TestRunStopsWhenTargetReached(t *testing.T) {
	collector := &fakeCollector{candidates: candidates("lead1.com")}
	p, db, q, _ := newTestPipeline(t, 1, collector)
	if err := db.AddRunStats(database.RunStats{RunDate: testDate, LeadsFound: 1}); err != nil {
		t.Fatal(err)
	}

	r := p.Run(context.Background())
	if len(q.audited) != 0 || collector.gotTarget != 0 {
		t.Error("expected no search and no audit")
	}
	if len(r.Steps) != 1 || !strings.Contains(r.Steps[0].Summary, "already reached") {
		t.Errorf("unexpected steps: %+v", r.Steps)
	}
}

func TestRunPassesSeenDomains(t *testing.T) {
	collector := &fakeCollector{}
	p, db, _, _ := newTestPipeline(t, 5, collector)
	if err := db.MarkDomainSeen("old.com", false, "Dental", 0, "2026-03-01"); err != nil {
		t.Fatal(err)
	}

	p.Run(context.Background())
	if collector.gotSeen != 1 {
		t.Errorf("expected 1 seen domain, got %d", collector.gotSeen)
	}
}

func TestRunSearchError(t *testing.T) {
	collector := &fakeCollector{err: errors.New("boom"), apiCalls: 2}
	p, db, q, _ := newTestPipeline(t, 5, collector)

	r := p.Run(context.Background())
	if r.Err() == nil {
		t.Fatal("expected an error")
	}
	if len(q.audited) != 0 {
		t.Error("expected no audits after a failed search")
	}
	stats, err := db.GetRunStats(testDate)
	if err != nil {
		t.Fatal(err)
	}
	if stats.APICalls != 2 {
		t.Errorf("expected API calls recorded despite the error, got %d", stats.APICalls)
	}
}

func TestDryRun(t *testing.T) {
	collector := &fakeCollector{candidates: candidates("lead1.com")}
	p, db, q, _ := newTestPipeline(t, 10, collector)
	if err := db.AddRunStats(database.RunStats{RunDate: testDate, LeadsFound: 4}); err != nil {
		t.Fatal(err)
	}

	r := p.DryRun()
	if len(q.audited) != 0 || collector.gotTarget != 0 {
		t.Error("dry run must not search or audit")
	}
	if len(r.Steps) != 2 || !strings.Contains(r.Steps[0].Summary, "would look for 24 candidates") {
		t.Errorf("unexpected steps: %+v", r.Steps)
	}
}
