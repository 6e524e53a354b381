// Package pipeline runs one lead-generation pass: search for fresh domains,
// then qualify them until the daily lead target is met.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/discover"
	"github.com/TobiSchelling/leadcrawler/internal/export"
	"github.com/TobiSchelling/leadcrawler/internal/fetch"
	"github.com/TobiSchelling/leadcrawler/internal/qualify"
)

// candidatesPerLead is how many candidates are gathered per missing lead.
const candidatesPerLead = 4

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID    string
	Date     string
	Steps    []StepResult
	Outcomes map[qualify.Outcome]int
	Tiers    map[string]int
	Leads    int
	APICalls int
	Cost     float64
}

// Err returns the first step error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(s.Name), s.Err)
		}
	}
	return nil
}

// Collector finds candidate domains.
type Collector interface {
	Collect(ctx context.Context, date string, seen map[string]struct{}, target int) ([]discover.Candidate, discover.Result, error)
}

// Qualifier audits one candidate.
type Qualifier interface {
	Qualify(ctx context.Context, c discover.Candidate) (*qualify.Lead, qualify.Outcome, error)
}

// LeadSink receives qualified leads.
type LeadSink interface {
	Append(row export.LeadRow) bool
}

// Config holds the run limits.
type Config struct {
	DailyLeadTarget int
	CostPer1000     float64
	SiteDelay       time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSleeper replaces the pause between sites.
func WithSleeper(s fetch.Sleeper) Option { return func(p *Pipeline) { p.sleeper = s } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// Pipeline orchestrates the search and qualify steps.
type Pipeline struct {
	cfg       Config
	db        *database.DB
	collector Collector
	qualifier Qualifier
	leads     LeadSink

	sleeper fetch.Sleeper
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a new pipeline.
func New(cfg Config, db *database.DB, collector Collector, qualifier Qualifier, leads LeadSink, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		db:        db,
		collector: collector,
		qualifier: qualifier,
		leads:     leads,
		sleeper:   fetch.RealSleeper{},
		now:       time.Now,
		logger:    logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) newResult() *Result {
	return &Result{
		RunID:    uuid.NewString(),
		Date:     p.now().Format("2006-01-02"),
		Outcomes: make(map[qualify.Outcome]int),
		Tiers:    make(map[string]int),
	}
}

// Run executes search then qualify. Progress is written to run_stats as it
// happens, so an interrupted run resumes toward the same daily target.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := p.newResult()
	log := p.logger.With(zap.String("run_id", r.RunID))

	today, err := p.db.GetRunStats(r.Date)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Search", Err: err})
		return r
	}
	remaining := p.cfg.DailyLeadTarget - today.LeadsFound
	if remaining <= 0 {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Search",
			Summary: fmt.Sprintf("Daily target of %d leads already reached", p.cfg.DailyLeadTarget),
		})
		return r
	}

	log.Info("step 1/2: searching", zap.Int("leads_needed", remaining))
	candidates, step := p.runSearch(ctx, r, remaining)
	r.Steps = append(r.Steps, step)
	if step.Err != nil || len(candidates) == 0 {
		return r
	}

	log.Info("step 2/2: qualifying", zap.Int("candidates", len(candidates)))
	r.Steps = append(r.Steps, p.runQualify(ctx, r, candidates, remaining))
	return r
}

// DryRun shows what a run would do without searching or fetching.
func (p *Pipeline) DryRun() *Result {
	r := p.newResult()

	today, err := p.db.GetRunStats(r.Date)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Search", Err: err})
		return r
	}
	seen, err := p.db.LoadSeenDomains()
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Search", Err: err})
		return r
	}

	remaining := max(p.cfg.DailyLeadTarget-today.LeadsFound, 0)
	r.Steps = append(r.Steps, StepResult{
		Name: "Search",
		Summary: fmt.Sprintf("[dry-run] %d of %d leads found today; would look for %d candidates, skipping %d known domains",
			today.LeadsFound, p.cfg.DailyLeadTarget, remaining*candidatesPerLead, len(seen)),
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Qualify",
		Summary: fmt.Sprintf("[dry-run] would qualify until %d more leads are found", remaining),
	})
	return r
}

func (p *Pipeline) runSearch(ctx context.Context, r *Result, remaining int) ([]discover.Candidate, StepResult) {
	seen, err := p.db.LoadSeenDomains()
	if err != nil {
		return nil, StepResult{Name: "Search", Err: err}
	}

	candidates, res, err := p.collector.Collect(ctx, r.Date, seen, remaining*candidatesPerLead)
	r.APICalls = res.APICalls
	r.Cost = float64(res.APICalls) * p.cfg.CostPer1000 / 1000
	if statsErr := p.db.AddRunStats(database.RunStats{RunDate: r.Date, APICalls: res.APICalls, Cost: r.Cost}); statsErr != nil && err == nil {
		err = statsErr
	}
	if err != nil {
		return candidates, StepResult{Name: "Search", Err: err}
	}

	summary := fmt.Sprintf("Found %d new domains from %d queries (%d API calls, $%.3f)",
		len(candidates), res.QueriesRun, res.APICalls, r.Cost)
	if res.Reset {
		summary += ", query rotation reset"
	}
	return candidates, StepResult{Name: "Search", Summary: summary}
}

func (p *Pipeline) runQualify(ctx context.Context, r *Result, candidates []discover.Candidate, remaining int) StepResult {
	audited := 0
	for i, c := range candidates {
		if r.Leads >= remaining {
			p.logger.Info("daily lead target reached")
			break
		}
		if i > 0 {
			if err := p.sleeper.Sleep(ctx, p.cfg.SiteDelay); err != nil {
				return StepResult{Name: "Qualify", Summary: p.qualifySummary(r, audited), Err: err}
			}
		}

		lead, outcome, err := p.qualifier.Qualify(ctx, c)
		if err != nil {
			return StepResult{Name: "Qualify", Summary: p.qualifySummary(r, audited), Err: err}
		}
		audited++
		r.Outcomes[outcome]++

		delta := database.RunStats{RunDate: r.Date, DomainsSearched: 1}
		if lead != nil {
			r.Leads++
			r.Tiers[string(lead.Score.Tier)]++
			delta.LeadsFound = 1
			p.leads.Append(lead.Row(r.Date))
		}
		if err := p.db.AddRunStats(delta); err != nil {
			return StepResult{Name: "Qualify", Summary: p.qualifySummary(r, audited), Err: err}
		}
	}
	return StepResult{Name: "Qualify", Summary: p.qualifySummary(r, audited)}
}

func (p *Pipeline) qualifySummary(r *Result, audited int) string {
	var rejected []string
	for outcome, n := range r.Outcomes {
		if outcome != qualify.OutcomeLead {
			rejected = append(rejected, fmt.Sprintf("%s %d", outcome, n))
		}
	}
	sort.Strings(rejected)

	s := fmt.Sprintf("Audited %d domains: %d leads (HOT %d, WARM %d, COLD %d)",
		audited, r.Leads, r.Tiers["HOT"], r.Tiers["WARM"], r.Tiers["COLD"])
	if len(rejected) > 0 {
		s += "; rejected: " + strings.Join(rejected, ", ")
	}
	return s
}
