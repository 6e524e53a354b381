// Package qualify audits a candidate site and decides whether it is a lead.
package qualify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/config"
	"github.com/TobiSchelling/leadcrawler/internal/contact"
	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/discover"
	"github.com/TobiSchelling/leadcrawler/internal/export"
	"github.com/TobiSchelling/leadcrawler/internal/fetch"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
	"github.com/TobiSchelling/leadcrawler/internal/score"
	"github.com/TobiSchelling/leadcrawler/internal/signals"
)

// Outcome is the result of qualifying one domain.
type Outcome string

const (
	OutcomeUnreachable Outcome = "unreachable"
	OutcomeJunkTitle   Outcome = "junk_title"
	OutcomeEnterprise  Outcome = "enterprise"
	OutcomeNonprofit   Outcome = "nonprofit"
	OutcomeNoContact   Outcome = "no_contact"
	OutcomeLowScore    Outcome = "low_score"
	OutcomeLead        Outcome = "lead"
)

// subpagePaths are fetched after the homepage for extra capability evidence.
var subpagePaths = []string{"/contact", "/about"}

// Config holds the qualification thresholds and timeouts.
type Config struct {
	MinScore       int
	RequestTimeout time.Duration
	SubpageTimeout time.Duration
	SubpageDelay   time.Duration
}

// ConfigFrom adapts the qualify section of the app config.
func ConfigFrom(q config.Qualify) Config {
	return Config{
		MinScore:       q.MinTotalScore,
		RequestTimeout: q.RequestTimeout,
		SubpageTimeout: q.SubpageTimeout,
		SubpageDelay:   q.SubpageDelay,
	}
}

// EmailVerifier keeps the deliverable addresses of a list.
type EmailVerifier interface {
	Filter(ctx context.Context, emails []string) []string
}

// Lead is a qualified domain with everything needed for export.
type Lead struct {
	Domain        string
	URL           string
	Company       string
	Niche         string
	Emails        []string
	EmailVerified string
	Phone         string
	ContactPage   string
	Audit         *signals.AuditResult
	Score         score.Breakdown
}

// Row converts the lead to its CSV form.
func (l *Lead) Row(runDate string) export.LeadRow {
	return export.LeadRow{
		RunDate:        runDate,
		Tier:           string(l.Score.Tier),
		Company:        l.Company,
		Domain:         l.Domain,
		Niche:          l.Niche,
		Emails:         l.Emails,
		EmailVerified:  l.EmailVerified,
		Phone:          l.Phone,
		ContactPage:    l.ContactPage,
		Total:          l.Score.Total,
		Automation:     l.Score.Automation,
		BizFit:         l.Score.BizFit,
		Budget:         l.Score.Budget,
		Contact:        l.Score.Contact,
		Gaps:           l.Audit.GapDescriptions(),
		RevenueSignals: l.Audit.RevenueSignals,
		CMS:            string(l.Audit.CMS),
		LoadTime:       l.Audit.LoadTime.Seconds(),
		SizeKB:         l.Audit.SizeKB,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSleeper replaces the pause between page requests.
func WithSleeper(s fetch.Sleeper) Option { return func(e *Engine) { e.sleeper = s } }

// WithClock replaces time.Now for the domain record date.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithMetrics records outcomes and tiers.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// Engine runs the rejection chain, contact discovery and scoring for one
// candidate at a time. It is not safe for concurrent use.
type Engine struct {
	cfg      Config
	pages    contact.PageGetter
	verifier EmailVerifier
	db       *database.DB

	sleeper fetch.Sleeper
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates an Engine. A nil verifier accepts every extracted address
// unverified. A nil db skips the domain history update.
func New(cfg Config, pages contact.PageGetter, verifier EmailVerifier, db *database.DB, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		pages:    pages,
		verifier: verifier,
		db:       db,
		sleeper:  fetch.RealSleeper{},
		now:      time.Now,
		logger:   logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Qualify audits a candidate. The lead is nil for every outcome except
// OutcomeLead. The domain is recorded in the history whatever the outcome;
// the error reports a failure to do so.
func (e *Engine) Qualify(ctx context.Context, c discover.Candidate) (*Lead, Outcome, error) {
	log := e.logger.With(zap.String("domain", c.Domain))

	lead, outcome := e.evaluate(ctx, c, log)
	e.metrics.Audited(string(outcome))

	total := 0
	if lead != nil {
		total = lead.Score.Total
		e.metrics.Lead(string(lead.Score.Tier))
		log.Info("lead qualified",
			zap.String("tier", string(lead.Score.Tier)),
			zap.Int("score", total),
			zap.Strings("emails", lead.Emails),
		)
	} else {
		log.Debug("domain rejected", zap.String("outcome", string(outcome)))
	}

	if e.db != nil {
		date := e.now().Format("2006-01-02")
		if err := e.db.MarkDomainSeen(c.Domain, lead != nil, c.Niche, total, date); err != nil {
			return lead, outcome, err
		}
	}
	return lead, outcome, nil
}

func (e *Engine) evaluate(ctx context.Context, c discover.Candidate, log *zap.Logger) (*Lead, Outcome) {
	page, base := e.fetchHome(ctx, c.Domain)
	if page == nil {
		return nil, OutcomeUnreachable
	}
	if signals.IsJunkTitle(page.Title) {
		return nil, OutcomeJunkTitle
	}

	html := page.HTML()
	audit := signals.Audit(html)
	audit.Title = page.Title
	audit.LoadTime = page.Elapsed
	if audit.IsEnterprise() {
		return nil, OutcomeEnterprise
	}
	if audit.IsNonprofit() {
		return nil, OutcomeNonprofit
	}

	for i, path := range subpagePaths {
		if i > 0 {
			if err := e.sleeper.Sleep(ctx, e.cfg.SubpageDelay); err != nil {
				break
			}
		}
		sub, err := e.pages.Get(ctx, base+path, e.cfg.SubpageTimeout)
		if err != nil || sub.Status != 200 {
			continue
		}
		audit.ApplySubpages(sub.HTML())
	}

	finder := contact.NewFinder(e.pages, e.sleeper, e.cfg.SubpageTimeout, e.cfg.SubpageDelay, e.logger)
	found := finder.Find(ctx, base, html)

	verified := found.Emails
	marker := export.VerifiedNone
	if e.verifier != nil && len(found.Emails) > 0 {
		verified = e.verifier.Filter(ctx, found.Emails)
		marker = export.VerifiedYes
		if len(verified) == 0 {
			marker = export.VerifiedNo
		}
	}
	if len(verified) == 0 && audit.Phone == "" {
		return nil, OutcomeNoContact
	}

	breakdown := score.Compute(score.Inputs{
		GapWeight:      audit.GapWeight(),
		SMBScore:       audit.SMBScore,
		RevenueSignals: len(audit.RevenueSignals),
		EmailQuality:   contact.Quality(verified),
		HasPhone:       audit.Phone != "",
	}, e.cfg.MinScore)
	if breakdown.Tier == score.Skip {
		log.Debug("below minimum score", zap.Int("score", breakdown.Total))
		return nil, OutcomeLowScore
	}

	title := c.Title
	if title == "" {
		title = page.Title
	}
	company := CompanyName(title)
	if company == "" {
		company = CompanyName(page.SiteName())
	}
	if company == "" {
		company = c.Domain
	}

	return &Lead{
		Domain:        c.Domain,
		URL:           page.FinalURL,
		Company:       company,
		Niche:         c.Niche,
		Emails:        verified,
		EmailVerified: marker,
		Phone:         audit.Phone,
		ContactPage:   found.ContactPage,
		Audit:         audit,
		Score:         breakdown,
	}, OutcomeLead
}

// fetchHome tries https first, then plain http. It returns the page and the
// base URL that served it, or nil when neither answered below 400.
func (e *Engine) fetchHome(ctx context.Context, domain string) (*fetch.Page, string) {
	for _, scheme := range []string{"https://", "http://"} {
		base := scheme + domain
		page, err := e.pages.Get(ctx, base, e.cfg.RequestTimeout)
		if err != nil {
			e.logger.Debug("homepage fetch failed", zap.String("url", base), zap.Error(err))
			continue
		}
		if err := page.Err(); err != nil {
			e.logger.Debug("homepage fetch failed", zap.String("url", base), zap.Error(err))
			continue
		}
		return page, base
	}
	return nil, ""
}
