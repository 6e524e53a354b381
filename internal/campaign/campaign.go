// Package campaign runs the cold-outreach state machine: first contact,
// two follow-ups, and the terminal replied/bounced states.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/config"
	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/export"
	"github.com/TobiSchelling/leadcrawler/internal/fetch"
	"github.com/TobiSchelling/leadcrawler/internal/mail"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
)

// Send kinds, as used in the outreach log and metrics.
const (
	KindFresh     = "fresh"
	KindFollowup1 = "follow-up #1"
	KindFollowup2 = "follow-up #2"
	KindTest      = "test"
)

// ErrNoLeads is returned by a test send when no lead is eligible.
var ErrNoLeads = errors.New("no eligible leads")

// Config holds the campaign limits and pacing.
type Config struct {
	MinScore           int
	NicheKeywords      []string
	FollowupDailyLimit int
	TotalDailyCap      int
	Followup1Days      int
	Followup2Days      int
	MinDelay           time.Duration
	MaxDelay           time.Duration
	Jitter             time.Duration
	InboxLookback      time.Duration
	SenderName         string
	// LeadsGlob matches the exported leads CSVs.
	LeadsGlob string
}

// ConfigFrom adapts the campaign section of the app config.
func ConfigFrom(c config.Campaign, leadsGlob string) Config {
	return Config{
		MinScore:           c.MinScore,
		NicheKeywords:      c.NicheKeywords,
		FollowupDailyLimit: c.FollowupDailyLimit,
		TotalDailyCap:      c.TotalDailyCap,
		Followup1Days:      c.Followup1Days,
		Followup2Days:      c.Followup2Days,
		MinDelay:           c.MinDelay,
		MaxDelay:           c.MaxDelay,
		Jitter:             c.Jitter,
		InboxLookback:      c.InboxLookback,
		SenderName:         c.SenderName,
		LeadsGlob:          leadsGlob,
	}
}

// MXChecker reports whether a domain can receive mail.
type MXChecker interface {
	HasMX(ctx context.Context, domain string) bool
}

// Deps are the collaborators of a campaign run.
type Deps struct {
	DB       *database.DB
	Accounts []Account
	Mailer   Mailer
	MX       MXChecker
	Catalog  *Catalog
	// Outreach is optional.
	Outreach *export.OutreachWriter
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Options select what a run does.
type Options struct {
	FreshOnly     bool
	FollowupsOnly bool
	DryRun        bool
	// TestRecipient, when set, sends one rendered fresh template there and
	// records nothing.
	TestRecipient string
	// LeadsCSV overrides the configured leads glob with one file.
	LeadsCSV string
}

// Report summarizes a run.
type Report struct {
	Date          string
	DryRun        bool
	TodayBefore   database.OutreachCounts
	CapReached    bool
	Replied       []string
	Bounced       []string
	FollowupsSent int
	FreshSent     int
	FreshBudget   int
	Eligible      int
	SkippedMX     int
	Failed        int
	TestSent      bool
}

// Total returns messages sent (or previewed) by the run.
func (r *Report) Total() int {
	return r.FollowupsSent + r.FreshSent
}

// Status is the campaign overview.
type Status struct {
	AllTime        database.OutreachCounts
	Today          database.OutreachCounts
	Replied        int
	Bounced        int
	Pending        int
	Followup1Queue int
	Followup2Queue int
	FreshQuota     int
}

// Option configures a Campaign.
type Option func(*Campaign)

// WithSleeper replaces the pause between sends.
func WithSleeper(s fetch.Sleeper) Option { return func(c *Campaign) { c.sleeper = s } }

// WithRand fixes the random source for template variants and pacing.
func WithRand(r *rand.Rand) Option { return func(c *Campaign) { c.rng = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Campaign) { c.now = now } }

// Campaign drives one outreach run over the store.
type Campaign struct {
	cfg  Config
	deps Deps

	sleeper fetch.Sleeper
	rng     *rand.Rand
	now     func() time.Time
	logger  *zap.Logger

	senderIdx   int
	templateIdx int
	sentAny     bool
}

// New creates a Campaign.
func New(cfg Config, deps Deps, opts ...Option) (*Campaign, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("campaign needs a database")
	}
	if len(deps.Accounts) == 0 {
		return nil, fmt.Errorf("campaign needs at least one sender account")
	}
	if deps.Catalog == nil {
		cat, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		deps.Catalog = cat
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Campaign{
		cfg:     cfg,
		deps:    deps,
		sleeper: fetch.RealSleeper{},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		logger:  logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Campaign) today() string {
	return c.now().Format("2006-01-02")
}

// Run executes one pass: inbox scan, follow-ups, then fresh sends, within
// the day's caps.
func (c *Campaign) Run(ctx context.Context, opts Options) (*Report, error) {
	c.sentAny = false
	db := c.deps.DB
	report := &Report{Date: c.today(), DryRun: opts.DryRun}

	counts, err := db.OutreachOn(report.Date)
	if err != nil {
		return nil, fmt.Errorf("loading today's counters: %w", err)
	}
	report.TodayBefore = counts
	totalToday := counts.Total()

	if opts.TestRecipient != "" {
		return report, c.sendTest(ctx, opts, report)
	}
	if totalToday >= c.cfg.TotalDailyCap {
		report.CapReached = true
		c.logger.Info("daily cap already reached", zap.Int("sent_today", totalToday), zap.Int("cap", c.cfg.TotalDailyCap))
		return report, nil
	}

	stopped, err := c.scanInboxes(ctx, opts.DryRun, report)
	if err != nil {
		return report, err
	}

	if !opts.FreshOnly {
		budget := min(c.cfg.FollowupDailyLimit-counts.Followups, c.cfg.TotalDailyCap-totalToday)
		if err := c.sendFollowups(ctx, budget, stopped, opts.DryRun, report); err != nil {
			return report, err
		}
	}

	if !opts.FollowupsOnly {
		quota := FreshQuota(c.deps.Accounts, c.now())
		report.FreshBudget = min(quota-counts.Fresh, c.cfg.TotalDailyCap-totalToday-report.FollowupsSent)
		if err := c.sendFresh(ctx, opts, report); err != nil {
			return report, err
		}
	}

	c.logger.Info("campaign run finished",
		zap.Int("followups", report.FollowupsSent),
		zap.Int("fresh", report.FreshSent),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return report, nil
}

// scanInboxes marks pending domains that replied or bounced. It returns
// every domain found so the rest of the run skips them even in dry-run.
func (c *Campaign) scanInboxes(ctx context.Context, dryRun bool, report *Report) (map[string]struct{}, error) {
	stopped := make(map[string]struct{})
	pending, err := c.deps.DB.PendingDomains()
	if err != nil {
		return nil, fmt.Errorf("loading pending domains: %w", err)
	}
	if len(pending) == 0 {
		return stopped, nil
	}

	since := c.now().Add(-c.cfg.InboxLookback)
	replied := make(map[string]struct{})
	bounced := make(map[string]struct{})
	for _, a := range c.deps.Accounts {
		if a.Inbox == nil {
			continue
		}
		res, err := a.Inbox.Scan(ctx, since, pending)
		if err != nil {
			c.logger.Warn("inbox scan failed", zap.String("account", a.Email), zap.Error(err))
			c.deps.Metrics.InboxError(a.Email)
			continue
		}
		for _, d := range res.Replied {
			replied[d] = struct{}{}
		}
		for _, d := range res.Bounced {
			bounced[d] = struct{}{}
		}
	}

	for d := range replied {
		stopped[d] = struct{}{}
		report.Replied = append(report.Replied, d)
		if dryRun {
			continue
		}
		if _, err := c.deps.DB.MarkReplied(d); err != nil {
			return nil, fmt.Errorf("marking %s replied: %w", d, err)
		}
		c.logger.Info("lead replied", zap.String("domain", d))
	}
	for d := range bounced {
		if _, done := replied[d]; done {
			continue
		}
		stopped[d] = struct{}{}
		report.Bounced = append(report.Bounced, d)
		if dryRun {
			continue
		}
		if _, err := c.deps.DB.MarkBounced(d); err != nil {
			return nil, fmt.Errorf("marking %s bounced: %w", d, err)
		}
		c.logger.Info("lead bounced", zap.String("domain", d))
	}
	return stopped, nil
}

// sendFollowups sends FU2 first, then FU1. A domain due for both only gets
// FU2 in this pass.
func (c *Campaign) sendFollowups(ctx context.Context, budget int, stopped map[string]struct{}, dryRun bool, report *Report) error {
	if budget <= 0 {
		c.logger.Info("follow-up budget spent for today")
		return nil
	}
	db := c.deps.DB
	today := report.Date

	fu2, err := db.FollowupQueue(2, database.DaysBefore(today, c.cfg.Followup2Days))
	if err != nil {
		return fmt.Errorf("loading follow-up #2 queue: %w", err)
	}
	fu1, err := db.FollowupQueue(1, database.DaysBefore(today, c.cfg.Followup1Days))
	if err != nil {
		return fmt.Errorf("loading follow-up #1 queue: %w", err)
	}
	inFU2 := make(map[string]struct{}, len(fu2))
	for _, m := range fu2 {
		inFU2[m.Domain] = struct{}{}
	}

	type job struct {
		n    int
		msg  database.SentMessage
		tmpl *Template
		kind string
	}
	var jobs []job
	for _, m := range fu2 {
		jobs = append(jobs, job{2, m, c.deps.Catalog.Followup2, KindFollowup2})
	}
	for _, m := range fu1 {
		if _, ok := inFU2[m.Domain]; ok {
			continue
		}
		jobs = append(jobs, job{1, m, c.deps.Catalog.Followup1, KindFollowup1})
	}
	c.logger.Info("follow-up queues", zap.Int("fu2", len(fu2)), zap.Int("fu1", len(jobs)-len(fu2)), zap.Int("budget", budget))

	for _, j := range jobs {
		if report.FollowupsSent >= budget {
			break
		}
		if _, skip := stopped[j.msg.Domain]; skip {
			continue
		}
		company := j.msg.Company
		if company == "" {
			company = j.msg.Domain
		}
		rendered, err := j.tmpl.Render(Vars{
			Greeting: j.tmpl.Greet(GuessFirstName(j.msg.Email)),
			Company:  company,
			Domain:   j.msg.Domain,
			Sender:   c.cfg.SenderName,
		}, c.rng)
		if err != nil {
			return err
		}

		from := c.senderFor(j.msg.SenderAccount)
		if !c.deliver(ctx, from, j.msg.Email, rendered, j.kind, dryRun, report) {
			continue
		}
		report.FollowupsSent++
		if !dryRun {
			if _, err := db.LogFollowup(j.msg.Domain, j.msg.Email, j.n, today); err != nil {
				return fmt.Errorf("logging follow-up: %w", err)
			}
			c.logOutreach(today, j.msg.Domain, company, j.msg.Email, rendered, j.kind)
		}
	}
	return nil
}

func (c *Campaign) sendFresh(ctx context.Context, opts Options, report *Report) error {
	if report.FreshBudget <= 0 {
		c.logger.Info("fresh limit reached for today")
		return nil
	}
	leads, err := c.loadLeads(opts.LeadsCSV)
	if err != nil {
		return err
	}
	report.Eligible = len(leads)
	if len(leads) == 0 {
		c.logger.Info("no eligible leads")
		return nil
	}

	bySender, err := c.deps.DB.FreshSentBySender(report.Date)
	if err != nil {
		return fmt.Errorf("loading per-account counts: %w", err)
	}

	for _, lead := range leads {
		if report.FreshSent >= report.FreshBudget {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		to := lead.FirstEmail()
		if !strings.Contains(to, "@") {
			continue
		}
		if c.deps.MX != nil && !c.deps.MX.HasMX(ctx, domainOf(to)) {
			c.logger.Info("skipping lead without MX", zap.String("domain", lead.Domain), zap.String("email", to))
			report.SkippedMX++
			continue
		}

		from, ok := c.nextSender(bySender)
		if !ok {
			c.logger.Info("every sender account has used its quota")
			break
		}

		rendered, err := c.renderFresh(lead)
		if err != nil {
			return err
		}
		if !c.deliver(ctx, from, to, rendered, KindFresh, opts.DryRun, report) {
			continue
		}
		if opts.DryRun {
			report.FreshSent++
			bySender[from]++
			continue
		}
		inserted, err := c.deps.DB.LogSent(database.SentMessage{
			Domain:        lead.Domain,
			Email:         to,
			SentDate:      report.Date,
			TemplateUsed:  rendered.Template,
			Subject:       rendered.Subject,
			Company:       companyOf(lead),
			Niche:         lead.Niche,
			Issues:        strings.Join(lead.Gaps, "; "),
			SenderAccount: from,
		})
		if err != nil {
			return fmt.Errorf("logging send: %w", err)
		}
		if !inserted {
			c.logger.Warn("send already recorded", zap.String("domain", lead.Domain), zap.String("email", to))
			continue
		}
		report.FreshSent++
		bySender[from]++
		c.logOutreach(report.Date, lead.Domain, companyOf(lead), to, rendered, KindFresh)
	}
	return nil
}

func (c *Campaign) renderFresh(lead export.LeadRow) (Rendered, error) {
	tmpl := c.deps.Catalog.Fresh[c.templateIdx%len(c.deps.Catalog.Fresh)]
	c.templateIdx++
	return tmpl.Render(Vars{
		Greeting: tmpl.Greet(GuessFirstName(lead.FirstEmail())),
		Company:  companyOf(lead),
		Domain:   lead.Domain,
		Issues:   FormatIssues(PickTopIssues(lead.Gaps)),
		Sender:   c.cfg.SenderName,
	}, c.rng)
}

// sendTest renders a random fresh template for the best eligible lead and
// sends it to the test recipient. Nothing is recorded.
func (c *Campaign) sendTest(ctx context.Context, opts Options, report *Report) error {
	leads, err := c.loadLeads(opts.LeadsCSV)
	if err != nil {
		return err
	}
	report.Eligible = len(leads)
	if len(leads) == 0 {
		return ErrNoLeads
	}
	lead := leads[0]
	tmpl := c.deps.Catalog.Fresh[c.rng.Intn(len(c.deps.Catalog.Fresh))]
	rendered, err := tmpl.Render(Vars{
		Greeting: tmpl.Greet(GuessFirstName(lead.FirstEmail())),
		Company:  companyOf(lead),
		Domain:   lead.Domain,
		Issues:   FormatIssues(PickTopIssues(lead.Gaps)),
		Sender:   c.cfg.SenderName,
	}, c.rng)
	if err != nil {
		return err
	}
	c.logger.Info("test send", zap.String("template", rendered.Template), zap.String("lead", lead.Domain))
	from := c.deps.Accounts[0].Email
	report.TestSent = c.deliver(ctx, from, opts.TestRecipient, rendered, KindTest, opts.DryRun, report)
	if !report.TestSent {
		return fmt.Errorf("test send to %s failed", opts.TestRecipient)
	}
	return nil
}

func (c *Campaign) loadLeads(override string) ([]export.LeadRow, error) {
	var paths []string
	if override != "" {
		paths = []string{override}
	} else {
		var err error
		if paths, err = export.LeadFiles(c.cfg.LeadsGlob); err != nil {
			return nil, err
		}
	}
	if len(paths) == 0 {
		c.logger.Warn("no leads CSV found", zap.String("pattern", c.cfg.LeadsGlob))
		return nil, nil
	}
	rows, err := export.ReadLeads(paths...)
	if err != nil {
		return nil, fmt.Errorf("reading leads: %w", err)
	}
	return Eligible(rows, c.cfg.MinScore, c.cfg.NicheKeywords, c.deps.DB.AlreadyEmailed)
}

// deliver paces, sends and records the metric. It reports success.
func (c *Campaign) deliver(ctx context.Context, from, to string, r Rendered, kind string, dryRun bool, report *Report) bool {
	log := c.logger.With(zap.String("to", to), zap.String("from", from), zap.String("kind", kind), zap.String("template", r.Template))
	if dryRun {
		log.Info("preview", zap.String("subject", r.Subject), zap.String("body", r.Body))
		c.deps.Metrics.Sent(kind, "preview")
		return true
	}

	if c.sentAny {
		if err := c.pace(ctx); err != nil {
			log.Warn("interrupted while pacing", zap.Error(err))
			return false
		}
	}

	msg := mail.NewMessage(c.cfg.SenderName, from, to, r.Subject, r.Body)
	if err := c.deps.Mailer.Send(ctx, from, msg); err != nil {
		log.Warn("send failed", zap.Error(err))
		c.deps.Metrics.Sent(kind, "failed")
		report.Failed++
		return false
	}
	c.sentAny = true
	log.Info("sent", zap.String("subject", r.Subject))
	c.deps.Metrics.Sent(kind, "sent")
	return true
}

// pace sleeps uniform[MinDelay, MaxDelay] plus uniform[-Jitter, +Jitter],
// never less than MinDelay.
func (c *Campaign) pace(ctx context.Context) error {
	return c.sleeper.Sleep(ctx, c.delay())
}

func (c *Campaign) delay() time.Duration {
	d := c.cfg.MinDelay
	if span := c.cfg.MaxDelay - c.cfg.MinDelay; span > 0 {
		d += time.Duration(c.rng.Int63n(int64(span) + 1))
	}
	if c.cfg.Jitter > 0 {
		d += time.Duration(c.rng.Int63n(2*int64(c.cfg.Jitter)+1)) - c.cfg.Jitter
	}
	return max(d, c.cfg.MinDelay)
}

// nextSender rotates through accounts, skipping those whose quota is spent.
func (c *Campaign) nextSender(bySender map[string]int) (string, bool) {
	day := c.now()
	n := len(c.deps.Accounts)
	for i := 0; i < n; i++ {
		a := c.deps.Accounts[(c.senderIdx+i)%n]
		if bySender[a.Email] < a.Quota(day) {
			c.senderIdx = (c.senderIdx + i + 1) % n
			return a.Email, true
		}
	}
	return "", false
}

// senderFor returns the account that sent the first contact, falling back
// to the first configured account.
func (c *Campaign) senderFor(email string) string {
	for _, a := range c.deps.Accounts {
		if a.Email == email {
			return email
		}
	}
	return c.deps.Accounts[0].Email
}

func (c *Campaign) logOutreach(date, domain, company, email string, r Rendered, kind string) {
	if c.deps.Outreach == nil {
		return
	}
	c.deps.Outreach.Append(export.OutreachRow{
		Date:     date,
		Domain:   domain,
		Company:  company,
		Email:    email,
		Template: r.Template,
		Type:     kind,
		Subject:  r.Subject,
		Status:   database.StatusSent,
	})
}

// MarkReplied moves a domain to the replied state by hand. It reports
// whether any pending record changed.
func (c *Campaign) MarkReplied(domain string) (bool, error) {
	n, err := c.deps.DB.MarkReplied(strings.ToLower(strings.TrimSpace(domain)))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Status reports all-time and today's counters and the follow-up queue sizes.
func (c *Campaign) Status() (*Status, error) {
	db := c.deps.DB
	today := c.today()
	st := &Status{FreshQuota: FreshQuota(c.deps.Accounts, c.now())}

	var err error
	if st.AllTime, err = db.OutreachTotals(); err != nil {
		return nil, err
	}
	if st.Today, err = db.OutreachOn(today); err != nil {
		return nil, err
	}
	byStatus, err := db.CountByStatus()
	if err != nil {
		return nil, err
	}
	st.Replied = byStatus[database.StatusReplied]
	st.Bounced = byStatus[database.StatusBounced]
	st.Pending = byStatus[database.StatusSent]

	fu1, err := db.FollowupQueue(1, database.DaysBefore(today, c.cfg.Followup1Days))
	if err != nil {
		return nil, err
	}
	fu2, err := db.FollowupQueue(2, database.DaysBefore(today, c.cfg.Followup2Days))
	if err != nil {
		return nil, err
	}
	st.Followup1Queue = len(fu1)
	st.Followup2Queue = len(fu2)
	return st, nil
}

func companyOf(lead export.LeadRow) string {
	if lead.Company != "" {
		return lead.Company
	}
	return lead.Domain
}

func domainOf(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return strings.ToLower(email[i+1:])
	}
	return ""
}
