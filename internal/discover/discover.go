// Package discover turns search queries into fresh candidate domains.
package discover

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/fetch"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
	"github.com/TobiSchelling/leadcrawler/internal/neterr"
	"github.com/TobiSchelling/leadcrawler/internal/signals"
)

// Candidate is a domain worth auditing.
type Candidate struct {
	Domain  string
	Title   string
	Snippet string
	Niche   string
}

// QueryLog records which queries ran on which date.
type QueryLog interface {
	UsedQueries(date string) (map[string]struct{}, error)
	LogQuery(query, date string) error
}

// Result summarizes one collection pass.
type Result struct {
	FreshQueries int
	QueriesRun   int
	APICalls     int
	Candidates   int
	Reset        bool
}

// Discoverer rotates through queries until enough fresh candidates are found.
type Discoverer struct {
	searcher Searcher
	queries  []Query
	log      QueryLog
	sleeper  fetch.Sleeper
	delay    time.Duration
	rng      *rand.Rand
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithRand fixes the shuffle source.
func WithRand(r *rand.Rand) Option { return func(d *Discoverer) { d.rng = r } }

// WithSleeper replaces the pause between searches.
func WithSleeper(s fetch.Sleeper) Option { return func(d *Discoverer) { d.sleeper = s } }

// WithMetrics counts search calls.
func WithMetrics(m *metrics.Metrics) Option { return func(d *Discoverer) { d.metrics = m } }

// NewDiscoverer creates a Discoverer over a fixed query set.
func NewDiscoverer(searcher Searcher, queries []Query, log QueryLog, delay time.Duration, logger *zap.Logger, opts ...Option) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Discoverer{
		searcher: searcher,
		queries:  queries,
		log:      log,
		sleeper:  fetch.RealSleeper{},
		delay:    delay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Collect runs queries not yet used on date, in random order, until target
// candidates are found. Domains in seen, on the skip list, or whose search
// title is junk are dropped. When every query has run today the rotation
// starts over.
func (d *Discoverer) Collect(ctx context.Context, date string, seen map[string]struct{}, target int) ([]Candidate, Result, error) {
	var res Result

	used, err := d.log.UsedQueries(date)
	if err != nil {
		return nil, res, err
	}
	var fresh []Query
	for _, q := range d.queries {
		if _, ok := used[q.Text]; !ok {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		d.logger.Info("all queries used today, resetting rotation")
		fresh = append(fresh, d.queries...)
		res.Reset = true
	}
	d.rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	res.FreshQueries = len(fresh)

	found := make(map[string]struct{})
	var out []Candidate

	for _, q := range fresh {
		if len(out) >= target {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, res, err
		}

		results, err := d.searcher.Search(ctx, q.Text)
		if err == nil || neterr.Is(err, neterr.HTTPStatus) {
			res.APICalls++
			d.metrics.SearchCall()
		}
		if err != nil {
			d.logger.Warn("search failed", zap.String("query", q.Text), zap.Error(err))
		}
		if logErr := d.log.LogQuery(q.Text, date); logErr != nil {
			return out, res, logErr
		}
		res.QueriesRun++

		for _, r := range results {
			root, ok := RootDomain(r.URL)
			if !ok || IsSkipped(root) {
				continue
			}
			if _, dup := seen[root]; dup {
				continue
			}
			if _, dup := found[root]; dup {
				continue
			}
			if signals.IsJunkTitle(r.Title) {
				continue
			}
			found[root] = struct{}{}
			out = append(out, Candidate{Domain: root, Title: r.Title, Snippet: r.Description, Niche: q.Niche})
		}

		if err := d.sleeper.Sleep(ctx, d.delay); err != nil {
			return out, res, err
		}
	}

	res.Candidates = len(out)
	d.logger.Info("search done",
		zap.Int("candidates", len(out)),
		zap.Int("queries", res.QueriesRun),
		zap.Int("api_calls", res.APICalls),
	)
	return out, res, nil
}
