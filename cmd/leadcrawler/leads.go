package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/contact"
	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/discover"
	"github.com/TobiSchelling/leadcrawler/internal/export"
	"github.com/TobiSchelling/leadcrawler/internal/fetch"
	"github.com/TobiSchelling/leadcrawler/internal/mail"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
	"github.com/TobiSchelling/leadcrawler/internal/pipeline"
	"github.com/TobiSchelling/leadcrawler/internal/qualify"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Find and qualify new leads",
}

var leadsDryRun bool

var leadsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Search for new domains and qualify them until the daily target is met",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !leadsDryRun {
			if err := cfg.ValidateLeads(); err != nil {
				return err
			}
		}

		release, err := database.AcquireLock(cfg.GetDataDir())
		if err != nil {
			return err
		}
		defer release()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := newLeadPipeline(db)

		var result *pipeline.Result
		if leadsDryRun {
			fmt.Println("Dry run: no searches or site fetches will be made.")
			result = p.DryRun()
		} else {
			fmt.Printf("Lead run for %s (target %d leads).\n", database.GetToday(), cfg.Search.DailyLeadTarget)
			result = p.Run(ctx)
		}

		printLeadResult(result)
		if err := result.Err(); err != nil {
			return err
		}
		if !leadsDryRun && result.Leads > 0 {
			fmt.Printf("\nLeads written to %s\n", cfg.LeadsCSVPath(result.Date))
		}
		return nil
	},
}

func init() {
	leadsRunCmd.Flags().BoolVar(&leadsDryRun, "dry-run", false, "Show what would be done without executing")
	leadsCmd.AddCommand(leadsRunCmd)
}

// newLeadPipeline wires the search, qualification and export stages.
func newLeadPipeline(db *database.DB) *pipeline.Pipeline {
	m := metrics.New()
	q := cfg.Qualify

	var prober contact.Prober
	if q.SMTPProbe {
		prober = &contact.SMTPProber{Helo: q.ProbeHelo, From: q.ProbeFrom, Timeout: q.ProbeTimeout}
	}
	verifier := contact.NewVerifier(mail.NewResolver(q.Nameserver, q.ProbeTimeout), prober, logger.Named("verify"))

	engine := qualify.New(
		qualify.ConfigFrom(q),
		fetch.New(q.UserAgent, logger.Named("fetch")),
		verifier,
		db,
		logger.Named("qualify"),
		qualify.WithMetrics(m),
	)

	s := cfg.Search
	searcher := discover.NewBraveSearcher(s.Endpoint, cfg.SearchAPIKey(), s.Country, s.ResultsPerQuery, s.Timeout, logger.Named("search"))
	queries := discover.QueryBuilder{
		Niches:    cfg.Targets.Niches,
		Modifiers: cfg.Targets.Modifiers,
		Cities:    cfg.Targets.Cities,
		Label:     cfg.Targets.NicheLabel,
	}.Build()
	logger.Debug("queries built", zap.Int("count", len(queries)))
	disc := discover.NewDiscoverer(searcher, queries, db, s.Delay, logger.Named("discover"), discover.WithMetrics(m))

	leads := export.NewLeadWriter(cfg.LeadsCSVPath(database.GetToday()), logger.Named("export"))

	return pipeline.New(pipeline.Config{
		DailyLeadTarget: s.DailyLeadTarget,
		CostPer1000:     s.CostPer1000,
		SiteDelay:       q.SiteDelay,
	}, db, disc, engine, leads, logger.Named("pipeline"))
}

func printLeadResult(r *pipeline.Result) {
	for i, step := range r.Steps {
		fmt.Printf("\nStep %d/2: %s\n", i+1, step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}

	if len(r.Outcomes) > 0 {
		fmt.Println("\nOutcomes:")
		for _, o := range []qualify.Outcome{
			qualify.OutcomeLead,
			qualify.OutcomeLowScore,
			qualify.OutcomeNoContact,
			qualify.OutcomeUnreachable,
			qualify.OutcomeJunkTitle,
			qualify.OutcomeEnterprise,
			qualify.OutcomeNonprofit,
		} {
			if n := r.Outcomes[o]; n > 0 {
				fmt.Printf("  %s: %s\n", o, humanize.Comma(int64(n)))
			}
		}
	}
	if r.APICalls > 0 {
		fmt.Printf("\nSearch cost: %d API calls, $%s\n", r.APICalls, humanize.FormatFloat("#,###.###", r.Cost))
	}
}
