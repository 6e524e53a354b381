package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/leadcrawler/internal/campaign"
	"github.com/TobiSchelling/leadcrawler/internal/contact"
	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/export"
	"github.com/TobiSchelling/leadcrawler/internal/mail"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
)

const mailTimeout = 30 * time.Second

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Send and track cold outreach",
}

var (
	campaignFreshOnly     bool
	campaignFollowupsOnly bool
	campaignDryRun        bool
	campaignTest          string
	campaignCSV           string
)

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan inboxes, send due follow-ups, then contact fresh leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		if campaignFreshOnly && campaignFollowupsOnly {
			return fmt.Errorf("--fresh-only and --followups-only are mutually exclusive")
		}
		live := !campaignDryRun
		if err := cfg.ValidateCampaign(live); err != nil {
			return err
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

		accounts, err := campaign.NewAccounts(cfg.Campaign.Accounts, mailTimeout, logger.Named("inbox"))
		if err != nil {
			return err
		}

		transport := mail.NewTransport(senderDomain(cfg.Campaign.Accounts[0].Email), mailTimeout, logger.Named("smtp"))
		mailer := campaign.NewTransportMailer(transport, cfg.Campaign.Accounts)
		defer mailer.Close()

		mx := contact.NewVerifier(mail.NewResolver(cfg.Qualify.Nameserver, cfg.Qualify.ProbeTimeout), nil, logger.Named("verify"))

		c, err := campaign.New(campaign.ConfigFrom(cfg.Campaign, cfg.LeadsCSVGlob()), campaign.Deps{
			DB:       db,
			Accounts: accounts,
			Mailer:   mailer,
			MX:       mx,
			Outreach: export.NewOutreachWriter(cfg.OutreachCSVPath(), logger.Named("export")),
			Metrics:  metrics.New(),
			Logger:   logger.Named("campaign"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if campaignDryRun {
			fmt.Println("Dry run: messages are previewed, nothing is sent or recorded.")
		}
		report, err := c.Run(ctx, campaign.Options{
			FreshOnly:     campaignFreshOnly,
			FollowupsOnly: campaignFollowupsOnly,
			DryRun:        campaignDryRun,
			TestRecipient: campaignTest,
			LeadsCSV:      campaignCSV,
		})
		if report != nil {
			printCampaignReport(report)
		}
		return err
	},
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show send counts, reply tracking and follow-up queues",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := newOfflineCampaign(db)
		if err != nil {
			return err
		}
		st, err := c.Status()
		if err != nil {
			return err
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Sent:")
		fmt.Printf("  All time: %s fresh, %s follow-ups\n",
			humanize.Comma(int64(st.AllTime.Fresh)), humanize.Comma(int64(st.AllTime.Followups)))
		fmt.Printf("  Today: %d fresh, %d follow-ups (cap %d)\n",
			st.Today.Fresh, st.Today.Followups, cfg.Campaign.TotalDailyCap)
		fmt.Printf("  Fresh quota today: %d\n", st.FreshQuota)
		fmt.Println("\nTracking:")
		fmt.Printf("  Pending: %s\n", humanize.Comma(int64(st.Pending)))
		fmt.Printf("  Replied: %d\n", st.Replied)
		fmt.Printf("  Bounced: %d\n", st.Bounced)
		fmt.Println("\nDue now:")
		fmt.Printf("  Follow-up #1: %d\n", st.Followup1Queue)
		fmt.Printf("  Follow-up #2: %d\n", st.Followup2Queue)
		return nil
	},
}

var campaignRepliedCmd = &cobra.Command{
	Use:   "replied DOMAIN",
	Short: "Mark a domain as replied so it gets no further follow-ups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := newOfflineCampaign(db)
		if err != nil {
			return err
		}
		domain := strings.ToLower(strings.TrimSpace(args[0]))
		ok, err := c.MarkReplied(domain)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("No pending outreach for %s\n", domain)
			return nil
		}
		fmt.Printf("Marked %s as replied\n", domain)
		return nil
	},
}

func init() {
	campaignRunCmd.Flags().BoolVar(&campaignFreshOnly, "fresh-only", false, "Skip follow-ups")
	campaignRunCmd.Flags().BoolVar(&campaignFollowupsOnly, "followups-only", false, "Skip fresh sends")
	campaignRunCmd.Flags().BoolVar(&campaignDryRun, "dry-run", false, "Preview messages without sending or recording")
	campaignRunCmd.Flags().StringVar(&campaignTest, "test", "", "Send one rendered message to this address and exit")
	campaignRunCmd.Flags().StringVar(&campaignCSV, "csv", "", "Read leads from this CSV instead of the exported leads files")

	campaignCmd.AddCommand(campaignRunCmd)
	campaignCmd.AddCommand(campaignStatusCmd)
	campaignCmd.AddCommand(campaignRepliedCmd)
}

// newOfflineCampaign builds a Campaign for store-only commands. It has no
// mailer and never opens a network connection.
func newOfflineCampaign(db *database.DB) (*campaign.Campaign, error) {
	if err := cfg.ValidateCampaign(false); err != nil {
		return nil, err
	}
	accounts, err := campaign.NewAccounts(cfg.Campaign.Accounts, mailTimeout, logger.Named("inbox"))
	if err != nil {
		return nil, err
	}
	return campaign.New(campaign.ConfigFrom(cfg.Campaign, cfg.LeadsCSVGlob()), campaign.Deps{
		DB:       db,
		Accounts: accounts,
		Logger:   logger.Named("campaign"),
	})
}

func senderDomain(email string) string {
	if _, domain, ok := strings.Cut(email, "@"); ok {
		return domain
	}
	return ""
}

func printCampaignReport(r *campaign.Report) {
	if r.TestSent {
		fmt.Println("Test message sent.")
		return
	}
	fmt.Printf("\nCampaign run for %s\n", r.Date)
	fmt.Printf("  Already sent today: %d fresh, %d follow-ups\n", r.TodayBefore.Fresh, r.TodayBefore.Followups)
	if r.CapReached {
		fmt.Printf("  Daily cap of %d reached, nothing to do.\n", cfg.Campaign.TotalDailyCap)
		return
	}
	if len(r.Replied) > 0 {
		fmt.Printf("  Replies detected: %s\n", strings.Join(r.Replied, ", "))
	}
	if len(r.Bounced) > 0 {
		fmt.Printf("  Bounces detected: %s\n", strings.Join(r.Bounced, ", "))
	}

	verb := "Sent"
	if r.DryRun {
		verb = "Previewed"
	}
	fmt.Printf("  %s follow-ups: %d\n", verb, r.FollowupsSent)
	fmt.Printf("  %s fresh: %d of %d budget (%s eligible leads)\n",
		verb, r.FreshSent, r.FreshBudget, humanize.Comma(int64(r.Eligible)))
	if r.SkippedMX > 0 {
		fmt.Printf("  Skipped without MX: %d\n", r.SkippedMX)
	}
	if r.Failed > 0 {
		fmt.Printf("  Failed: %d\n", r.Failed)
	}
	fmt.Printf("  Total: %d\n", r.Total())
}
