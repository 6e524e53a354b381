package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Targets.Niches) != 17 {
		t.Errorf("expected 17 niches, got %d", len(cfg.Targets.Niches))
	}
	if len(cfg.Targets.Cities) != 50 {
		t.Errorf("expected 50 cities, got %d", len(cfg.Targets.Cities))
	}
	if len(cfg.Targets.Modifiers) != 5 || cfg.Targets.Modifiers[0] != "" {
		t.Errorf("expected 5 modifiers starting with the empty one, got %q", cfg.Targets.Modifiers)
	}
	if cfg.Qualify.RequestTimeout != 12*time.Second {
		t.Errorf("expected request timeout 12s, got %s", cfg.Qualify.RequestTimeout)
	}
	if cfg.Campaign.InboxLookback != 14*24*time.Hour {
		t.Errorf("expected 14 day inbox lookback, got %s", cfg.Campaign.InboxLookback)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if len(cfg.Campaign.Accounts) != 1 || cfg.Campaign.Accounts[0].IMAPPort != 993 {
		t.Errorf("expected one account with imap port 993, got %+v", cfg.Campaign.Accounts)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
qualify:
  min_total_score: 35
  site_delay: 2s
campaign:
  accounts:
    - email: a@example.org
      created: "2026-01-01"
      smtp_host: smtp.example.org
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Qualify.MinTotalScore != 35 {
		t.Errorf("expected min score 35, got %d", cfg.Qualify.MinTotalScore)
	}
	if cfg.Qualify.SiteDelay != 2*time.Second {
		t.Errorf("expected site delay 2s, got %s", cfg.Qualify.SiteDelay)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Qualify.SubpageTimeout != 8*time.Second {
		t.Errorf("expected default subpage timeout, got %s", cfg.Qualify.SubpageTimeout)
	}
	if cfg.Campaign.TotalDailyCap != 200 {
		t.Errorf("expected default total cap 200, got %d", cfg.Campaign.TotalDailyCap)
	}
	if got := cfg.Campaign.Accounts[0].SMTPPort; got != 587 {
		t.Errorf("expected default smtp port 587, got %d", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Targets.Niches) == 0 {
		t.Error("expected niches to be populated from file")
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}

func TestLeadsCSVPaths(t *testing.T) {
	cfg := &Config{Output: Output{DataDir: "/data"}, Export: Export{LeadsPattern: "leads_{date}.csv", OutreachCSV: "out.csv"}}

	if got := cfg.LeadsCSVPath("2026-03-01"); got != "/data/leads_2026-03-01.csv" {
		t.Errorf("unexpected leads path %q", got)
	}
	if got := cfg.LeadsCSVGlob(); got != "/data/leads_*.csv" {
		t.Errorf("unexpected leads glob %q", got)
	}
	if got := cfg.OutreachCSVPath(); got != "/data/out.csv" {
		t.Errorf("unexpected outreach path %q", got)
	}
}

func TestValidateLeadsRequiresAPIKey(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Search.APIKeyEnv = "LEADCRAWLER_TEST_UNSET_KEY"
	if err := cfg.ValidateLeads(); err == nil {
		t.Error("expected error when API key env is unset")
	}

	t.Setenv("LEADCRAWLER_TEST_UNSET_KEY", "k")
	if err := cfg.ValidateLeads(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCampaign(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatal(err)
	}

	// Dry runs need no credentials.
	if err := cfg.ValidateCampaign(false); err != nil {
		t.Errorf("unexpected error without credentials: %v", err)
	}

	cfg.Campaign.Accounts[0].PasswordEnv = "LEADCRAWLER_TEST_PW"
	if err := cfg.ValidateCampaign(true); err == nil {
		t.Error("expected error for missing password")
	}
	t.Setenv("LEADCRAWLER_TEST_PW", "secret")
	if err := cfg.ValidateCampaign(true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Campaign.Accounts = append(cfg.Campaign.Accounts, cfg.Campaign.Accounts[0])
	if err := cfg.ValidateCampaign(false); err == nil {
		t.Error("expected error for duplicate account")
	}

	cfg.Campaign.Accounts = []Account{{Email: "x@example.org", Created: "yesterday"}}
	if err := cfg.ValidateCampaign(false); err == nil {
		t.Error("expected error for bad created date")
	}
}
