package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Search   Search   `yaml:"search"`
	Qualify  Qualify  `yaml:"qualify"`
	Targets  Targets  `yaml:"targets"`
	Campaign Campaign `yaml:"campaign"`
	Export   Export   `yaml:"export"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type Search struct {
	APIKeyEnv       string        `yaml:"api_key_env"`
	Endpoint        string        `yaml:"endpoint"`
	Country         string        `yaml:"country"`
	ResultsPerQuery int           `yaml:"results_per_query"`
	Delay           time.Duration `yaml:"delay"`
	Timeout         time.Duration `yaml:"timeout"`
	CostPer1000     float64       `yaml:"cost_per_1000"`
	DailyLeadTarget int           `yaml:"daily_lead_target"`
}

type Qualify struct {
	MinTotalScore  int           `yaml:"min_total_score"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SubpageTimeout time.Duration `yaml:"subpage_timeout"`
	SiteDelay      time.Duration `yaml:"site_delay"`
	SubpageDelay   time.Duration `yaml:"subpage_delay"`
	UserAgent      string        `yaml:"user_agent"`
	SMTPProbe      bool          `yaml:"smtp_probe"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	ProbeHelo      string        `yaml:"probe_helo"`
	ProbeFrom      string        `yaml:"probe_from"`
	// Nameserver, when set, sends MX queries to host:port instead of the system resolver.
	Nameserver string `yaml:"nameserver"`
}

type Targets struct {
	NicheLabel string   `yaml:"niche_label"`
	Niches     []string `yaml:"niches"`
	Modifiers  []string `yaml:"modifiers"`
	Cities     []string `yaml:"cities"`
}

type Campaign struct {
	MinScore           int           `yaml:"min_score"`
	NicheKeywords      []string      `yaml:"niche_keywords"`
	FollowupDailyLimit int           `yaml:"followup_daily_limit"`
	TotalDailyCap      int           `yaml:"total_daily_cap"`
	Followup1Days      int           `yaml:"followup1_days"`
	Followup2Days      int           `yaml:"followup2_days"`
	MinDelay           time.Duration `yaml:"min_delay"`
	MaxDelay           time.Duration `yaml:"max_delay"`
	Jitter             time.Duration `yaml:"jitter"`
	InboxLookback      time.Duration `yaml:"inbox_lookback"`
	SenderName         string        `yaml:"sender_name"`
	SenderTitle        string        `yaml:"sender_title"`
	Accounts           []Account     `yaml:"accounts"`
}

type Account struct {
	Email       string `yaml:"email"`
	PasswordEnv string `yaml:"password_env"`
	Created     string `yaml:"created"`
	DailyLimit  int    `yaml:"daily_limit"`
	SMTPHost    string `yaml:"smtp_host"`
	SMTPPort    int    `yaml:"smtp_port"`
	IMAPHost    string `yaml:"imap_host"`
	IMAPPort    int    `yaml:"imap_port"`
}

// Password reads the account password from its environment variable.
func (a Account) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// CreatedDate parses the account creation date (YYYY-MM-DD).
func (a Account) CreatedDate() (time.Time, error) {
	return time.Parse("2006-01-02", a.Created)
}

type Export struct {
	// LeadsPattern is a filename with a {date} placeholder, relative to the data dir.
	LeadsPattern string `yaml:"leads_pattern"`
	OutreachCSV  string `yaml:"outreach_csv"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for leadcrawler.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "leadcrawler")
}

// DataDir returns the XDG data directory for leadcrawler.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "leadcrawler")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/leadcrawler/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'leadcrawler init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Search: Search{
			APIKeyEnv:       "BRAVE_API_KEY",
			Endpoint:        "https://api.search.brave.com/res/v1/web/search",
			Country:         "us",
			ResultsPerQuery: 20,
			Delay:           60 * time.Millisecond,
			Timeout:         12 * time.Second,
			CostPer1000:     3.0,
			DailyLeadTarget: 600,
		},
		Qualify: Qualify{
			MinTotalScore:  30,
			RequestTimeout: 12 * time.Second,
			SubpageTimeout: 8 * time.Second,
			SiteDelay:      800 * time.Millisecond,
			SubpageDelay:   200 * time.Millisecond,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			SMTPProbe:      true,
			ProbeTimeout:   5 * time.Second,
			ProbeHelo:      "check.local",
			ProbeFrom:      "verify@check.local",
		},
		Targets: Targets{NicheLabel: "Dental"},
		Campaign: Campaign{
			MinScore:           40,
			NicheKeywords:      []string{"dental", "dentist"},
			FollowupDailyLimit: 100,
			TotalDailyCap:      200,
			Followup1Days:      3,
			Followup2Days:      7,
			MinDelay:           20 * time.Second,
			MaxDelay:           90 * time.Second,
			Jitter:             15 * time.Second,
			InboxLookback:      14 * 24 * time.Hour,
		},
		Export: Export{
			LeadsPattern: "leads_{date}.csv",
			OutreachCSV:  "outreach_log.csv",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "json"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for i := range cfg.Campaign.Accounts {
		a := &cfg.Campaign.Accounts[i]
		if a.SMTPPort == 0 {
			a.SMTPPort = 587
		}
		if a.IMAPPort == 0 {
			a.IMAPPort = 993
		}
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// LeadsCSVPath returns the leads CSV path for the given run date.
func (c *Config) LeadsCSVPath(date string) string {
	return filepath.Join(c.GetDataDir(), strings.ReplaceAll(c.Export.LeadsPattern, "{date}", date))
}

// LeadsCSVGlob returns a glob matching every dated leads CSV.
func (c *Config) LeadsCSVGlob() string {
	return filepath.Join(c.GetDataDir(), strings.ReplaceAll(c.Export.LeadsPattern, "{date}", "*"))
}

// OutreachCSVPath returns the outreach log path.
func (c *Config) OutreachCSVPath() string {
	if filepath.IsAbs(c.Export.OutreachCSV) {
		return c.Export.OutreachCSV
	}
	return filepath.Join(c.GetDataDir(), c.Export.OutreachCSV)
}

// SearchAPIKey returns the search API key from the environment.
func (c *Config) SearchAPIKey() string {
	return os.Getenv(c.Search.APIKeyEnv)
}

// ValidateLeads checks what the lead generation run needs before any network activity.
func (c *Config) ValidateLeads() error {
	if c.SearchAPIKey() == "" {
		return fmt.Errorf("search API key not set: export %s", c.Search.APIKeyEnv)
	}
	if len(c.Targets.Niches) == 0 {
		return fmt.Errorf("targets.niches is empty")
	}
	if c.Qualify.MinTotalScore < 0 || c.Qualify.MinTotalScore > 100 {
		return fmt.Errorf("qualify.min_total_score out of range: %d", c.Qualify.MinTotalScore)
	}
	return nil
}

// ValidateCampaign checks sender accounts. Credentials are only required when
// mail will actually be sent.
func (c *Config) ValidateCampaign(needCredentials bool) error {
	if len(c.Campaign.Accounts) == 0 {
		return fmt.Errorf("campaign.accounts is empty")
	}
	seen := make(map[string]struct{}, len(c.Campaign.Accounts))
	for _, a := range c.Campaign.Accounts {
		if a.Email == "" || !strings.Contains(a.Email, "@") {
			return fmt.Errorf("account has invalid email %q", a.Email)
		}
		if _, dup := seen[a.Email]; dup {
			return fmt.Errorf("duplicate account %s", a.Email)
		}
		seen[a.Email] = struct{}{}
		if _, err := a.CreatedDate(); err != nil {
			return fmt.Errorf("account %s: invalid created date %q", a.Email, a.Created)
		}
		if !needCredentials {
			continue
		}
		if a.SMTPHost == "" {
			return fmt.Errorf("account %s: smtp_host not set", a.Email)
		}
		if a.Password() == "" {
			return fmt.Errorf("account %s: password not set: export %s", a.Email, a.PasswordEnv)
		}
	}
	if c.Campaign.MinDelay > c.Campaign.MaxDelay {
		return fmt.Errorf("campaign.min_delay exceeds campaign.max_delay")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
