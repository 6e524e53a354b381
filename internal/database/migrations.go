package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "history store",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS seen_domains (
    domain TEXT PRIMARY KEY,
    first_seen TEXT NOT NULL,
    last_seen TEXT NOT NULL,
    was_lead INTEGER NOT NULL DEFAULT 0,
    niche TEXT DEFAULT '',
    score INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS query_log (
    query TEXT NOT NULL,
    run_date TEXT NOT NULL,
    PRIMARY KEY (query, run_date)
);

CREATE TABLE IF NOT EXISTS run_stats (
    run_date TEXT PRIMARY KEY,
    leads_found INTEGER DEFAULT 0,
    domains_searched INTEGER DEFAULT 0,
    api_calls INTEGER DEFAULT 0,
    cost REAL DEFAULT 0.0
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "campaign store",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS sent_emails (
    domain TEXT NOT NULL,
    email TEXT NOT NULL,
    sent_date TEXT NOT NULL,
    template_used TEXT NOT NULL,
    subject TEXT NOT NULL,
    followup_1_date TEXT,
    followup_2_date TEXT,
    status TEXT DEFAULT 'sent',
    company TEXT DEFAULT '',
    niche TEXT DEFAULT '',
    issues TEXT DEFAULT '',
    sender_account TEXT DEFAULT '',
    PRIMARY KEY (domain, email)
);

CREATE TABLE IF NOT EXISTS outreach_stats (
    run_date TEXT PRIMARY KEY,
    fresh_sent INTEGER DEFAULT 0,
    followups_sent INTEGER DEFAULT 0
);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "campaign indexes",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_sent_emails_status ON sent_emails(status, sent_date);
CREATE INDEX IF NOT EXISTS idx_sent_emails_sender ON sent_emails(sender_account, sent_date);
CREATE INDEX IF NOT EXISTS idx_seen_domains_lead ON seen_domains(was_lead, last_seen);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
