package database

import (
	"database/sql"
	"fmt"
)

const sentColumns = `domain, email, sent_date, template_used, subject, followup_1_date, followup_2_date,
	status, company, niche, issues, sender_account`

// LogSent records a first-contact message. The (domain, email) pair is
// write-once: it returns false, and leaves the counters alone, when the pair
// already exists.
func (db *DB) LogSent(m SentMessage) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT OR IGNORE INTO sent_emails
		(domain, email, sent_date, template_used, subject, status, company, niche, issues, sender_account)
		VALUES (?, ?, ?, ?, ?, 'sent', ?, ?, ?, ?)`,
		m.Domain, m.Email, m.SentDate, m.TemplateUsed, m.Subject, m.Company, m.Niche, m.Issues, m.SenderAccount,
	)
	if err != nil {
		return false, fmt.Errorf("inserting sent record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec(
		`INSERT INTO outreach_stats (run_date, fresh_sent) VALUES (?, 1)
		ON CONFLICT(run_date) DO UPDATE SET fresh_sent = fresh_sent + 1`, m.SentDate,
	); err != nil {
		return false, fmt.Errorf("updating outreach stats: %w", err)
	}
	return true, tx.Commit()
}

func followupColumn(n int) (string, error) {
	switch n {
	case 1:
		return "followup_1_date", nil
	case 2:
		return "followup_2_date", nil
	}
	return "", fmt.Errorf("invalid follow-up number %d", n)
}

// LogFollowup stamps follow-up n for a pair. Follow-up dates only move from
// NULL to a date, and only while the pair is still in 'sent' status; it
// returns false when nothing changed.
func (db *DB) LogFollowup(domain, email string, n int, date string) (bool, error) {
	col, err := followupColumn(n)
	if err != nil {
		return false, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE sent_emails SET `+col+` = ?
		WHERE domain = ? AND email = ? AND `+col+` IS NULL AND status = 'sent'`,
		date, domain, email,
	)
	if err != nil {
		return false, fmt.Errorf("updating follow-up: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.Exec(
		`INSERT INTO outreach_stats (run_date, followups_sent) VALUES (?, 1)
		ON CONFLICT(run_date) DO UPDATE SET followups_sent = followups_sent + 1`, date,
	); err != nil {
		return false, fmt.Errorf("updating outreach stats: %w", err)
	}
	return true, tx.Commit()
}

// FollowupQueue returns pairs due for follow-up n: still in 'sent' status,
// follow-up n not yet sent, first contact on or before cutoff. Oldest first.
func (db *DB) FollowupQueue(n int, cutoff string) ([]SentMessage, error) {
	col, err := followupColumn(n)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(
		`SELECT `+sentColumns+` FROM sent_emails
		WHERE `+col+` IS NULL AND status = 'sent' AND sent_date <= ?
		ORDER BY sent_date ASC, domain ASC`, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSentRows(rows)
}

// MarkReplied moves every 'sent' record of a domain to 'replied'.
// Terminal records are never touched. Returns the number of records changed.
func (db *DB) MarkReplied(domain string) (int64, error) {
	return db.markTerminal(domain, StatusReplied)
}

// MarkBounced moves every 'sent' record of a domain to 'bounced'.
func (db *DB) MarkBounced(domain string) (int64, error) {
	return db.markTerminal(domain, StatusBounced)
}

func (db *DB) markTerminal(domain, status string) (int64, error) {
	res, err := db.conn.Exec(
		"UPDATE sent_emails SET status = ? WHERE domain = ? AND status = 'sent'",
		status, domain,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PendingDomains returns the domains with at least one record still in 'sent' status.
func (db *DB) PendingDomains() (map[string]struct{}, error) {
	rows, err := db.conn.Query("SELECT DISTINCT domain FROM sent_emails WHERE status = 'sent'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out[d] = struct{}{}
	}
	return out, rows.Err()
}

// AlreadyEmailed reports whether any record exists for the domain.
func (db *DB) AlreadyEmailed(domain string) (bool, error) {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM sent_emails WHERE domain = ? LIMIT 1", domain).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetSent returns the record for a pair, or nil if none exists.
func (db *DB) GetSent(domain, email string) (*SentMessage, error) {
	row := db.conn.QueryRow(
		`SELECT `+sentColumns+` FROM sent_emails WHERE domain = ? AND email = ?`, domain, email,
	)
	m, err := scanSent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SentMessages lists records, newest first. An empty status lists all.
func (db *DB) SentMessages(status string, limit int) ([]SentMessage, error) {
	query := `SELECT ` + sentColumns + ` FROM sent_emails`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY sent_date DESC, domain ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSentRows(rows)
}

// OutreachOn returns the send counters for a date.
func (db *DB) OutreachOn(date string) (OutreachCounts, error) {
	var c OutreachCounts
	err := db.conn.QueryRow(
		"SELECT fresh_sent, followups_sent FROM outreach_stats WHERE run_date = ?", date,
	).Scan(&c.Fresh, &c.Followups)
	if err == sql.ErrNoRows {
		return OutreachCounts{}, nil
	}
	return c, err
}

// OutreachTotals returns all-time send counters.
func (db *DB) OutreachTotals() (OutreachCounts, error) {
	var fresh, fu sql.NullInt64
	err := db.conn.QueryRow(
		"SELECT SUM(fresh_sent), SUM(followups_sent) FROM outreach_stats",
	).Scan(&fresh, &fu)
	if err != nil {
		return OutreachCounts{}, err
	}
	return OutreachCounts{Fresh: int(fresh.Int64), Followups: int(fu.Int64)}, nil
}

// FreshSentBySender returns the number of first-contact messages each sender
// account sent on a date.
func (db *DB) FreshSentBySender(date string) (map[string]int, error) {
	rows, err := db.conn.Query(
		`SELECT sender_account, COUNT(*) FROM sent_emails
		WHERE sent_date = ? GROUP BY sender_account`, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var sender string
		var n int
		if err := rows.Scan(&sender, &n); err != nil {
			return nil, err
		}
		out[sender] = n
	}
	return out, rows.Err()
}

// CountByStatus returns the number of records per status.
func (db *DB) CountByStatus() (map[string]int, error) {
	rows, err := db.conn.Query("SELECT status, COUNT(*) FROM sent_emails GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func scanSent(s scanner) (*SentMessage, error) {
	var m SentMessage
	var fu1, fu2 sql.NullString
	var status, company, niche, issues, sender sql.NullString
	if err := s.Scan(&m.Domain, &m.Email, &m.SentDate, &m.TemplateUsed, &m.Subject,
		&fu1, &fu2, &status, &company, &niche, &issues, &sender); err != nil {
		return nil, err
	}
	if fu1.Valid {
		m.Followup1Date = &fu1.String
	}
	if fu2.Valid {
		m.Followup2Date = &fu2.String
	}
	m.Status = status.String
	m.Company = company.String
	m.Niche = niche.String
	m.Issues = issues.String
	m.SenderAccount = sender.String
	return &m, nil
}

func scanSentRows(rows *sql.Rows) ([]SentMessage, error) {
	var out []SentMessage
	for rows.Next() {
		m, err := scanSent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
