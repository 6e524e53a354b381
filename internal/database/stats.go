package database

import "database/sql"

// AddRunStats adds the given deltas to the counters for delta.RunDate.
func (db *DB) AddRunStats(delta RunStats) error {
	_, err := db.conn.Exec(
		`INSERT INTO run_stats (run_date, leads_found, domains_searched, api_calls, cost)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_date) DO UPDATE SET
			leads_found = leads_found + excluded.leads_found,
			domains_searched = domains_searched + excluded.domains_searched,
			api_calls = api_calls + excluded.api_calls,
			cost = cost + excluded.cost`,
		delta.RunDate, delta.LeadsFound, delta.DomainsSearched, delta.APICalls, delta.Cost,
	)
	return err
}

// GetRunStats returns the counters for a date. Missing dates yield zero counters.
func (db *DB) GetRunStats(date string) (*RunStats, error) {
	s := &RunStats{RunDate: date}
	err := db.conn.QueryRow(
		`SELECT leads_found, domains_searched, api_calls, cost FROM run_stats WHERE run_date = ?`, date,
	).Scan(&s.LeadsFound, &s.DomainsSearched, &s.APICalls, &s.Cost)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RecentRunStats returns the most recent run dates, newest first.
func (db *DB) RecentRunStats(limit int) ([]RunStats, error) {
	rows, err := db.conn.Query(
		`SELECT run_date, leads_found, domains_searched, api_calls, cost
		FROM run_stats ORDER BY run_date DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunStats
	for rows.Next() {
		var s RunStats
		if err := rows.Scan(&s.RunDate, &s.LeadsFound, &s.DomainsSearched, &s.APICalls, &s.Cost); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM seen_domains", &s.DomainsSeen},
		{"SELECT COUNT(*) FROM seen_domains WHERE was_lead = 1", &s.Leads},
		{"SELECT COUNT(DISTINCT run_date) FROM run_stats", &s.RunDays},
		{"SELECT COUNT(*) FROM query_log", &s.QueriesLogged},
		{"SELECT COUNT(DISTINCT domain) FROM sent_emails", &s.Contacted},
		{"SELECT COUNT(DISTINCT domain) FROM sent_emails WHERE status = 'replied'", &s.Replied},
		{"SELECT COUNT(DISTINCT domain) FROM sent_emails WHERE status = 'bounced'", &s.Bounced},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
