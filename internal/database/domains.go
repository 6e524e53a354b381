package database

import "database/sql"

// MarkDomainSeen records that a domain was processed on the given date.
// was_lead is sticky: once a domain has been a lead it stays one.
func (db *DB) MarkDomainSeen(domain string, wasLead bool, niche string, score int, date string) error {
	_, err := db.conn.Exec(
		`INSERT INTO seen_domains (domain, first_seen, last_seen, was_lead, niche, score)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			last_seen = excluded.last_seen,
			was_lead = MAX(seen_domains.was_lead, excluded.was_lead),
			niche = CASE WHEN excluded.niche != '' THEN excluded.niche ELSE seen_domains.niche END,
			score = CASE WHEN excluded.was_lead >= seen_domains.was_lead THEN excluded.score ELSE seen_domains.score END`,
		domain, date, date, boolToInt(wasLead), niche, score,
	)
	return err
}

// GetDomain returns the history record for a domain, or nil if never seen.
func (db *DB) GetDomain(domain string) (*DomainRecord, error) {
	row := db.conn.QueryRow(
		`SELECT domain, first_seen, last_seen, was_lead, niche, score
		FROM seen_domains WHERE domain = ?`, domain,
	)
	r, err := scanDomain(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// LoadSeenDomains returns every domain ever processed.
func (db *DB) LoadSeenDomains() (map[string]struct{}, error) {
	rows, err := db.conn.Query("SELECT domain FROM seen_domains")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		seen[d] = struct{}{}
	}
	return seen, rows.Err()
}

// RecentLeads returns domains that became leads, newest first.
func (db *DB) RecentLeads(limit int) ([]DomainRecord, error) {
	rows, err := db.conn.Query(
		`SELECT domain, first_seen, last_seen, was_lead, niche, score
		FROM seen_domains WHERE was_lead = 1
		ORDER BY last_seen DESC, score DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DomainRecord
	for rows.Next() {
		r, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDomain(s scanner) (*DomainRecord, error) {
	var r DomainRecord
	var wasLead int
	var niche sql.NullString
	var score sql.NullInt64
	if err := s.Scan(&r.Domain, &r.FirstSeen, &r.LastSeen, &wasLead, &niche, &score); err != nil {
		return nil, err
	}
	r.WasLead = wasLead == 1
	r.Niche = niche.String
	r.Score = int(score.Int64)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
