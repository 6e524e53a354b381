package database

// LogQuery records that a search query was issued on the given date.
func (db *DB) LogQuery(query, date string) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO query_log (query, run_date) VALUES (?, ?)",
		query, date,
	)
	return err
}

// UsedQueries returns the queries already issued on the given date.
func (db *DB) UsedQueries(date string) (map[string]struct{}, error) {
	rows, err := db.conn.Query("SELECT query FROM query_log WHERE run_date = ?", date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	used := make(map[string]struct{})
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		used[q] = struct{}{}
	}
	return used, rows.Err()
}
