package database

import "time"

const dateLayout = "2006-01-02"

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format(dateLayout)
}

// DaysBefore returns the date n days before date (YYYY-MM-DD).
// An unparsable date is returned unchanged.
func DaysBefore(date string, n int) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, -n).Format(dateLayout)
}
