package database

// DomainRecord is the history entry for one root domain.
type DomainRecord struct {
	Domain    string
	FirstSeen string
	LastSeen  string
	WasLead   bool
	Niche     string
	Score     int
}

// RunStats holds the additive per-date lead generation counters.
type RunStats struct {
	RunDate         string
	LeadsFound      int
	DomainsSearched int
	APICalls        int
	Cost            float64
}

// Stats holds aggregate store statistics.
type Stats struct {
	DomainsSeen   int
	Leads         int
	RunDays       int
	QueriesLogged int
	Contacted     int
	Replied       int
	Bounced       int
}

// Status values of a sent-message record. Replied and Bounced are terminal.
const (
	StatusSent    = "sent"
	StatusReplied = "replied"
	StatusBounced = "bounced"
)

// SentMessage is the campaign record for one (domain, email) pair.
type SentMessage struct {
	Domain        string
	Email         string
	SentDate      string
	TemplateUsed  string
	Subject       string
	Followup1Date *string
	Followup2Date *string
	Status        string
	Company       string
	Niche         string
	Issues        string
	SenderAccount string
}

// OutreachCounts holds fresh and follow-up send counters.
type OutreachCounts struct {
	Fresh     int
	Followups int
}

// Total returns fresh plus follow-up sends.
func (c OutreachCounts) Total() int {
	return c.Fresh + c.Followups
}
