package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/database"
)

// StatsSource provides aggregate store counts.
type StatsSource interface {
	GetStats() (*database.Stats, error)
}

// RegisterStore adds gauges that read the store on every scrape.
func (m *Metrics) RegisterStore(src StatsSource, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gauge := func(name, help string, pick func(*database.Stats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      name,
			Help:      help,
		}, func() float64 {
			s, err := src.GetStats()
			if err != nil {
				logger.Warn("reading store stats", zap.Error(err))
				return 0
			}
			return float64(pick(s))
		})
	}

	m.registry.MustRegister(
		gauge("domains_seen", "Domains in the history store.", func(s *database.Stats) int { return s.DomainsSeen }),
		gauge("leads", "Domains that became leads.", func(s *database.Stats) int { return s.Leads }),
		gauge("domains_contacted", "Domains with at least one outreach record.", func(s *database.Stats) int { return s.Contacted }),
		gauge("domains_replied", "Domains that replied.", func(s *database.Stats) int { return s.Replied }),
		gauge("domains_bounced", "Domains that bounced.", func(s *database.Stats) int { return s.Bounced }),
	)
}
