package campaign

import (
	"sort"
	"strings"

	"github.com/TobiSchelling/leadcrawler/internal/export"
)

// Eligible filters exported leads down to those worth a first contact: an
// email that was not rejected, a score of at least minScore, a niche
// matching one of keywords, and a domain not contacted before. The result
// keeps one row per domain, highest score first.
func Eligible(rows []export.LeadRow, minScore int, keywords []string, emailed func(domain string) (bool, error)) ([]export.LeadRow, error) {
	seen := make(map[string]struct{})
	var out []export.LeadRow
	for _, r := range rows {
		if r.FirstEmail() == "" || r.EmailVerified == export.VerifiedNo {
			continue
		}
		if r.Total < minScore {
			continue
		}
		if r.Domain == "" {
			continue
		}
		if _, dup := seen[r.Domain]; dup {
			continue
		}
		if !matchesNiche(r.Niche, keywords) {
			continue
		}
		done, err := emailed(r.Domain)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}
		seen[r.Domain] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

func matchesNiche(niche string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	niche = strings.ToLower(niche)
	for _, k := range keywords {
		if strings.Contains(niche, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
