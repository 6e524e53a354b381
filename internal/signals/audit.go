package signals

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Gap is a missing self-service capability, weighted by how much it hurts.
type Gap struct {
	Capability  Capability
	Description string
	Weight      int
}

// CapabilitySet holds the capabilities detected on a site.
type CapabilitySet map[Capability]struct{}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the set members in table order.
func (s CapabilitySet) List() []Capability {
	var out []Capability
	for _, r := range capabilityRules {
		if s.Has(r.Label) {
			out = append(out, r.Label)
		}
	}
	return out
}

// AuditResult is everything extracted from one site.
type AuditResult struct {
	Title          string
	CMS            CMS
	RevenueSignals []string
	Gaps           []Gap
	Present        CapabilitySet
	SMBScore       int
	SMBReasons     []string
	EnterpriseHits int
	NonprofitHits  int
	Phone          string
	SizeKB         float64
	LoadTime       time.Duration

	// detected records raw matches on the homepage, including negative
	// capabilities that are not part of Present.
	detected CapabilitySet
}

// GapWeight returns the summed weight of all gaps.
func (r *AuditResult) GapWeight() int {
	total := 0
	for _, g := range r.Gaps {
		total += g.Weight
	}
	return total
}

// GapDescriptions returns the gap descriptions in order.
func (r *AuditResult) GapDescriptions() []string {
	out := make([]string, 0, len(r.Gaps))
	for _, g := range r.Gaps {
		out = append(out, g.Description)
	}
	return out
}

// IsEnterprise reports whether the site crossed the enterprise threshold.
func (r *AuditResult) IsEnterprise() bool {
	return r.EnterpriseHits >= EnterpriseThreshold
}

// IsNonprofit reports whether the site crossed the nonprofit threshold.
func (r *AuditResult) IsNonprofit() bool {
	return r.NonprofitHits >= NonprofitThreshold
}

// EnterpriseHits counts enterprise keywords in lowercased HTML.
func EnterpriseHits(lower string) int {
	return CountMatches(EnterpriseKeywords, lower)
}

// NonprofitHits counts nonprofit keywords in lowercased HTML.
func NonprofitHits(lower string) int {
	return CountMatches(NonprofitKeywords, lower)
}

// Audit extracts all homepage signals from raw HTML.
func Audit(html string) *AuditResult {
	lower := strings.ToLower(html)

	r := &AuditResult{
		CMS:            CMSUnknown,
		Present:        CapabilitySet{},
		detected:       CapabilitySet{},
		EnterpriseHits: EnterpriseHits(lower),
		NonprofitHits:  NonprofitHits(lower),
		SizeKB:         math.Round(float64(len(html))/1024*10) / 10,
	}
	if cms, ok := FirstMatch(cmsRules, lower); ok {
		r.CMS = cms
	}
	r.RevenueSignals = AllMatches(revenueRules, lower)

	for _, rule := range capabilityRules {
		if rule.Matches(lower) {
			r.detected[rule.Label] = struct{}{}
		}
	}
	for _, rule := range capabilityRules {
		found := r.detected.Has(rule.Label)
		switch rule.Polarity {
		case Positive:
			if found {
				r.Present[rule.Label] = struct{}{}
			} else {
				r.addGap(rule)
			}
		case Negative:
			if found && r.negativeApplies(rule.Label) {
				r.addGap(rule)
			}
		case PresenceOnly:
			if found {
				r.Present[rule.Label] = struct{}{}
			}
		}
	}

	r.scoreSMB(html, lower)
	return r
}

// negativeApplies holds the cross-category condition: phone-only booking is
// a gap only when no booking system exists.
func (r *AuditResult) negativeApplies(c Capability) bool {
	if c == PhoneOnly {
		return !r.detected.Has(Booking)
	}
	return true
}

func (r *AuditResult) addGap(rule capabilityRule) {
	r.Gaps = append(r.Gaps, Gap{Capability: rule.Label, Description: rule.Gap, Weight: rule.Weight})
}

func (r *AuditResult) hasGap(c Capability) bool {
	for _, g := range r.Gaps {
		if g.Capability == c {
			return true
		}
	}
	return false
}

func (r *AuditResult) removeGap(c Capability) {
	kept := r.Gaps[:0]
	for _, g := range r.Gaps {
		if g.Capability != c {
			kept = append(kept, g)
		}
	}
	r.Gaps = kept
}

// ApplySubpages merges evidence from secondary pages (contact, about) into
// the result. A positive capability found there retracts its gap, and booking
// also retracts phone-only. Negative capabilities may be added. No other gap
// is ever introduced.
func (r *AuditResult) ApplySubpages(html string) {
	if html == "" {
		return
	}
	lower := strings.ToLower(html)

	for _, rule := range capabilityRules {
		if !rule.Matches(lower) {
			continue
		}
		switch rule.Polarity {
		case Positive:
			if !r.Present.Has(rule.Label) {
				r.removeGap(rule.Label)
				r.Present[rule.Label] = struct{}{}
			}
			if rule.Label == Booking {
				r.removeGap(PhoneOnly)
			}
		case PresenceOnly:
			r.Present[rule.Label] = struct{}{}
		}
	}

	for _, rule := range capabilityRules {
		if rule.Polarity != Negative || r.hasGap(rule.Label) || r.detected.Has(rule.Label) {
			continue
		}
		if !rule.Matches(lower) {
			continue
		}
		if rule.Label == PhoneOnly && r.Present.Has(Booking) {
			continue
		}
		r.addGap(rule)
	}
}

func (r *AuditResult) scoreSMB(html, lower string) {
	add := func(n int, reason string) {
		r.SMBScore += n
		r.SMBReasons = append(r.SMBReasons, reason)
	}

	if m := phoneRe.FindString(html); m != "" {
		add(2, "local phone")
		r.Phone = NormalizePhone(m)
	}
	if addressRe.MatchString(html) {
		add(2, "street address")
	}
	if r.CMS.IsSMB() {
		add(1, fmt.Sprintf("%s site", r.CMS))
	}
	if r.SizeKB < 500 {
		add(1, "small site")
	}
	if !AnyMatch(careersVocab, lower) {
		add(1, "no careers page")
	}
	if AnyMatch(ownerVocab, lower) {
		add(2, "owner/founder mention")
	}
	if AnyMatch(serviceCTAVocab, lower) {
		add(1, "service-oriented")
	}
	if r.EnterpriseHits > 0 {
		add(-r.EnterpriseHits, fmt.Sprintf("-%d enterprise signals", r.EnterpriseHits))
	}
}

// NormalizePhone formats a 10-digit match as (xxx) xxx-xxxx. Other digit
// counts yield "".
func NormalizePhone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) != 10 {
		return ""
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}
