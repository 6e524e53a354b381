// Package score turns audit signals into the four lead sub-scores, a weighted
// total and a tier.
package score

// Tier buckets a total score.
type Tier string

const (
	Hot  Tier = "HOT"
	Warm Tier = "WARM"
	Cold Tier = "COLD"
	Skip Tier = "SKIP"
)

// maxGapWeight is roughly the sum of every gap weight.
const maxGapWeight = 25

// Breakdown holds the sub-scores and the derived total and tier.
type Breakdown struct {
	Automation int
	BizFit     int
	Budget     int
	Contact    int
	Total      int
	Tier       Tier
}

// Automation maps summed gap weight to 0-100. More gaps, better lead.
func Automation(gapWeight int) int {
	if gapWeight <= 0 {
		return 0
	}
	return min(100, (100*gapWeight+maxGapWeight/2)/maxGapWeight)
}

// BizFit maps the net SMB signal count to 0-100.
func BizFit(smbScore int) int {
	return max(0, min(100, 20+10*smbScore))
}

// Budget maps the number of marketing/revenue tools found to 0-100.
func Budget(revenueSignals int) int {
	switch {
	case revenueSignals <= 0:
		return 10
	case revenueSignals == 1:
		return 30
	case revenueSignals == 2:
		return 55
	case revenueSignals == 3:
		return 75
	}
	return 100
}

// Contact adds the phone bonus to the email quality grade.
func Contact(emailQuality int, hasPhone bool) int {
	if hasPhone {
		return min(100, emailQuality+30)
	}
	return emailQuality
}

// Total weights approachability highest, then need and fit, then budget:
// round(0.35c + 0.25a + 0.25b + 0.15bud), computed in hundredths so halves
// round up exactly.
func Total(contact, automation, bizFit, budget int) int {
	hundredths := 35*contact + 25*automation + 25*bizFit + 15*budget
	return (hundredths + 50) / 100
}

// TierFor buckets total. minScore is the COLD floor.
func TierFor(total, minScore int) Tier {
	switch {
	case total >= 65:
		return Hot
	case total >= 45:
		return Warm
	case total >= minScore:
		return Cold
	}
	return Skip
}

// Inputs are the raw signals scoring depends on.
type Inputs struct {
	GapWeight      int
	SMBScore       int
	RevenueSignals int
	EmailQuality   int
	HasPhone       bool
}

// Compute derives the full breakdown.
func Compute(in Inputs, minScore int) Breakdown {
	b := Breakdown{
		Automation: Automation(in.GapWeight),
		BizFit:     BizFit(in.SMBScore),
		Budget:     Budget(in.RevenueSignals),
		Contact:    Contact(in.EmailQuality, in.HasPhone),
	}
	b.Total = Total(b.Contact, b.Automation, b.BizFit, b.Budget)
	b.Tier = TierFor(b.Total, minScore)
	return b
}
