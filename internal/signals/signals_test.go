package signals

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestMatchHelpers(t *testing.T) {
	rules := []Rule[string]{
		{"a", []string{"alpha"}},
		{"b", []string{"beta", "bravo"}},
		{"c", []string{"charlie"}},
	}

	label, ok := FirstMatch(rules, "bravo then charlie")
	assert.True(t, ok)
	assert.Equal(t, "b", label)

	_, ok = FirstMatch(rules, "nothing")
	assert.False(t, ok)

	assert.Equal(t, []string{"b", "c"}, AllMatches(rules, "bravo charlie"))
	assert.True(t, AnyMatch([]string{"x", "y"}, "why y"))
	assert.Equal(t, 2, CountMatches([]string{"a", "b", "z"}, "ab"))
}

func TestCMSOrder(t *testing.T) {
	tests := []struct {
		html string
		want CMS
	}{
		{`<link href="/wp-content/themes/x.css">`, CMSWordPress},
		{`<script src="https://cdn.shopify.com/s.js">`, CMSShopify},
		// WordPress wins when both fingerprints appear.
		{`wp-content static.squarespace.com`, CMSWordPress},
		{`<meta name="generator" content="Webflow">`, CMSWebflow},
		{`<p>plain</p>`, CMSUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Audit(tt.html).CMS, tt.html)
	}
}

func TestRevenueSignals(t *testing.T) {
	r := Audit(`<script>gtag('config')</script><script>fbq('init')</script><a href="https://yelp.com/biz/x">`)
	assert.Equal(t, []string{"Google Analytics", "Facebook Pixel", "Yelp Widget"}, r.RevenueSignals)
}

func TestBrightSmileAudit(t *testing.T) {
	r := Audit(loadFixture(t, "brightsmile.html"))

	assert.Equal(t, CMSUnknown, r.CMS)
	assert.Empty(t, r.RevenueSignals)
	assert.Equal(t, 22, r.GapWeight())
	assert.Equal(t, []string{
		"No online booking system",
		"No chatbot or live chat",
		"No automated review system",
		"No patient portal",
		"No SMS or text capability",
		"Phone-only appointment booking",
		"Still uses paper/printable forms",
		"No email marketing automation",
	}, r.GapDescriptions())
	assert.Equal(t, 6, r.SMBScore)
	assert.Equal(t, "(512) 555-0134", r.Phone)
	assert.Zero(t, r.EnterpriseHits)
	assert.False(t, r.IsEnterprise())
	assert.False(t, r.IsNonprofit())
}

func TestPhoneOnlyNeedsNoBooking(t *testing.T) {
	r := Audit(`<p>Call us to confirm, or book online anytime.</p>`)
	assert.True(t, r.Present.Has(Booking))
	for _, g := range r.Gaps {
		assert.NotEqual(t, PhoneOnly, g.Capability)
	}
}

func TestPracticeManagementNeverAGap(t *testing.T) {
	with := Audit(`<p>We use Dentrix</p>`)
	without := Audit(`<p>hello</p>`)
	assert.True(t, with.Present.Has(PracticeManagement))
	assert.Equal(t, with.GapWeight(), without.GapWeight())
}

func TestApplySubpagesRetractsPositiveGaps(t *testing.T) {
	r := Audit(`<p>Welcome</p>`)
	before := r.GapWeight()

	r.ApplySubpages(`<a href="https://calendly.com/x">Book</a><script src="tidio.js"></script><p>Text us anytime via SMS</p>`)

	assert.True(t, r.Present.Has(Booking))
	assert.True(t, r.Present.Has(Chat))
	assert.True(t, r.Present.Has(SMS))
	assert.Equal(t, before-4-3-2, r.GapWeight())
}

func TestApplySubpagesAddsOnlyNegativeGaps(t *testing.T) {
	r := Audit(`<script src="calendly.js"></script><script>tidio</script><p>podium weave patient portal mailchimp</p>`)
	require.Empty(t, r.Gaps)

	// Subpage lacks every positive capability; none of those may become gaps.
	r.ApplySubpages(`<p>Please download and print the form and call our office.</p>`)

	require.Len(t, r.Gaps, 1)
	assert.Equal(t, PaperForms, r.Gaps[0].Capability)
}

func TestApplySubpagesPhoneOnly(t *testing.T) {
	r := Audit(`<p>Welcome</p>`)
	r.ApplySubpages(`<p>Give us a call to book.</p>`)
	assert.Contains(t, r.GapDescriptions(), "Phone-only appointment booking")

	// No duplicate when the homepage already had it.
	r2 := Audit(`<p>Call today</p>`)
	r2.ApplySubpages(`<p>Call now</p>`)
	count := 0
	for _, g := range r2.Gaps {
		if g.Capability == PhoneOnly {
			count++
		}
	}
	assert.Equal(t, 1, count)

	// Booking found on a subpage retracts a homepage phone-only gap.
	r3 := Audit(`<p>Call to schedule your visit.</p>`)
	require.Contains(t, r3.GapDescriptions(), "Phone-only appointment booking")
	before := r3.GapWeight()
	r3.ApplySubpages(`<p>Book online anytime.</p>`)
	assert.True(t, r3.Present.Has(Booking))
	assert.NotContains(t, r3.GapDescriptions(), "Phone-only appointment booking")
	assert.NotContains(t, r3.GapDescriptions(), "No online booking system")
	assert.Equal(t, before-4-3, r3.GapWeight())
}

func TestSMBScoring(t *testing.T) {
	html := `<link href="/wp-content/x.css"><p>Family owned since 1998. Free consultation.</p>
<p>Careers</p><p>Investor relations</p>`
	r := Audit(html)

	// wordpress +1, small +1, owner +2, cta +1, careers present 0, enterprise -2
	assert.Equal(t, 3, r.SMBScore)
	assert.Equal(t, 2, r.EnterpriseHits)
	assert.Contains(t, r.SMBReasons, "WordPress site")
	assert.Contains(t, r.SMBReasons, "-2 enterprise signals")
}

func TestSMBCanGoNegative(t *testing.T) {
	html := strings.Repeat("x", 600*1024) +
		`careers investor relations annual report newsroom nasdaq worldwide`
	r := Audit(html)
	assert.True(t, r.IsEnterprise())
	assert.Less(t, r.SMBScore, 0)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "(512) 555-0134", NormalizePhone("512.555.0134"))
	assert.Equal(t, "(512) 555-0134", NormalizePhone("(512)555-0134"))
	assert.Equal(t, "", NormalizePhone("1234"))
}

func TestIsJunkTitle(t *testing.T) {
	junk := []string{
		"10 Best Dentists in Austin",
		"Top 5 Orthodontists",
		"Dental Market Size Report 2026",
		"Dentist Near Me",
		"How to Choose a Dentist",
		"Invisalign vs Braces",
		"Find a Dentist",
		"American Dental Association",
		"St. Mary Parish Clinic",
		"Donate to our clinic",
	}
	for _, title := range junk {
		assert.True(t, IsJunkTitle(title), title)
	}

	ok := []string{
		"Bright Smile Dental | Austin Family Dentist",
		"Dr. Jane Smith DDS - Cosmetic Dentistry",
		"Oak Street Orthodontics",
	}
	for _, title := range ok {
		assert.False(t, IsJunkTitle(title), title)
	}
}
