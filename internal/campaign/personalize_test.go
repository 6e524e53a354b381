package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuessFirstName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"sarah@brightsmile.com", "Sarah"},
		{"john.smith@practice.com", "John"},
		{"mike_d@clinic.com", "Mike"},
		{"dr-kate@clinic.com", ""},
		{"info@clinic.com", ""},
		{"office@clinic.com", ""},
		{"xyz123@clinic.com", ""},
		{"  Beth@Clinic.com ", "Beth"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessFirstName(tt.email))
		})
	}
}

func TestFormatIssues(t *testing.T) {
	assert.Equal(t, "a few areas where things could run more smoothly", FormatIssues(nil))
	assert.Equal(t, "how patients book appointments", FormatIssues([]string{"No online booking system"}))
	assert.Equal(t,
		"the booking flow relying entirely on phone calls",
		FormatIssues([]string{"Phone-only appointment booking"}),
	)
	assert.Equal(t,
		"how patients book appointments and after-hours patient communication",
		FormatIssues([]string{"No online booking system", "No chatbot or live chat"}),
	)
	assert.Equal(t,
		"how patients book appointments, how you're collecting patient reviews, and a couple of other things",
		FormatIssues([]string{"No online booking system", "No automated review system", "No patient portal"}),
	)
	assert.Equal(t, "some workflow gaps", FormatIssues([]string{"Slow hosting"}))
}

func TestFormatIssuesCollapsesDuplicatePhrases(t *testing.T) {
	got := FormatIssues([]string{"No online booking system", "Online appointment requests missing"})
	assert.Equal(t, "how patients book appointments", got)
}

func TestPickTopIssues(t *testing.T) {
	assert.Equal(t, []string{"some technical issues"}, PickTopIssues(nil))
	assert.Equal(t, []string{"a", "b", "c"}, PickTopIssues([]string{"a", " ", "b", "c", "d"}))
}

func TestWarmupLimit(t *testing.T) {
	tests := []struct {
		age  int
		want int
	}{
		{0, 15}, {13, 15}, {14, 25}, {27, 25}, {28, 35}, {41, 35}, {42, 50}, {400, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WarmupLimit(tt.age), "age %d", tt.age)
	}
}

func TestAccountQuota(t *testing.T) {
	day := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	young := Account{Email: "a@x.com", Created: time.Date(2026, 2, 24, 8, 0, 0, 0, time.UTC)}
	fixed := Account{Email: "b@x.com", Created: day, DailyLimit: 7}

	assert.Equal(t, 25, young.Quota(day))
	assert.Equal(t, 7, fixed.Quota(day))
	assert.Equal(t, 32, FreshQuota([]Account{young, fixed}, day))
}
