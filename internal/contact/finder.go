package contact

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/fetch"
)

// ContactPaths are tried in order when the homepage has no usable email.
var ContactPaths = []string{"/contact", "/contact-us", "/about", "/about-us", "/team"}

// PageGetter fetches one page.
type PageGetter interface {
	Get(ctx context.Context, url string, timeout time.Duration) (*fetch.Page, error)
}

// Set is the contact information found for a site.
type Set struct {
	Emails      []string
	ContactPage string
}

// Finder discovers contact emails on a site.
type Finder struct {
	pages   PageGetter
	sleeper fetch.Sleeper
	timeout time.Duration
	delay   time.Duration
	logger  *zap.Logger
}

// NewFinder creates a Finder. timeout applies to each secondary page and
// delay separates consecutive page requests.
func NewFinder(pages PageGetter, sleeper fetch.Sleeper, timeout, delay time.Duration, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sleeper == nil {
		sleeper = fetch.RealSleeper{}
	}
	return &Finder{pages: pages, sleeper: sleeper, timeout: timeout, delay: delay, logger: logger}
}

// Find returns the emails on the homepage, or on the first contact-like page
// that has any. base is the scheme and host that served the homepage, such as
// "http://oak.com". When no emails turn up, ContactPage points at the first
// contact-like page that answered, falling back to base + "/contact".
func (f *Finder) Find(ctx context.Context, base, homepageHTML string) Set {
	if emails := Extract(homepageHTML); len(emails) > 0 {
		return Set{Emails: emails}
	}

	contactPage := ""
	for i, path := range ContactPaths {
		if i > 0 {
			if err := f.sleeper.Sleep(ctx, f.delay); err != nil {
				break
			}
		}
		pageURL := base + path
		page, err := f.pages.Get(ctx, pageURL, f.timeout)
		if err != nil || page.Status != 200 {
			continue
		}
		if found := Extract(page.HTML()); len(found) > 0 {
			f.logger.Debug("emails found on subpage", zap.String("url", pageURL), zap.Int("count", len(found)))
			return Set{Emails: found}
		}
		if contactPage == "" && strings.Contains(path, "contact") {
			contactPage = pageURL
		}
	}

	if contactPage == "" {
		contactPage = base + "/contact"
	}
	return Set{ContactPage: contactPage}
}
