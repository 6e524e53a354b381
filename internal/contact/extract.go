// Package contact finds, filters, grades and verifies contact emails for a site.
package contact

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxEmails caps the emails kept per site.
const MaxEmails = 5

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

var junkMailDomains = map[string]struct{}{
	"example.com": {}, "domain.com": {}, "domain.tld": {}, "email.com": {}, "email.tld": {},
	"sentry.io": {}, "wixpress.com": {}, "googleapis.com": {},
	"w3.org": {}, "schema.org": {}, "json-ld.org": {}, "wordpress.org": {},
	"gravatar.com": {}, "wp.com": {}, "cloudflare.com": {}, "gstatic.com": {},
	"bootstrapcdn.com": {}, "jquery.com": {}, "jsdelivr.net": {}, "unpkg.com": {},
	"fontawesome.com": {}, "google.com": {}, "facebook.com": {}, "twitter.com": {},
	"sentry-next.wixpress.com": {}, "shopify.com": {}, "squarespace.com": {},
	"myspace.com": {}, "yourwebsite.com": {}, "yourdomain.com": {},
}

// junkPrefixes are local parts nobody answers. Role inboxes such as info,
// contact, sales and support are kept.
var junkPrefixes = map[string]struct{}{
	"noreply": {}, "no-reply": {}, "mailer-daemon": {}, "postmaster": {}, "test": {},
	"admin": {}, "webmaster": {}, "root": {}, "nobody": {}, "null": {},
	"user": {}, "example": {}, "email": {}, "your": {}, "name": {},
	"privacy": {}, "legal": {}, "abuse": {}, "spam": {},
}

var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

var placeholderTokens = []string{"example", "domain", "yourname"}

// Clean lowercases, filters and de-duplicates raw addresses, keeping
// first-seen order and at most MaxEmails.
func Clean(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, em := range raw {
		em = strings.ToLower(strings.TrimSpace(em))
		local, domain, ok := strings.Cut(em, "@")
		if !ok {
			continue
		}
		if _, junk := junkMailDomains[domain]; junk {
			continue
		}
		if _, junk := junkPrefixes[local]; junk {
			continue
		}
		if hasAnySuffix(em, assetSuffixes) || containsAny(em, placeholderTokens) {
			continue
		}
		if _, dup := seen[em]; dup {
			continue
		}
		seen[em] = struct{}{}
		out = append(out, em)
		if len(out) == MaxEmails {
			break
		}
	}
	return out
}

// Extract returns the cleaned emails found in page HTML, from both the raw
// text and mailto: links.
func Extract(html string) []string {
	raw := emailRe.FindAllString(html, -1)
	raw = append(raw, mailtoAddresses(html)...)
	return Clean(raw)
}

func mailtoAddresses(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		addr, _, _ = strings.Cut(addr, "?")
		if unescaped, err := url.PathUnescape(addr); err == nil {
			addr = unescaped
		}
		for _, a := range strings.Split(addr, ",") {
			if emailRe.MatchString(a) {
				out = append(out, emailRe.FindString(a))
			}
		}
	})
	return out
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
