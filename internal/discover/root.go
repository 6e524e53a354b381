package discover

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var rejectedSuffixes = []string{".gov", ".edu", ".mil", ".org"}

// RootDomain reduces a URL to its registrable domain. It rejects subdomains
// other than www, and government, education, military and .org roots.
func RootDomain(rawURL string) (string, bool) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.Trim(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return "", false
	}

	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	if host != root {
		return "", false
	}
	for _, suf := range rejectedSuffixes {
		if strings.HasSuffix(root, suf) {
			return "", false
		}
	}
	return root, true
}
