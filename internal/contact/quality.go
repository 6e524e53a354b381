package contact

import "strings"

var rolePrefixes = map[string]struct{}{
	"info": {}, "contact": {}, "hello": {}, "sales": {}, "office": {},
	"team": {}, "general": {}, "service": {}, "customerservice": {},
}

// IsRole reports whether the local part is a shared role inbox.
func IsRole(email string) bool {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	_, ok := rolePrefixes[local]
	return ok
}

// Quality grades the best address in emails from 0 to 100:
// first.last beats a name, a name beats a role inbox.
func Quality(emails []string) int {
	best := 0
	for _, em := range emails {
		local, _, _ := strings.Cut(strings.ToLower(em), "@")
		_, role := rolePrefixes[local]

		score := 30
		switch {
		case strings.Contains(local, ".") && len(local) > 4:
			score = 100
		case !role && len(local) > 2 && !isDigits(local):
			score = 80
		case role:
			score = 50
		}
		if score > best {
			best = score
		}
	}
	return best
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
