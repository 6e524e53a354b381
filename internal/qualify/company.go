package qualify

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	titleSeparators = []string{" - ", " | ", " — ", " · "}
	stripTags       = bluemonday.StrictPolicy()
)

// CompanyName derives a business name from a page or search title: tags
// removed, cut at the first separator. It returns "" when fewer than two
// characters remain.
func CompanyName(title string) string {
	name := html.UnescapeString(stripTags.Sanitize(title))
	for _, sep := range titleSeparators {
		if i := strings.Index(name, sep); i >= 0 {
			name = name[:i]
		}
	}
	name = strings.Join(strings.Fields(name), " ")
	if utf8.RuneCountInString(name) < 2 {
		return ""
	}
	return name
}
