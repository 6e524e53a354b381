package discover

// Query is one search phrase and the niche label its results get.
type Query struct {
	Text  string
	Niche string
}

// QueryBuilder expands niches with intent modifiers and cities.
type QueryBuilder struct {
	Niches    []string
	Modifiers []string
	Cities    []string
	Label     string
}

// Build returns every distinct query: each niche with each modifier, then
// each niche with each city.
func (b QueryBuilder) Build() []Query {
	seen := make(map[string]struct{})
	var out []Query
	add := func(text string) {
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, Query{Text: text, Niche: b.Label})
	}

	for _, niche := range b.Niches {
		for _, mod := range b.Modifiers {
			if mod == "" {
				add(niche)
			} else {
				add(mod + " " + niche)
			}
		}
		for _, city := range b.Cities {
			add(niche + " " + city)
		}
	}
	return out
}
