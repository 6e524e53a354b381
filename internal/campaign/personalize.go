package campaign

import (
	"regexp"
	"strings"
)

const maxIssues = 3

var genericPrefixes = toSet(
	"info", "contact", "hello", "office", "admin", "sales",
	"support", "help", "team", "mail", "enquiry", "inquiry",
	"service", "services", "billing", "accounts",
)

var commonFirstNames = toSet(
	"james", "john", "robert", "michael", "david", "william", "richard", "joseph",
	"thomas", "charles", "chris", "daniel", "matthew", "anthony", "mark", "donald",
	"steven", "paul", "andrew", "joshua", "kenneth", "kevin", "brian", "george",
	"timothy", "ronald", "edward", "jason", "jeffrey", "ryan", "jacob", "gary",
	"nicholas", "eric", "jonathan", "stephen", "larry", "justin", "scott", "brandon",
	"benjamin", "samuel", "raymond", "gregory", "frank", "alexander", "patrick",
	"jack", "dennis", "jerry", "tyler", "aaron", "jose", "adam", "nathan", "henry",
	"peter", "zachary", "douglas", "harold", "kyle", "noah", "gerald", "ethan",
	"carl", "terry", "sean", "austin", "arthur", "lawrence", "jesse", "dylan",
	"bryan", "joe", "jordan", "billy", "bruce", "albert", "willie", "gabriel",
	"logan", "alan", "juan", "wayne", "elijah", "randy", "roy", "vincent",
	"ralph", "eugene", "russell", "bobby", "mason", "philip", "harry", "dale",
	"mary", "patricia", "jennifer", "linda", "barbara", "elizabeth", "susan",
	"jessica", "sarah", "karen", "lisa", "nancy", "betty", "margaret", "sandra",
	"ashley", "dorothy", "kimberly", "emily", "donna", "michelle", "carol",
	"amanda", "melissa", "deborah", "stephanie", "rebecca", "sharon", "laura",
	"cynthia", "kathleen", "amy", "angela", "shirley", "anna", "brenda", "pamela",
	"emma", "nicole", "helen", "samantha", "katherine", "christine", "debra",
	"rachel", "carolyn", "janet", "catherine", "maria", "heather", "diane",
	"ruth", "julie", "olivia", "joyce", "virginia", "victoria", "kelly", "lauren",
	"christina", "joan", "evelyn", "judith", "megan", "andrea", "cheryl", "hannah",
	"jacqueline", "martha", "gloria", "teresa", "ann", "sara", "madison", "frances",
	"kathryn", "janice", "jean", "abigail", "alice", "judy", "sophia", "grace",
	"denise", "amber", "doris", "marilyn", "danielle", "beverly", "isabella",
	"theresa", "diana", "natalie", "brittany", "charlotte", "marie", "kayla",
	"alexis", "lori", "mike", "matt", "dan", "tom", "bob", "jim", "tim", "ben",
	"sam", "max", "alex", "nick", "luke", "jake", "cole", "drew", "chad", "brad",
	"todd", "kurt", "troy", "seth", "wade", "brent", "derek", "lance", "neil",
	"tony", "dave", "steve", "phil", "rick", "jeff", "greg", "doug", "ted", "ray",
	"jen", "kate", "beth", "anne", "jill", "dana", "tara", "erin", "meg", "lynn",
)

var nameSplitRe = regexp.MustCompile(`[._\-]+`)

// GuessFirstName returns a capitalized first name when the local part of
// email starts with a common one, or "".
func GuessFirstName(email string) string {
	local := strings.ToLower(strings.TrimSpace(email))
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	if _, generic := genericPrefixes[local]; generic {
		return ""
	}
	name := nameSplitRe.Split(local, 2)[0]
	if _, ok := commonFirstNames[name]; !ok {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// issuePhrases maps gap descriptions to conversational phrases. Order
// matters: the first entry with a matching keyword wins.
var issuePhrases = []struct {
	keywords []string
	phrase   string
}{
	{[]string{"phone-only", "call"}, "the booking flow relying entirely on phone calls"},
	{[]string{"booking", "appointment"}, "how patients book appointments"},
	{[]string{"chatbot", "chat"}, "after-hours patient communication"},
	{[]string{"review"}, "how you're collecting patient reviews"},
	{[]string{"portal"}, "patient access to their records"},
	{[]string{"sms", "text"}, "text-based communication with patients"},
	{[]string{"paper", "print"}, "intake forms that still need to be printed"},
	{[]string{"email marketing"}, "staying in touch with patients between visits"},
}

// FormatIssues turns gap descriptions into a short phrase for a sentence.
func FormatIssues(issues []string) string {
	if len(issues) == 0 {
		return "a few areas where things could run more smoothly"
	}

	var phrases []string
	seen := make(map[string]struct{})
	for _, issue := range issues {
		p := phraseFor(strings.ToLower(issue))
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}

	switch len(phrases) {
	case 1:
		return phrases[0]
	case 2:
		return phrases[0] + " and " + phrases[1]
	}
	return phrases[0] + ", " + phrases[1] + ", and a couple of other things"
}

func phraseFor(issue string) string {
	for _, ip := range issuePhrases {
		for _, k := range ip.keywords {
			if strings.Contains(issue, k) {
				return ip.phrase
			}
		}
	}
	return "some workflow gaps"
}

// PickTopIssues keeps at most the first three non-empty issues.
func PickTopIssues(gaps []string) []string {
	var out []string
	for _, g := range gaps {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
		if len(out) == maxIssues {
			break
		}
	}
	if len(out) == 0 {
		return []string{"some technical issues"}
	}
	return out
}

func toSet(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}
