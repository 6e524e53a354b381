package signals

import "regexp"

// CMS is the detected site platform.
type CMS string

const (
	CMSUnknown     CMS = "Unknown"
	CMSWordPress   CMS = "WordPress"
	CMSShopify     CMS = "Shopify"
	CMSSquarespace CMS = "Squarespace"
	CMSWix         CMS = "Wix"
	CMSWebflow     CMS = "Webflow"
	CMSGhost       CMS = "Ghost"
	CMSDrupal      CMS = "Drupal"
	CMSJoomla      CMS = "Joomla"
	CMSFramer      CMS = "Framer"
)

// IsSMB reports whether the platform is typical of small-business sites.
func (c CMS) IsSMB() bool {
	switch c {
	case CMSWordPress, CMSWix, CMSSquarespace, CMSWebflow, CMSJoomla:
		return true
	}
	return false
}

var cmsRules = []Rule[CMS]{
	{CMSWordPress, []string{"wp-content", "wordpress"}},
	{CMSShopify, []string{"shopify", "cdn.shopify"}},
	{CMSSquarespace, []string{"squarespace"}},
	{CMSWix, []string{"wix"}},
	{CMSWebflow, []string{"webflow"}},
	{CMSGhost, []string{"ghost"}},
	{CMSDrupal, []string{"drupal"}},
	{CMSJoomla, []string{"joomla"}},
	{CMSFramer, []string{"framer"}},
}

var revenueRules = []Rule[string]{
	{"Google Analytics", []string{"gtag(", "google-analytics", "googletagmanager"}},
	{"Facebook Pixel", []string{"fbq(", "facebook.com/tr"}},
	{"Hotjar", []string{"hotjar"}},
	{"HubSpot", []string{"hubspot"}},
	{"Stripe", []string{"stripe.com", "checkout.stripe"}},
	{"Google Ads", []string{"googleads", "adservice", "conversion.js"}},
	{"Yelp Widget", []string{"yelp.com/biz"}},
}

// Capability is a self-service feature a site may or may not offer.
type Capability string

const (
	Booking            Capability = "Online Booking"
	Chat               Capability = "Chatbot/Live Chat"
	Reviews            Capability = "Review Automation"
	Portal             Capability = "Patient Portal"
	SMS                Capability = "SMS/Text"
	PhoneOnly          Capability = "Phone-Only Booking"
	PaperForms         Capability = "Paper Forms"
	EmailMarketing     Capability = "Email Marketing"
	PracticeManagement Capability = "Practice Management Software"
)

// Polarity says how a capability turns into a gap.
type Polarity int

const (
	// Positive capabilities are gaps when absent.
	Positive Polarity = iota
	// Negative capabilities are gaps when present.
	Negative
	// PresenceOnly capabilities are recorded but never produce a gap.
	PresenceOnly
)

type capabilityRule struct {
	Rule[Capability]
	Polarity Polarity
	Gap      string
	Weight   int
}

// capabilityRules is ordered; gaps are reported in this order.
var capabilityRules = []capabilityRule{
	{
		Rule: Rule[Capability]{Booking, []string{
			"calendly", "acuity", "acuityscheduling", "zocdoc", "localized",
			"localmed", "nexhealth", "solutionreach", "dentrix ascend",
			"opencare", "carestack", "patientpop", "schedule online",
			"book online", "book now", "book appointment", "online booking",
			"online scheduling", "request appointment", "schedule appointment",
			"flexbook", "jane.app", "simplepractice",
		}},
		Polarity: Positive, Gap: "No online booking system", Weight: 4,
	},
	{
		Rule: Rule[Capability]{Chat, []string{
			"drift", "intercom", "tidio", "livechat", "tawk.to", "tawk",
			"zendesk", "freshchat", "crisp.chat", "hubspot-messages",
			"chatwidget", "live-chat", "chat-widget", "dialogflow",
			"landbot", "manychat", "chatfuel", "botpress",
			"kommunicate", "olark", "purechat",
		}},
		Polarity: Positive, Gap: "No chatbot or live chat", Weight: 3,
	},
	{
		Rule: Rule[Capability]{Reviews, []string{
			"birdeye", "podium", "weave", "reviewtrackers", "reputation.com",
			"grade.us", "trustpilot", "broadly", "getjerry", "demandforce",
			"swell", "nicejob", "reviewwave",
		}},
		Polarity: Positive, Gap: "No automated review system", Weight: 3,
	},
	{
		Rule: Rule[Capability]{Portal, []string{
			"patient portal", "patient login", "myportal", "patient access",
			"secure portal", "online portal", "my account",
			"patient forms", "digital forms", "online forms",
			"paperless", "e-forms",
		}},
		Polarity: Positive, Gap: "No patient portal", Weight: 2,
	},
	{
		Rule: Rule[Capability]{SMS, []string{
			"text us", "sms", "text message", "send a text",
			"text to schedule", "text reminders", "weave",
			"solutionreach", "revenuewell", "lighthouse 360",
			"patient communicator",
		}},
		Polarity: Positive, Gap: "No SMS or text capability", Weight: 2,
	},
	{
		Rule: Rule[Capability]{PhoneOnly, []string{
			"call to schedule", "call us to", "call our office",
			"phone to schedule", "give us a call", "call today",
			"call for appointment", "call now", "call for",
		}},
		Polarity: Negative, Gap: "Phone-only appointment booking", Weight: 3,
	},
	{
		Rule: Rule[Capability]{PaperForms, []string{
			"download and print", "print and fill", "print out",
			"printable form", "paper form", "fill out and bring",
			"download the form", "print the form", "bring completed",
		}},
		Polarity: Negative, Gap: "Still uses paper/printable forms", Weight: 3,
	},
	{
		Rule: Rule[Capability]{EmailMarketing, []string{
			"mailchimp", "constant contact", "sendgrid", "klaviyo",
			"activecampaign", "drip", "convertkit", "campaign monitor",
			"mc.js", "mailerlite", "revenuewell",
		}},
		Polarity: Positive, Gap: "No email marketing automation", Weight: 2,
	},
	{
		Rule: Rule[Capability]{PracticeManagement, []string{
			"dentrix", "eaglesoft", "open dental", "curve dental",
			"carestack", "denticon", "tab32", "planet dds",
			"practice-web", "maxident", "ace dental",
		}},
		Polarity: PresenceOnly,
	},
}

// EnterpriseKeywords mark sites too large to be clients.
var EnterpriseKeywords = []string{
	"investor relations", "investors", "annual report",
	"press releases", "newsroom", "media center",
	"careers", "join our team", "open positions", "we're hiring",
	"global offices", "our locations", "worldwide",
	"nasdaq", "nyse", "stock price", "sec filing",
	"fortune 500", "fortune 100",
	"enterprise solutions", "enterprise platform",
}

// NonprofitKeywords mark organizations that are not revenue businesses.
var NonprofitKeywords = []string{
	"501(c)", "501c3", "nonprofit", "non-profit", "tax-exempt",
	"tax exempt", "charitable organization", "donate now",
	"make a donation", "support our mission", "our mission",
	"volunteer opportunities", "volunteer with us",
	"fundraising", "grant funding", "annual fund",
	"board of directors", "board members",
	"community outreach", "public benefit",
}

const (
	EnterpriseThreshold = 3
	NonprofitThreshold  = 2
)

var (
	careersVocab = []string{"careers", "job openings"}
	ownerVocab   = []string{
		"owner", "founder", "family owned", "family-owned", "established in",
		"since 19", "since 20", "locally owned", "veteran owned", "woman owned",
	}
	serviceCTAVocab = []string{
		"schedule appointment", "call us today", "free consultation",
		"free estimate", "free quote", "get a quote",
	}
)

var (
	phoneRe   = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	addressRe = regexp.MustCompile(`(?i)\d+\s+[\w\s]+(?:st|street|ave|avenue|blvd|boulevard|dr|drive|rd|road|ln|lane|ct|court|way|pl|place)\b`)
	nonDigit  = regexp.MustCompile(`\D`)
)

var junkTitleRe = regexp.MustCompile(`(?i)` +
	`\b\d+\s+best\b|\btop\s+\d+\b|\bbest\s+\d+\b` +
	`|\bmarket\s+(size|share|report|trends|growth|outlook|forecast)\b` +
	`|\bindustry\s+(report|analysis|overview)\b` +
	`|\bnear\s+me\b` +
	`|\bhow\s+to\b|\bguide\s+to\b|\btips\s+for\b` +
	`|\bwikipedia\b|\breview(s)?\s+(of|for)\b` +
	`|\bvs\.?\s+\b` +
	`|\bwebsite(s)?\s+(design|examples|inspiration|ideas|templates)\b` +
	`|\bexamples?\s+(of|for)\b` +
	`|\bcase\s+stud(y|ies)\b` +
	`|\b(find|search|compare|browse)\s+(a|the)?\s*(best|top)?\b` +
	`|\bbook\s+appointment\b` +
	`|\bhaircuts?\b$` +
	`|\b(nonprofit|non-profit|non profit|charity|charitable|501\s*\(?c\)?)\b` +
	`|\b(foundation|association|society|coalition|alliance|federation)\b` +
	`|\b(church|ministry|ministries|parish|diocese|mosque|synagogue|temple)\b` +
	`|\b(volunteer|donate|donation|fundrais)\b`)

// IsJunkTitle reports whether a page or search-result title looks like a
// listicle, directory, report or nonprofit rather than a business homepage.
func IsJunkTitle(title string) bool {
	return junkTitleRe.MatchString(title)
}
