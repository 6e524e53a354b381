package discover

// skipDomains are platforms, directories, media and large brands that show
// up in local-business searches but are never leads.
var skipDomains = toSet(
	// social / big tech
	"google.com", "youtube.com", "facebook.com", "twitter.com", "x.com",
	"linkedin.com", "instagram.com", "tiktok.com", "pinterest.com",
	"reddit.com", "quora.com", "medium.com", "substack.com",
	"github.com", "stackoverflow.com",
	// mega corps
	"amazon.com", "apple.com", "microsoft.com", "walmart.com", "target.com",
	"costco.com", "homedepot.com", "lowes.com", "bestbuy.com",
	// SaaS and site platforms
	"hubspot.com", "salesforce.com", "slack.com", "notion.so", "zoom.us",
	"shopify.com", "wordpress.com", "wix.com", "squarespace.com",
	"godaddy.com", "bluehost.com", "hostgator.com",
	"mailchimp.com", "constantcontact.com", "sendgrid.com",
	"zendesk.com", "intercom.com", "freshdesk.com",
	"stripe.com", "paypal.com", "square.com",
	// SEO and marketing tools
	"semrush.com", "ahrefs.com", "moz.com", "similarweb.com",
	"builtwith.com", "neilpatel.com", "backlinko.com",
	"searchenginejournal.com", "searchengineland.com",
	// directories and review sites
	"yelp.com", "bbb.org", "glassdoor.com", "indeed.com",
	"angellist.com", "wellfound.com", "crunchbase.com", "producthunt.com",
	"g2.com", "capterra.com", "trustpilot.com", "gartner.com",
	"tripadvisor.com", "healthgrades.com", "zocdoc.com", "avvo.com",
	"thumbtack.com", "angi.com", "homeadvisor.com", "houzz.com",
	"zillow.com", "realtor.com", "redfin.com", "trulia.com",
	"opentable.com", "doordash.com", "ubereats.com", "grubhub.com",
	"findlaw.com", "justia.com", "lawyers.com", "martindale.com",
	"vitals.com", "ratemds.com", "practo.com", "webmd.com",
	"networx.com", "expertise.com", "bark.com", "clutch.co",
	// news and media
	"nytimes.com", "wsj.com", "cnn.com", "bbc.com", "bbc.co.uk",
	"theverge.com", "wired.com", "venturebeat.com",
	"techcrunch.com", "forbes.com", "bloomberg.com", "inc.com",
	"entrepreneur.com", "businessinsider.com", "fastcompany.com",
	"mashable.com", "thenextweb.com", "engadget.com",
	// market research and newswires
	"grandviewresearch.com", "fortunebusinessinsights.com",
	"mordorintelligence.com", "marketsandmarkets.com",
	"statista.com", "ibisworld.com", "euromonitor.com",
	"towardshealthcare.com", "precedenceresearch.com",
	"alliedmarketresearch.com", "transparencymarketresearch.com",
	"verifiedmarketresearch.com", "researchandmarkets.com",
	"globenewswire.com", "prnewswire.com", "businesswire.com",
	// web design and template sites
	"sitebuilderreport.com", "muffingroup.com", "whatpixel.com",
	"mycodelesswebsite.com", "themeforest.com", "templatemonster.com",
	"dribbble.com", "behance.net", "awwwards.com",
	"insidea.com", "perfectpatients.com", "advisorevolved.com",
	"privateequitysites.com", "servgrow.com", "fieldedge.com",
	"scorpion.co", "wecreate.com",
	// reference, government, health orgs
	"wikipedia.org", "archive.org", "web.archive.org",
	"mayoclinic.org", "nih.gov", "cdc.gov",
	// retail, travel and consumer brands
	"chewy.com", "petsmart.com", "petco.com",
	"ulta.com", "sephora.com", "macys.com", "nordstrom.com",
	"nike.com", "adidas.com", "gap.com", "hm.com", "zara.com",
	"ikea.com", "wayfair.com", "overstock.com",
	"booking.com", "expedia.com", "hotels.com", "airbnb.com",
	"marriott.com", "hilton.com", "ihg.com", "hyatt.com",
	"ritzcarlton.com", "fourseasons.com", "starwoodhotels.com",
	"sonesta.com", "relaischateaux.com",
	// finance
	"kkr.com", "blackstone.com", "carlylegroup.com",
	"apollo.com", "tpg.com", "warburg.com", "warburgpincus.com",
	"goldmansachs.com", "jpmorgan.com", "morganstanley.com",
	"bankofamerica.com", "wellsfargo.com", "citi.com",
	// commercial real estate
	"jll.com", "cbre.com", "cushmanwakefield.com", "colliers.com",
	"savills.com", "savills.us", "newmark.com",
	// food and franchise brands
	"mcdonalds.com", "starbucks.com", "subway.com",
	"dominos.com", "pizzahut.com", "burgerking.com",
	"supercuts.com", "smartstyle.com", "fantasticsams.com",
	// animal and pet industry
	"aspca.org", "akc.org", "humanesociety.org",
	"banfield.com", "vca.com", "bluepearlvet.com",
	// professional organizations
	"acatoday.org", "ibew.org", "ada.org", "ama-assn.org",
	// other aggregators
	"50pros.com", "reonomy.com", "amnhealthcare.com",
	"greenwichtime.com", "petfoodindustry.com",
)

// IsSkipped reports whether a root domain is on the skip list.
func IsSkipped(root string) bool {
	_, ok := skipDomains[root]
	return ok
}

func toSet(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
