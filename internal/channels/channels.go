// Package channels derives a marketing-channel label from an event's
// referrer and UTM fields.
//
// Classification is a pure function of (referrer, utm_source, utm_medium):
// stable, total, and never erroring. Malformed input degrades to the
// Unknown channel instead of failing the aggregation that called it.
package channels

import (
	_ "embed"
	"log"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Well-known channel labels.
const (
	ChannelDirect  = "Direct"
	ChannelSearch  = "Organic Search"
	ChannelSocial  = "Social"
	ChannelUnknown = "Unknown"

	MediumNone     = "none"
	MediumOrganic  = "organic"
	MediumSocial   = "social"
	MediumReferral = "referral"
	MediumUTM      = "utm"
	MediumUnknown  = "unknown"
)

//go:embed tables.yaml
var tablesYAML []byte

type hostTables struct {
	SearchEngines  []string          `yaml:"search_engines"`
	SocialNetworks []string          `yaml:"social_networks"`
	DisplayNames   map[string]string `yaml:"display_names"`
}

var (
	searchEngines  map[string]bool
	socialNetworks map[string]bool
	displayNames   map[string]string

	titleCaser = cases.Title(language.English)
)

func init() {
	var tables hostTables
	if err := yaml.Unmarshal(tablesYAML, &tables); err != nil {
		log.Fatalf("channels: failed to parse embedded host tables: %v", err)
	}

	searchEngines = make(map[string]bool, len(tables.SearchEngines))
	for _, host := range tables.SearchEngines {
		searchEngines[strings.ToLower(host)] = true
	}
	socialNetworks = make(map[string]bool, len(tables.SocialNetworks))
	for _, host := range tables.SocialNetworks {
		socialNetworks[strings.ToLower(host)] = true
	}
	displayNames = make(map[string]string, len(tables.DisplayNames))
	for host, name := range tables.DisplayNames {
		displayNames[strings.ToLower(host)] = name
	}
}

// Classification is the derived channel and medium for one touchpoint.
type Classification struct {
	Channel string
	Medium  string
}

// Classifier classifies referrers for a single website. The website's own
// domain is needed to treat self-referrals as direct traffic.
type Classifier struct {
	siteDomain string
}

// New creates a Classifier for the given website domain.
func New(siteDomain string) *Classifier {
	return &Classifier{siteDomain: strings.ToLower(siteDomain)}
}

// Classify maps (referrer, utm_source, utm_medium) to a channel and medium.
//
// Policy, evaluated in order:
//  1. utm_source present: channel is the utm_source, medium is utm_medium
//     or "utm".
//  2. referrer absent or same-site: Direct/none.
//  3. referrer host in the search-engine table: Organic Search/organic.
//  4. referrer host in the social-network table: Social/social.
//  5. otherwise: the referrer host itself, medium "referral".
//
// A referrer that cannot be reduced to a hostname maps to Unknown/unknown.
func (c *Classifier) Classify(referrer, utmSource, utmMedium string) Classification {
	if utmSource != "" {
		medium := utmMedium
		if medium == "" {
			medium = MediumUTM
		}
		return Classification{Channel: utmSource, Medium: medium}
	}

	if referrer == "" {
		return Classification{Channel: ChannelDirect, Medium: MediumNone}
	}

	host, ok := referrerHost(referrer)
	if !ok {
		return Classification{Channel: ChannelUnknown, Medium: MediumUnknown}
	}

	if c.isSelfReferral(host) {
		return Classification{Channel: ChannelDirect, Medium: MediumNone}
	}
	if matchesTable(host, searchEngines) {
		return Classification{Channel: ChannelSearch, Medium: MediumOrganic}
	}
	if matchesTable(host, socialNetworks) {
		return Classification{Channel: ChannelSocial, Medium: MediumSocial}
	}

	return Classification{Channel: host, Medium: MediumReferral}
}

// isSelfReferral checks the referrer host against the website domain.
// Only exact domain matches count, mirroring the privacy-first policy of
// not guessing at related domains.
func (c *Classifier) isSelfReferral(host string) bool {
	if c.siteDomain == "" {
		return false
	}
	return host == c.siteDomain || host == "www."+c.siteDomain
}

// referrerHost reduces a referrer value to a lowercase hostname without a
// leading "www.". Accepts full URLs and bare hostnames.
func referrerHost(referrer string) (string, bool) {
	raw := strings.TrimSpace(referrer)
	if raw == "" {
		return "", false
	}

	var host string
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Hostname() == "" {
			return "", false
		}
		host = parsed.Hostname()
	} else {
		// Bare host, possibly with a path attached
		host = raw
		if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
			host = host[:idx]
		}
		if idx := strings.Index(host, ":"); idx >= 0 {
			host = host[:idx]
		}
	}

	host = strings.ToLower(strings.TrimSuffix(host, "."))
	host = strings.TrimPrefix(host, "www.")
	if host == "" || strings.ContainsAny(host, " \t") {
		return "", false
	}
	return host, true
}

// matchesTable reports whether host matches a table entry exactly or as a
// subdomain of one.
func matchesTable(host string, table map[string]bool) bool {
	if table[host] {
		return true
	}
	for domain := range table {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// DisplayName returns a dashboard-friendly label for a channel. Known hosts
// get their curated name; bare words are title-cased; hostnames keep their
// form with a capitalized first letter.
func DisplayName(channel string) string {
	lower := strings.ToLower(channel)
	if name, ok := displayNames[lower]; ok {
		return name
	}
	if !strings.Contains(channel, ".") {
		return titleCaser.String(channel)
	}
	return strings.ToUpper(channel[:1]) + channel[1:]
}
