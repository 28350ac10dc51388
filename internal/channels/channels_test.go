package channels_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vantage/internal/channels"
)

func TestClassifyPolicyOrder(t *testing.T) {
	c := channels.New("example.com")

	tests := []struct {
		name            string
		referrer        string
		utmSource       string
		utmMedium       string
		expectedChannel string
		expectedMedium  string
	}{
		{
			name:            "utm_source wins over everything",
			referrer:        "https://www.google.com/search",
			utmSource:       "newsletter",
			utmMedium:       "email",
			expectedChannel: "newsletter",
			expectedMedium:  "email",
		},
		{
			name:            "utm_source without medium falls back to utm",
			utmSource:       "partner-blog",
			expectedChannel: "partner-blog",
			expectedMedium:  "utm",
		},
		{
			name:            "no referrer is direct",
			expectedChannel: channels.ChannelDirect,
			expectedMedium:  channels.MediumNone,
		},
		{
			name:            "same-site referrer is direct",
			referrer:        "https://example.com/pricing",
			expectedChannel: channels.ChannelDirect,
			expectedMedium:  channels.MediumNone,
		},
		{
			name:            "www-prefixed same-site referrer is direct",
			referrer:        "https://www.example.com/",
			expectedChannel: channels.ChannelDirect,
			expectedMedium:  channels.MediumNone,
		},
		{
			name:            "search engine host",
			referrer:        "https://www.google.com/search?q=vantage",
			expectedChannel: channels.ChannelSearch,
			expectedMedium:  channels.MediumOrganic,
		},
		{
			name:            "search engine subdomain",
			referrer:        "https://news.google.com/articles/abc",
			expectedChannel: channels.ChannelSearch,
			expectedMedium:  channels.MediumOrganic,
		},
		{
			name:            "social network host",
			referrer:        "https://t.co/xyz",
			expectedChannel: channels.ChannelSocial,
			expectedMedium:  channels.MediumSocial,
		},
		{
			name:            "unlisted host becomes referral",
			referrer:        "https://blog.golang.org/slices",
			expectedChannel: "blog.golang.org",
			expectedMedium:  channels.MediumReferral,
		},
		{
			name:            "bare hostname referrer",
			referrer:        "duckduckgo.com",
			expectedChannel: channels.ChannelSearch,
			expectedMedium:  channels.MediumOrganic,
		},
		{
			name:            "bare host with path and port",
			referrer:        "www.github.com:443/karloscodes",
			expectedChannel: "github.com",
			expectedMedium:  channels.MediumReferral,
		},
		{
			name:            "unparseable referrer is unknown",
			referrer:        "http://%zz%",
			expectedChannel: channels.ChannelUnknown,
			expectedMedium:  channels.MediumUnknown,
		},
		{
			name:            "whitespace referrer is unknown",
			referrer:        "not a host",
			expectedChannel: channels.ChannelUnknown,
			expectedMedium:  channels.MediumUnknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.referrer, tc.utmSource, tc.utmMedium)
			assert.Equal(t, tc.expectedChannel, got.Channel)
			assert.Equal(t, tc.expectedMedium, got.Medium)
		})
	}
}

func TestClassifyWithoutSiteDomain(t *testing.T) {
	c := channels.New("")

	got := c.Classify("https://example.com/page", "", "")
	assert.Equal(t, "example.com", got.Channel, "self-referral detection needs a configured domain")
	assert.Equal(t, channels.MediumReferral, got.Medium)
}

func TestClassifyIsStable(t *testing.T) {
	c := channels.New("example.com")

	first := c.Classify("https://www.reddit.com/r/golang", "", "")
	second := c.Classify("https://www.reddit.com/r/golang", "", "")
	assert.Equal(t, first, second)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		channel  string
		expected string
	}{
		{"github.com", "GitHub"},
		{"news.ycombinator.com", "Hacker News"},
		{"Direct", "Direct"},
		{"newsletter", "Newsletter"},
		{"blog.golang.org", "Blog.golang.org"},
	}

	for _, tc := range tests {
		t.Run(tc.channel, func(t *testing.T) {
			assert.Equal(t, tc.expected, channels.DisplayName(tc.channel))
		})
	}
}
