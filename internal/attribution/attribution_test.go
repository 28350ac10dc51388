package attribution_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/internal/attribution"
	"vantage/internal/channels"
	"vantage/internal/events"
	"vantage/internal/timeframe"
)

var (
	day0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	day3 = day0.AddDate(0, 0, 3)
	day5 = day0.AddDate(0, 0, 5)
)

func mustRange(t *testing.T, from, to time.Time) timeframe.TimeFrame {
	t.Helper()
	tf, err := timeframe.New(from, to)
	require.NoError(t, err)
	return tf
}

func conversion(id uint, visitor string, at time.Time) events.Event {
	return events.Event{
		ID: id, WebsiteID: 1, VisitorID: visitor,
		EventName: events.DefaultGoalEvent, URL: "/thanks", CreatedAt: at,
	}
}

func visit(id uint, visitor string, at time.Time, referrer string) events.Event {
	return events.Event{
		ID: id, WebsiteID: 1, VisitorID: visitor,
		EventName: events.EventNamePageView, URL: "/", Referrer: referrer, CreatedAt: at,
	}
}

func findStat(stats []attribution.ChannelStat, channel string) (attribution.ChannelStat, bool) {
	for _, s := range stats {
		if s.Channel == channel {
			return s, true
		}
	}
	return attribution.ChannelStat{}, false
}

func TestComputeFirstAndLastTouchSplit(t *testing.T) {
	// One visitor: arrives via Google, returns direct two days later,
	// converts two days after that. First touch goes to search, last
	// touch to the direct return visit.
	classifier := channels.New("example.com")
	evts := []events.Event{
		visit(1, "v1", day0, "https://www.google.com/"),
		visit(2, "v1", day3, ""),
		conversion(3, "v1", day5),
	}

	result := attribution.Compute(evts, classifier, attribution.Params{
		Range:          mustRange(t, day0, day5.Add(time.Hour)),
		SessionTimeout: 30 * time.Minute,
	})

	require.EqualValues(t, 1, result.TotalConversions)

	search, ok := findStat(result.FirstTouch, channels.ChannelSearch)
	require.True(t, ok, "first touch must credit the search visit")
	assert.EqualValues(t, 1, search.Conversions)

	direct, ok := findStat(result.LastTouch, channels.ChannelDirect)
	require.True(t, ok, "last touch must credit the direct return")
	assert.EqualValues(t, 1, direct.Conversions)
}

func TestComputeNoTouchpointsFallsBackToDirect(t *testing.T) {
	classifier := channels.New("example.com")
	evts := []events.Event{
		conversion(1, "v1", day5),
	}

	result := attribution.Compute(evts, classifier, attribution.Params{
		Range:          mustRange(t, day0, day5.Add(time.Hour)),
		SessionTimeout: 30 * time.Minute,
	})

	require.EqualValues(t, 1, result.TotalConversions)

	first, ok := findStat(result.FirstTouch, channels.ChannelDirect)
	require.True(t, ok)
	assert.EqualValues(t, 1, first.Conversions)

	last, ok := findStat(result.LastTouch, channels.ChannelDirect)
	require.True(t, ok)
	assert.EqualValues(t, 1, last.Conversions)
}

func TestComputeTotalsMatchAcrossModels(t *testing.T) {
	classifier := channels.New("example.com")
	evts := []events.Event{
		visit(1, "v1", day0, "https://www.google.com/"),
		conversion(2, "v1", day0.Add(time.Hour)),
		visit(3, "v2", day0, "https://t.co/abc"),
		conversion(4, "v2", day3),
		conversion(5, "v3", day5),
	}

	result := attribution.Compute(evts, classifier, attribution.Params{
		Range:          mustRange(t, day0, day5.Add(time.Hour)),
		SessionTimeout: 30 * time.Minute,
	})

	require.EqualValues(t, 3, result.TotalConversions)

	var firstSum, lastSum int64
	for _, s := range result.FirstTouch {
		firstSum += s.Conversions
	}
	for _, s := range result.LastTouch {
		lastSum += s.Conversions
	}
	assert.Equal(t, result.TotalConversions, firstSum)
	assert.Equal(t, result.TotalConversions, lastSum)
}

func TestComputeLookbackExcludesOldTouchpoints(t *testing.T) {
	classifier := channels.New("example.com")
	evts := []events.Event{
		visit(1, "v1", day5.AddDate(0, 0, -10), "https://www.google.com/"),
		conversion(2, "v1", day5),
	}

	result := attribution.Compute(evts, classifier, attribution.Params{
		Range:          mustRange(t, day5.Add(-time.Hour), day5.Add(time.Hour)),
		LookbackDays:   7,
		SessionTimeout: 30 * time.Minute,
	})

	require.EqualValues(t, 1, result.TotalConversions)

	_, hasSearch := findStat(result.FirstTouch, channels.ChannelSearch)
	assert.False(t, hasSearch, "touchpoint outside the lookback window must not be credited")

	direct, ok := findStat(result.FirstTouch, channels.ChannelDirect)
	require.True(t, ok)
	assert.EqualValues(t, 1, direct.Conversions)
}

func TestComputeConversionCannotCreditItself(t *testing.T) {
	// The conversion event carries UTM parameters, so it would qualify as
	// a touchpoint. It must still not attribute itself.
	classifier := channels.New("example.com")
	conv := conversion(1, "v1", day5)
	conv.UTMSource = "newsletter"

	result := attribution.Compute([]events.Event{conv}, classifier, attribution.Params{
		Range:          mustRange(t, day0, day5.Add(time.Hour)),
		SessionTimeout: 30 * time.Minute,
	})

	require.EqualValues(t, 1, result.TotalConversions)

	_, hasNewsletter := findStat(result.FirstTouch, "newsletter")
	assert.False(t, hasNewsletter)

	direct, ok := findStat(result.FirstTouch, channels.ChannelDirect)
	require.True(t, ok)
	assert.EqualValues(t, 1, direct.Conversions)
}

func TestComputeEventsWithoutStoreIDs(t *testing.T) {
	// Events that never went through the store all carry ID zero. The
	// self-exclusion must not treat every zero-ID touchpoint as the
	// conversion itself.
	classifier := channels.New("example.com")
	evts := []events.Event{
		visit(0, "v1", day0, "https://www.google.com/"),
		conversion(0, "v1", day5),
	}

	result := attribution.Compute(evts, classifier, attribution.Params{
		Range:          mustRange(t, day0, day5.Add(time.Hour)),
		SessionTimeout: 30 * time.Minute,
	})

	require.EqualValues(t, 1, result.TotalConversions)

	search, ok := findStat(result.FirstTouch, channels.ChannelSearch)
	require.True(t, ok, "the search visit must still be credited")
	assert.EqualValues(t, 1, search.Conversions)

	last, ok := findStat(result.LastTouch, channels.ChannelSearch)
	require.True(t, ok)
	assert.EqualValues(t, 1, last.Conversions)
}

func TestComputeConversionsOutsideRangeIgnored(t *testing.T) {
	classifier := channels.New("example.com")
	evts := []events.Event{
		conversion(1, "v1", day0),
		conversion(2, "v1", day5),
	}

	result := attribution.Compute(evts, classifier, attribution.Params{
		Range:          mustRange(t, day3, day5.Add(time.Hour)),
		SessionTimeout: 30 * time.Minute,
	})

	assert.EqualValues(t, 1, result.TotalConversions)
}

func TestComputeRankOrdering(t *testing.T) {
	classifier := channels.New("example.com")
	var evts []events.Event
	id := uint(1)

	// Two search conversions, one social, one newsletter. Ties between
	// the single-conversion channels break alphabetically.
	addJourney := func(visitor, referrer, utmSource string) {
		v := visit(id, visitor, day0, referrer)
		v.UTMSource = utmSource
		evts = append(evts, v)
		id++
		evts = append(evts, conversion(id, visitor, day0.Add(time.Hour)))
		id++
	}
	addJourney("v1", "https://www.google.com/", "")
	addJourney("v2", "https://bing.com/", "")
	addJourney("v3", "https://t.co/x", "")
	addJourney("v4", "", "newsletter")

	result := attribution.Compute(evts, classifier, attribution.Params{
		Range:          mustRange(t, day0, day5),
		SessionTimeout: 30 * time.Minute,
	})

	require.Len(t, result.FirstTouch, 3)
	assert.Equal(t, channels.ChannelSearch, result.FirstTouch[0].Channel)
	assert.EqualValues(t, 2, result.FirstTouch[0].Conversions)
	assert.Equal(t, channels.ChannelSocial, result.FirstTouch[1].Channel)
	assert.Equal(t, "newsletter", result.FirstTouch[2].Channel)
}

func TestExtractTouchpointsSessionEntryCounts(t *testing.T) {
	// A direct session entry has no referrer and no UTM data but is still
	// a touchpoint.
	classifier := channels.New("example.com")
	evts := []events.Event{
		visit(1, "v1", day0, ""),
		visit(2, "v1", day0.Add(5*time.Minute), ""),
	}

	touchpoints := attribution.ExtractTouchpoints(evts, classifier, 30*time.Minute)
	require.Len(t, touchpoints, 1)
	assert.Equal(t, channels.ChannelDirect, touchpoints[0].Channel)
	assert.Equal(t, day0, touchpoints[0].OccurredAt)
}
