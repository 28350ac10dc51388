// Package attribution computes first-touch and last-touch conversion credit
// per marketing channel.
//
// For every conversion inside the queried range, the visitor's touchpoints
// within the lookback window are inspected: the earliest one takes the
// first-touch credit, the latest one strictly before the conversion takes
// the last-touch credit. Conversions with no qualifying touchpoint are
// credited to Direct. Each conversion contributes exactly one increment to
// each model.
package attribution

import (
	"sort"
	"time"

	"vantage/internal/channels"
	"vantage/internal/events"
	"vantage/internal/sessions"
	"vantage/internal/timeframe"
)

// DefaultLookbackDays is the attribution window when none is supplied.
const DefaultLookbackDays = 90

// Touchpoint is a channel-attributable marketing interaction derived from
// one event: any event carrying a referrer or UTM parameters, or a session's
// entry event.
type Touchpoint struct {
	Channel    string
	Medium     string
	Campaign   string
	OccurredAt time.Time
	VisitorID  string

	eventID uint
}

// ChannelStat is one channel's conversion tally in a single model.
type ChannelStat struct {
	Channel     string `json:"channel"`
	Medium      string `json:"medium"`
	Conversions int64  `json:"conversions"`
}

// Params configures an attribution computation.
type Params struct {
	// Range bounds the conversions being attributed. Touchpoints may
	// precede it by up to the lookback window.
	Range timeframe.TimeFrame

	// GoalEvent is the event name that counts as a conversion.
	// Defaults to events.DefaultGoalEvent.
	GoalEvent string

	// LookbackDays bounds how far before each conversion touchpoints
	// qualify. Defaults to DefaultLookbackDays.
	LookbackDays int

	// SessionTimeout is used to find session entry events, which act as
	// touchpoints even without referrer or UTM data.
	SessionTimeout time.Duration
}

// Result holds both attribution models for one query.
type Result struct {
	FirstTouch       []ChannelStat `json:"first_touch"`
	LastTouch        []ChannelStat `json:"last_touch"`
	TotalConversions int64         `json:"total_conversions"`
}

// Compute attributes every conversion in params.Range across the supplied
// events. The event slice must cover the range plus the lookback window;
// events may be unsorted and span multiple visitors.
func Compute(evts []events.Event, classifier *channels.Classifier, params Params) Result {
	goal := params.GoalEvent
	if goal == "" {
		goal = events.DefaultGoalEvent
	}
	lookbackDays := params.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	lookback := time.Duration(lookbackDays) * 24 * time.Hour

	byVisitor := make(map[string][]events.Event)
	for _, e := range evts {
		byVisitor[e.VisitorID] = append(byVisitor[e.VisitorID], e)
	}

	firstTally := make(map[channelKey]int64)
	lastTally := make(map[channelKey]int64)
	var total int64

	for _, visitorEvents := range byVisitor {
		touchpoints := ExtractTouchpoints(visitorEvents, classifier, params.SessionTimeout)

		for _, e := range visitorEvents {
			if e.EventName != goal || !params.Range.Contains(e.CreatedAt) {
				continue
			}
			total++

			first, last := creditsFor(e, touchpoints, lookback)
			firstTally[first]++
			lastTally[last]++
		}
	}

	return Result{
		FirstTouch:       rank(firstTally),
		LastTouch:        rank(lastTally),
		TotalConversions: total,
	}
}

// ExtractTouchpoints derives the ordered touchpoint list for a single
// visitor's events: every event with a referrer or UTM parameters, plus
// every session entry event.
func ExtractTouchpoints(visitorEvents []events.Event, classifier *channels.Classifier, sessionTimeout time.Duration) []Touchpoint {
	entryIDs := make(map[uint]bool)
	for _, s := range sessions.Build(visitorEvents, sessionTimeout) {
		entryIDs[s.Events[0].ID] = true
	}

	var result []Touchpoint
	for _, e := range visitorEvents {
		if e.Referrer == "" && !e.HasUTM() && !entryIDs[e.ID] {
			continue
		}
		c := classifier.Classify(e.Referrer, e.UTMSource, e.UTMMedium)
		result = append(result, Touchpoint{
			Channel:    c.Channel,
			Medium:     c.Medium,
			Campaign:   e.UTMCampaign,
			OccurredAt: e.CreatedAt,
			VisitorID:  e.VisitorID,
			eventID:    e.ID,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result
}

type channelKey struct {
	channel string
	medium  string
}

var directKey = channelKey{channel: channels.ChannelDirect, medium: channels.MediumNone}

// creditsFor picks the first-touch and last-touch channel for one
// conversion. Candidates are the visitor's touchpoints inside the lookback
// window up to the conversion instant, excluding a touchpoint derived from
// the conversion event itself. Last-touch additionally requires the
// touchpoint to occur strictly before the conversion.
func creditsFor(conversion events.Event, touchpoints []Touchpoint, lookback time.Duration) (first, last channelKey) {
	windowStart := conversion.CreatedAt.Add(-lookback)

	first, last = directKey, directKey
	haveFirst := false
	for _, t := range touchpoints {
		// Zero IDs mean the events never went through the store; only a
		// real ID identifies the conversion's own touchpoint.
		if t.eventID != 0 && t.eventID == conversion.ID {
			continue
		}
		if t.OccurredAt.Before(windowStart) || t.OccurredAt.After(conversion.CreatedAt) {
			continue
		}
		if !haveFirst {
			first = channelKey{channel: t.Channel, medium: t.Medium}
			haveFirst = true
		}
		if t.OccurredAt.Before(conversion.CreatedAt) {
			last = channelKey{channel: t.Channel, medium: t.Medium}
		}
	}
	return first, last
}

// rank turns a tally into a list sorted descending by conversions, ties
// broken by channel name ascending.
func rank(tally map[channelKey]int64) []ChannelStat {
	result := make([]ChannelStat, 0, len(tally))
	for key, count := range tally {
		result = append(result, ChannelStat{
			Channel:     key.channel,
			Medium:      key.medium,
			Conversions: count,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Conversions != result[j].Conversions {
			return result[i].Conversions > result[j].Conversions
		}
		if result[i].Channel != result[j].Channel {
			return result[i].Channel < result[j].Channel
		}
		return result[i].Medium < result[j].Medium
	})
	return result
}
