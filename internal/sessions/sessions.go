// Package sessions groups a visitor's raw events into time-bounded sessions.
//
// A session is a run of one visitor's events in which no two consecutive
// events are further apart than the session timeout. Sessions are derived on
// demand and never persisted: re-running on the same event set always yields
// the same boundaries.
package sessions

import (
	"fmt"
	"sort"
	"time"

	"vantage/internal/events"
)

// DefaultTimeout is the inactivity gap that closes a session.
const DefaultTimeout = 30 * time.Minute

// Session is a time-bounded run of one visitor's events, ordered ascending
// by CreatedAt.
type Session struct {
	ID        string
	VisitorID string
	Events    []events.Event
	StartedAt time.Time
	EndedAt   time.Time
	EntryURL  string
	ExitURL   string
}

// Build partitions the given events into sessions. The input may span
// multiple visitors and may be unsorted; the output covers exactly the input
// events, with no event dropped or duplicated. Sessions are ordered by
// (VisitorID, StartedAt). An empty input yields zero sessions.
func Build(evts []events.Event, timeout time.Duration) []Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if len(evts) == 0 {
		return nil
	}

	sorted := make([]events.Event, len(evts))
	copy(sorted, evts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].VisitorID != sorted[j].VisitorID {
			return sorted[i].VisitorID < sorted[j].VisitorID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var result []Session
	current := newSession(sorted[0])
	for _, e := range sorted[1:] {
		sameVisitor := e.VisitorID == current.VisitorID
		withinTimeout := e.CreatedAt.Sub(current.EndedAt) <= timeout
		if sameVisitor && withinTimeout {
			current.append(e)
			continue
		}
		result = append(result, *current)
		current = newSession(e)
	}
	result = append(result, *current)

	return result
}

func newSession(e events.Event) *Session {
	return &Session{
		ID:        fmt.Sprintf("%s:%d", e.VisitorID, e.CreatedAt.UTC().UnixNano()),
		VisitorID: e.VisitorID,
		Events:    []events.Event{e},
		StartedAt: e.CreatedAt,
		EndedAt:   e.CreatedAt,
		EntryURL:  e.URL,
		ExitURL:   e.URL,
	}
}

func (s *Session) append(e events.Event) {
	s.Events = append(s.Events, e)
	s.EndedAt = e.CreatedAt
	s.ExitURL = e.URL
}

// PageViews returns the session's page-view events in order.
func (s Session) PageViews() []events.Event {
	var views []events.Event
	for _, e := range s.Events {
		if e.IsPageView() {
			views = append(views, e)
		}
	}
	return views
}
