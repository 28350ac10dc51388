package retention_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/internal/events"
	"vantage/internal/retention"
	"vantage/internal/timeframe"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mustRange(t *testing.T, from, to time.Time) timeframe.TimeFrame {
	t.Helper()
	tf, err := timeframe.New(from, to)
	require.NoError(t, err)
	return tf
}

func activity(visitor string, at time.Time) events.Event {
	return events.Event{
		WebsiteID: 1, VisitorID: visitor,
		EventName: events.EventNamePageView, URL: "/", CreatedAt: at,
	}
}

func TestComputeDaySevenRetention(t *testing.T) {
	// Ten visitors first seen on Jan 1, three of them return on Jan 8.
	var evts []events.Event
	for i := 0; i < 10; i++ {
		evts = append(evts, activity(fmt.Sprintf("v%d", i), jan1.Add(10*time.Hour)))
	}
	for i := 0; i < 3; i++ {
		evts = append(evts, activity(fmt.Sprintf("v%d", i), jan1.AddDate(0, 0, 7).Add(15*time.Hour)))
	}

	result := retention.Compute(evts, retention.Params{
		Range:      mustRange(t, jan1, jan1.AddDate(0, 0, 2)),
		DayOffsets: []int{7},
		Now:        jan1.AddDate(0, 0, 40),
	})

	require.Len(t, result.Cohorts, 1)
	cohort := result.Cohorts[0]
	assert.Equal(t, "2024-01-01", cohort.CohortDate)
	assert.EqualValues(t, 10, cohort.CohortSize)

	require.Len(t, cohort.Points, 1)
	assert.Equal(t, 7, cohort.Points[0].Day)
	assert.EqualValues(t, 3, cohort.Points[0].Retained)
	assert.InDelta(t, 0.3, cohort.Points[0].Rate, 1e-9)
}

func TestComputeCohortMembershipIsFirstSeenDay(t *testing.T) {
	// v1 appears on both Jan 1 and Jan 2: only the Jan 1 cohort may
	// contain it.
	evts := []events.Event{
		activity("v1", jan1),
		activity("v1", jan1.AddDate(0, 0, 1)),
		activity("v2", jan1.AddDate(0, 0, 1)),
	}

	result := retention.Compute(evts, retention.Params{
		Range:      mustRange(t, jan1, jan1.AddDate(0, 0, 5)),
		DayOffsets: []int{1},
		Now:        jan1.AddDate(0, 0, 40),
	})

	require.Len(t, result.Cohorts, 2)
	assert.Equal(t, "2024-01-01", result.Cohorts[0].CohortDate)
	assert.EqualValues(t, 1, result.Cohorts[0].CohortSize)
	assert.Equal(t, "2024-01-02", result.Cohorts[1].CohortDate)
	assert.EqualValues(t, 1, result.Cohorts[1].CohortSize, "v1 must not re-enter a later cohort")

	// v1 returned the day after first seen.
	assert.EqualValues(t, 1, result.Cohorts[0].Points[0].Retained)
	assert.EqualValues(t, 0, result.Cohorts[1].Points[0].Retained)
}

func TestComputeRatesStayInUnitInterval(t *testing.T) {
	// A visitor active on the return day twice still counts once.
	evts := []events.Event{
		activity("v1", jan1),
		activity("v1", jan1.AddDate(0, 0, 1).Add(2*time.Hour)),
		activity("v1", jan1.AddDate(0, 0, 1).Add(9*time.Hour)),
	}

	result := retention.Compute(evts, retention.Params{
		Range:      mustRange(t, jan1, jan1.AddDate(0, 0, 2)),
		DayOffsets: []int{1},
		Now:        jan1.AddDate(0, 0, 40),
	})

	require.Len(t, result.Cohorts, 1)
	point := result.Cohorts[0].Points[0]
	assert.EqualValues(t, 1, point.Retained)
	assert.Equal(t, 1.0, point.Rate)
}

func TestComputeEmptyEventsYieldEmptyCohorts(t *testing.T) {
	result := retention.Compute(nil, retention.Params{
		Range:      mustRange(t, jan1, jan1.AddDate(0, 0, 7)),
		DayOffsets: []int{1, 7},
		Now:        jan1.AddDate(0, 0, 40),
	})

	assert.Empty(t, result.Cohorts)
	require.Len(t, result.Summary, 2)
	assert.Equal(t, 0.0, result.Summary[0].AverageRate)
	assert.Equal(t, 0, result.Summary[0].Cohorts)
}

func TestComputeYoungCohortsExcludedFromSummary(t *testing.T) {
	// Two cohorts; "now" is 7 days after the first, so only the first has
	// reached day 7. The second cohort still reports its (zero) point but
	// must not drag the day-7 average down.
	evts := []events.Event{
		activity("v1", jan1),
		activity("v1", jan1.AddDate(0, 0, 7)),
		activity("v2", jan1.AddDate(0, 0, 5)),
	}

	result := retention.Compute(evts, retention.Params{
		Range:      mustRange(t, jan1, jan1.AddDate(0, 0, 6)),
		DayOffsets: []int{7},
		Now:        jan1.AddDate(0, 0, 7),
	})

	require.Len(t, result.Cohorts, 2)
	require.Len(t, result.Summary, 1)
	assert.Equal(t, 1, result.Summary[0].Cohorts, "only the mature cohort averages in")
	assert.Equal(t, 1.0, result.Summary[0].AverageRate)
}

func TestComputeCohortsOutsideRangeExcluded(t *testing.T) {
	evts := []events.Event{
		activity("early", jan1.AddDate(0, 0, -3)),
		activity("inside", jan1),
		activity("late", jan1.AddDate(0, 0, 10)),
	}

	result := retention.Compute(evts, retention.Params{
		Range:      mustRange(t, jan1, jan1.AddDate(0, 0, 5)),
		DayOffsets: []int{1},
		Now:        jan1.AddDate(0, 0, 40),
	})

	require.Len(t, result.Cohorts, 1)
	assert.Equal(t, "2024-01-01", result.Cohorts[0].CohortDate)
}

func TestComputeDefaultOffsets(t *testing.T) {
	result := retention.Compute([]events.Event{activity("v1", jan1)}, retention.Params{
		Range: mustRange(t, jan1, jan1.AddDate(0, 0, 1)),
		Now:   jan1.AddDate(0, 0, 60),
	})

	require.Len(t, result.Cohorts, 1)
	require.Len(t, result.Cohorts[0].Points, 3)
	assert.Equal(t, 1, result.Cohorts[0].Points[0].Day)
	assert.Equal(t, 7, result.Cohorts[0].Points[1].Day)
	assert.Equal(t, 30, result.Cohorts[0].Points[2].Day)
}
