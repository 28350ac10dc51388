// Package retention buckets visitors into first-seen-day cohorts and
// computes N-day return rates.
//
// Cohort membership is fixed at the visitor's first-seen calendar day and
// never changes. Rates are always in [0, 1]; an empty cohort yields 0, never
// a division by zero.
package retention

import (
	"sort"
	"time"

	"vantage/internal/events"
	"vantage/internal/timeframe"
)

// DefaultDayOffsets are the return-day offsets reported when none are given.
var DefaultDayOffsets = []int{1, 7, 30}

// CohortPoint is one cohort's retention at a single day offset.
type CohortPoint struct {
	Day      int     `json:"day"`
	Retained int64   `json:"retained"`
	Rate     float64 `json:"rate"`
}

// CohortData is one first-seen-day cohort with its retention points.
type CohortData struct {
	CohortDate string        `json:"cohort_date"`
	CohortSize int64         `json:"cohort_size"`
	Points     []CohortPoint `json:"points"`
}

// SummaryPoint is the average retention across cohorts at one day offset.
// Cohorts too young to have reached the offset are excluded from the
// average, not counted as zero.
type SummaryPoint struct {
	Day         int     `json:"day"`
	AverageRate float64 `json:"average_rate"`
	Cohorts     int     `json:"cohorts"`
}

// Params configures a cohort computation.
type Params struct {
	// Range selects which cohort days are reported. First-seen dates are
	// computed from the full event slice regardless.
	Range timeframe.TimeFrame

	// DayOffsets are the offsets N to report. Defaults to
	// DefaultDayOffsets. Offsets must be non-negative; validation happens
	// at the gateway before events are fetched.
	DayOffsets []int

	// Now bounds which cohorts are old enough to enter each summary
	// average.
	Now time.Time
}

// Result holds the cohorts and the per-offset summary.
type Result struct {
	Cohorts []CohortData   `json:"cohorts"`
	Summary []SummaryPoint `json:"summary"`
}

// Compute derives retention cohorts from raw events. Events may be unsorted
// and must cover the effective (horizon-clamped) window so first-seen dates
// are faithful.
func Compute(evts []events.Event, params Params) Result {
	offsets := params.DayOffsets
	if len(offsets) == 0 {
		offsets = DefaultDayOffsets
	}

	firstSeen := make(map[string]time.Time)
	active := make(map[string]map[string]bool)
	for _, e := range evts {
		day := timeframe.DayOf(e.CreatedAt)
		if seen, ok := firstSeen[e.VisitorID]; !ok || day.Before(seen) {
			firstSeen[e.VisitorID] = day
		}
		key := timeframe.DayKey(e.CreatedAt)
		if active[e.VisitorID] == nil {
			active[e.VisitorID] = make(map[string]bool)
		}
		active[e.VisitorID][key] = true
	}

	cohortMembers := make(map[time.Time][]string)
	for visitor, day := range firstSeen {
		if day.Before(timeframe.DayOf(params.Range.From)) || !day.Before(params.Range.To) {
			continue
		}
		cohortMembers[day] = append(cohortMembers[day], visitor)
	}

	cohortDays := make([]time.Time, 0, len(cohortMembers))
	for day := range cohortMembers {
		cohortDays = append(cohortDays, day)
	}
	sort.Slice(cohortDays, func(i, j int) bool { return cohortDays[i].Before(cohortDays[j]) })

	today := timeframe.DayOf(params.Now)
	cohorts := make([]CohortData, 0, len(cohortDays))
	sums := make(map[int]float64)
	counts := make(map[int]int)

	for _, day := range cohortDays {
		members := cohortMembers[day]
		cohort := CohortData{
			CohortDate: timeframe.DayKey(day),
			CohortSize: int64(len(members)),
		}

		for _, offset := range offsets {
			returnDay := timeframe.DayKey(day.AddDate(0, 0, offset))
			var retained int64
			for _, visitor := range members {
				if active[visitor][returnDay] {
					retained++
				}
			}

			rate := 0.0
			if cohort.CohortSize > 0 {
				rate = float64(retained) / float64(cohort.CohortSize)
			}
			cohort.Points = append(cohort.Points, CohortPoint{
				Day:      offset,
				Retained: retained,
				Rate:     rate,
			})

			// Only cohorts that have reached day N by now enter the average.
			if !day.AddDate(0, 0, offset).After(today) {
				sums[offset] += rate
				counts[offset]++
			}
		}

		cohorts = append(cohorts, cohort)
	}

	summary := make([]SummaryPoint, 0, len(offsets))
	for _, offset := range offsets {
		point := SummaryPoint{Day: offset, Cohorts: counts[offset]}
		if counts[offset] > 0 {
			point.AverageRate = sums[offset] / float64(counts[offset])
		}
		summary = append(summary, point)
	}

	return Result{Cohorts: cohorts, Summary: summary}
}
