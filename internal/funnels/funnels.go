// Package funnels aggregates form interaction events into per-form
// view/submission funnels.
package funnels

import (
	"sort"

	"vantage/internal/events"
)

// FormStat is one form's funnel for the queried range.
type FormStat struct {
	FormID         string  `json:"form_id"`
	Views          int64   `json:"views"`
	Submissions    int64   `json:"submissions"`
	Abandons       int64   `json:"abandons"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Compute aggregates form_view and form_submit events per form id. The form
// id comes from the event property bag with an explicit fallback; a missing
// key never aborts the aggregation. ConversionRate is a percentage, 0 when
// there are no views.
func Compute(evts []events.Event) []FormStat {
	type tally struct {
		views       int64
		submissions int64
	}
	byForm := make(map[string]*tally)

	track := func(formID string) *tally {
		t, ok := byForm[formID]
		if !ok {
			t = &tally{}
			byForm[formID] = t
		}
		return t
	}

	for _, e := range evts {
		switch e.EventName {
		case events.EventNameFormView:
			track(e.FormID()).views++
		case events.EventNameFormSubmit:
			track(e.FormID()).submissions++
		}
	}

	result := make([]FormStat, 0, len(byForm))
	for formID, t := range byForm {
		stat := FormStat{
			FormID:      formID,
			Views:       t.views,
			Submissions: t.submissions,
		}
		if t.views > t.submissions {
			stat.Abandons = t.views - t.submissions
		}
		if t.views > 0 {
			stat.ConversionRate = float64(t.submissions) / float64(t.views) * 100
		}
		result = append(result, stat)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Views != result[j].Views {
			return result[i].Views > result[j].Views
		}
		return result[i].FormID < result[j].FormID
	})
	return result
}
