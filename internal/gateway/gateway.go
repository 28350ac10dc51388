// Package gateway is the stateless query façade over the analytics engines.
//
// It validates request parameters synchronously before any event log work,
// fetches the complete event window for each analytic, and dispatches to the
// pure computation packages. Event log failures are surfaced whole: partial
// results are never returned as if complete.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vantage/internal/attribution"
	"vantage/internal/channels"
	"vantage/internal/config"
	"vantage/internal/events"
	"vantage/internal/funnels"
	"vantage/internal/journeys"
	"vantage/internal/pkg/async"
	"vantage/internal/retention"
	"vantage/internal/sessions"
	"vantage/internal/timeframe"
)

// Error taxonomy. Absence of data is not an error: a site with no events in
// range yields empty structures.
var (
	// ErrInvalidRange marks requests rejected before querying the event
	// log: end before start, or negative day offsets.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrUpstreamUnavailable marks event log failures. Retryable.
	ErrUpstreamUnavailable = errors.New("event log unavailable")
)

// Gateway dispatches analytics queries. It holds no per-request state; every
// derived structure is owned by the query execution that creates it.
type Gateway struct {
	log    events.Log
	cfg    *config.Config
	logger *slog.Logger
	pool   *async.Pool

	// Now is the clock used for horizon clamping and cohort-age checks.
	// Overridable in tests.
	Now func() time.Time
}

// New creates a Gateway on top of an event log.
func New(log events.Log, cfg *config.Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		log:    log,
		cfg:    cfg,
		logger: logger,
		pool:   async.NewPool(4),
		Now:    time.Now,
	}
}

func (g *Gateway) sessionTimeout() time.Duration {
	return time.Duration(g.cfg.GetSessionTimeout()) * time.Second
}

func (g *Gateway) classifier(siteDomain string) *channels.Classifier {
	if siteDomain == "" {
		siteDomain = g.cfg.Domain
	}
	return channels.New(siteDomain)
}

// fetch pulls the complete window from the event log, mapping failures to
// the retryable taxonomy error.
func (g *Gateway) fetch(ctx context.Context, websiteID uint, from, to time.Time) ([]events.Event, error) {
	evts, err := g.log.QueryEvents(ctx, websiteID, from, to, nil)
	if err != nil {
		g.logger.Error("Event log query failed",
			slog.Uint64("website_id", uint64(websiteID)),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return evts, nil
}

// ===== Attribution =====

// AttributionRequest queries first/last-touch conversion credit.
type AttributionRequest struct {
	WebsiteID    uint
	From         time.Time
	To           time.Time
	SiteDomain   string
	GoalEvent    string
	LookbackDays int
}

// AttributionSummary carries the aggregate totals for the response.
type AttributionSummary struct {
	TotalConversions int64 `json:"total_conversions"`
}

// AttributionResponse is the attribution query result.
type AttributionResponse struct {
	FirstTouch []attribution.ChannelStat `json:"first_touch"`
	LastTouch  []attribution.ChannelStat `json:"last_touch"`
	Summary    AttributionSummary        `json:"summary"`
}

// Attribution computes both attribution models for conversions in range.
// The fetched window is widened backwards by the lookback so touchpoints
// preceding the range still qualify.
func (g *Gateway) Attribution(ctx context.Context, req AttributionRequest) (*AttributionResponse, error) {
	tf, err := timeframe.New(req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	lookbackDays := req.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = g.cfg.AttributionLookbackDays
	}

	fetchFrom := tf.From.AddDate(0, 0, -lookbackDays)
	evts, err := g.fetch(ctx, req.WebsiteID, fetchFrom, tf.To)
	if err != nil {
		return nil, err
	}

	result := attribution.Compute(evts, g.classifier(req.SiteDomain), attribution.Params{
		Range:          tf,
		GoalEvent:      req.GoalEvent,
		LookbackDays:   lookbackDays,
		SessionTimeout: g.sessionTimeout(),
	})

	return &AttributionResponse{
		FirstTouch: result.FirstTouch,
		LastTouch:  result.LastTouch,
		Summary:    AttributionSummary{TotalConversions: result.TotalConversions},
	}, nil
}

// ===== Journeys =====

// JourneysRequest queries the navigation-flow graph.
type JourneysRequest struct {
	WebsiteID         uint
	From              time.Time
	To                time.Time
	CollapseSelfLoops bool
}

// Journeys builds the page-transition graph for sessions in range.
func (g *Gateway) Journeys(ctx context.Context, req JourneysRequest) (*journeys.Graph, error) {
	tf, err := timeframe.New(req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	evts, err := g.fetch(ctx, req.WebsiteID, tf.From, tf.To)
	if err != nil {
		return nil, err
	}

	sess := sessions.Build(evts, g.sessionTimeout())
	graph := journeys.Build(sess, journeys.Params{
		MaxHops:           g.cfg.JourneyMaxHops,
		TopPathsLimit:     g.cfg.JourneyTopPathsLimit,
		MaxRenderedEdges:  g.cfg.JourneyRenderedEdges,
		CollapseSelfLoops: req.CollapseSelfLoops,
	})
	return &graph, nil
}

// ===== Retention =====

// RetentionRequest queries first-seen-day cohorts and return rates.
type RetentionRequest struct {
	WebsiteID  uint
	From       time.Time
	To         time.Time
	DayOffsets []int

	// HorizonDays clamps the effective start of the window to the plan's
	// data-retention horizon. Zero means the configured default; negative
	// is rejected.
	HorizonDays int
}

// Retention computes retention cohorts. A supplied horizon silently moves
// the effective start forward rather than erroring, matching the reference
// plan-limit behavior.
func (g *Gateway) Retention(ctx context.Context, req RetentionRequest) (*retention.Result, error) {
	tf, err := timeframe.New(req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if req.HorizonDays < 0 {
		return nil, fmt.Errorf("%w: negative retention horizon %d", ErrInvalidRange, req.HorizonDays)
	}
	for _, offset := range req.DayOffsets {
		if offset < 0 {
			return nil, fmt.Errorf("%w: negative day offset %d", ErrInvalidRange, offset)
		}
	}

	horizonDays := req.HorizonDays
	if horizonDays == 0 {
		horizonDays = g.cfg.RetentionHorizonDays
	}
	now := g.Now().UTC()
	tf = tf.ClampToHorizon(now, horizonDays)

	offsets := req.DayOffsets
	if len(offsets) == 0 {
		offsets = g.cfg.RetentionDayOffsets
	}

	// Cohort membership depends on the visitor's first-ever event and
	// retained counts on activity at cohort_date + N, so the fetch window
	// is wider than the requested range: back to the horizon (or all
	// history) and forward far enough to cover the largest offset. The
	// range filter inside retention.Compute picks the reported cohorts.
	var fetchFrom time.Time
	if horizonDays > 0 {
		fetchFrom = now.AddDate(0, 0, -horizonDays)
	}
	maxOffset := 0
	for _, offset := range offsets {
		if offset > maxOffset {
			maxOffset = offset
		}
	}
	fetchTo := tf.To.AddDate(0, 0, maxOffset+1)

	evts, err := g.fetch(ctx, req.WebsiteID, fetchFrom, fetchTo)
	if err != nil {
		return nil, err
	}

	result := retention.Compute(evts, retention.Params{
		Range:      tf,
		DayOffsets: offsets,
		Now:        now,
	})
	return &result, nil
}

// ===== Forms =====

// FormsRequest queries per-form funnel stats.
type FormsRequest struct {
	WebsiteID uint
	From      time.Time
	To        time.Time
}

// Forms aggregates form views, submissions and abandons per form id.
func (g *Gateway) Forms(ctx context.Context, req FormsRequest) ([]funnels.FormStat, error) {
	tf, err := timeframe.New(req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	evts, err := g.fetch(ctx, req.WebsiteID, tf.From, tf.To)
	if err != nil {
		return nil, err
	}

	return funnels.Compute(evts), nil
}

// ===== Dashboard =====

// DashboardRequest runs all analytics for one dashboard view.
type DashboardRequest struct {
	WebsiteID  uint
	From       time.Time
	To         time.Time
	SiteDomain string
	GoalEvent  string
}

// DashboardResponse bundles the four independent analytics.
type DashboardResponse struct {
	Attribution *AttributionResponse `json:"attribution"`
	Journeys    *journeys.Graph      `json:"journeys"`
	Retention   *retention.Result    `json:"retention"`
	Forms       []funnels.FormStat   `json:"forms"`
}

// Dashboard executes the four sub-computations in parallel; they share no
// state and operate on their own immutable snapshots. Any sub-query failure
// fails the whole request.
func (g *Gateway) Dashboard(ctx context.Context, req DashboardRequest) (*DashboardResponse, error) {
	// Validate once up front so no goroutine starts on a bad range.
	if _, err := timeframe.New(req.From, req.To); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	tasks := []async.Task{
		{
			Name: "attribution",
			Execute: func() (interface{}, error) {
				return g.Attribution(ctx, AttributionRequest{
					WebsiteID:  req.WebsiteID,
					From:       req.From,
					To:         req.To,
					SiteDomain: req.SiteDomain,
					GoalEvent:  req.GoalEvent,
				})
			},
		},
		{
			Name: "journeys",
			Execute: func() (interface{}, error) {
				return g.Journeys(ctx, JourneysRequest{
					WebsiteID: req.WebsiteID,
					From:      req.From,
					To:        req.To,
				})
			},
		},
		{
			Name: "retention",
			Execute: func() (interface{}, error) {
				return g.Retention(ctx, RetentionRequest{
					WebsiteID: req.WebsiteID,
					From:      req.From,
					To:        req.To,
				})
			},
		},
		{
			Name: "forms",
			Execute: func() (interface{}, error) {
				return g.Forms(ctx, FormsRequest{
					WebsiteID: req.WebsiteID,
					From:      req.From,
					To:        req.To,
				})
			},
		},
	}

	results := g.pool.Execute(ctx, tasks)
	for _, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
	}

	return &DashboardResponse{
		Attribution: results["attribution"].Data.(*AttributionResponse),
		Journeys:    results["journeys"].Data.(*journeys.Graph),
		Retention:   results["retention"].Data.(*retention.Result),
		Forms:       results["forms"].Data.([]funnels.FormStat),
	}, nil
}
