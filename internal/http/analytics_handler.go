package http

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"vantage/internal/attribution"
	"vantage/internal/channels"
	"vantage/internal/gateway"
)

// AnalyticsHandler serves the analytics query endpoints.
type AnalyticsHandler struct {
	gateway *gateway.Gateway
	logger  *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(gw *gateway.Gateway, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{gateway: gw, logger: logger}
}

// labeledChannelStat decorates a channel tally with a display label for the
// dashboard.
type labeledChannelStat struct {
	attribution.ChannelStat
	Label string `json:"label"`
}

func labelStats(stats []attribution.ChannelStat) []labeledChannelStat {
	labeled := make([]labeledChannelStat, len(stats))
	for i, s := range stats {
		labeled[i] = labeledChannelStat{ChannelStat: s, Label: channels.DisplayName(s.Channel)}
	}
	return labeled
}

// Attribution handles GET /api/v1/websites/:id/attribution
func (h *AnalyticsHandler) Attribution(c *fiber.Ctx) error {
	websiteID, tf, err := parseScope(c)
	if err != nil {
		return badRequest(c, err)
	}

	lookbackDays := c.QueryInt("lookback_days", 0)
	result, err := h.gateway.Attribution(c.UserContext(), gateway.AttributionRequest{
		WebsiteID:    websiteID,
		From:         tf.from,
		To:           tf.to,
		SiteDomain:   c.Query("domain"),
		GoalEvent:    c.Query("goal_event"),
		LookbackDays: lookbackDays,
	})
	if err != nil {
		return h.queryError(c, err)
	}

	return c.JSON(fiber.Map{
		"first_touch": labelStats(result.FirstTouch),
		"last_touch":  labelStats(result.LastTouch),
		"summary":     result.Summary,
	})
}

// Journeys handles GET /api/v1/websites/:id/journeys
func (h *AnalyticsHandler) Journeys(c *fiber.Ctx) error {
	websiteID, tf, err := parseScope(c)
	if err != nil {
		return badRequest(c, err)
	}

	result, err := h.gateway.Journeys(c.UserContext(), gateway.JourneysRequest{
		WebsiteID:         websiteID,
		From:              tf.from,
		To:                tf.to,
		CollapseSelfLoops: c.QueryBool("collapse_self_loops", false),
	})
	if err != nil {
		return h.queryError(c, err)
	}
	return c.JSON(result)
}

// Retention handles GET /api/v1/websites/:id/retention
func (h *AnalyticsHandler) Retention(c *fiber.Ctx) error {
	websiteID, tf, err := parseScope(c)
	if err != nil {
		return badRequest(c, err)
	}

	offsets, err := parseOffsets(c.Query("day_offsets"))
	if err != nil {
		return badRequest(c, err)
	}

	result, err := h.gateway.Retention(c.UserContext(), gateway.RetentionRequest{
		WebsiteID:   websiteID,
		From:        tf.from,
		To:          tf.to,
		DayOffsets:  offsets,
		HorizonDays: c.QueryInt("retention_horizon_days", 0),
	})
	if err != nil {
		return h.queryError(c, err)
	}
	return c.JSON(result)
}

// Forms handles GET /api/v1/websites/:id/forms
func (h *AnalyticsHandler) Forms(c *fiber.Ctx) error {
	websiteID, tf, err := parseScope(c)
	if err != nil {
		return badRequest(c, err)
	}

	result, err := h.gateway.Forms(c.UserContext(), gateway.FormsRequest{
		WebsiteID: websiteID,
		From:      tf.from,
		To:        tf.to,
	})
	if err != nil {
		return h.queryError(c, err)
	}
	return c.JSON(fiber.Map{"forms": result})
}

// Dashboard handles GET /api/v1/websites/:id/dashboard
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	websiteID, tf, err := parseScope(c)
	if err != nil {
		return badRequest(c, err)
	}

	result, err := h.gateway.Dashboard(c.UserContext(), gateway.DashboardRequest{
		WebsiteID:  websiteID,
		From:       tf.from,
		To:         tf.to,
		SiteDomain: c.Query("domain"),
		GoalEvent:  c.Query("goal_event"),
	})
	if err != nil {
		return h.queryError(c, err)
	}
	return c.JSON(result)
}

// queryError maps the gateway error taxonomy to HTTP statuses. Invalid
// parameters are the caller's fault; event log failures are retryable.
func (h *AnalyticsHandler) queryError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gateway.ErrInvalidRange):
		return badRequest(c, err)
	case errors.Is(err, gateway.ErrUpstreamUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":     "event log temporarily unavailable",
			"retryable": true,
		})
	default:
		h.logger.Error("Analytics query failed", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

type scopeRange struct {
	from time.Time
	to   time.Time
}

func parseWebsiteID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid website id")
	}
	return uint(id), nil
}

// parseScope extracts the website id and date range shared by all analytics
// endpoints. Dates accept RFC 3339 or plain calendar days.
func parseScope(c *fiber.Ctx) (uint, scopeRange, error) {
	id, err := parseWebsiteID(c)
	if err != nil {
		return 0, scopeRange{}, err
	}

	from, err := parseDate(c.Query("from"))
	if err != nil {
		return 0, scopeRange{}, errors.New("invalid or missing from date")
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		return 0, scopeRange{}, errors.New("invalid or missing to date")
	}

	return id, scopeRange{from: from, to: to}, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func parseOffsets(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	offsets := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.New("invalid day_offsets: expected comma-separated integers")
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}
