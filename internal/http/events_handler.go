package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"vantage/internal/events"
)

// EventsHandler serves the raw event listing and goal discovery endpoints.
// The listing is what the external export formatter consumes.
type EventsHandler struct {
	store  *events.Store
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(store *events.Store, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{store: store, logger: logger}
}

// List handles GET /api/v1/websites/:id/events
func (h *EventsHandler) List(c *fiber.Ctx) error {
	websiteID, tf, err := parseScope(c)
	if err != nil {
		return badRequest(c, err)
	}

	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	result, err := h.store.ListEvents(c.UserContext(), events.ListFilters{
		WebsiteID:       websiteID,
		FromDate:        tf.from,
		ToDate:          tf.to,
		URLFilter:       c.Query("url"),
		UserFilter:      c.Query("visitor"),
		EventNameFilter: c.Query("event"),
		Limit:           limit,
		Offset:          c.QueryInt("offset", 0),
	})
	if err != nil {
		h.logger.Error("Failed to list events", slog.Any("error", err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":     "event log temporarily unavailable",
			"retryable": true,
		})
	}

	return c.JSON(fiber.Map{
		"events": result.Events,
		"total":  result.Total,
	})
}

// Goals handles GET /api/v1/websites/:id/goals
// Returns the distinct custom event names seen recently, so callers can
// offer goal choices for attribution queries.
func (h *EventsHandler) Goals(c *fiber.Ctx) error {
	websiteID, err := parseWebsiteID(c)
	if err != nil {
		return badRequest(c, err)
	}

	daysBack := c.QueryInt("days_back", 90)
	names, err := h.store.DistinctEventNames(c.UserContext(), websiteID, daysBack)
	if err != nil {
		h.logger.Error("Failed to list goal candidates", slog.Any("error", err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":     "event log temporarily unavailable",
			"retryable": true,
		})
	}

	return c.JSON(fiber.Map{"goals": names})
}
