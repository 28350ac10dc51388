package events

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Log is the abstract event log contract the analytics engines consume.
// Implementations return events with CreatedAt in [start, end); unsorted
// output is acceptable, the consumers sort what they need.
type Log interface {
	QueryEvents(ctx context.Context, websiteID uint, start, end time.Time, filters *Filters) ([]Event, error)
	CountEvents(ctx context.Context, websiteID uint, eventName string, start, end time.Time) (int64, error)
}

// Filters narrows a QueryEvents call. Zero values mean "no filter".
type Filters struct {
	VisitorID string
	EventName string
}

// Store is the SQLite-backed event log.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on top of an open gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// QueryEvents returns events for a website with CreatedAt in [start, end).
func (s *Store) QueryEvents(ctx context.Context, websiteID uint, start, end time.Time, filters *Filters) ([]Event, error) {
	query := s.db.WithContext(ctx).Model(&Event{}).
		Where("website_id = ?", websiteID).
		Where("created_at >= ? AND created_at < ?", start, end)

	if filters != nil {
		if filters.VisitorID != "" {
			query = query.Where("visitor_id = ?", filters.VisitorID)
		}
		if filters.EventName != "" {
			query = query.Where("event_name = ?", filters.EventName)
		}
	}

	var result []Event
	if err := query.Order("created_at ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return result, nil
}

// CountEvents counts events for a website in [start, end), optionally
// restricted to a single event name.
func (s *Store) CountEvents(ctx context.Context, websiteID uint, eventName string, start, end time.Time) (int64, error) {
	query := s.db.WithContext(ctx).Model(&Event{}).
		Where("website_id = ?", websiteID).
		Where("created_at >= ? AND created_at < ?", start, end)

	if eventName != "" {
		query = query.Where("event_name = ?", eventName)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// ListFilters represents filtering options for the raw event listing.
type ListFilters struct {
	WebsiteID       uint
	FromDate        time.Time
	ToDate          time.Time
	URLFilter       string
	UserFilter      string
	EventNameFilter string
	Limit           int
	Offset          int
}

// ListResult represents a paginated events result.
type ListResult struct {
	Events []Event
	Total  int64
}

// ListEvents retrieves filtered and paginated raw events, newest first.
// Consumed by the export formatter and the events browser.
func (s *Store) ListEvents(ctx context.Context, filters ListFilters) (ListResult, error) {
	query := s.db.WithContext(ctx).Model(&Event{}).
		Where("website_id = ?", filters.WebsiteID).
		Where("created_at >= ? AND created_at < ?", filters.FromDate, filters.ToDate)

	if filters.URLFilter != "" {
		query = query.Where("url LIKE ?", "%"+filters.URLFilter+"%")
	}
	if filters.UserFilter != "" {
		query = query.Where("visitor_id LIKE ?", "%"+filters.UserFilter+"%")
	}
	if filters.EventNameFilter != "" {
		query = query.Where("event_name LIKE ?", "%"+filters.EventNameFilter+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return ListResult{}, fmt.Errorf("failed to count filtered events: %w", err)
	}

	var result []Event
	if err := query.Order("created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&result).Error; err != nil {
		return ListResult{}, fmt.Errorf("failed to list events: %w", err)
	}

	return ListResult{Events: result, Total: total}, nil
}

// DistinctEventNames returns the unique custom event names seen for a website
// in the last daysBack days, sorted ascending. Used for goal discovery.
func (s *Store) DistinctEventNames(ctx context.Context, websiteID uint, daysBack int) ([]string, error) {
	var names []string
	timeLimit := time.Now().UTC().AddDate(0, 0, -daysBack)

	err := s.db.WithContext(ctx).Model(&Event{}).
		Where("website_id = ? AND event_name != ? AND created_at >= ?", websiteID, EventNamePageView, timeLimit).
		Distinct("event_name").
		Order("event_name ASC").
		Pluck("event_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct event names: %w", err)
	}

	return names, nil
}
