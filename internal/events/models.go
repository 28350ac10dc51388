package events

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Well-known event names.
const (
	EventNamePageView   = "pageview"
	EventNameFormView   = "form_view"
	EventNameFormSubmit = "form_submit"

	// DefaultGoalEvent is the goal name used when a caller does not supply one.
	DefaultGoalEvent = "conversion"
)

// Default values for absent or malformed per-event data.
const (
	UnknownChannel = "Unknown"
	UnknownMedium  = "unknown"
	UnknownFormID  = "unknown-form"
)

// Properties is a free-form string property bag attached to an event,
// stored as a JSON text column.
type Properties map[string]string

// Get returns the value for key, or fallback when the key is absent or empty.
// Callers must never assume a key is present.
func (p Properties) Get(key, fallback string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Value implements driver.Valuer.
func (p Properties) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event properties: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner. Malformed stored JSON degrades to an empty
// bag rather than failing the whole row.
func (p *Properties) Scan(value interface{}) error {
	if value == nil {
		*p = Properties{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		*p = Properties{}
		return nil
	}

	parsed := Properties{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		*p = Properties{}
		return nil
	}
	*p = parsed
	return nil
}

// Event represents a raw tracked interaction in the event log.
// Events are immutable facts: never mutated after ingestion.
// Ordering key is (VisitorID, CreatedAt).
type Event struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"`
	WebsiteID   uint       `gorm:"index:idx_website_created;not null"`
	VisitorID   string     `gorm:"index;size:64;not null"`
	SessionID   string     `gorm:"index"`
	EventName   string     `gorm:"index;not null"`
	URL         string     `gorm:"not null"`
	Referrer    string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	Properties  Properties `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"index:idx_website_created;not null"`
}

// IsPageView reports whether the event is a page view.
func (e Event) IsPageView() bool {
	return e.EventName == EventNamePageView
}

// FormID returns the form identifier from the event's property bag,
// falling back to UnknownFormID when absent.
func (e Event) FormID() string {
	return e.Properties.Get("form_id", UnknownFormID)
}

// HasUTM reports whether the event carries any UTM parameters.
func (e Event) HasUTM() bool {
	return e.UTMSource != "" || e.UTMMedium != "" || e.UTMCampaign != ""
}
