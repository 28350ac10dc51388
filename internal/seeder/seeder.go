// Package seeder generates realistic demo event data so the analytics can be
// exercised against a populated database.
package seeder

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"

	"vantage/internal/events"
)

const insertBatchSize = 500

// Seeder writes synthetic visitor journeys into the event log.
type Seeder struct {
	db      *gorm.DB
	logger  *slog.Logger
	Days    int
	PerDay  int
	Website uint
}

// NewSeeder creates a Seeder targeting one website.
func NewSeeder(db *gorm.DB, logger *slog.Logger, websiteID uint, days, visitorsPerDay int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if days <= 0 {
		days = 30
	}
	if visitorsPerDay <= 0 {
		visitorsPerDay = 50
	}
	return &Seeder{
		db:      db,
		logger:  logger,
		Website: websiteID,
		Days:    days,
		PerDay:  visitorsPerDay,
	}
}

// journeyTemplate is one plausible path through the site with the odds of
// each followup action.
type journeyTemplate struct {
	pages         []string
	referrer      string
	utmSource     string
	utmMedium     string
	utmCampaign   string
	convertChance float64
	formChance    float64
}

var templates = []journeyTemplate{
	{
		pages:         []string{"/", "/pricing", "/signup"},
		referrer:      "https://www.google.com/",
		convertChance: 0.25,
	},
	{
		pages:         []string{"/blog/launch", "/", "/pricing"},
		referrer:      "https://news.ycombinator.com/",
		convertChance: 0.08,
	},
	{
		pages:         []string{"/", "/docs", "/docs/install"},
		referrer:      "https://www.reddit.com/r/selfhosted",
		convertChance: 0.05,
		formChance:    0.10,
	},
	{
		pages:         []string{"/pricing", "/signup"},
		utmSource:     "newsletter",
		utmMedium:     "email",
		utmCampaign:   "spring-launch",
		convertChance: 0.35,
	},
	{
		pages:         []string{"/"},
		convertChance: 0.02,
	},
	{
		pages:      []string{"/", "/contact"},
		referrer:   "https://duckduckgo.com/",
		formChance: 0.60,
	},
}

// Seed populates the event log with Days worth of synthetic journeys ending
// now. Repeat visitors return on later days so retention cohorts have
// something to measure.
func (s *Seeder) Seed() error {
	start := time.Now()
	s.logger.Info("Seeding demo events",
		slog.Uint64("website_id", uint64(s.Website)),
		slog.Int("days", s.Days),
		slog.Int("visitors_per_day", s.PerDay))

	now := time.Now().UTC()
	var batch []events.Event
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.db.CreateInBatches(batch, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert seeded events: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for dayOffset := s.Days; dayOffset > 0; dayOffset-- {
		day := now.AddDate(0, 0, -dayOffset)

		for v := 0; v < s.PerDay; v++ {
			visitor := fmt.Sprintf("seed-%s-%03d", day.Format("20060102"), v)
			batch = append(batch, s.journey(visitor, day)...)

			// Roughly a third of visitors come back within the week.
			if rand.Float64() < 0.3 {
				returnDay := day.AddDate(0, 0, 1+rand.IntN(6))
				if returnDay.Before(now) {
					batch = append(batch, s.journey(visitor, returnDay)...)
				}
			}

			if len(batch) >= insertBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	s.logger.Info("Seeding completed",
		slog.Int("events", total),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// journey renders one template as a burst of events inside a single session.
func (s *Seeder) journey(visitor string, day time.Time) []events.Event {
	tpl := templates[rand.IntN(len(templates))]
	at := time.Date(day.Year(), day.Month(), day.Day(),
		8+rand.IntN(12), rand.IntN(60), rand.IntN(60), 0, time.UTC)

	var out []events.Event
	for i, page := range tpl.pages {
		e := events.Event{
			WebsiteID: s.Website,
			VisitorID: visitor,
			EventName: events.EventNamePageView,
			URL:       page,
			CreatedAt: at,
		}
		// Referrer and campaign data only arrive on the landing page.
		if i == 0 {
			e.Referrer = tpl.referrer
			e.UTMSource = tpl.utmSource
			e.UTMMedium = tpl.utmMedium
			e.UTMCampaign = tpl.utmCampaign
		}
		out = append(out, e)
		at = at.Add(time.Duration(30+rand.IntN(180)) * time.Second)
	}

	if rand.Float64() < tpl.formChance {
		out = append(out, events.Event{
			WebsiteID:  s.Website,
			VisitorID:  visitor,
			EventName:  events.EventNameFormView,
			URL:        "/contact",
			Properties: events.Properties{"form_id": "contact"},
			CreatedAt:  at,
		})
		at = at.Add(time.Duration(20+rand.IntN(90)) * time.Second)
		if rand.Float64() < 0.5 {
			out = append(out, events.Event{
				WebsiteID:  s.Website,
				VisitorID:  visitor,
				EventName:  events.EventNameFormSubmit,
				URL:        "/contact",
				Properties: events.Properties{"form_id": "contact"},
				CreatedAt:  at,
			})
			at = at.Add(time.Duration(10+rand.IntN(60)) * time.Second)
		}
	}

	if rand.Float64() < tpl.convertChance {
		out = append(out, events.Event{
			WebsiteID: s.Website,
			VisitorID: visitor,
			EventName: events.DefaultGoalEvent,
			URL:       "/thanks",
			CreatedAt: at,
		})
	}
	return out
}
