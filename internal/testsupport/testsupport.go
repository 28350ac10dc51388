// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"vantage/internal/config"
	"vantage/internal/events"
)

// SetupTestDB opens an isolated in-memory SQLite database migrated with the
// event schema. Each test gets its own database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&events.Event{}))
	return db
}

// TestConfig returns a config suitable for unit tests, without touching the
// process environment or the global config singleton.
func TestConfig() *config.Config {
	return &config.Config{
		AppName:                 "vantage",
		Environment:             config.Test,
		LogLevel:                config.LogLevelError,
		SessionTimeoutSeconds:   1800,
		AttributionLookbackDays: 90,
		RetentionDayOffsets:     []int{1, 7, 30},
		JourneyMaxHops:          10,
		JourneyTopPathsLimit:    50,
		JourneyRenderedEdges:    15,
		DatabaseType:            config.SQLiteDatabase,
	}
}
