// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName               string   `mapstructure:"appname"`
	AppPort               string   `mapstructure:"appport"`
	Environment           string   `mapstructure:"environment"`
	LogLevel              LogLevel `mapstructure:"loglevel"`
	Domain                string   `mapstructure:"domain"`
	APIKey                string   `mapstructure:"apikey"`
	SessionTimeoutSeconds int      `mapstructure:"sessiontimeoutseconds"`

	// Analytics defaults
	AttributionLookbackDays int   `mapstructure:"attributionlookbackdays"`
	RetentionHorizonDays    int   `mapstructure:"retentionhorizondays"`
	RetentionDayOffsets     []int `mapstructure:"retentiondayoffsets"`
	JourneyMaxHops          int   `mapstructure:"journeymaxhops"`
	JourneyTopPathsLimit    int   `mapstructure:"journeytoppathslimit"`
	JourneyRenderedEdges    int   `mapstructure:"journeyrenderededges"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "vantage")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("sessiontimeoutseconds", 1800)
		v.SetDefault("attributionlookbackdays", 90)
		v.SetDefault("retentionhorizondays", 0)
		v.SetDefault("retentiondayoffsets", []int{1, 7, 30})
		v.SetDefault("journeymaxhops", 10)
		v.SetDefault("journeytoppathslimit", 50)
		v.SetDefault("journeyrenderededges", 15)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)

		// Bind environment variables
		v.BindEnv("appname", "VANTAGE_APP_NAME")
		v.BindEnv("appport", "VANTAGE_APP_PORT")
		v.BindEnv("environment", "VANTAGE_ENV")
		v.BindEnv("loglevel", "VANTAGE_LOG_LEVEL")
		v.BindEnv("domain", "VANTAGE_DOMAIN")
		v.BindEnv("apikey", "VANTAGE_API_KEY")
		v.BindEnv("sessiontimeoutseconds", "VANTAGE_SESSION_TIMEOUT_SECONDS")
		v.BindEnv("attributionlookbackdays", "VANTAGE_ATTRIBUTION_LOOKBACK_DAYS")
		v.BindEnv("retentionhorizondays", "VANTAGE_RETENTION_HORIZON_DAYS")
		v.BindEnv("journeymaxhops", "VANTAGE_JOURNEY_MAX_HOPS")
		v.BindEnv("journeytoppathslimit", "VANTAGE_JOURNEY_TOP_PATHS_LIMIT")
		v.BindEnv("journeyrenderededges", "VANTAGE_JOURNEY_RENDERED_EDGES")
		v.BindEnv("storagepath", "VANTAGE_STORAGE_PATH")
		v.BindEnv("logsdir", "VANTAGE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "VANTAGE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "VANTAGE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "VANTAGE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "VANTAGE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "VANTAGE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "VANTAGE_DB_MAX_IDLE_CONNS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()

		// In production, analytics query endpoints must not run without an API key
		if cfg.IsProduction() && cfg.APIKey == "" {
			log.Fatal("Production requires VANTAGE_API_KEY to be set")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("sessiontimeoutseconds must be positive, got %d", c.SessionTimeoutSeconds)
	}
	if c.AttributionLookbackDays <= 0 {
		return fmt.Errorf("attributionlookbackdays must be positive, got %d", c.AttributionLookbackDays)
	}
	for _, offset := range c.RetentionDayOffsets {
		if offset < 0 {
			return fmt.Errorf("retentiondayoffsets must be non-negative, got %d", offset)
		}
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetSessionTimeout returns the analytics session timeout in seconds.
// Used for splitting a visitor's event stream into sessions after inactivity.
func (c *Config) GetSessionTimeout() int {
	return c.SessionTimeoutSeconds
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for test stability)
// - Development/Production: 10 (allows concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}
	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}
	return 5
}
