package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the roll-call backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Attendance  AttendanceConfig  `mapstructure:"attendance"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Seed        SeedConfig        `mapstructure:"seed"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// AttendanceConfig tunes the check-in engine.
type AttendanceConfig struct {
	// QRSecret signs rotated session tokens. Distinct from the access token
	// secret so one compromise does not expose the other surface.
	QRSecret string `mapstructure:"qr_secret"`
	// QRTokenTTL bounds how long a displayed code validates.
	QRTokenTTL time.Duration `mapstructure:"qr_ttl"`
	// QRRefreshEvery is the background rotation cadence. It must stay below
	// QRTokenTTL or displayed codes go stale between sweeps.
	QRRefreshEvery time.Duration `mapstructure:"qr_refresh"`
	DefaultRadiusM int           `mapstructure:"default_radius_m"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
	AuditCleanupCron   string `mapstructure:"audit_cleanup_cron"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SeedConfig toggles demo data creation at startup.
type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ROLLCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Attendance.QRRefreshEvery >= c.Attendance.QRTokenTTL {
		return fmt.Errorf("config: attendance.qr_refresh (%s) must be shorter than attendance.qr_ttl (%s)",
			c.Attendance.QRRefreshEvery, c.Attendance.QRTokenTTL)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/rollcall.sqlite")

	v.SetDefault("auth.jwt.issuer", "rollcall")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")

	v.SetDefault("attendance.qr_ttl", "30s")
	v.SetDefault("attendance.qr_refresh", "25s")
	v.SetDefault("attendance.default_radius_m", 100)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.audit_retention_days", 90)
	v.SetDefault("maintenance.audit_cleanup_cron", "@daily")

	v.SetDefault("monitoring.prometheus.enabled", true)

	v.SetDefault("seed.enabled", false)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
