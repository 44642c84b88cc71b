package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "rollcall-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 2*time.Hour, cfg.Auth.JWT.TTL)

	require.Equal(t, "qr-secret", cfg.Attendance.QRSecret)
	require.Equal(t, 45*time.Second, cfg.Attendance.QRTokenTTL)
	require.Equal(t, 40*time.Second, cfg.Attendance.QRRefreshEvery)
	require.Equal(t, 150, cfg.Attendance.DefaultRadiusM)

	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "@midnight", cfg.Maintenance.AuditCleanupCron)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Seed.Enabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 30*time.Second, cfg.Attendance.QRTokenTTL)
	require.Equal(t, 25*time.Second, cfg.Attendance.QRRefreshEvery)
	require.Equal(t, 100, cfg.Attendance.DefaultRadiusM)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	require.True(t, cfg.Maintenance.Enabled)
	require.False(t, cfg.Seed.Enabled)
}

func TestLoadConfigRejectsRefreshSlowerThanTTL(t *testing.T) {
	dir := t.TempDir()
	contents := []byte("attendance:\n  qr_ttl: 30s\n  qr_refresh: 30s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
}
