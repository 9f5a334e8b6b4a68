package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 40, cfg.Attendance.RetentionDays)
	assert.Equal(t, 300, cfg.Attendance.SweepBatchSize)
	assert.Equal(t, 24*time.Hour, cfg.Attendance.SweepInterval)
	assert.Equal(t, []string{"sunday"}, cfg.Attendance.RestDays)
	assert.False(t, cfg.Attendance.CheckOutRequiresFence)
	assert.True(t, cfg.Attendance.EnforceWorkWindow)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("ATTENDANCE_REST_DAYS", " Saturday, SUNDAY ,")
	t.Setenv("ATTENDANCE_CHECKOUT_REQUIRES_GEOFENCE", "true")
	t.Setenv("ATTENDANCE_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"saturday", "sunday"}, cfg.Attendance.RestDays)
	assert.True(t, cfg.Attendance.CheckOutRequiresFence)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"DB_DRIVER": "memory"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql", "JWT_SECRET_KEY": "s"}},
		{"postgres without password", map[string]string{"DB_DRIVER": "postgres", "JWT_SECRET_KEY": "s"}},
		{"bad timezone", map[string]string{"DB_DRIVER": "memory", "JWT_SECRET_KEY": "s", "ATTENDANCE_TIMEZONE": "Mars/Olympus"}},
		{"bad retention", map[string]string{"DB_DRIVER": "memory", "JWT_SECRET_KEY": "s", "ATTENDANCE_RETENTION_DAYS": "0"}},
		{"bad duration", map[string]string{"DB_DRIVER": "memory", "JWT_SECRET_KEY": "s", "DB_QUERY_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET_KEY", "")
			t.Setenv("DB_PASSWORD", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{User: "app", Password: "pw", Host: "db", Port: 5432, Name: "attendance", SSLMode: "disable"}}
	assert.Equal(t, "postgres://app:pw@db:5432/attendance?sslmode=disable", cfg.DatabaseURL())
}
