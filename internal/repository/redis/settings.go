package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "attendance:settings:"

func geofenceKey() string             { return keyPrefix + "geofence" }
func timetableKey() string            { return keyPrefix + "timetable" }
func exceptionKey(date string) string { return keyPrefix + "exception:" + date }

// settingsCache is a read-through cache in front of the settings store. Every check-in reads the
// geofence, the timetable and the day's exception, while admin writes are rare. Redis failures
// fall back to the store; writes go to the store first and then drop the affected keys.
type settingsCache struct {
	next settings.SettingsRepository
	rdb  *goredis.Client
	ttl  time.Duration
}

// NewSettingsCache wraps next. With a nil client it returns next unchanged.
func NewSettingsCache(next settings.SettingsRepository, rdb *goredis.Client, ttl time.Duration) settings.SettingsRepository {
	if rdb == nil {
		return next
	}
	return &settingsCache{next: next, rdb: rdb, ttl: ttl}
}

// readThrough decodes key into dst, or loads it from the store and caches the JSON form.
// A nil value is cached as JSON null so unconfigured settings are not re-read on every request.
func readThrough[T any](ctx context.Context, c *settingsCache, key string, load func(context.Context) (T, error)) (T, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		slog.Warn("discarding undecodable settings cache entry", "key", key)
	} else if !errors.Is(err, goredis.Nil) {
		slog.Warn("settings cache read failed", "key", key, "error", err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		slog.Warn("settings cache write failed", "key", key, "error", err)
	}
	return value, nil
}

func (c *settingsCache) invalidate(ctx context.Context, keys ...string) {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		// Stale entries expire after the TTL.
		slog.Error("settings cache invalidation failed", "keys", keys, "error", err)
	}
}

// GetGeofence implements settings.SettingsRepository.
func (c *settingsCache) GetGeofence(ctx context.Context) (*settings.GeofenceConfig, error) {
	return readThrough(ctx, c, geofenceKey(), c.next.GetGeofence)
}

// UpsertGeofence implements settings.SettingsRepository.
func (c *settingsCache) UpsertGeofence(ctx context.Context, cfg settings.GeofenceConfig) (settings.GeofenceConfig, error) {
	saved, err := c.next.UpsertGeofence(ctx, cfg)
	if err != nil {
		return saved, err
	}
	c.invalidate(ctx, geofenceKey())
	return saved, nil
}

// GetTimetable implements settings.SettingsRepository.
func (c *settingsCache) GetTimetable(ctx context.Context) (settings.Timetable, error) {
	return readThrough(ctx, c, timetableKey(), c.next.GetTimetable)
}

// UpsertScheduleEntry implements settings.SettingsRepository.
func (c *settingsCache) UpsertScheduleEntry(ctx context.Context, entry settings.ScheduleEntry) (settings.ScheduleEntry, error) {
	saved, err := c.next.UpsertScheduleEntry(ctx, entry)
	if err != nil {
		return saved, err
	}
	c.invalidate(ctx, timetableKey())
	return saved, nil
}

// DeleteScheduleEntry implements settings.SettingsRepository.
func (c *settingsCache) DeleteScheduleEntry(ctx context.Context, day settings.Weekday) error {
	if err := c.next.DeleteScheduleEntry(ctx, day); err != nil {
		return err
	}
	c.invalidate(ctx, timetableKey())
	return nil
}

// GetException implements settings.SettingsRepository.
func (c *settingsCache) GetException(ctx context.Context, date string) (*settings.CalendarException, error) {
	return readThrough(ctx, c, exceptionKey(date), func(ctx context.Context) (*settings.CalendarException, error) {
		return c.next.GetException(ctx, date)
	})
}

// ListExceptions is admin-only and always reads the store.
func (c *settingsCache) ListExceptions(ctx context.Context, filter settings.CalendarExceptionFilter) ([]settings.CalendarException, error) {
	return c.next.ListExceptions(ctx, filter)
}

// CreateException implements settings.SettingsRepository.
func (c *settingsCache) CreateException(ctx context.Context, exception settings.CalendarException) (settings.CalendarException, error) {
	created, err := c.next.CreateException(ctx, exception)
	if err != nil {
		return created, err
	}
	c.invalidate(ctx, exceptionKey(exception.Date))
	return created, nil
}

// DeleteException implements settings.SettingsRepository.
func (c *settingsCache) DeleteException(ctx context.Context, date string) error {
	if err := c.next.DeleteException(ctx, date); err != nil {
		return err
	}
	c.invalidate(ctx, exceptionKey(date))
	return nil
}

// NewClient connects to addr and pings it. An empty addr disables caching and returns nil, nil.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return rdb, nil
}
