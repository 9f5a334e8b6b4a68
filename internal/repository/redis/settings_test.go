package redis_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/memory"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepository counts reads that reach the store.
type countingRepository struct {
	settings.SettingsRepository
	geofenceReads  atomic.Int32
	timetableReads atomic.Int32
}

func (c *countingRepository) GetGeofence(ctx context.Context) (*settings.GeofenceConfig, error) {
	c.geofenceReads.Add(1)
	return c.SettingsRepository.GetGeofence(ctx)
}

func (c *countingRepository) GetTimetable(ctx context.Context) (settings.Timetable, error) {
	c.timetableReads.Add(1)
	return c.SettingsRepository.GetTimetable(ctx)
}

func TestNewSettingsCache_NilClientReturnsStore(t *testing.T) {
	store := memory.NewSettingsRepository()
	assert.Same(t, store, redis.NewSettingsCache(store, nil, time.Minute))
}

func TestNewClient_EmptyAddrDisablesCache(t *testing.T) {
	rdb, err := redis.NewClient(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestSettingsCache_FallsBackWhenRedisIsDown(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	store := &countingRepository{SettingsRepository: memory.NewSettingsRepository()}
	cache := redis.NewSettingsCache(store, rdb, time.Minute)
	ctx := context.Background()

	_, err := cache.UpsertGeofence(ctx, settings.GeofenceConfig{CenterLatitude: 1, CenterLongitude: 2, RadiusMeters: 100})
	require.NoError(t, err)

	cfg, err := cache.GetGeofence(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 100.0, cfg.RadiusMeters)
	assert.Equal(t, int32(1), store.geofenceReads.Load())
}

func TestSettingsCache_ReadThroughAndInvalidate(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Del(ctx, "attendance:settings:geofence", "attendance:settings:timetable").Err())

	store := &countingRepository{SettingsRepository: memory.NewSettingsRepository()}
	cache := redis.NewSettingsCache(store, rdb, time.Minute)

	t.Run("missing geofence is cached as nil", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			cfg, err := cache.GetGeofence(ctx)
			require.NoError(t, err)
			assert.Nil(t, cfg)
		}
		assert.Equal(t, int32(1), store.geofenceReads.Load())
	})

	t.Run("write invalidates geofence", func(t *testing.T) {
		_, err := cache.UpsertGeofence(ctx, settings.GeofenceConfig{CenterLatitude: -6.2, CenterLongitude: 106.8, RadiusMeters: 150})
		require.NoError(t, err)

		cfg, err := cache.GetGeofence(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, 150.0, cfg.RadiusMeters)
		assert.Equal(t, int32(2), store.geofenceReads.Load())
	})

	t.Run("timetable round trips through the cache", func(t *testing.T) {
		_, err := cache.UpsertScheduleEntry(ctx, settings.ScheduleEntry{Day: settings.Friday, WorkStart: 420, LateThreshold: 435, WorkEnd: 900})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			timetable, err := cache.GetTimetable(ctx)
			require.NoError(t, err)
			require.Contains(t, timetable, settings.Friday)
			assert.Equal(t, "07:15", timetable[settings.Friday].LateThreshold.String())
		}
		assert.Equal(t, int32(1), store.timetableReads.Load())
	})
}
