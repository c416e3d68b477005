package weather

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/plugscheduler/internal/types"
)

func TestCacheStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_cache.json")
	store := NewCacheStore(path)

	temp := 42.5
	want := types.WeatherSnapshot{
		FetchedAt: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		Provider:  "synthetic",
		Current:   types.CurrentConditions{TemperatureF: &temp, Condition: "clear"},
		Hours:     []types.HourlyForecast{{TemperatureF: 44, Condition: "clear"}},
	}

	require.NoError(t, store.Save(want))

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok, "expected ok=true after a successful save")

	assert.True(t, got.FetchedAt.Equal(want.FetchedAt))
	assert.Equal(t, want.Provider, got.Provider)
	require.NotNil(t, got.Current.TemperatureF)
	assert.Equal(t, temp, *got.Current.TemperatureF)
	require.Len(t, got.Hours, 1)
	assert.Equal(t, float64(44), got.Hours[0].TemperatureF)
}

func TestCacheStoreLoadMissingFileIsNotAnError(t *testing.T) {
	store := NewCacheStore(filepath.Join(t.TempDir(), "does-not-exist.json"))

	_, ok, err := store.Load()
	require.NoError(t, err, "expected a missing cache file to not be an error")
	assert.False(t, ok, "expected ok=false for a missing cache file")
}
