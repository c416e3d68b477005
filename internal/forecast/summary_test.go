package forecast

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/plugscheduler/internal/types"
)

func sampleHours(n int, temp float64) []types.HourlyForecast {
	hours := make([]types.HourlyForecast, n)
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	for i := range hours {
		hours[i] = types.HourlyForecast{Time: base.Add(time.Duration(i) * time.Hour), TemperatureF: temp, Condition: "clear"}
	}
	return hours
}

func TestMaybeSummarizeChangesOnFirstCall(t *testing.T) {
	f := NewFormatter(filepath.Join(t.TempDir(), "forecast_state.json"))
	snap := types.WeatherSnapshot{Hours: sampleHours(24, 60)}

	summary, changed, err := f.MaybeSummarize(snap, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed || summary == "" {
		t.Errorf("expected the first call to report a change with a non-empty summary, got changed=%v summary=%q", changed, summary)
	}
}

func TestMaybeSummarizeNoChangeWhenForecastIsIdentical(t *testing.T) {
	f := NewFormatter(filepath.Join(t.TempDir(), "forecast_state.json"))
	snap := types.WeatherSnapshot{Hours: sampleHours(24, 60)}

	if _, _, err := f.MaybeSummarize(snap, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, changed, err := f.MaybeSummarize(snap, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("expected no change when the forecast window is identical")
	}
}

func TestMaybeSummarizeChangesWhenTemperatureDiffers(t *testing.T) {
	f := NewFormatter(filepath.Join(t.TempDir(), "forecast_state.json"))
	if _, _, err := f.MaybeSummarize(types.WeatherSnapshot{Hours: sampleHours(24, 60)}, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, changed, err := f.MaybeSummarize(types.WeatherSnapshot{Hours: sampleHours(24, 75)}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected a materially different forecast to be reported as changed")
	}
}

func TestMaybeSummarizePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast_state.json")
	f := NewFormatter(path)
	snap := types.WeatherSnapshot{Hours: sampleHours(24, 60)}
	if _, _, err := f.MaybeSummarize(snap, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := NewFormatter(path)
	_, changed, err := reloaded.MaybeSummarize(snap, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("expected a freshly reloaded formatter to recognize the unchanged forecast")
	}
}

func TestMaybeSummarizeEmptyWindow(t *testing.T) {
	f := NewFormatter(filepath.Join(t.TempDir(), "forecast_state.json"))
	summary, changed, err := f.MaybeSummarize(types.WeatherSnapshot{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected the first call, even with no hours, to report a change")
	}
	if summary != "no forecast data available" {
		t.Errorf("got %q", summary)
	}
}
