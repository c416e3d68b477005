package weather

import (
	"context"
	"math"
	"time"
)

// SyntheticProvider is the repository's one concrete WeatherProvider. A real
// HTTP weather API integration is out of scope (spec's "weather HTTP
// providers" Non-goal); this generates a seasonally/diurnally varying
// forecast in the same spirit as the teacher's weather-station-simulator, so
// the resilient service and the scheduler loop have something to run end to
// end in a local dry run.
type SyntheticProvider struct {
	baseTempF    float64
	baseHumidity float64
	now          func() time.Time
}

// NewSyntheticProvider returns a provider centered on baseTempF/baseHumidity.
func NewSyntheticProvider(baseTempF, baseHumidity float64) *SyntheticProvider {
	return &SyntheticProvider{baseTempF: baseTempF, baseHumidity: baseHumidity, now: time.Now}
}

func (p *SyntheticProvider) Name() string { return "synthetic" }

func (p *SyntheticProvider) Fetch(ctx context.Context, loc Location, horizonHours int) (NormalizedForecast, error) {
	if err := ctx.Err(); err != nil {
		return NormalizedForecast{}, err
	}

	now := p.now()
	current := p.conditionsAt(now)

	hours := make([]HourlyForecast, horizonHours)
	for i := 0; i < horizonHours; i++ {
		t := now.Add(time.Duration(i+1) * time.Hour)
		c := p.conditionsAt(t)
		hours[i] = HourlyForecast{
			Time:                     t,
			TemperatureF:             *c.TemperatureF,
			PrecipitationIntensity:   0,
			PrecipitationProbability: 0.1,
			PrecipitationType:        "none",
			Condition:                "clear",
			WindMPH:                  *c.WindMPH,
			FeelsLikeF:               *c.TemperatureF,
		}
	}

	return NormalizedForecast{Current: current, Hours: hours}, nil
}

func (p *SyntheticProvider) conditionsAt(t time.Time) CurrentConditions {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	day := float64(t.YearDay())

	seasonal := 20 * math.Sin(2*math.Pi*(day-81)/365)
	diurnal := 10 * math.Sin(2*math.Pi*(hour-6)/24)
	temp := p.baseTempF + seasonal + diurnal

	humidity := p.baseHumidity - diurnal
	if humidity < 10 {
		humidity = 10
	}
	if humidity > 100 {
		humidity = 100
	}

	dewPoint := temp - (100-humidity)/5
	wind := 5.0
	precipActive := false

	return CurrentConditions{
		TemperatureF:        &temp,
		DewPointF:           &dewPoint,
		HumidityPct:         &humidity,
		WindMPH:             &wind,
		Condition:            "clear",
		PrecipitationActive: &precipActive,
	}
}
