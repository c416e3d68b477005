// Package solar computes sunrise/sunset times from day-of-year and
// geographic coordinates, with no dependency on any caller's domain types.
package solar

import (
	"math"
	"time"
)

// degToRad converts an angle from degrees to radians for trigonometric calculations.
func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// radToDeg converts an angle from radians to degrees for human-readable output.
func radToDeg(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}

// fixAngle normalizes an angle to the range [0, 360) degrees.
func fixAngle(angle float64) float64 {
	return math.Mod(angle+360, 360)
}

// jdFromTime converts a UTC time to Julian Day, a continuous count of days since Jan 1, 4713 BCE.
func jdFromTime(t time.Time) float64 {
	// Formula: JD = 2440587.5 (Unix epoch JD) + seconds since epoch / seconds per day
	return 2440587.5 + float64(t.Unix())/86400.0
}

// equationOfTime calculates the Equation of Time (EoT) in minutes, the difference between apparent and mean solar time.
func equationOfTime(t time.Time) float64 {
	jd := jdFromTime(t)
	T := (jd - 2451545.0) / 36525.0 // Julian centuries since J2000.0 (Jan 1, 2000, 12:00 TT)

	// Solar coordinates for EoT calculation
	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))            // Mean longitude of the Sun (degrees)
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))             // Mean anomaly of the Sun (degrees)
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)                  // Eccentricity of Earth's orbit
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60 // Mean obliquity of the ecliptic (degrees)

	// Equation of Time: Combines obliquity and eccentricity effects
	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4 // Convert to minutes (4 min/radian)

	return eqTimeMin
}

// CalculateSunriseSunset returns sunrise and sunset as minutes from midnight UTC
// for the given day-of-year at the specified latitude and longitude.
// Returns (-1, -1, nil) for polar day (sun never sets) or polar night (sun never rises).
func CalculateSunriseSunset(dayOfYear int, latitude, longitude float64) (sunriseMinutes, sunsetMinutes int, err error) {
	// Solar declination: the angle between the Sun and the celestial equator
	doy := float64(dayOfYear)
	innerAngle := (356.6 + 0.9856*doy) * (math.Pi / 180.0)
	outerAngle := (278.97 + 0.9856*doy + 1.9165*math.Sin(innerAngle)) * (math.Pi / 180.0)
	declinationRad := math.Asin(0.39785 * math.Sin(outerAngle))

	// Convert latitude to radians
	latRad := latitude * (math.Pi / 180.0)

	// Calculate the hour angle at sunrise/sunset
	// At sunrise/sunset, the sun is at the horizon (zenith angle = 90°)
	// cos(H) = -tan(lat) * tan(declination)
	cosH := -math.Tan(latRad) * math.Tan(declinationRad)

	// Check for polar day/night conditions
	if cosH < -1.0 {
		// Sun never sets (midnight sun / polar day)
		return -1, -1, nil
	}
	if cosH > 1.0 {
		// Sun never rises (polar night)
		return -1, -1, nil
	}

	// Hour angle in radians, then convert to hours
	hourAngleRad := math.Acos(cosH)
	hourAngleHours := hourAngleRad * (180.0 / math.Pi) / 15.0 // 15 degrees per hour

	// Solar noon in UTC is affected by longitude
	// Each degree of longitude = 4 minutes of time
	// Positive longitude (east) means earlier UTC time
	longitudeMinutes := longitude * 4.0

	// Calculate equation of time for this day
	// Use a reference time at noon UTC for the given day of year
	refTime := time.Date(time.Now().Year(), 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, dayOfYear-1)
	eotMinutes := equationOfTime(refTime)

	// Solar noon in UTC minutes from midnight
	// 720 = 12:00 UTC, adjusted for longitude and equation of time
	solarNoonUTC := 720.0 - longitudeMinutes - eotMinutes

	// Convert hour angle to minutes
	hourAngleMinutes := hourAngleHours * 60.0

	// Sunrise and sunset times in UTC minutes from midnight
	sunriseUTC := solarNoonUTC - hourAngleMinutes
	sunsetUTC := solarNoonUTC + hourAngleMinutes

	// Normalize to 0-1440 range (minutes in a day)
	sunriseUTC = math.Mod(sunriseUTC+1440, 1440)
	sunsetUTC = math.Mod(sunsetUTC+1440, 1440)

	return int(math.Round(sunriseUTC)), int(math.Round(sunsetUTC)), nil
}

// FormatSunTime converts UTC minutes from midnight to a formatted time string
// in the given timezone location.
func FormatSunTime(utcMinutes int, loc *time.Location) string {
	if utcMinutes < 0 {
		return ""
	}

	hours := utcMinutes / 60
	minutes := utcMinutes % 60

	// Create a time in UTC, then convert to local
	t := time.Date(2000, 1, 1, hours, minutes, 0, 0, time.UTC)
	local := t.In(loc)

	return local.Format("3:04 PM")
}
