package uv

import (
	"fmt"
	"math"
	"time"
)

const (
	daysPerYear   = 365.0
	maxTilt       = 23.45 // degrees
	degreesPerHr  = 15.0
	minutesPerDeg = 4.0
	horizonZenith = 90.0
)

// SolarPosition describes the sun relative to an observer at one instant.
type SolarPosition struct {
	DayOfYear             int
	DeclinationDegrees    float64
	EquationOfTimeMinutes float64
	LocalSolarTimeHours   float64
	HourAngleDegrees      float64
	CosZenith             float64

	// ZenithDegrees is fixed at 90 when the sun is at or below the horizon.
	ZenithDegrees float64
	BelowHorizon  bool
}

// Declination returns the solar declination in degrees for a 1-based day of year.
func Declination(dayOfYear int) float64 {
	return maxTilt * math.Sin(2*math.Pi/daysPerYear*(284+float64(dayOfYear)))
}

// EquationOfTime returns the equation of time in minutes for a 1-based day of year.
func EquationOfTime(dayOfYear int) float64 {
	b := 2 * math.Pi / daysPerYear * (float64(dayOfYear) - 81)
	return 9.87*math.Sin(2*b) - 7.53*math.Cos(b) - 1.5*math.Sin(b)
}

// LongitudeCorrection returns the offset in hours between the observer's
// meridian and the standard meridian of its whole-hour time zone.
func LongitudeCorrection(lon float64) float64 {
	standardMeridian := degreesPerHr * math.Round(lon/degreesPerHr)
	return minutesPerDeg * (lon - standardMeridian) / 60
}

// clockHours returns the decimal wall-clock hour of t in its own location.
func clockHours(t time.Time) float64 {
	return float64(t.Hour()) +
		float64(t.Minute())/60 +
		float64(t.Second())/3600 +
		float64(t.Nanosecond())/3.6e12
}

// Position computes the solar position for an observer at (lat, lon) at the
// wall-clock time of t.
func Position(lat, lon float64, t time.Time) SolarPosition {
	n := t.YearDay()
	decl := Declination(n)
	eot := EquationOfTime(n)

	lst := clockHours(t) + LongitudeCorrection(lon) + eot/60
	hourAngle := degreesPerHr * (lst - 12)

	latRad := lat * math.Pi / 180
	declRad := decl * math.Pi / 180
	haRad := hourAngle * math.Pi / 180

	cosZenith := math.Sin(latRad)*math.Sin(declRad) +
		math.Cos(latRad)*math.Cos(declRad)*math.Cos(haRad)
	cosZenith = math.Min(cosZenith, 1)

	pos := SolarPosition{
		DayOfYear:             n,
		DeclinationDegrees:    decl,
		EquationOfTimeMinutes: eot,
		LocalSolarTimeHours:   lst,
		HourAngleDegrees:      hourAngle,
		CosZenith:             cosZenith,
	}

	if cosZenith <= 0 {
		pos.ZenithDegrees = horizonZenith
		pos.BelowHorizon = true
		return pos
	}

	pos.ZenithDegrees = math.Acos(cosZenith) * 180 / math.Pi
	return pos
}

// NominalZone returns the whole-hour fixed zone whose standard meridian is
// nearest to lon. It is the zone LongitudeCorrection assumes, and is used
// when a caller has a position but no civil time zone for it.
func NominalZone(lon float64) *time.Location {
	offset := int(math.Round(lon / degreesPerHr))
	name := "UTC"
	if offset != 0 {
		name = fmt.Sprintf("UTC%+d", offset)
	}
	return time.FixedZone(name, offset*3600)
}
