package uv

import "math"

const (
	// BaseUVPower is the erythemally weighted irradiance in W/m² with the sun
	// overhead and full transmission.
	BaseUVPower = 0.302

	// WattsPerIndexUnit is the irradiance of one UV Index unit.
	WattsPerIndexUnit = 0.025
)

// RiskFor maps a UV Index onto its risk category. Each band includes its
// lower bound.
func RiskFor(uvIndex float64) RiskCategory {
	switch {
	case uvIndex < 0:
		return RiskNone
	case uvIndex < 3:
		return RiskLow
	case uvIndex < 6:
		return RiskModerate
	case uvIndex < 8:
		return RiskHigh
	case uvIndex < 11:
		return RiskVeryHigh
	default:
		return RiskExtreme
	}
}

// BelowHorizon is the result reported whenever the sun is at or below the horizon.
func BelowHorizon() Result {
	return Result{
		UVIndex:                0,
		UVPowerWattsPerM2:      0,
		Risk:                   RiskNone,
		BurnTimeSeconds:        math.Inf(1),
		BurnTimeWithSPFSeconds: math.Inf(1),
		SolarZenithDegrees:     horizonZenith,
		SunBelowHorizon:        true,
	}
}

// BurnTime returns the seconds needed to accumulate the skin type's MED at
// the given irradiance, or +Inf when there is no irradiance.
func BurnTime(skin SkinType, uvPower float64) float64 {
	if uvPower <= 0 {
		return math.Inf(1)
	}
	return skin.MED() / uvPower
}

// ProtectedBurnTime scales a burn time by the sunscreen factor. SPF values
// below 1 give no protection.
func ProtectedBurnTime(burnTime, spf float64) float64 {
	return burnTime * math.Max(spf, 1)
}

// Calculate runs the full model for one input set.
func Calculate(in Inputs) Result {
	pos := Position(in.Latitude, in.Longitude, in.Timestamp)
	if pos.BelowHorizon {
		return BelowHorizon()
	}

	atm := Transmission(pos.DayOfYear, in.Latitude, in.Altitude, in.AQI, in.Cloud)

	uvPower := BaseUVPower * pos.CosZenith * atm.Total
	uvIndex := uvPower / WattsPerIndexUnit
	burn := BurnTime(in.Skin, uvPower)

	return Result{
		UVIndex:                uvIndex,
		UVPowerWattsPerM2:      uvPower,
		Risk:                   RiskFor(uvIndex),
		BurnTimeSeconds:        burn,
		BurnTimeWithSPFSeconds: ProtectedBurnTime(burn, in.SPF),
		SolarZenithDegrees:     pos.ZenithDegrees,
	}
}
