package uv

import "math"

// Ozone climatology by absolute latitude band.
type ozoneBand struct {
	maxAbsLat float64
	baseDU    float64
	amplitude float64
}

var ozoneBands = [...]ozoneBand{
	{maxAbsLat: 20, baseDU: 260, amplitude: 10},
	{maxAbsLat: 40, baseDU: 285, amplitude: 15},
	{maxAbsLat: math.Inf(1), baseDU: 310, amplitude: 20},
}

const (
	ozoneReferenceDU   = 250.0
	ozoneAttenuation   = 0.0003
	ozonePeakDay       = 80.0
	aerosolAttenuation = 0.002
	altitudeGainPerKm  = 0.1
	metersPerKilometer = 1000.0
)

// Atmosphere holds every transmission sub-factor and their product.
type Atmosphere struct {
	OzoneDU   float64
	Ozone     float64
	Pollution float64
	Cloud     float64
	Altitude  float64
	Total     float64
}

// OzoneColumn estimates the total ozone column in Dobson units.
func OzoneColumn(lat float64, dayOfYear int) float64 {
	absLat := math.Abs(lat)
	band := ozoneBands[len(ozoneBands)-1]
	for _, b := range ozoneBands {
		if absLat <= b.maxAbsLat {
			band = b
			break
		}
	}
	return band.baseDU + band.amplitude*math.Sin(2*math.Pi/daysPerYear*(float64(dayOfYear)-ozonePeakDay))
}

// OzoneTransmission is the Beer-Lambert style attenuation relative to a 250 DU column.
func OzoneTransmission(ozoneDU float64) float64 {
	return math.Exp(-ozoneAttenuation * (ozoneDU - ozoneReferenceDU))
}

// PollutionTransmission attenuates UV by aerosol load. Negative AQI counts as clean air.
func PollutionTransmission(aqi float64) float64 {
	return math.Exp(-aerosolAttenuation * math.Max(aqi, 0))
}

// AltitudeAmplification adds 10% per 1000 m. It is linear and unclamped.
func AltitudeAmplification(altitude float64) float64 {
	return 1 + altitudeGainPerKm*(altitude/metersPerKilometer)
}

// Transmission combines the independent sub-factors into a total.
func Transmission(dayOfYear int, lat, altitude, aqi float64, cloud CloudCondition) Atmosphere {
	du := OzoneColumn(lat, dayOfYear)
	a := Atmosphere{
		OzoneDU:   du,
		Ozone:     OzoneTransmission(du),
		Pollution: PollutionTransmission(aqi),
		Cloud:     cloud.Transmission(),
		Altitude:  AltitudeAmplification(altitude),
	}
	a.Total = a.Ozone * a.Pollution * a.Cloud * a.Altitude
	return a
}
