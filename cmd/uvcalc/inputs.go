package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunsafe/sunsafe/internal/uv"
)

// inputFlags are shared by estimate and sun-path.
type inputFlags struct {
	lat, lon       float64
	altitude       float64
	aqi            float64
	spf            float64
	cloud          string
	skin           string
	colorblindSafe bool
	asJSON         bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.lat, "lat", 0, "latitude in degrees, north positive")
	fs.Float64Var(&f.lon, "lon", 0, "longitude in degrees, east positive")
	fs.Float64Var(&f.altitude, "altitude", 0, "altitude in meters above sea level")
	fs.Float64Var(&f.aqi, "aqi", 0, "air quality index")
	fs.Float64Var(&f.spf, "spf", 1, "sunscreen protection factor")
	fs.StringVar(&f.cloud, "cloud", uv.CloudClear.String(), "cloud condition: CLEAR, PARTLY_CLOUDY or OVERCAST")
	fs.StringVar(&f.skin, "skin", uv.SkinTypeIII.String(), "Fitzpatrick skin type: TYPE_I to TYPE_VI")
	fs.BoolVar(&f.colorblindSafe, "colorblind-safe", false, "use the colorblind-safe palette")
	fs.BoolVar(&f.asJSON, "json", false, "print JSON instead of text")

	_ = cmd.MarkFlagRequired("lat") //nolint:errcheck // flag is registered above
	_ = cmd.MarkFlagRequired("lon") //nolint:errcheck // flag is registered above
}

func (f *inputFlags) inputs(at time.Time) (uv.Inputs, error) {
	if math.IsNaN(f.lat) || f.lat < -90 || f.lat > 90 {
		return uv.Inputs{}, fmt.Errorf("--lat must be within [-90, 90], got %v", f.lat)
	}
	if math.IsNaN(f.lon) || f.lon < -180 || f.lon > 180 {
		return uv.Inputs{}, fmt.Errorf("--lon must be within [-180, 180], got %v", f.lon)
	}
	if f.aqi < 0 {
		return uv.Inputs{}, fmt.Errorf("--aqi must not be negative, got %v", f.aqi)
	}
	if f.spf < 0 {
		return uv.Inputs{}, fmt.Errorf("--spf must not be negative, got %v", f.spf)
	}

	cloud, err := uv.ParseCloudCondition(f.cloud)
	if err != nil {
		return uv.Inputs{}, err
	}
	skin, err := uv.ParseSkinType(f.skin)
	if err != nil {
		return uv.Inputs{}, err
	}

	return uv.Inputs{
		Latitude:  f.lat,
		Longitude: f.lon,
		Timestamp: at,
		Altitude:  f.altitude,
		AQI:       f.aqi,
		Cloud:     cloud,
		Skin:      skin,
		SPF:       f.spf,
	}, nil
}

func formatBurnTime(seconds float64) string {
	if math.IsInf(seconds, 1) {
		return "never"
	}
	return (time.Duration(seconds) * time.Second).Round(time.Minute).String()
}
