// Package uv estimates surface UV irradiance and time-to-sunburn from a
// closed-form solar geometry and atmospheric transmission model.
//
// Every function in this package is pure: no I/O, no clock reads, no shared
// mutable state. Calculate may be called concurrently from any number of
// goroutines.
package uv

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// CloudCondition is the sky condition supplied by the caller.
type CloudCondition int

const (
	CloudClear CloudCondition = iota
	CloudPartlyCloudy
	CloudOvercast
)

type cloudInfo struct {
	name         string
	label        string
	transmission float64
}

var cloudTable = [...]cloudInfo{
	CloudClear:        {name: "CLEAR", label: "Clear", transmission: 1.0},
	CloudPartlyCloudy: {name: "PARTLY_CLOUDY", label: "Partly cloudy", transmission: 0.75},
	CloudOvercast:     {name: "OVERCAST", label: "Overcast", transmission: 0.40},
}

// CloudConditions lists every cloud condition in declaration order.
func CloudConditions() []CloudCondition {
	return []CloudCondition{CloudClear, CloudPartlyCloudy, CloudOvercast}
}

// Valid reports whether c is one of the declared conditions.
func (c CloudCondition) Valid() bool {
	return c >= CloudClear && c <= CloudOvercast
}

// Transmission returns the fraction of UV passing through this cloud cover.
func (c CloudCondition) Transmission() float64 {
	if !c.Valid() {
		return cloudTable[CloudClear].transmission
	}
	return cloudTable[c].transmission
}

// Label returns a human-readable name.
func (c CloudCondition) Label() string {
	if !c.Valid() {
		return "Unknown"
	}
	return cloudTable[c].label
}

func (c CloudCondition) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CloudCondition(%d)", int(c))
	}
	return cloudTable[c].name
}

// MarshalText implements encoding.TextMarshaler.
func (c CloudCondition) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: cloud condition %d", ErrUnknownVariant, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CloudCondition) UnmarshalText(text []byte) error {
	parsed, err := ParseCloudCondition(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCloudCondition parses the wire name of a cloud condition (case-insensitive).
func ParseCloudCondition(s string) (CloudCondition, error) {
	for _, c := range CloudConditions() {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return CloudClear, fmt.Errorf("%w: cloud condition %q", ErrUnknownVariant, s)
}

// SkinType is a Fitzpatrick skin phototype.
type SkinType int

const (
	SkinTypeI SkinType = iota + 1
	SkinTypeII
	SkinTypeIII
	SkinTypeIV
	SkinTypeV
	SkinTypeVI
)

type skinInfo struct {
	name        string
	med         float64 // J/m²
	description string
}

var skinTable = [...]skinInfo{
	SkinTypeI:   {name: "TYPE_I", med: 200, description: "Very fair, always burns, never tans"},
	SkinTypeII:  {name: "TYPE_II", med: 250, description: "Fair, usually burns, tans minimally"},
	SkinTypeIII: {name: "TYPE_III", med: 300, description: "Medium, sometimes burns, tans uniformly"},
	SkinTypeIV:  {name: "TYPE_IV", med: 450, description: "Olive, rarely burns, tans easily"},
	SkinTypeV:   {name: "TYPE_V", med: 600, description: "Brown, very rarely burns, tans darkly"},
	SkinTypeVI:  {name: "TYPE_VI", med: 1000, description: "Dark brown to black, never burns"},
}

// SkinTypes lists every skin type from I to VI.
func SkinTypes() []SkinType {
	return []SkinType{SkinTypeI, SkinTypeII, SkinTypeIII, SkinTypeIV, SkinTypeV, SkinTypeVI}
}

// Valid reports whether s is one of the six phototypes.
func (s SkinType) Valid() bool {
	return s >= SkinTypeI && s <= SkinTypeVI
}

// MED returns the minimal erythemal dose in J/m².
// An undeclared value falls back to type I, the most conservative dose.
func (s SkinType) MED() float64 {
	if !s.Valid() {
		return skinTable[SkinTypeI].med
	}
	return skinTable[s].med
}

// Description returns a short description of the phototype.
func (s SkinType) Description() string {
	if !s.Valid() {
		return ""
	}
	return skinTable[s].description
}

func (s SkinType) String() string {
	if !s.Valid() {
		return fmt.Sprintf("SkinType(%d)", int(s))
	}
	return skinTable[s].name
}

// MarshalText implements encoding.TextMarshaler.
func (s SkinType) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: skin type %d", ErrUnknownVariant, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SkinType) UnmarshalText(text []byte) error {
	parsed, err := ParseSkinType(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSkinType accepts the wire name ("TYPE_III") or the bare roman numeral ("III").
func ParseSkinType(s string) (SkinType, error) {
	for _, t := range SkinTypes() {
		name := t.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, strings.TrimPrefix(name, "TYPE_")) {
			return t, nil
		}
	}
	return SkinTypeI, fmt.Errorf("%w: skin type %q", ErrUnknownVariant, s)
}

// RiskCategory is the public UV risk band.
type RiskCategory int

const (
	RiskNone RiskCategory = iota
	RiskLow
	RiskModerate
	RiskHigh
	RiskVeryHigh
	RiskExtreme
)

type riskInfo struct {
	name           string
	label          string
	recommendation string
}

var riskTable = [...]riskInfo{
	RiskNone:     {name: "NONE", label: "None", recommendation: "No UV exposure. The sun is below the horizon."},
	RiskLow:      {name: "LOW", label: "Low", recommendation: "Minimal protection needed. Wear sunglasses on bright days."},
	RiskModerate: {name: "MODERATE", label: "Moderate", recommendation: "Seek shade during midday hours. Wear sunscreen and a hat."},
	RiskHigh:     {name: "HIGH", label: "High", recommendation: "Reduce time in the sun between 10 a.m. and 4 p.m. Apply SPF 30+ sunscreen."},
	RiskVeryHigh: {name: "VERY_HIGH", label: "Very high", recommendation: "Minimize sun exposure. Shirt, sunscreen and hat are essential."},
	RiskExtreme:  {name: "EXTREME", label: "Extreme", recommendation: "Avoid sun exposure. Unprotected skin can burn in minutes."},
}

// RiskCategories lists every risk category from None to Extreme.
func RiskCategories() []RiskCategory {
	return []RiskCategory{RiskNone, RiskLow, RiskModerate, RiskHigh, RiskVeryHigh, RiskExtreme}
}

// Valid reports whether r is a declared category.
func (r RiskCategory) Valid() bool {
	return r >= RiskNone && r <= RiskExtreme
}

// Label returns a human-readable name.
func (r RiskCategory) Label() string {
	if !r.Valid() {
		return "Unknown"
	}
	return riskTable[r].label
}

// Recommendation returns the protection advice for this category.
func (r RiskCategory) Recommendation() string {
	if !r.Valid() {
		return ""
	}
	return riskTable[r].recommendation
}

func (r RiskCategory) String() string {
	if !r.Valid() {
		return fmt.Sprintf("RiskCategory(%d)", int(r))
	}
	return riskTable[r].name
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskCategory) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: risk category %d", ErrUnknownVariant, int(r))
	}
	return []byte(r.String()), nil
}

// Inputs is the full parameter set for one calculation.
type Inputs struct {
	Latitude  float64 // degrees, [-90, 90]
	Longitude float64 // degrees, [-180, 180]

	// Timestamp is read in its own location: the clock hours of that zone
	// are the observer's local civil time.
	Timestamp time.Time

	Altitude float64 // meters above sea level
	AQI      float64 // air quality index, 0-500
	Cloud    CloudCondition
	Skin     SkinType
	SPF      float64
}

// Result is the immutable outcome of one calculation.
type Result struct {
	UVIndex                float64
	UVPowerWattsPerM2      float64
	Risk                   RiskCategory
	BurnTimeSeconds        float64 // +Inf when there is no UV
	BurnTimeWithSPFSeconds float64 // +Inf when there is no UV
	SolarZenithDegrees     float64
	SunBelowHorizon        bool
}

// BurnTimeRange is the ±20% uncertainty band around the protected burn time.
type BurnTimeRange struct {
	LowSeconds  float64
	HighSeconds float64
}

// Uncertainty bounds applied to the protected burn time.
const (
	burnRangeLow  = 0.8
	burnRangeHigh = 1.2
)

// BurnTimeRange returns the display range for the protected burn time.
// Both bounds are +Inf when the sun is below the horizon.
func (r Result) BurnTimeRange() BurnTimeRange {
	return BurnTimeRange{
		LowSeconds:  r.BurnTimeWithSPFSeconds * burnRangeLow,
		HighSeconds: r.BurnTimeWithSPFSeconds * burnRangeHigh,
	}
}

// HasFiniteBurnTime reports whether the protected burn time is a real duration.
func (r Result) HasFiniteBurnTime() bool {
	return !math.IsInf(r.BurnTimeWithSPFSeconds, 0) && !math.IsNaN(r.BurnTimeWithSPFSeconds)
}

// maxDurationSeconds is the largest burn time a time.Duration can hold.
const maxDurationSeconds = float64(math.MaxInt64) / float64(time.Second)

// BurnDuration converts the protected burn time to a time.Duration.
// The second value is false when the burn time is infinite. Burn times
// beyond the range of time.Duration saturate to math.MaxInt64.
func (r Result) BurnDuration() (time.Duration, bool) {
	if !r.HasFiniteBurnTime() {
		return 0, false
	}
	if r.BurnTimeWithSPFSeconds >= maxDurationSeconds {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(r.BurnTimeWithSPFSeconds * float64(time.Second)), true
}
