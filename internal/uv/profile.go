package uv

import "time"

// HourlySample is the model output at one wall-clock hour.
type HourlySample struct {
	Time   time.Time
	Result Result
}

// DayProfile evaluates the model at every whole hour of the calendar day of
// base.Timestamp, in the timestamp's own location. All other inputs are held
// fixed. This is the same closed-form model sampled 24 times, not a forecast.
func DayProfile(base Inputs) []HourlySample {
	ts := base.Timestamp
	start := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())

	samples := make([]HourlySample, 0, 24)
	for h := 0; h < 24; h++ {
		in := base
		in.Timestamp = start.Add(time.Duration(h) * time.Hour)
		samples = append(samples, HourlySample{
			Time:   in.Timestamp,
			Result: Calculate(in),
		})
	}
	return samples
}

// Peak returns the sample with the highest UV Index. On ties the earliest wins.
// The second value is false for an empty slice.
func Peak(samples []HourlySample) (HourlySample, bool) {
	if len(samples) == 0 {
		return HourlySample{}, false
	}
	best := samples[0]
	for _, s := range samples[1:] {
		if s.Result.UVIndex > best.Result.UVIndex {
			best = s
		}
	}
	return best, true
}
