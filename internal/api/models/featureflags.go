package models

import "github.com/sunsafe/sunsafe/internal/featureflags"

// FeatureFlag is the wire form of a flag.
type FeatureFlag struct {
	Key       string     `json:"key"`
	Value     any        `json:"value"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

// FeatureFlagList is the body of GET /v1/admin/feature-flags.
type FeatureFlagList struct {
	Items []FeatureFlag `json:"items"`
}

// FeatureFlagsUpdate is the body of PUT /v1/admin/feature-flags.
type FeatureFlagsUpdate struct {
	Flags map[string]any `json:"flags"`
}

// NewFeatureFlagList converts flags in order.
func NewFeatureFlagList(flags []*featureflags.Flag) FeatureFlagList {
	out := FeatureFlagList{Items: make([]FeatureFlag, 0, len(flags))}
	for _, f := range flags {
		item := FeatureFlag{Key: f.Key, Value: f.Value}
		if !f.UpdatedAt.IsZero() {
			ts := Timestamp(f.UpdatedAt)
			item.UpdatedAt = &ts
		}
		out.Items = append(out.Items, item)
	}
	return out
}
