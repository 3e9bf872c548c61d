package models

// CloudConditionInfo describes one cloud condition.
type CloudConditionInfo struct {
	Value        string  `json:"value"`
	Label        string  `json:"label"`
	Transmission float64 `json:"transmission"`
}

// SkinTypeInfo describes one Fitzpatrick phototype.
type SkinTypeInfo struct {
	Value       string  `json:"value"`
	Description string  `json:"description"`
	MED         float64 `json:"medJoulesPerM2"`
}

// RiskCategoryInfo describes one risk band.
type RiskCategoryInfo struct {
	Value          string            `json:"value"`
	Label          string            `json:"label"`
	Recommendation string            `json:"recommendation"`
	Colors         map[string]string `json:"colors"`
}

// Enums lists the enum values used by the API.
type Enums struct {
	CloudConditions []CloudConditionInfo `json:"cloudConditions"`
	SkinTypes       []SkinTypeInfo       `json:"skinTypes"`
	RiskCategories  []RiskCategoryInfo   `json:"riskCategories"`
}
