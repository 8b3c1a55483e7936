package domain

import (
	"encoding/json"
	"time"
)

// AgeCategory buckets the gap between a site's creation date and the identifier's first-seen date.
type AgeCategory int

const (
	AgeNegative AgeCategory = iota
	AgeUpTo2Months
	Age2To4Months
	Age4To6Months
	Age6To12Months
	AgeOverYear
)

const daysPerMonth = 30.0

var ageCategoryLabels = [...]string{
	AgeNegative:    "Negative",
	AgeUpTo2Months: "0–2 months",
	Age2To4Months:  "2–4 months",
	Age4To6Months:  "4–6 months",
	Age6To12Months: "6–12 months",
	AgeOverYear:    ">1 year",
}

var ageCategoryColors = [...]string{
	AgeNegative:    "#990000",
	AgeUpTo2Months: "#e6ffe6",
	Age2To4Months:  "#ccffcc",
	Age4To6Months:  "#ffe680",
	Age6To12Months: "#ffc266",
	AgeOverYear:    "#ff9999",
}

// CategorizeDelta maps a signed day delta to its category. Months are |days|/30; every
// upper bound is inclusive and any negative delta is AgeNegative.
func CategorizeDelta(deltaDays int) AgeCategory {
	if deltaDays < 0 {
		return AgeNegative
	}
	months := float64(deltaDays) / daysPerMonth
	switch {
	case months > 12:
		return AgeOverYear
	case months > 6:
		return Age6To12Months
	case months > 4:
		return Age4To6Months
	case months > 2:
		return Age2To4Months
	default:
		return AgeUpTo2Months
	}
}

func (c AgeCategory) String() string {
	if c < 0 || int(c) >= len(ageCategoryLabels) {
		return "Unknown"
	}
	return ageCategoryLabels[c]
}

// Color is the background color renderers use for the category.
func (c AgeCategory) Color() string {
	if c < 0 || int(c) >= len(ageCategoryColors) {
		return ""
	}
	return ageCategoryColors[c]
}

func (c AgeCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *AgeCategory) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	for i, l := range ageCategoryLabels {
		if l == label {
			*c = AgeCategory(i)
			return nil
		}
	}
	*c = AgeCategory(-1)
	return nil
}

// ComparisonRow joins one (site, identifier) pair with the identifier's first-seen date.
type ComparisonRow struct {
	Identifier  string      `json:"identifier"`
	Country     string      `json:"country"`
	RootCreated time.Time   `json:"root_created"`
	FirstSeen   time.Time   `json:"first_seen"`
	DeltaDays   int         `json:"delta_days"`
	AgeCategory AgeCategory `json:"age_category"`
	Source      string      `json:"source"`
}

// ComparisonResult is the answer to a comparison query.
type ComparisonResult struct {
	Matched  []ComparisonRow `json:"matched"`
	Missing  []string        `json:"missing"`
	AllFound bool            `json:"all_found"`
	Message  string          `json:"message,omitempty"`
}
