package models

import "time"

// PositionView is a row plus its derived financial metrics. Derived values
// are recomputed on every snapshot, never stored.
type PositionView struct {
	PositionRow
	CurrentValue float64  `json:"currentValue"`
	TargetValue  float64  `json:"targetValue"`
	Gain         float64  `json:"gain"`
	ReturnPct    *float64 `json:"returnPct,omitempty"`
}

// PortfolioSnapshot is what the presentation layer (table and chart) consumes.
// The portfolio-level return percentage is computed from the totals, not as an
// average of per-row percentages.
type PortfolioSnapshot struct {
	Rows         []PositionView `json:"rows"`
	CurrentTotal float64        `json:"currentTotal"`
	TargetTotal  float64        `json:"targetTotal"`
	GainTotal    float64        `json:"gainTotal"`
	ReturnPct    *float64       `json:"returnPct,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
