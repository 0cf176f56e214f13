package models

// FetchState tracks quote-resolution progress for a single row.
type FetchState string

const (
	FetchIdle    FetchState = "idle"
	FetchLoading FetchState = "loading"
	FetchError   FetchState = "error"
)

// PriceUnavailableMessage is the fixed user-facing message set on a row when
// every quote source has been exhausted without a price.
const PriceUnavailableMessage = "Price unavailable"

// PositionRow is the single session-scoped entity: one line of the projection
// form. IDs are assigned at creation and never change. CurrentPrice is only
// ever written as the direct output of a resolver round; nil means "not
// fetched or fetch failed".
type PositionRow struct {
	ID           string     `json:"id"`
	Ticker       string     `json:"ticker"`
	Shares       float64    `json:"shares"`
	TargetPrice  float64    `json:"targetPrice"`
	CurrentPrice *float64   `json:"currentPrice"`
	FetchState   FetchState `json:"fetchState"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// EditRowRequest carries a partial edit of a row. Numeric fields arrive as raw
// strings because they come straight from form inputs; unparseable values
// coerce to zero rather than failing the request.
type EditRowRequest struct {
	Ticker      *string `json:"ticker"`
	Shares      *string `json:"shares"`
	TargetPrice *string `json:"targetPrice"`
}
