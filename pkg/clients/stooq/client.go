package stooq

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/gainboard/internal/config"
)

// closeColumn is the position of the closing price in the provider's CSV
// layout: Symbol,Date,Time,Open,High,Low,Close,Volume.
const closeColumn = 6

// Client exposes the CSV quote lookup used as the last link of the resolver
// chain.
type Client interface {
	Quote(ctx context.Context, ticker string) (float64, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a CSV quote client using the provided configuration values.
func NewClient(cfg config.QuotesConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.CSVBaseURL, "/")).
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &APIClient{httpClient: restyClient}
}

// TransformSymbol maps a raw ticker onto the provider's symbol convention:
// purely alphabetic tickers get a ".us" market suffix, USD-denominated pairs
// trade their "-USD" suffix for ".v", anything else passes through lowercased.
//
// This is a best-effort heuristic, not a verified mapping against the
// provider's symbol table.
func TransformSymbol(ticker string) string {
	symbol := strings.ToLower(strings.TrimSpace(ticker))
	switch {
	case symbol == "":
		return ""
	case alphabetic(symbol):
		return symbol + ".us"
	case strings.HasSuffix(symbol, "-usd"):
		return strings.TrimSuffix(symbol, "-usd") + ".v"
	default:
		return symbol
	}
}

// Quote fetches the single-line CSV quote for a ticker and parses the closing
// price out of its fixed column.
func (c *APIClient) Quote(ctx context.Context, ticker string) (float64, error) {
	symbol := TransformSymbol(ticker)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s": symbol,
			"f": "sd2t2ohlcv",
			"h": "",
			"e": "csv",
		}).
		Get("/q/l/")
	if err != nil {
		return 0, fmt.Errorf("fetch csv quote for %s: %w", symbol, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return 0, fmt.Errorf("csv quote api status %d for %s", resp.StatusCode(), symbol)
	}

	return parseCSVQuote(resp.String(), symbol)
}

// parseCSVQuote extracts the close price from a two-line CSV payload (header
// plus one data row).
func parseCSVQuote(body, symbol string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("csv quote for %s: missing data row", symbol)
	}

	fields := strings.Split(strings.TrimSpace(lines[1]), ",")
	if len(fields) <= closeColumn {
		return 0, fmt.Errorf("csv quote for %s: %d columns, want at least %d", symbol, len(fields), closeColumn+1)
	}

	price, err := strconv.ParseFloat(fields[closeColumn], 64)
	if err != nil {
		return 0, fmt.Errorf("csv quote for %s: parse close %q: %w", symbol, fields[closeColumn], err)
	}
	if math.IsNaN(price) {
		return 0, fmt.Errorf("csv quote for %s: close is NaN", symbol)
	}
	return price, nil
}

func alphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}
