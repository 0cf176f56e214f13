package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/gainboard/internal/config"
)

// ErrNoPrice indicates the provider answered but the payload carried no usable
// numeric price for the requested symbol.
var ErrNoPrice = errors.New("no price in response")

// Client exposes the two quote lookups used by the resolver chain: the live
// quote endpoint and the chart endpoint, both against the same provider.
type Client interface {
	Quote(ctx context.Context, symbol string) (float64, error)
	ChartPrice(ctx context.Context, symbol string) (float64, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a quote API client using the provided configuration values.
func NewClient(cfg config.QuotesConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &APIClient{httpClient: restyClient}
}

// quoteResponse mirrors the provider's quote-by-symbol payload. Price fields
// are pointers so a missing field is distinguishable from a zero price.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string   `json:"symbol"`
			RegularMarketPrice         *float64 `json:"regularMarketPrice"`
			RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// chartResponse mirrors the metadata of the provider's chart payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// Quote fetches the live quote for a symbol and returns its current market
// price, falling back to the previous close carried in the same payload.
func (c *APIClient) Quote(ctx context.Context, symbol string) (float64, error) {
	result := new(quoteResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("symbols", symbol).
		SetResult(result).
		Get("/v7/finance/quote")
	if err != nil {
		return 0, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return 0, fmt.Errorf("quote api status %d for %s", resp.StatusCode(), symbol)
	}

	if len(result.QuoteResponse.Result) == 0 {
		return 0, fmt.Errorf("quote for %s: %w", symbol, ErrNoPrice)
	}

	quote := result.QuoteResponse.Result[0]
	if price, ok := usable(quote.RegularMarketPrice); ok {
		return price, nil
	}
	if price, ok := usable(quote.RegularMarketPreviousClose); ok {
		return price, nil
	}
	return 0, fmt.Errorf("quote for %s: %w", symbol, ErrNoPrice)
}

// ChartPrice fetches a one-day chart for a symbol and extracts the price from
// the response metadata.
func (c *APIClient) ChartPrice(ctx context.Context, symbol string) (float64, error) {
	result := new(chartResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "1d",
		}).
		SetResult(result).
		Get("/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return 0, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return 0, fmt.Errorf("chart api status %d for %s", resp.StatusCode(), symbol)
	}

	if len(result.Chart.Result) == 0 {
		return 0, fmt.Errorf("chart for %s: %w", symbol, ErrNoPrice)
	}

	meta := result.Chart.Result[0].Meta
	for _, candidate := range []*float64{meta.RegularMarketPrice, meta.PreviousClose, meta.ChartPreviousClose} {
		if price, ok := usable(candidate); ok {
			return price, nil
		}
	}
	return 0, fmt.Errorf("chart for %s: %w", symbol, ErrNoPrice)
}

// usable reports whether the field was present and numeric. Zero is a valid
// price; only absent or NaN values are rejected.
func usable(field *float64) (float64, bool) {
	if field == nil || math.IsNaN(*field) {
		return 0, false
	}
	return *field, true
}
