package quotes

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/gainboard/pkg/clients/stooq"
	"github.com/mamadbah2/gainboard/pkg/clients/yahoo"
)

// Source is one link of the fallback chain: a named, best-effort price lookup.
// An error return means "this source failed", never "abort the chain".
type Source struct {
	Name  string
	Fetch func(ctx context.Context, ticker string) (float64, error)
}

// Resolver walks an ordered list of quote sources and returns the first price
// found. Each resolution is stateless and idempotent; nothing is cached
// between calls.
type Resolver struct {
	sources []Source
	logger  *zap.Logger
}

// NewResolver assembles the production chain: live quote, then the same
// provider's chart metadata, then the CSV fallback provider.
func NewResolver(quoteClient yahoo.Client, csvClient stooq.Client, logger *zap.Logger) *Resolver {
	return NewResolverFromSources(logger,
		Source{Name: "quote", Fetch: quoteClient.Quote},
		Source{Name: "chart", Fetch: quoteClient.ChartPrice},
		Source{Name: "csv", Fetch: csvClient.Quote},
	)
}

// NewResolverFromSources builds a resolver over an explicit chain. Useful for
// tests and for deployments that want to reorder or drop sources.
func NewResolverFromSources(logger *zap.Logger, sources ...Source) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{sources: sources, logger: logger}
}

// Resolve attempts the chain strictly in order and stops at the first numeric
// price. ok=false means every source was exhausted; source-level failures are
// recovered here and never surface as errors. A price of exactly zero is
// valid. An empty ticker short-circuits with no network activity.
func (r *Resolver) Resolve(ctx context.Context, ticker string) (float64, bool) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return 0, false
	}

	for _, source := range r.sources {
		price, err := source.Fetch(ctx, ticker)
		if err != nil {
			r.logger.Debug("quote source failed",
				zap.String("source", source.Name),
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}
		if math.IsNaN(price) {
			r.logger.Debug("quote source returned NaN",
				zap.String("source", source.Name),
				zap.String("ticker", ticker))
			continue
		}

		r.logger.Debug("quote resolved",
			zap.String("source", source.Name),
			zap.String("ticker", ticker),
			zap.Float64("price", price))
		return price, true
	}

	r.logger.Warn("all quote sources exhausted", zap.String("ticker", ticker))
	return 0, false
}
