package portfolio

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/gainboard/internal/domain/models"
)

// ErrRowNotFound indicates the referenced row id does not exist.
var ErrRowNotFound = errors.New("row not found")

// PriceResolver is the slice of the quote resolver the view-model depends on.
type PriceResolver interface {
	Resolve(ctx context.Context, ticker string) (float64, bool)
}

// Service owns the ordered list of position rows. Every mutation goes through
// its operations and is serialized by the mutex; callers always observe a
// consistent snapshot. The list never becomes empty: removing the sole
// remaining row resets it to a blank row instead.
type Service struct {
	mu       sync.Mutex
	rows     []models.PositionRow
	resolver PriceResolver
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a view-model seeded with a single blank row.
func NewService(resolver PriceResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		rows:     []models.PositionRow{newRow()},
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

func newRow() models.PositionRow {
	return models.PositionRow{
		ID:         uuid.NewString(),
		FetchState: models.FetchIdle,
	}
}

// AddRow appends a blank row and returns it.
func (s *Service) AddRow() models.PositionRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := newRow()
	s.rows = append(s.rows, row)
	return row
}

// RemoveRow deletes the row with the given id. When it is the last row left,
// the list is reset to a single blank row rather than emptied.
func (s *Service) RemoveRow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrRowNotFound
	}

	if len(s.rows) == 1 {
		s.rows[0] = newRow()
		return nil
	}

	s.rows = append(s.rows[:idx], s.rows[idx+1:]...)
	return nil
}

// EditTicker updates a row's ticker. Any previously fetched price, error or
// loading state is cleared immediately so a stale price is never displayed
// against the new ticker.
func (s *Service) EditTicker(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrRowNotFound
	}

	row := &s.rows[idx]
	row.Ticker = strings.TrimSpace(value)
	row.CurrentPrice = nil
	row.FetchState = models.FetchIdle
	row.ErrorMessage = ""
	return nil
}

// EditShares updates a row's share count from raw form input.
func (s *Service) EditShares(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrRowNotFound
	}

	s.rows[idx].Shares = parseAmount(value)
	return nil
}

// EditTarget updates a row's target price from raw form input.
func (s *Service) EditTarget(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrRowNotFound
	}

	s.rows[idx].TargetPrice = parseAmount(value)
	return nil
}

// parseAmount coerces raw numeric input to a non-negative quantity. Invalid
// entries become zero silently; bad input is never surfaced as a row error.
func parseAmount(value string) float64 {
	amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(amount) || amount < 0 {
		return 0
	}
	return amount
}

type fetchTarget struct {
	id     string
	ticker string
}

type fetchOutcome struct {
	fetchTarget
	price float64
	ok    bool
}

// FetchAllPrices runs one quote round: every row with a non-empty ticker is
// marked loading, resolved concurrently, and once the whole batch has settled
// each outcome is committed in a single locked apply. Rows with empty tickers
// are left untouched. An outcome is dropped when its row was removed or its
// ticker changed while the round was in flight.
func (s *Service) FetchAllPrices(ctx context.Context) models.PortfolioSnapshot {
	s.mu.Lock()
	targets := make([]fetchTarget, 0, len(s.rows))
	for i := range s.rows {
		ticker := strings.TrimSpace(s.rows[i].Ticker)
		if ticker == "" {
			continue
		}
		s.rows[i].FetchState = models.FetchLoading
		s.rows[i].ErrorMessage = ""
		targets = append(targets, fetchTarget{id: s.rows[i].ID, ticker: ticker})
	}
	s.mu.Unlock()

	outcomes := make([]fetchOutcome, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target fetchTarget) {
			defer wg.Done()
			price, ok := s.resolver.Resolve(ctx, target.ticker)
			outcomes[i] = fetchOutcome{fetchTarget: target, price: price, ok: ok}
		}(i, target)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, outcome := range outcomes {
		idx := s.indexLocked(outcome.id)
		if idx < 0 || strings.TrimSpace(s.rows[idx].Ticker) != outcome.ticker {
			s.logger.Debug("dropping stale quote outcome",
				zap.String("row_id", outcome.id),
				zap.String("ticker", outcome.ticker))
			continue
		}

		row := &s.rows[idx]
		if outcome.ok {
			price := outcome.price
			row.CurrentPrice = &price
			row.FetchState = models.FetchIdle
			row.ErrorMessage = ""
		} else {
			row.CurrentPrice = nil
			row.FetchState = models.FetchError
			row.ErrorMessage = models.PriceUnavailableMessage
		}
	}

	s.logger.Info("quote round settled", zap.Int("fetched", len(targets)))
	return s.snapshotLocked()
}

// Snapshot derives per-row and aggregate metrics from the current rows.
func (s *Service) Snapshot() models.PortfolioSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() models.PortfolioSnapshot {
	snapshot := models.PortfolioSnapshot{
		Rows:      make([]models.PositionView, 0, len(s.rows)),
		UpdatedAt: s.now().UTC(),
	}

	for _, row := range s.rows {
		view := models.PositionView{PositionRow: row}
		if row.CurrentPrice != nil {
			view.CurrentValue = row.Shares * (*row.CurrentPrice)
		}
		view.TargetValue = row.Shares * row.TargetPrice
		view.Gain = view.TargetValue - view.CurrentValue
		if view.CurrentValue > 0 {
			pct := view.Gain / view.CurrentValue * 100
			view.ReturnPct = &pct
		}

		snapshot.CurrentTotal += view.CurrentValue
		snapshot.TargetTotal += view.TargetValue
		snapshot.GainTotal += view.Gain
		snapshot.Rows = append(snapshot.Rows, view)
	}

	if snapshot.CurrentTotal > 0 {
		pct := snapshot.GainTotal / snapshot.CurrentTotal * 100
		snapshot.ReturnPct = &pct
	}

	return snapshot
}

func (s *Service) indexLocked(id string) int {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return i
		}
	}
	return -1
}
