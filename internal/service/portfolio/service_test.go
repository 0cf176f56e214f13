package portfolio

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/mamadbah2/gainboard/internal/domain/models"
)

type stubResolver struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  []string
}

func (s *stubResolver) Resolve(_ context.Context, ticker string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ticker)
	price, ok := s.prices[ticker]
	return price, ok
}

func (s *stubResolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type resolverFunc func(ctx context.Context, ticker string) (float64, bool)

func (f resolverFunc) Resolve(ctx context.Context, ticker string) (float64, bool) {
	return f(ctx, ticker)
}

func firstRowID(t *testing.T, svc *Service) string {
	t.Helper()
	rows := svc.Snapshot().Rows
	if len(rows) == 0 {
		t.Fatal("expected at least one row")
	}
	return rows[0].ID
}

func TestNewServiceSeedsBlankRow(t *testing.T) {
	svc := NewService(&stubResolver{}, nil)

	rows := svc.Snapshot().Rows
	if len(rows) != 1 {
		t.Fatalf("expected 1 seeded row, got %d", len(rows))
	}
	row := rows[0]
	if row.ID == "" || row.Ticker != "" || row.Shares != 0 || row.CurrentPrice != nil || row.FetchState != models.FetchIdle {
		t.Fatalf("unexpected seeded row: %+v", row)
	}
}

func TestAddAndRemoveRows(t *testing.T) {
	svc := NewService(&stubResolver{}, nil)
	added := svc.AddRow()

	if got := len(svc.Snapshot().Rows); got != 2 {
		t.Fatalf("expected 2 rows after add, got %d", got)
	}

	if err := svc.RemoveRow(added.ID); err != nil {
		t.Fatalf("RemoveRow() unexpected error: %v", err)
	}
	if got := len(svc.Snapshot().Rows); got != 1 {
		t.Fatalf("expected 1 row after remove, got %d", got)
	}

	if err := svc.RemoveRow("no-such-id"); err != ErrRowNotFound {
		t.Fatalf("RemoveRow() error = %v, want ErrRowNotFound", err)
	}
}

func TestRemoveLastRowResetsToBlank(t *testing.T) {
	svc := NewService(&stubResolver{prices: map[string]float64{"AAPL": 100}}, nil)
	id := firstRowID(t, svc)

	if err := svc.EditTicker(id, "AAPL"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}
	if err := svc.EditShares(id, "10"); err != nil {
		t.Fatalf("EditShares() error: %v", err)
	}
	svc.FetchAllPrices(context.Background())

	if err := svc.RemoveRow(id); err != nil {
		t.Fatalf("RemoveRow() error: %v", err)
	}

	rows := svc.Snapshot().Rows
	if len(rows) != 1 {
		t.Fatalf("expected the list to keep exactly 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.ID == "" || row.Ticker != "" || row.Shares != 0 || row.TargetPrice != 0 || row.CurrentPrice != nil || row.FetchState != models.FetchIdle {
		t.Fatalf("expected blank reset row, got %+v", row)
	}
}

func TestEditAmountCoercion(t *testing.T) {
	svc := NewService(&stubResolver{}, nil)
	id := firstRowID(t, svc)

	cases := []struct {
		input string
		want  float64
	}{
		{"10", 10},
		{"2.5", 2.5},
		{" 7 ", 7},
		{"abc", 0},
		{"", 0},
		{"-5", 0},
		{"NaN", 0},
	}

	for _, tc := range cases {
		if err := svc.EditShares(id, tc.input); err != nil {
			t.Fatalf("EditShares(%q) error: %v", tc.input, err)
		}
		if got := svc.Snapshot().Rows[0].Shares; got != tc.want {
			t.Errorf("EditShares(%q) stored %v, want %v", tc.input, got, tc.want)
		}

		if err := svc.EditTarget(id, tc.input); err != nil {
			t.Fatalf("EditTarget(%q) error: %v", tc.input, err)
		}
		if got := svc.Snapshot().Rows[0].TargetPrice; got != tc.want {
			t.Errorf("EditTarget(%q) stored %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestEditTickerClearsFetchedPrice(t *testing.T) {
	resolver := &stubResolver{prices: map[string]float64{"AAPL": 100}}
	svc := NewService(resolver, nil)
	id := firstRowID(t, svc)

	if err := svc.EditTicker(id, "AAPL"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}
	svc.FetchAllPrices(context.Background())

	if row := svc.Snapshot().Rows[0]; row.CurrentPrice == nil {
		t.Fatal("expected a fetched price before the edit")
	}

	if err := svc.EditTicker(id, "MSFT"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}

	row := svc.Snapshot().Rows[0]
	if row.CurrentPrice != nil {
		t.Fatalf("expected price cleared after ticker edit, got %v", *row.CurrentPrice)
	}
	if row.FetchState != models.FetchIdle || row.ErrorMessage != "" {
		t.Fatalf("expected idle state and no error, got %+v", row)
	}
}

func TestFetchAllPricesSkipsEmptyTickers(t *testing.T) {
	resolver := &stubResolver{prices: map[string]float64{"AAPL": 100}}
	svc := NewService(resolver, nil)
	id := firstRowID(t, svc)

	if err := svc.EditTicker(id, "AAPL"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}
	if err := svc.EditShares(id, "10"); err != nil {
		t.Fatalf("EditShares() error: %v", err)
	}
	blank := svc.AddRow()
	if err := svc.EditShares(blank.ID, "5"); err != nil {
		t.Fatalf("EditShares() error: %v", err)
	}

	svc.FetchAllPrices(context.Background())

	if resolver.callCount() != 1 {
		t.Fatalf("resolver called %d times, want 1", resolver.callCount())
	}

	rows := svc.Snapshot().Rows
	if rows[0].CurrentPrice == nil || *rows[0].CurrentPrice != 100 {
		t.Fatalf("expected fetched price 100, got %+v", rows[0])
	}
	if rows[1].CurrentPrice != nil || rows[1].FetchState != models.FetchIdle {
		t.Fatalf("blank row was touched by the round: %+v", rows[1])
	}
}

func TestFetchAllPricesSetsErrorWhenUnavailable(t *testing.T) {
	resolver := &stubResolver{}
	svc := NewService(resolver, nil)
	id := firstRowID(t, svc)

	if err := svc.EditTicker(id, "NOPE"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}
	svc.FetchAllPrices(context.Background())

	row := svc.Snapshot().Rows[0]
	if row.FetchState != models.FetchError {
		t.Fatalf("FetchState = %v, want error", row.FetchState)
	}
	if row.ErrorMessage != models.PriceUnavailableMessage {
		t.Fatalf("ErrorMessage = %q, want %q", row.ErrorMessage, models.PriceUnavailableMessage)
	}
	if row.CurrentPrice != nil {
		t.Fatalf("expected nil price, got %v", *row.CurrentPrice)
	}
}

func TestFetchAllPricesClearsPreviousError(t *testing.T) {
	resolver := &stubResolver{prices: map[string]float64{}}
	svc := NewService(resolver, nil)
	id := firstRowID(t, svc)

	if err := svc.EditTicker(id, "AAPL"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}
	svc.FetchAllPrices(context.Background())
	if svc.Snapshot().Rows[0].FetchState != models.FetchError {
		t.Fatal("expected error state after failed round")
	}

	resolver.mu.Lock()
	resolver.prices["AAPL"] = 42
	resolver.mu.Unlock()

	svc.FetchAllPrices(context.Background())
	row := svc.Snapshot().Rows[0]
	if row.FetchState != models.FetchIdle || row.ErrorMessage != "" {
		t.Fatalf("expected cleared error, got %+v", row)
	}
	if row.CurrentPrice == nil || *row.CurrentPrice != 42 {
		t.Fatalf("expected price 42, got %+v", row.CurrentPrice)
	}
}

func TestFetchAllPricesZeroIsValid(t *testing.T) {
	resolver := &stubResolver{prices: map[string]float64{"ZERO": 0}}
	svc := NewService(resolver, nil)
	id := firstRowID(t, svc)

	if err := svc.EditTicker(id, "ZERO"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}
	svc.FetchAllPrices(context.Background())

	row := svc.Snapshot().Rows[0]
	if row.CurrentPrice == nil || *row.CurrentPrice != 0 {
		t.Fatalf("expected zero price accepted, got %+v", row)
	}
	if row.FetchState != models.FetchIdle || row.ErrorMessage != "" {
		t.Fatalf("zero price treated as failure: %+v", row)
	}
}

func TestFetchDropsOutcomeAfterMidFlightTickerEdit(t *testing.T) {
	var svc *Service
	var editOnce sync.Once

	resolver := resolverFunc(func(_ context.Context, ticker string) (float64, bool) {
		// Simulate the user changing the ticker while the round is in flight:
		// the settled outcome for the old ticker must not be applied.
		editOnce.Do(func() {
			id := svc.Snapshot().Rows[0].ID
			_ = svc.EditTicker(id, "MSFT")
		})
		return 100, true
	})

	svc = NewService(resolver, nil)
	id := firstRowID(t, svc)
	if err := svc.EditTicker(id, "AAPL"); err != nil {
		t.Fatalf("EditTicker() error: %v", err)
	}

	svc.FetchAllPrices(context.Background())

	row := svc.Snapshot().Rows[0]
	if row.Ticker != "MSFT" {
		t.Fatalf("ticker = %q, want MSFT", row.Ticker)
	}
	if row.CurrentPrice != nil {
		t.Fatalf("stale price applied to edited row: %v", *row.CurrentPrice)
	}
}

func TestSnapshotAggregateTotals(t *testing.T) {
	resolver := &stubResolver{prices: map[string]float64{"AAPL": 100, "MSFT": 50}}
	svc := NewService(resolver, nil)
	first := firstRowID(t, svc)
	second := svc.AddRow().ID

	for _, edit := range []struct{ id, ticker, shares, target string }{
		{first, "AAPL", "10", "120"},
		{second, "MSFT", "5", "40"},
	} {
		if err := svc.EditTicker(edit.id, edit.ticker); err != nil {
			t.Fatalf("EditTicker() error: %v", err)
		}
		if err := svc.EditShares(edit.id, edit.shares); err != nil {
			t.Fatalf("EditShares() error: %v", err)
		}
		if err := svc.EditTarget(edit.id, edit.target); err != nil {
			t.Fatalf("EditTarget() error: %v", err)
		}
	}

	snapshot := svc.FetchAllPrices(context.Background())

	if snapshot.CurrentTotal != 1250 {
		t.Errorf("CurrentTotal = %v, want 1250", snapshot.CurrentTotal)
	}
	if snapshot.TargetTotal != 1400 {
		t.Errorf("TargetTotal = %v, want 1400", snapshot.TargetTotal)
	}
	if snapshot.GainTotal != 150 {
		t.Errorf("GainTotal = %v, want 150", snapshot.GainTotal)
	}
	if snapshot.ReturnPct == nil || math.Abs(*snapshot.ReturnPct-12) > 1e-9 {
		t.Errorf("ReturnPct = %v, want 12", snapshot.ReturnPct)
	}

	aaplRow := snapshot.Rows[0]
	if aaplRow.CurrentValue != 1000 || aaplRow.TargetValue != 1200 || aaplRow.Gain != 200 {
		t.Errorf("unexpected first row metrics: %+v", aaplRow)
	}
	if aaplRow.ReturnPct == nil || math.Abs(*aaplRow.ReturnPct-20) > 1e-9 {
		t.Errorf("first row ReturnPct = %v, want 20", aaplRow.ReturnPct)
	}
}

func TestSnapshotReturnPctAbsentWithoutCurrentValue(t *testing.T) {
	svc := NewService(&stubResolver{}, nil)
	id := firstRowID(t, svc)

	if err := svc.EditShares(id, "10"); err != nil {
		t.Fatalf("EditShares() error: %v", err)
	}
	if err := svc.EditTarget(id, "120"); err != nil {
		t.Fatalf("EditTarget() error: %v", err)
	}

	snapshot := svc.Snapshot()
	if snapshot.Rows[0].ReturnPct != nil {
		t.Fatalf("row ReturnPct = %v, want nil without a current value", *snapshot.Rows[0].ReturnPct)
	}
	if snapshot.ReturnPct != nil {
		t.Fatalf("portfolio ReturnPct = %v, want nil without current total", *snapshot.ReturnPct)
	}
	if snapshot.GainTotal != 1200 {
		t.Fatalf("GainTotal = %v, want 1200", snapshot.GainTotal)
	}
}
