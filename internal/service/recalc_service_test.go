package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockops/replenish/internal/config"
	"github.com/stockops/replenish/internal/domain"
	"github.com/stockops/replenish/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		WindowDays:            30,
		ProjectionHorizonDays: 30,
		CriticalThresholdDays: 7,
		HighThresholdDays:     14,
		MediumThresholdDays:   30,
		SafetyStockFactor:     0.20,
		MinOrderSample:        3,
		DaysOfSupplyCap:       9999,
		MaxConcurrentReads:    4,
	}
}

type recalcFixture struct {
	svc     *RecalcService
	records *fakeRecordStore
	runs    *fakeRunRepo
	cache   *fakeRankedCache
	locker  *lock.MemoryLocker
}

// newRecalcFixture wires the orchestrator against one tenant with a spread of
// urgency outcomes: one depleted-but-selling variant, one high, one medium,
// one dead variant, and one malformed aggregate that must be skipped.
func newRecalcFixture() *recalcFixture {
	variants := &fakeVariantRepo{
		exists: true,
		variants: []domain.Variant{
			{ID: 1, TenantID: "tenant-a", SKU: "SKU-A", ProductName: "Tee", Size: "M", Color: "Black"},
			{ID: 2, TenantID: "tenant-a", SKU: "SKU-B", ProductName: "Tee", Size: "L", Color: "Black"},
			{ID: 3, TenantID: "tenant-a", SKU: "SKU-C", ProductName: "Hoodie", Size: "M"},
			{ID: 4, TenantID: "tenant-a", SKU: "SKU-D", ProductName: "Cap"},
			{ID: 5, TenantID: "tenant-a", SKU: "SKU-E", ProductName: "Sock"},
		},
	}
	sales := &fakeSalesRepo{
		aggregates: []domain.SalesWindowAggregate{
			{VariantID: 1, UnitsSold: 60, OrderCount: 10, Revenue: decimal.NewFromInt(900)},
			{VariantID: 2, UnitsSold: 30, OrderCount: 10, Revenue: decimal.NewFromInt(450), DuplicateRows: 2},
			{VariantID: 3, UnitsSold: 30, OrderCount: 10, Revenue: decimal.NewFromInt(450)},
			{VariantID: 5, UnitsSold: 10, OrderCount: 0}, // impossible: sales without orders
		},
	}
	stock := &fakeStockRepo{
		stocks: map[int64]domain.StockState{
			1: {VariantID: 1, CurrentStock: 0, PendingProduction: 20},
			2: {VariantID: 2, CurrentStock: 10},
			3: {VariantID: 3, CurrentStock: 20},
			4: {VariantID: 4, CurrentStock: 50},
			5: {VariantID: 5, CurrentStock: 5},
		},
	}

	records := newFakeRecordStore()
	runs := &fakeRunRepo{}
	cache := newFakeRankedCache()
	locker := lock.NewMemoryLocker()

	svc := NewRecalcService(variants, sales, stock, records, runs, locker, cache, testEngineConfig())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC) }

	return &recalcFixture{svc: svc, records: records, runs: runs, cache: cache, locker: locker}
}

func TestRecalculateBuildsSnapshot(t *testing.T) {
	f := newRecalcFixture()

	summary, err := f.svc.Recalculate(context.Background(), "tenant-a", RecalcOptions{})
	require.NoError(t, err)

	assert.Equal(t, "tenant-a", summary.TenantID)
	assert.Equal(t, 4, summary.VariantsProcessed)
	assert.Equal(t, 1, summary.VariantsSkipped)
	assert.Equal(t, 4, summary.RecordsGenerated)
	assert.Equal(t, 2, summary.DuplicateMetricRows)
	assert.Equal(t, domain.UrgencyBreakdown{Critical: 1, High: 1, Medium: 1, Low: 1}, summary.UrgencyBreakdown)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), summary.CalculationDate)

	ranked, err := f.records.GetRanked(context.Background(), domain.RankedFilter{TenantID: "tenant-a"})
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	// Depleted-but-selling variant leads the ranking.
	assert.Equal(t, "SKU-A", ranked[0].SKU)
	assert.Equal(t, domain.UrgencyCritical, ranked[0].Urgency)
	assert.Equal(t, "M / Black", ranked[0].VariantLabel)
	// Buffered demand 72 minus 20 already in production.
	assert.Equal(t, 52, ranked[0].SuggestedQuantity)

	assert.Equal(t, domain.UrgencyHigh, ranked[1].Urgency)
	assert.Equal(t, domain.UrgencyMedium, ranked[2].Urgency)
	assert.Equal(t, domain.UrgencyLow, ranked[3].Urgency)

	// The dead variant carries the sentinel, never infinity.
	assert.Equal(t, "SKU-D", ranked[3].SKU)
	assert.Equal(t, 9999.0, ranked[3].DaysOfSupply)
	assert.Zero(t, ranked[3].SuggestedQuantity)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	f := newRecalcFixture()
	ctx := context.Background()

	first, err := f.svc.Recalculate(ctx, "tenant-a", RecalcOptions{})
	require.NoError(t, err)

	second, err := f.svc.Recalculate(ctx, "tenant-a", RecalcOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.RecordsGenerated, second.RecordsGenerated)
	assert.Equal(t, 2, f.records.replaceCalls)

	// Two runs for the same date leave exactly one snapshot, not an
	// accumulation.
	assert.Len(t, f.records.byDate, 1)
	ranked, err := f.records.GetRanked(ctx, domain.RankedFilter{TenantID: "tenant-a"})
	require.NoError(t, err)
	assert.Len(t, ranked, 4)

	// Both invocations are on the run trail.
	runs, err := f.svc.ListRuns(ctx, "tenant-a", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecalculateRejectsConcurrentRun(t *testing.T) {
	f := newRecalcFixture()
	ctx := context.Background()

	release, err := f.locker.Acquire(ctx, "tenant-a")
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Recalculate(ctx, "tenant-a", RecalcOptions{})
	assert.ErrorIs(t, err, ErrRecalcInProgress)

	// The rejected call must leave no trace: no run row, no snapshot write.
	assert.Empty(t, f.runs.runs)
	assert.Zero(t, f.records.replaceCalls)
}

func TestRecalculateUnknownTenant(t *testing.T) {
	f := newRecalcFixture()
	f.svc.variants = &fakeVariantRepo{exists: false}

	_, err := f.svc.Recalculate(context.Background(), "nobody", RecalcOptions{})
	assert.ErrorIs(t, err, ErrTenantNotFound)
	assert.Empty(t, f.runs.runs)
}

func TestRecalculateRejectsBadOverrides(t *testing.T) {
	f := newRecalcFixture()

	_, err := f.svc.Recalculate(context.Background(), "tenant-a", RecalcOptions{WindowDays: -7})
	assert.Error(t, err)
	assert.Empty(t, f.runs.runs)
}

func TestRecalculateRejectsZeroConcurrency(t *testing.T) {
	// A zero read-concurrency limit would stall the input fan-out forever. It
	// must fail the run up front instead, without ever taking the tenant lock.
	f := newRecalcFixture()
	f.svc.cfg.MaxConcurrentReads = 0
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Recalculate(ctx, "tenant-a", RecalcOptions{})
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("recalculation did not return")
	}

	// The rejected run left the tenant unlocked and wrote nothing.
	release, err := f.locker.Acquire(ctx, "tenant-a")
	require.NoError(t, err)
	release()
	assert.Empty(t, f.runs.runs)
	assert.Zero(t, f.records.replaceCalls)
}

func TestRecalculateDateIsUTCCalendarDay(t *testing.T) {
	// Late evening west of UTC is already the next day in UTC; the snapshot
	// must be labeled with the UTC day everywhere, including the archive key.
	f := newRecalcFixture()
	f.svc.now = func() time.Time {
		return time.Date(2026, 3, 2, 22, 0, 0, 0, time.FixedZone("PDT", -7*3600))
	}
	archiver := &fakeArchiver{}
	f.svc.WithArchiver(archiver)

	summary, err := f.svc.Recalculate(context.Background(), "tenant-a", RecalcOptions{})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), summary.CalculationDate)
	assert.Equal(t, []string{"replenishment/tenant-a/2026-03-03.csv"}, archiver.keys)
}

func TestRecalculatePersistsFailedRun(t *testing.T) {
	f := newRecalcFixture()
	f.records.replaceErr = errors.New("disk on fire")

	_, err := f.svc.Recalculate(context.Background(), "tenant-a", RecalcOptions{})
	require.Error(t, err)

	require.Len(t, f.runs.runs, 1)
	run := f.runs.runs[0]
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "disk on fire")
	require.NotNil(t, run.CompletedAt)

	// The failed run released the lock; a retry can proceed.
	f.records.replaceErr = nil
	_, err = f.svc.Recalculate(context.Background(), "tenant-a", RecalcOptions{})
	assert.NoError(t, err)
}

func TestRecalculateInvalidatesCache(t *testing.T) {
	f := newRecalcFixture()
	ctx := context.Background()

	require.NoError(t, f.cache.SetRanked(ctx, domain.RankedFilter{TenantID: "tenant-a"}, nil))

	_, err := f.svc.Recalculate(ctx, "tenant-a", RecalcOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.cache.invalidations)
	assert.Empty(t, f.cache.entries)
}

type fakeArchiver struct {
	keys        []string
	contentType string
	payload     []byte
}

func (f *fakeArchiver) UploadObject(_ context.Context, key string, data []byte, contentType string) error {
	f.keys = append(f.keys, key)
	f.contentType = contentType
	f.payload = data
	return nil
}

func TestRecalculateArchivesSnapshot(t *testing.T) {
	f := newRecalcFixture()
	archiver := &fakeArchiver{}
	f.svc.WithArchiver(archiver)

	_, err := f.svc.Recalculate(context.Background(), "tenant-a", RecalcOptions{})
	require.NoError(t, err)

	require.Equal(t, []string{"replenishment/tenant-a/2026-03-02.csv"}, archiver.keys)
	assert.Equal(t, "text/csv", archiver.contentType)
	assert.Contains(t, string(archiver.payload), "Days Of Supply")
	assert.Contains(t, string(archiver.payload), "SKU-A")
}
