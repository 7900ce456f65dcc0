package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stockops/replenish/internal/domain"
)

// In-memory repository doubles. They keep just enough state to exercise the
// orchestrator contracts: atomic replace, ranked reads and the run trail.

type fakeVariantRepo struct {
	variants []domain.Variant
	exists   bool
}

func (f *fakeVariantRepo) GetVariants(_ context.Context, _ string) ([]domain.Variant, error) {
	return f.variants, nil
}

func (f *fakeVariantRepo) TenantExists(_ context.Context, _ string) (bool, error) {
	return f.exists, nil
}

type fakeSalesRepo struct {
	aggregates []domain.SalesWindowAggregate
}

func (f *fakeSalesRepo) GetWindowAggregates(_ context.Context, _ string, _ int, _ time.Time) ([]domain.SalesWindowAggregate, error) {
	return f.aggregates, nil
}

type fakeStockRepo struct {
	stocks map[int64]domain.StockState
}

func (f *fakeStockRepo) GetStockStates(_ context.Context, _ string) (map[int64]domain.StockState, error) {
	return f.stocks, nil
}

type fakeRecordStore struct {
	mu           sync.Mutex
	byDate       map[string][]domain.ReplenishmentRecord
	replaceCalls int
	replaceErr   error
	getCalls     int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{byDate: make(map[string][]domain.ReplenishmentRecord)}
}

func recordKey(tenantID string, date time.Time) string {
	return tenantID + "|" + date.Format("2006-01-02")
}

func (f *fakeRecordStore) ReplaceForDate(_ context.Context, tenantID string, date time.Time, records []domain.ReplenishmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.replaceCalls++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.byDate[recordKey(tenantID, date)] = append([]domain.ReplenishmentRecord(nil), records...)
	return nil
}

func (f *fakeRecordStore) GetRanked(_ context.Context, filter domain.RankedFilter) ([]domain.ReplenishmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++

	prefix := filter.TenantID + "|"
	date := filter.Date
	if date == "" {
		for key := range f.byDate {
			if d := strings.TrimPrefix(key, prefix); strings.HasPrefix(key, prefix) && d > date {
				date = d
			}
		}
	}

	var out []domain.ReplenishmentRecord
	for _, rec := range f.byDate[filter.TenantID+"|"+date] {
		if filter.Urgency != "" && rec.Urgency != filter.Urgency {
			continue
		}
		out = append(out, rec)
	}
	domain.SortRanked(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeRecordStore) GetUrgencySummary(ctx context.Context, tenantID string, date time.Time) (domain.UrgencyBreakdown, error) {
	var b domain.UrgencyBreakdown
	records, _ := f.GetRanked(ctx, domain.RankedFilter{TenantID: tenantID, Date: date.Format("2006-01-02")})
	for _, rec := range records {
		b.Add(rec.Urgency)
	}
	return b, nil
}

func (f *fakeRecordStore) GetAvailableDates(_ context.Context, tenantID string, limit int) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var dates []time.Time
	for key := range f.byDate {
		if !strings.HasPrefix(key, tenantID+"|") {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimPrefix(key, tenantID+"|"))
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

func (f *fakeRecordStore) FlagDiscontinued(_ context.Context, tenantID string, variantID int64, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := recordKey(tenantID, date)
	for i, rec := range f.byDate[key] {
		if rec.VariantID == variantID {
			f.byDate[key][i].FlaggedDiscontinued = true
			return nil
		}
	}
	return fmt.Errorf("no record for variant %d on %s", variantID, date.Format("2006-01-02"))
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []domain.CalculationRun
}

func (f *fakeRunRepo) CreateRun(_ context.Context, run *domain.CalculationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRunRepo) FinishRun(_ context.Context, run *domain.CalculationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.runs {
		if f.runs[i].ID == run.ID {
			f.runs[i] = *run
			return nil
		}
	}
	return fmt.Errorf("run %d not found", run.ID)
}

func (f *fakeRunRepo) ListRuns(_ context.Context, tenantID string, limit int) ([]domain.CalculationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.CalculationRun
	for i := len(f.runs) - 1; i >= 0; i-- {
		if f.runs[i].TenantID == tenantID {
			out = append(out, f.runs[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeRankedCache struct {
	mu            sync.Mutex
	entries       map[string][]domain.ReplenishmentRecord
	hits          int
	sets          int
	invalidations int
}

func newFakeRankedCache() *fakeRankedCache {
	return &fakeRankedCache{entries: make(map[string][]domain.ReplenishmentRecord)}
}

func cacheKey(filter domain.RankedFilter) string {
	return fmt.Sprintf("%s|%s|%s|%d", filter.TenantID, filter.Date, filter.Urgency, filter.Limit)
}

func (f *fakeRankedCache) GetRanked(_ context.Context, filter domain.RankedFilter) ([]domain.ReplenishmentRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, ok := f.entries[cacheKey(filter)]
	if ok {
		f.hits++
	}
	return records, ok, nil
}

func (f *fakeRankedCache) SetRanked(_ context.Context, filter domain.RankedFilter, records []domain.ReplenishmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sets++
	f.entries[cacheKey(filter)] = append([]domain.ReplenishmentRecord(nil), records...)
	return nil
}

func (f *fakeRankedCache) InvalidateTenant(_ context.Context, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invalidations++
	for key := range f.entries {
		if len(key) > len(tenantID) && key[:len(tenantID)+1] == tenantID+"|" {
			delete(f.entries, key)
		}
	}
	return nil
}
