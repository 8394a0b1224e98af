package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medshelf/m/domain"
	"medshelf/m/internal/database"
	"medshelf/m/internal/metrics"
)

func newTestRepository(t *testing.T, opts ...Option) (*Repository, *database.Handle) {
	t.Helper()
	h, err := database.Open(context.Background(), database.Options{Name: "MedicineDatabase", Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return New(h, opts...), h
}

func crocin() domain.Candidate {
	return domain.Candidate{
		BrandName:   "Crocin",
		SaltName:    "Paracetamol",
		CompanyName: "GSK",
		DosageForm:  "tablet",
		Quantity:    "10",
		Price:       "25",
	}
}

func benadryl() domain.Candidate {
	return domain.Candidate{
		BrandName:   "Benadryl",
		SaltName:    "Diphenhydramine",
		CompanyName: "J&J",
		DosageForm:  "syrup",
		Quantity:    "100.5",
		Price:       "89.5",
	}
}

func TestAddThenListReturnsStoredRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	before := time.Now()
	added, err := repo.Add(ctx, benadryl())
	require.NoError(t, err)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, added, got)
	assert.Positive(t, got.ID)
	assert.Equal(t, "Benadryl", got.BrandName)
	assert.Equal(t, "Diphenhydramine", got.SaltName)
	assert.Equal(t, "J&J", got.CompanyName)
	assert.Equal(t, "syrup", got.DosageForm)
	assert.Equal(t, 100.5, got.Quantity)
	assert.Equal(t, 89.5, got.Price)
	assert.Equal(t, domain.UnitML, got.Unit)
	assert.False(t, got.CreatedAt.Before(before))
}

func TestScenarioAddSearchDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	_, err := repo.Add(ctx, benadryl())
	require.NoError(t, err)

	added, err := repo.Add(ctx, crocin())
	require.NoError(t, err)
	assert.Equal(t, int64(2), added.ID)
	assert.Equal(t, domain.UnitTablets, added.Unit)

	found, err := repo.List(ctx, "paracetamol")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, added, found[0])

	removed, err := repo.Delete(ctx, added.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotEqual(t, added.ID, all[0].ID)
}

func TestAddRejectsInvalidCandidateWithoutWriting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	invalid := []domain.Candidate{
		{SaltName: "Paracetamol", CompanyName: "GSK", DosageForm: "tablet", Quantity: "1", Price: "1"},
		{BrandName: "A", CompanyName: "GSK", DosageForm: "tablet", Quantity: "1", Price: "1"},
		{BrandName: "A", SaltName: "B", DosageForm: "tablet", Quantity: "1", Price: "1"},
		{BrandName: "A", SaltName: "B", CompanyName: "C", Quantity: "1", Price: "1"},
		{BrandName: "A", SaltName: "B", CompanyName: "C", DosageForm: "tablet", Quantity: "1", Price: "cheap"},
		{BrandName: "A", SaltName: "B", CompanyName: "C", DosageForm: "syrup", Quantity: "lots", Price: "1"},
	}
	for _, c := range invalid {
		_, err := repo.Add(ctx, c)
		require.ErrorIs(t, err, domain.ErrValidation)
		require.NotErrorIs(t, err, ErrOperation)
	}

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUnitFollowsDosageForm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	for _, form := range append([]string{"tablet", "capsule"}, domain.LiquidDosageForms...) {
		c := crocin()
		c.DosageForm = form
		_, err := repo.Add(ctx, c)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	for _, med := range all {
		if med.DosageForm == domain.DosageTablet {
			assert.Equal(t, domain.UnitTablets, med.Unit)
		} else {
			assert.Equal(t, domain.UnitML, med.Unit)
		}
	}
}

func TestDeleteAbsentIDIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	added, err := repo.Add(ctx, crocin())
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, added.ID+100)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.Delete(ctx, added.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, added.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestIDsAreNotReused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	first, err := repo.Add(ctx, crocin())
	require.NoError(t, err)
	second, err := repo.Add(ctx, crocin())
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	_, err = repo.Delete(ctx, second.ID)
	require.NoError(t, err)

	third, err := repo.Add(ctx, crocin())
	require.NoError(t, err)
	assert.Greater(t, third.ID, second.ID)
}

func TestListFiltersOnBrandSaltAndForm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	for _, c := range []domain.Candidate{crocin(), benadryl()} {
		_, err := repo.Add(ctx, c)
		require.NoError(t, err)
	}
	dolo := crocin()
	dolo.BrandName = "Dolo 650"
	dolo.CompanyName = "Micro Labs"
	_, err := repo.Add(ctx, dolo)
	require.NoError(t, err)

	cases := map[string][]string{
		"para":   {"Crocin", "Dolo 650"},
		"PARA":   {"Crocin", "Dolo 650"},
		"syrup":  {"Benadryl"},
		"tab":    {"Crocin", "Dolo 650"},
		"bena":   {"Benadryl"},
		"micro":  nil,
		"  ":     {"Crocin", "Benadryl", "Dolo 650"},
		"zzzzzz": nil,
	}
	for query, want := range cases {
		got, err := repo.List(ctx, query)
		require.NoError(t, err)
		var brands []string
		for _, med := range got {
			brands = append(brands, med.BrandName)
		}
		assert.Equalf(t, want, brands, "query %q", query)
	}
}

func TestScanStopsEarlyAndReleasesConnection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	for i := 0; i < 3; i++ {
		_, err := repo.Add(ctx, crocin())
		require.NoError(t, err)
	}

	seen := 0
	for med, err := range repo.Scan(ctx, "") {
		require.NoError(t, err)
		require.Equal(t, int64(1), med.ID)
		seen++
		break
	}
	require.Equal(t, 1, seen)

	// A new write proves the scan's transaction was released.
	_, err := repo.Add(ctx, crocin())
	require.NoError(t, err)
}

func TestGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	added, err := repo.Add(ctx, crocin())
	require.NoError(t, err)

	got, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, got)

	_, err = repo.Get(ctx, added.ID+1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWithClockStampsCreatedAt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 123_456_789, time.UTC)
	repo, _ := newTestRepository(t, WithClock(func() time.Time { return fixed }))

	added, err := repo.Add(ctx, crocin())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 124_000_000, time.UTC), added.CreatedAt)

	got, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.CreatedAt, got.CreatedAt)
}

func TestCreatedAtIsNeverBeforeTheCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cases := map[string]struct {
		now  time.Time
		want time.Time
	}{
		"sub-millisecond rounds up": {
			now:  time.Date(2024, 1, 1, 0, 0, 0, 500_000, time.UTC),
			want: time.Date(2024, 1, 1, 0, 0, 0, 1_000_000, time.UTC),
		},
		"exact millisecond kept": {
			now:  time.Date(2024, 1, 1, 0, 0, 0, 7_000_000, time.UTC),
			want: time.Date(2024, 1, 1, 0, 0, 0, 7_000_000, time.UTC),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			repo, _ := newTestRepository(t, WithClock(func() time.Time { return tc.now }))
			added, err := repo.Add(ctx, crocin())
			require.NoError(t, err)
			assert.Equal(t, tc.want, added.CreatedAt)
			assert.False(t, added.CreatedAt.Before(tc.now))

			got, err := repo.Get(ctx, added.ID)
			require.NoError(t, err)
			assert.Equal(t, added.CreatedAt, got.CreatedAt)
		})
	}
}

func TestOperationsFailWhenStorageIsGone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, h := newTestRepository(t)
	require.NoError(t, h.Close())

	_, err := repo.Add(ctx, crocin())
	require.ErrorIs(t, err, ErrOperation)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "add", opErr.Op)

	_, err = repo.List(ctx, "")
	require.ErrorIs(t, err, ErrOperation)

	_, err = repo.Delete(ctx, 1)
	require.ErrorIs(t, err, ErrOperation)

	_, err = repo.Get(ctx, 1)
	require.ErrorIs(t, err, ErrOperation)

	// Validation still wins over storage failures.
	_, err = repo.Add(ctx, domain.Candidate{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestScanYieldsSingleError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, h := newTestRepository(t)
	require.NoError(t, h.Close())

	errs := 0
	for _, err := range repo.Scan(ctx, "") {
		require.Error(t, err)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestFutures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	addF := repo.AddAsync(ctx, crocin())
	<-addF.Done()
	added, err := addF.Wait()
	require.NoError(t, err)

	list, err := repo.ListAsync(ctx, "crocin").Wait()
	require.NoError(t, err)
	require.Len(t, list, 1)

	removed, err := repo.DeleteAsync(ctx, added.ID).Wait()
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = repo.AddAsync(ctx, domain.Candidate{}).Wait()
	require.True(t, errors.Is(err, domain.ErrValidation))
}

func TestMetricsRecordOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := metrics.New()
	repo, _ := newTestRepository(t, WithMetrics(rec))

	_, err := repo.Add(ctx, crocin())
	require.NoError(t, err)
	_, err = repo.Add(ctx, domain.Candidate{})
	require.Error(t, err)
	_, err = repo.List(ctx, "")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(rec.Registry(), "medshelf_repository_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
