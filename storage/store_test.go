package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivolan/benford_analyzer/domain/models"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemoryStore()}
	// Runs against a live MySQL only when a DSN is provided.
	if dsn := os.Getenv("BENFORD_TEST_DSN"); dsn != "" {
		s, err := OpenGorm(dsn, nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		out["gorm"] = s
	}
	return out
}

func digitsOf(pairs ...int) []models.SignificantDigit {
	var out []models.SignificantDigit
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.SignificantDigit{Digit: pairs[i], Occurrences: pairs[i+1]})
	}
	return out
}

func TestStoreSaveAndLoad(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ds := &models.Dataset{Title: "invoices", Base: 10, RowCount: 4, ErrorCount: 1}
			rows := []models.DatasetRow{
				{Line: 0, Fields: []string{"123"}},
				{Line: 1, Fields: []string{"x"}, HasError: true, Error: "no significant digit"},
			}
			require.NoError(t, s.SaveDataset(ctx, ds, digitsOf(3, 1, 1, 2), rows))
			require.NotZero(t, ds.ID)
			require.Len(t, ds.Slug, 10)

			got, err := s.GetDataset(ctx, ds.Slug)
			require.NoError(t, err)
			assert.Equal(t, "invoices", got.Title)
			assert.Equal(t, 4, got.RowCount)
			assert.Equal(t, 1, got.ErrorCount)

			occ, err := s.Occurrences(ctx, ds.ID)
			require.NoError(t, err)
			require.Len(t, occ, 2)
			assert.Equal(t, 3, occ[0].Digit, "insertion order is kept")
			assert.Equal(t, 1, occ[1].Digit)
			assert.Equal(t, 2, occ[1].Occurrences)

			stored, total, err := s.ListRows(ctx, ds.ID, 1, 10)
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
			require.Len(t, stored, 2)
			assert.Equal(t, []string{"x"}, stored[1].Fields)
			assert.True(t, stored[1].HasError)
		})
	}
}

func TestStoreUpsertDigits(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ds := &models.Dataset{Base: 10}
			require.NoError(t, s.SaveDataset(ctx, ds, digitsOf(1, 5, 2, 3), nil))
			require.NoError(t, s.SaveDataset(ctx, ds, digitsOf(2, 7, 4, 1), nil))

			occ, err := s.Occurrences(ctx, ds.ID)
			require.NoError(t, err)
			require.Len(t, occ, 2)
			counts := map[int]int{}
			for _, d := range occ {
				counts[d.Digit] = d.Occurrences
			}
			assert.Equal(t, map[int]int{2: 7, 4: 1}, counts)
			assert.Equal(t, 4, occ[1].Digit)

			_, total, err := s.ListRows(ctx, ds.ID, 1, 10)
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestStoreResaveDropsMissingDigits(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ds := &models.Dataset{Base: 10}
			require.NoError(t, s.SaveDataset(ctx, ds, digitsOf(1, 5, 2, 3), nil))
			require.NoError(t, s.SaveDataset(ctx, ds, digitsOf(1, 8), nil))

			occ, err := s.Occurrences(ctx, ds.ID)
			require.NoError(t, err)
			require.Len(t, occ, 1)
			assert.Equal(t, 1, occ[0].Digit)
			assert.Equal(t, 8, occ[0].Occurrences)

			require.NoError(t, s.SaveDataset(ctx, ds, nil, nil))
			occ, err = s.Occurrences(ctx, ds.ID)
			require.NoError(t, err)
			assert.Len(t, occ, 1)

			require.NoError(t, s.SaveDataset(ctx, ds, []models.SignificantDigit{}, nil))
			occ, err = s.Occurrences(ctx, ds.ID)
			require.NoError(t, err)
			assert.Empty(t, occ)
		})
	}
}

func TestStoreKeepsColumns(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ds := &models.Dataset{Base: 10, RelevantColumn: 1, Columns: []string{"name", "amount"}}
			require.NoError(t, s.SaveDataset(ctx, ds, nil, nil))

			got, err := s.GetDataset(ctx, ds.Slug)
			require.NoError(t, err)
			assert.Equal(t, []string{"name", "amount"}, got.Columns)
			assert.Equal(t, "amount", got.ColumnName())
		})
	}
}

func TestStoreRowsAreReplaced(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ds := &models.Dataset{Base: 10}
			require.NoError(t, s.SaveDataset(ctx, ds, nil, []models.DatasetRow{{Line: 0}, {Line: 1}}))
			require.NoError(t, s.SaveDataset(ctx, ds, nil, []models.DatasetRow{{Line: 0, Fields: []string{"9"}}}))

			rows, total, err := s.ListRows(ctx, ds.ID, 0, 0)
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)
			assert.Equal(t, []string{"9"}, rows[0].Fields)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetDataset(context.Background(), "missing123")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		ds := &models.Dataset{Title: string(rune('a' + i)), Base: 10, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.SaveDataset(ctx, ds, nil, nil))
	}

	page1, total, err := s.ListDatasets(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	require.Len(t, page1, 10)
	assert.Equal(t, "y", page1[0].Title)

	page3, _, err := s.ListDatasets(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, page3, 5)
	assert.Equal(t, "a", page3[4].Title)

	beyond, _, err := s.ListDatasets(ctx, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryStoreRejectsDuplicateSlug(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.SaveDataset(ctx, &models.Dataset{Slug: "abc"}, nil, nil))
	assert.Error(t, s.SaveDataset(ctx, &models.Dataset{Slug: "abc"}, nil, nil))
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().GetDataset(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSlug(t *testing.T) {
	a, b := NewSlug(), NewSlug()
	assert.Len(t, a, 10)
	assert.NotEqual(t, a, b)
}

func TestNormalizePage(t *testing.T) {
	offset, limit := normalizePage(0, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultPageSize, limit)

	offset, limit = normalizePage(3, 20)
	assert.Equal(t, 40, offset)
	assert.Equal(t, 20, limit)
}
