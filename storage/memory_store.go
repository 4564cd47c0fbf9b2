package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pivolan/benford_analyzer/domain/models"
)

// MemoryStore keeps everything in process memory. It backs tests and runs
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   uint
	datasets map[uint]*models.Dataset
	slugs    map[string]uint
	digits   map[uint][]models.SignificantDigit
	rows     map[uint][]models.DatasetRow
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		datasets: make(map[uint]*models.Dataset),
		slugs:    make(map[string]uint),
		digits:   make(map[uint][]models.SignificantDigit),
		rows:     make(map[uint][]models.DatasetRow),
		now:      time.Now,
	}
}

func (m *MemoryStore) SaveDataset(ctx context.Context, ds *models.Dataset, digits []models.SignificantDigit, rows []models.DatasetRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if ds.ID == 0 {
		if ds.Slug == "" {
			ds.Slug = NewSlug()
		}
		if _, taken := m.slugs[ds.Slug]; taken {
			return fmt.Errorf("dataset slug %q already exists", ds.Slug)
		}
		m.nextID++
		ds.ID = m.nextID
		if ds.CreatedAt.IsZero() {
			ds.CreatedAt = m.now()
		}
	} else if _, ok := m.datasets[ds.ID]; !ok {
		return fmt.Errorf("dataset %d: %w", ds.ID, ErrNotFound)
	}

	stored := *ds
	stored.SignificantDigits, stored.Rows = nil, nil
	stored.Columns = append([]string(nil), ds.Columns...)
	m.datasets[ds.ID] = &stored
	m.slugs[ds.Slug] = ds.ID

	if digits != nil {
		m.digits[ds.ID] = m.mergeDigits(m.digits[ds.ID], ds.ID, digits)
	}

	if rows != nil {
		kept := make([]models.DatasetRow, len(rows))
		for i, r := range rows {
			m.nextID++
			r.ID = m.nextID
			r.DatasetID = ds.ID
			r.Fields = append([]string(nil), r.Fields...)
			kept[i] = r
		}
		m.rows[ds.ID] = kept
	}
	return nil
}

// mergeDigits keeps the IDs of digits already stored and drops those
// missing from digits.
func (m *MemoryStore) mergeDigits(stored []models.SignificantDigit, datasetID uint, digits []models.SignificantDigit) []models.SignificantDigit {
	wanted := make(map[int]bool, len(digits))
	for _, d := range digits {
		wanted[d.Digit] = true
	}
	existing := make([]models.SignificantDigit, 0, len(digits))
	for _, d := range stored {
		if wanted[d.Digit] {
			existing = append(existing, d)
		}
	}
	for _, d := range digits {
		d.DatasetID = datasetID
		replaced := false
		for i := range existing {
			if existing[i].Digit == d.Digit {
				existing[i].Occurrences = d.Occurrences
				replaced = true
				break
			}
		}
		if !replaced {
			m.nextID++
			d.ID = m.nextID
			existing = append(existing, d)
		}
	}
	return existing
}

func (m *MemoryStore) GetDataset(ctx context.Context, slug string) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugs[slug]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", slug, ErrNotFound)
	}
	ds := *m.datasets[id]
	return &ds, nil
}

func (m *MemoryStore) ListDatasets(ctx context.Context, page, size int) ([]models.Dataset, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.RLock()
	all := make([]models.Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		all = append(all, *ds)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	offset, limit := normalizePage(page, size)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *MemoryStore) Occurrences(ctx context.Context, datasetID uint) ([]models.SignificantDigit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.SignificantDigit(nil), m.digits[datasetID]...), nil
}

func (m *MemoryStore) ListRows(ctx context.Context, datasetID uint, page, size int) ([]models.DatasetRow, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.rows[datasetID]
	offset, limit := normalizePage(page, size)
	return paginate(rows, offset, limit), int64(len(rows)), nil
}

func (m *MemoryStore) Close() error { return nil }

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[offset:end]...)
}
