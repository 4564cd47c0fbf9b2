// Package storage persists datasets, their digit counts and analyzed rows.
package storage

import (
	"context"
	"errors"
	"strings"

	uuid "github.com/satori/go.uuid"

	"github.com/pivolan/benford_analyzer/domain/models"
)

const (
	DefaultPageSize = 10
	slugLength      = 10
)

var ErrNotFound = errors.New("not found")

type Store interface {
	// SaveDataset creates ds (filling its ID and Slug) or updates it, then
	// stores the digit counts. Non-nil digits become the complete set of
	// counts, dropping digits left out. Non-nil rows replace any stored rows.
	SaveDataset(ctx context.Context, ds *models.Dataset, digits []models.SignificantDigit, rows []models.DatasetRow) error
	GetDataset(ctx context.Context, slug string) (*models.Dataset, error)
	// ListDatasets returns one page of datasets, newest first, and the total.
	ListDatasets(ctx context.Context, page, size int) ([]models.Dataset, int64, error)
	// Occurrences returns the digit counts in the order they were first saved.
	Occurrences(ctx context.Context, datasetID uint) ([]models.SignificantDigit, error)
	ListRows(ctx context.Context, datasetID uint, page, size int) ([]models.DatasetRow, int64, error)
	Close() error
}

// NewSlug returns a random 10 character identifier.
func NewSlug() string {
	return strings.ReplaceAll(uuid.NewV4().String(), "-", "")[:slugLength]
}

// normalizePage turns a 1-based page and size into offset and limit.
func normalizePage(page, size int) (offset, limit int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * size, size
}
