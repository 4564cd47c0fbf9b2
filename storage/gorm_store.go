package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/pivolan/benford_analyzer/domain/models"
)

const rowBatchSize = 500

// GormStore keeps datasets in MySQL.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Store = (*GormStore)(nil)

// OpenGorm connects to dsn and migrates the schema.
func OpenGorm(dsn string, log *slog.Logger) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	return NewGormStore(db, log)
}

func NewGormStore(db *gorm.DB, log *slog.Logger) (*GormStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := db.AutoMigrate(&models.Dataset{}, &models.SignificantDigit{}, &models.DatasetRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &GormStore{db: db, logger: log.With(slog.String("component", "gorm_store"))}, nil
}

func (s *GormStore) SaveDataset(ctx context.Context, ds *models.Dataset, digits []models.SignificantDigit, rows []models.DatasetRow) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ds.ID == 0 && ds.Slug == "" {
			ds.Slug = NewSlug()
		}
		if err := tx.Omit(clause.Associations).Save(ds).Error; err != nil {
			return fmt.Errorf("save dataset: %w", err)
		}

		if err := saveDigits(tx, ds.ID, digits); err != nil {
			return err
		}

		if rows == nil {
			return nil
		}
		if err := tx.Where("dataset_id = ?", ds.ID).Delete(&models.DatasetRow{}).Error; err != nil {
			return fmt.Errorf("replace rows: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		records := make([]models.DatasetRow, len(rows))
		for i, r := range rows {
			r.ID = 0
			r.DatasetID = ds.ID
			records[i] = r
		}
		if err := tx.CreateInBatches(records, rowBatchSize).Error; err != nil {
			return fmt.Errorf("save rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("dataset saved",
		slog.String("slug", ds.Slug),
		slog.Int("digits", len(digits)),
		slog.Int("rows", len(rows)))
	return nil
}

func (s *GormStore) GetDataset(ctx context.Context, slug string) (*models.Dataset, error) {
	var ds models.Dataset
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&ds).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("dataset %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *GormStore) ListDatasets(ctx context.Context, page, size int) ([]models.Dataset, int64, error) {
	var total int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Dataset{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := normalizePage(page, size)
	var items []models.Dataset
	err := db.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

func saveDigits(tx *gorm.DB, datasetID uint, digits []models.SignificantDigit) error {
	if digits == nil {
		return nil
	}
	stale := tx.Where("dataset_id = ?", datasetID)
	if len(digits) > 0 {
		kept := make([]int, len(digits))
		for i, d := range digits {
			kept[i] = d.Digit
		}
		stale = stale.Where("digit NOT IN ?", kept)
	}
	if err := stale.Delete(&models.SignificantDigit{}).Error; err != nil {
		return fmt.Errorf("drop stale digits: %w", err)
	}
	if len(digits) == 0 {
		return nil
	}

	records := make([]models.SignificantDigit, len(digits))
	for i, d := range digits {
		records[i] = models.SignificantDigit{DatasetID: datasetID, Digit: d.Digit, Occurrences: d.Occurrences}
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dataset_id"}, {Name: "digit"}},
		DoUpdates: clause.AssignmentColumns([]string{"occurrences"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("save digits: %w", err)
	}
	return nil
}

func (s *GormStore) Occurrences(ctx context.Context, datasetID uint) ([]models.SignificantDigit, error) {
	var digits []models.SignificantDigit
	err := s.db.WithContext(ctx).Where("dataset_id = ?", datasetID).Order("id").Find(&digits).Error
	return digits, err
}

func (s *GormStore) ListRows(ctx context.Context, datasetID uint, page, size int) ([]models.DatasetRow, int64, error) {
	var total int64
	db := s.db.WithContext(ctx).Model(&models.DatasetRow{}).Where("dataset_id = ?", datasetID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := normalizePage(page, size)
	var rows []models.DatasetRow
	err := s.db.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("line").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
