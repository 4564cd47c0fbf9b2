package models

import (
	"fmt"
	"time"
)

const UntitledDataset = "Untitled dataset"

// Dataset is one analyzed upload. Only digit counts are persisted;
// percentages are always recomputed from them.
type Dataset struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	Slug           string    `gorm:"size:10;uniqueIndex;not null" json:"slug"`
	Title          string    `gorm:"size:50" json:"title"`
	Base           int       `gorm:"not null;default:10" json:"base"`
	SourceName     string    `gorm:"size:255" json:"source_name,omitempty"`
	Delimiter      string    `gorm:"size:4" json:"delimiter,omitempty"`
	RelevantColumn int       `json:"relevant_column"`
	Columns        []string  `gorm:"serializer:json;type:text" json:"columns,omitempty"`
	HasHeader      bool      `json:"has_header"`
	RowCount       int       `json:"row_count"`
	ErrorCount     int       `json:"error_count"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`

	SignificantDigits []SignificantDigit `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Rows              []DatasetRow       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (d Dataset) DisplayTitle() string {
	if d.Title == "" {
		return UntitledDataset
	}
	return d.Title
}

// ColumnName is the name of the analyzed column, falling back to the
// generated column_N form when the upload carried no name for it.
func (d Dataset) ColumnName() string {
	if d.RelevantColumn >= 0 && d.RelevantColumn < len(d.Columns) {
		return d.Columns[d.RelevantColumn]
	}
	return fmt.Sprintf("column_%d", d.RelevantColumn+1)
}

// SignificantDigit is the count of one leading digit within a dataset.
type SignificantDigit struct {
	ID          uint `gorm:"primaryKey"`
	DatasetID   uint `gorm:"uniqueIndex:idx_dataset_digit;not null"`
	Digit       int  `gorm:"uniqueIndex:idx_dataset_digit;not null"`
	Occurrences int  `gorm:"not null"`
}

// DatasetRow keeps an analyzed input row. Line counts from 0 and skips the
// header, the same numbering as the analyzer's error rows.
type DatasetRow struct {
	ID        uint     `gorm:"primaryKey" json:"-"`
	DatasetID uint     `gorm:"index:idx_dataset_line,priority:1;not null" json:"-"`
	Line      int      `gorm:"index:idx_dataset_line,priority:2" json:"line"`
	Fields    []string `gorm:"serializer:json;type:text" json:"fields"`
	HasError  bool     `json:"has_error"`
	Error     string   `gorm:"size:255" json:"error,omitempty"`
}
