package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetColumnName(t *testing.T) {
	tests := []struct {
		name string
		ds   Dataset
		want string
	}{
		{"named", Dataset{RelevantColumn: 1, Columns: []string{"name", "amount"}}, "amount"},
		{"no names", Dataset{RelevantColumn: 2}, "column_3"},
		{"beyond names", Dataset{RelevantColumn: 3, Columns: []string{"a"}}, "column_4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ds.ColumnName())
		})
	}
}

func TestDatasetDisplayTitle(t *testing.T) {
	assert.Equal(t, UntitledDataset, Dataset{}.DisplayTitle())
	assert.Equal(t, "Q3", Dataset{Title: "Q3"}.DisplayTitle())
}
