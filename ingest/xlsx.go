package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// RowsFromXLSX returns the rows of the first sheet of a workbook.
func RowsFromXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %w", ErrUnreadableUpload, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableUpload)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %s: %w", ErrUnreadableUpload, sheets[0], err)
	}
	return rows, nil
}
