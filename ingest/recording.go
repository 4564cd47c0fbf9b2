package ingest

import (
	"github.com/pivolan/benford_analyzer/benford"
)

// Row is one record seen by a RecordingReader. Failed rows keep a nil
// Fields slice and the read error.
type Row struct {
	Index  int
	Fields []string
	Err    error
}

// RecordingReader keeps every row it hands out so the caller can persist
// what was analyzed. Indexes skip the header row, matching the analyzer's
// error row numbering.
type RecordingReader struct {
	src        benford.RowReader
	skipHeader bool
	seen       int
	rows       []Row
	limit      int
}

var _ benford.RowReader = (*RecordingReader)(nil)

// NewRecordingReader wraps src. A positive limit caps how many rows are kept;
// reading itself is never capped.
func NewRecordingReader(src benford.RowReader, skipHeader bool, limit int) *RecordingReader {
	return &RecordingReader{src: src, skipHeader: skipHeader, limit: limit}
}

func (r *RecordingReader) Read() ([]string, error) {
	row, err := r.src.Read()
	if err != nil && !benford.IsRowError(err) {
		return row, err
	}
	r.seen++
	if r.skipHeader && r.seen == 1 {
		return row, err
	}
	if r.limit <= 0 || len(r.rows) < r.limit {
		index := r.seen - 1
		if r.skipHeader {
			index--
		}
		kept := Row{Index: index, Err: err}
		if row != nil {
			kept.Fields = append([]string(nil), row...)
		}
		r.rows = append(r.rows, kept)
	}
	return row, err
}

func (r *RecordingReader) Rows() []Row {
	return r.rows
}
