package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/pivolan/benford_analyzer/benford"
)

const maxLineBytes = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LineReader reads one record per physical line. Unlike csv.Reader it
// reports blank lines as empty records, so they count as rows without a
// significant digit. Quoted fields cannot span lines.
type LineReader struct {
	r         *bufio.Reader
	delimiter rune
	line      int
}

var _ benford.RowReader = (*LineReader)(nil)

func NewLineReader(r io.Reader, delimiter rune) *LineReader {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	return &LineReader{r: bufio.NewReaderSize(r, 64*1024), delimiter: delimiter}
}

// Read returns the next record. Malformed lines yield a *csv.ParseError
// carrying the physical line number. A line over maxLineBytes is skipped
// and reported the same way with bufio.ErrTooLong.
func (lr *LineReader) Read() ([]string, error) {
	raw, err := lr.readLine()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if errors.Is(err, bufio.ErrTooLong) {
		lr.line++
		return nil, &csv.ParseError{StartLine: lr.line, Line: lr.line, Err: bufio.ErrTooLong}
	}
	if err != nil {
		return nil, err
	}
	lr.line++
	if lr.line == 1 {
		raw = bytes.TrimPrefix(raw, utf8BOM)
	}
	text := strings.TrimSuffix(string(raw), "\r")
	if text == "" {
		return []string{}, nil
	}
	record, err := splitLine(text, lr.delimiter)
	if err != nil {
		if pe, ok := err.(*csv.ParseError); ok {
			pe.StartLine, pe.Line = lr.line, lr.line
			return nil, pe
		}
		return nil, &csv.ParseError{StartLine: lr.line, Line: lr.line, Err: err}
	}
	return record, nil
}

// readLine returns the next line without its '\n'. The whole line is
// consumed even when it is too long, so reading resumes on the next one.
func (lr *LineReader) readLine() ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if !tooLong {
			if len(line)+len(chunk) > maxLineBytes {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == nil:
		case errors.Is(err, io.EOF):
			if !tooLong && len(line) == 0 {
				return nil, io.EOF
			}
		default:
			return nil, err
		}
		if tooLong {
			return nil, bufio.ErrTooLong
		}
		return line, nil
	}
}
