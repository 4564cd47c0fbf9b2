package ingest

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pierrec/lz4"
)

var (
	ErrEmptyArchive = errors.New("archive holds no files")
	ErrTooLarge     = errors.New("unpacked data exceeds limit")

	// ErrUnreadableUpload marks payloads that are corrupt or not what
	// their extension claims.
	ErrUnreadableUpload = errors.New("unreadable upload")
)

// IsArchive reports whether name has an extension Unpack understands.
func IsArchive(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip", ".gz", ".lz4":
		return true
	}
	return false
}

// Unpack decompresses .zip (largest member), .gz and .lz4 payloads and
// returns the inner data with its file name. Other names are returned as is.
// A positive limit caps the unpacked size.
func Unpack(name string, data []byte, limit int64) ([]byte, string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip":
		return unpackZip(data, limit)
	case ".gz":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("%w: open gzip %s: %w", ErrUnreadableUpload, name, err)
		}
		defer gr.Close()
		out, err := readLimited(gr, limit)
		return out, trimExt(name), err
	case ".lz4":
		out, err := readLimited(lz4.NewReader(bytes.NewReader(data)), limit)
		return out, trimExt(name), err
	}
	return data, name, nil
}

func unpackZip(data []byte, limit int64) ([]byte, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", fmt.Errorf("%w: open zip: %w", ErrUnreadableUpload, err)
	}

	var largest *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if largest == nil || f.UncompressedSize64 > largest.UncompressedSize64 {
			largest = f
		}
	}
	if largest == nil {
		return nil, "", ErrEmptyArchive
	}

	rc, err := largest.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: open %s: %w", ErrUnreadableUpload, largest.Name, err)
	}
	defer rc.Close()
	out, err := readLimited(rc, limit)
	return out, path.Base(largest.Name), err
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableUpload, err)
	}
	if limit <= 0 {
		return out, nil
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, limit)
	}
	return out, nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
