package ingest

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/pierrec/lz4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func lz4Bytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestUnpack(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     func(t *testing.T) []byte
		wantName string
		want     string
	}{
		{
			name:     "plain file passes through",
			file:     "data.csv",
			data:     func(t *testing.T) []byte { return []byte("1\n2\n") },
			wantName: "data.csv",
			want:     "1\n2\n",
		},
		{
			name:     "gzip",
			file:     "data.csv.gz",
			data:     func(t *testing.T) []byte { return gzipBytes(t, "1\n2\n") },
			wantName: "data.csv",
			want:     "1\n2\n",
		},
		{
			name:     "lz4",
			file:     "DATA.TSV.LZ4",
			data:     func(t *testing.T) []byte { return lz4Bytes(t, "3\t4\n") },
			wantName: "DATA.TSV",
			want:     "3\t4\n",
		},
		{
			name: "zip picks the largest member",
			file: "bundle.zip",
			data: func(t *testing.T) []byte {
				return zipBytes(t, map[string]string{
					"readme.txt":      "hi",
					"nested/big.csv":  "10\n20\n30\n40\n",
					"nested/tiny.csv": "1\n",
				})
			},
			wantName: "big.csv",
			want:     "10\n20\n30\n40\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, name, err := Unpack(tt.file, tt.data(t), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestUnpackEmptyZip(t *testing.T) {
	_, _, err := Unpack("empty.zip", zipBytes(t, nil), 0)
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func TestUnpackLimit(t *testing.T) {
	data := gzipBytes(t, strings.Repeat("1\n", 100))

	_, _, err := Unpack("big.gz", data, 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	out, _, err := Unpack("big.gz", data, 200)
	require.NoError(t, err)
	assert.Len(t, out, 200)
}

func TestUnpackCorruptPayload(t *testing.T) {
	for _, name := range []string{"bad.gz", "bad.zip", "bad.lz4"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := Unpack(name, []byte("plain text"), 0)
			assert.ErrorIs(t, err, ErrUnreadableUpload)
		})
	}
}

func TestIsArchive(t *testing.T) {
	assert.True(t, IsArchive("a.ZIP"))
	assert.True(t, IsArchive("a.csv.gz"))
	assert.True(t, IsArchive("a.lz4"))
	assert.False(t, IsArchive("a.csv"))
}
