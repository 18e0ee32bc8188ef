package system

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// replaceFile swaps in a new inode at path, the way a device node vanishes
// and reappears.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".next"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestIntFileRead(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int64
		wantErr bool
	}{
		{"negative with leading whitespace", "  -42\n", -42, false},
		{"plain", "1337\n", 1337, false},
		{"zero is a value, not a failure", "0\n", 0, false},
		{"trailing junk ignored", "85 mhz\n", 85, false},
		{"empty file", "", 0, true},
		{"no digits", "abc", 0, true},
		{"whitespace only", "   \n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "n", tt.content)
			r, err := OpenIntFile(path)
			require.NoError(t, err)
			defer r.Close()

			v, err := r.Read()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestIntFileOpenMissing(t *testing.T) {
	_, err := OpenIntFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestIntFileRereadsRegeneratedContent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "n", "10\n")
	r, err := OpenIntFile(path)
	require.NoError(t, err)
	defer r.Close()

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)

	// Same inode, new content: the handle must re-seek, not cache.
	require.NoError(t, os.WriteFile(path, []byte("20\n"), 0o644))
	v, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)
}

func TestIntFileRetryOnceReopens(t *testing.T) {
	path := writeFile(t, t.TempDir(), "n", "")
	r, err := OpenIntFile(path)
	require.NoError(t, err)
	defer r.Close()

	// The open handle points at an empty inode; a replacement node exists
	// at the same path. One reopen must recover within the same read.
	replaceFile(t, path, "55\n")

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(55), v)
}

func TestIntFileBoundedRead(t *testing.T) {
	// First integer lands exactly at the end of the bounded buffer.
	content := strings.Repeat(" ", readBufSize-1) + "7" + strings.Repeat("9", 64)
	path := writeFile(t, t.TempDir(), "n", content)
	r, err := OpenIntFile(path)
	require.NoError(t, err)
	defer r.Close()

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestStringFileRead(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"strips trailing newline", "cpu-thermal\n", "cpu-thermal", false},
		{"strips crlf", "ok\r\n", "ok", false},
		{"strips only one terminator", "a\n\n", "a\n", false},
		{"no terminator", "raw", "raw", false},
		{"empty file", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "s", tt.content)
			r, err := OpenStringFile(path)
			require.NoError(t, err)
			defer r.Close()

			s, err := r.Read()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestParseFailureIsDistinctFromZero(t *testing.T) {
	path := writeFile(t, t.TempDir(), "n", "abc")
	r, err := OpenIntFile(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read()
	assert.ErrorIs(t, err, ErrParse)
}
