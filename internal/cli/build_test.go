package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.ics")

	require.NoError(t, writeFileAtomic(path, []byte("BEGIN:VCALENDAR\r\n")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR\r\n", string(got))

	// Overwrite replaces the previous content wholesale.
	require.NoError(t, writeFileAtomic(path, []byte("v2")))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	err := writeFileAtomic(filepath.Join(t.TempDir(), "no", "such", "dir", "x.ics"), []byte("x"))
	assert.Error(t, err)
}
