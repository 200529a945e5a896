package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrderedAndReversible(t *testing.T) {
	entries, err := fs.ReadDir(files, dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
		raw, err := fs.ReadFile(files, dir+"/"+entry.Name())
		require.NoError(t, err)
		content := string(raw)
		assert.True(t, strings.Contains(content, "-- +goose Up"), entry.Name())
		assert.True(t, strings.Contains(content, "-- +goose Down"), entry.Name())
	}
	assert.Equal(t, []string{"00001_create_rooms.sql", "00002_create_schedules.sql", "00003_create_export_jobs.sql"}, names)
}
