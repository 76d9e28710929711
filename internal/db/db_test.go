package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	d, err := Open("file:dbtest_open?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	versions, err := AppliedVersions(d)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, versions)

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM system_configurations`).Scan(&n))
	assert.Equal(t, 4, n)

	// Re-running is a no-op.
	require.NoError(t, Migrate(d))
}

func TestOpen_ForeignKeysEnforced(t *testing.T) {
	d, err := Open("file:dbtest_fk?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Exec(`INSERT INTO blog_posts (author_id, title, content) VALUES (999, 't', 'c')`)
	require.Error(t, err)
}

func TestRollbackLast(t *testing.T) {
	d, err := Open("file:dbtest_rollback?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, RollbackLast(d))
	versions, err := AppliedVersions(d)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, versions)

	_, err = d.Exec(`SELECT content_text FROM blog_posts`)
	require.Error(t, err)

	require.NoError(t, Migrate(d))
	versions, err = AppliedVersions(d)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, versions)
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 9, 14, 5, 7, 900, time.FixedZone("x", 3600))
	s := FormatTime(in)
	assert.Equal(t, "2024-03-09 13:05:07", s)
	out, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, out.Equal(in.Truncate(time.Second)))

	out, err = ParseTime("2024-03-09T13:05:07Z")
	require.NoError(t, err)
	assert.Equal(t, s, FormatTime(out))

	_, err = ParseTime("yesterday")
	require.Error(t, err)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	all, err := migrations()
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, m := range all {
		assert.Equal(t, i+1, m.version)
		assert.NotEmpty(t, m.name)
		assert.NotEmpty(t, m.down, "version %d", m.version)
	}
}

func TestMigrateContext_Cancelled(t *testing.T) {
	d, err := sql.Open("sqlite3", "file:dbtest_cancel?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, MigrateContext(ctx, d))
}
