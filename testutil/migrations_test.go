package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/weekend-poll/migrations"
	"github.com/pkordes/weekend-poll/testutil"
)

var tables = []string{"polls", "attendees"}

// TestMigrations applies every migration, checks the tables exist, rolls all
// of them back and checks the tables are gone. It resets first because
// another package's TestMain may already have migrated the shared database.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	require.NoError(t, migrations.Reset(ctx, db), "initial reset")

	require.NoError(t, migrations.Up(ctx, db), "goose up")
	for _, table := range tables {
		assertTablePresence(t, db, table, true)
	}

	require.NoError(t, migrations.Reset(ctx, db), "goose down-to 0")
	for _, table := range tables {
		assertTablePresence(t, db, table, false)
	}

	// Leave the schema in place for packages that run after this one.
	require.NoError(t, migrations.Up(ctx, db))
}

func assertTablePresence(t *testing.T, db *sql.DB, table string, shouldExist bool) {
	t.Helper()

	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public'
			AND   table_name   = $1
		)`
	var exists bool
	err := db.QueryRowContext(context.Background(), q, table).Scan(&exists)
	require.NoError(t, err, "check table existence for %q", table)

	if shouldExist {
		assert.True(t, exists, "expected table %q to exist", table)
	} else {
		assert.False(t, exists, "expected table %q to not exist", table)
	}
}
