package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/migrations"
)

func TestMigrationNamesSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"010_aging.sql":   {Data: []byte("SELECT 1")},
		"001_ledger.sql":  {Data: []byte("SELECT 1")},
		"README.md":       {Data: []byte("notes")},
		"archive/000.sql": {Data: []byte("SELECT 1")},
	}
	names, err := migrationNames(fsys)
	require.NoError(t, err)
	require.Equal(t, []string{"001_ledger.sql", "010_aging.sql"}, names)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := migrationNames(migrations.Files)
	require.NoError(t, err)
	require.Contains(t, names, "001_ledger.sql")
}
