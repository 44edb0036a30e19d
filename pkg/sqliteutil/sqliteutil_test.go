package sqliteutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`

func TestOpenWithSchemaTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")

	db, err := OpenWithSchema(path, testSchema)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO kv (k, v) VALUES ('a', 'b')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenWithSchema(path, testSchema)
	require.NoError(t, err)
	defer db.Close()

	var v string
	require.NoError(t, db.QueryRow("SELECT v FROM kv WHERE k = 'a'").Scan(&v))
	require.Equal(t, "b", v)
}

func TestOpenWithBadSchema(t *testing.T) {
	_, err := OpenWithSchema(Memory, "CREATE TABLE (")
	require.ErrorContains(t, err, "apply schema")
}
