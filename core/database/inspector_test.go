package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE alf_node (id INTEGER PRIMARY KEY, uuid TEXT, transaction_id INTEGER)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "alf_node")
	require.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}
	assert.Equal(t, "integer", colMap["id"])
	assert.Equal(t, "text", colMap["uuid"])

	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMissingColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE alf_transaction (id INTEGER PRIMARY KEY, commit_time_ms INTEGER)").Error)

	missing, err := MissingColumns(db, map[string][]string{
		"alf_transaction": {"id", "commit_time_ms"},
		"alf_acl_reader":  {"acl_id", "authority"},
	})
	require.NoError(t, err)

	assert.NotContains(t, missing, "alf_transaction")
	assert.Equal(t, []string{"acl_id", "authority"}, missing["alf_acl_reader"])
}
