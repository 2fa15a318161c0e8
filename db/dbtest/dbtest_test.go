package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	db := Open(t)
	defer db.Close()
	session := db.Open()
	defer session.Close()

	count := 0

	err := session.Get(&count, `SELECT COUNT(*) FROM fikir_migrations`)
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	// Migrated schema is in place.
	err = session.Get(&count, `SELECT COUNT(*) FROM wallets`)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOpenWithoutMigrations(t *testing.T) {
	db := OpenWithoutMigrations(t)
	defer db.Close()
	session := db.Open()
	defer session.Close()

	var exists bool
	err := session.Get(&exists, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'fikir_migrations')`)
	require.NoError(t, err)
	assert.False(t, exists)
}
