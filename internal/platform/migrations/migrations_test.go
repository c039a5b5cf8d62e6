package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/storefront?sslmode=disable",
		DriverURL("postgres://u:p@db:5432/storefront?sslmode=disable"))
	assert.Equal(t, "pgx5://db/storefront", DriverURL("postgresql://db/storefront"))
	assert.Equal(t, "pgx5://db/x", DriverURL("pgx5://db/x"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(files, "sql/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(files, "sql/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
