package migration

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceListsEmbeddedVersions(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	require.Equal(t, uint(1), first)

	_, err = src.Next(first)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestInitMigrationCreatesPortalTables(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	body, _, err := src.ReadUp(1)
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	sql := strings.ToLower(string(raw))
	for _, table := range []string{"merchants", "apps", "products", "portals"} {
		require.Contains(t, sql, "create table if not exists "+table)
	}
}

// Column names must stay portable across the postgres, mysql and sqlite
// dialects; INTERVAL is reserved in mysql.
func TestInitMigrationAvoidsReservedColumnNames(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	body, _, err := src.ReadUp(1)
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.ToLower(string(raw)), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		for _, reserved := range []string{"interval", "order", "key", "group"} {
			require.NotEqual(t, reserved, fields[0], "reserved column name in %q", strings.TrimSpace(line))
		}
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	require.Error(t, RunMigrations(nil, nil))
}
