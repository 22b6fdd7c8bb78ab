package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/BaSui01/flowgraph/config"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"postgres", DialectPostgres, false},
		{"postgresql", DialectPostgres, false},
		{"PG", DialectPostgres, false},
		{"mysql", DialectMySQL, false},
		{"mariadb", DialectMySQL, false},
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"oracle", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDialect(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMigrationURL(t *testing.T) {
	pg := migrationURL(DialectPostgres, appconfig.DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "flow",
	})
	assert.Equal(t, "postgres://u:p@db:5432/flow?sslmode=disable", pg)

	my := migrationURL(DialectMySQL, appconfig.DatabaseConfig{
		Host: "db", Port: 3306, User: "u", Password: "p", Name: "flow",
	})
	assert.Equal(t, "u:p@tcp(db:3306)/flow?parseTime=true&multiStatements=true", my)

	lite := migrationURL(DialectSQLite, appconfig.DatabaseConfig{Path: "/tmp/flow.db"})
	assert.Equal(t, "file:/tmp/flow.db?mode=rwc", lite)

	mem := migrationURL(DialectSQLite, appconfig.DatabaseConfig{})
	assert.Equal(t, "file::memory:?mode=rwc", mem)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	for _, dialect := range []Dialect{DialectPostgres, DialectMySQL, DialectSQLite} {
		fsys, dir := migrationSource(dialect)
		entries, err := fs.ReadDir(fsys, dir)
		require.NoError(t, err, dialect)
		assert.NotEmpty(t, entries, dialect)

		up, down := 0, 0
		for _, entry := range entries {
			switch {
			case strings.HasSuffix(entry.Name(), ".up.sql"):
				up++
			case strings.HasSuffix(entry.Name(), ".down.sql"):
				down++
			}
		}
		assert.Equal(t, up, down, "every up migration needs a down for %s", dialect)
		assert.Greater(t, up, 0, dialect)
	}
}
