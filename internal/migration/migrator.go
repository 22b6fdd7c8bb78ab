// Package migration manages the run-history schema with golang-migrate.
// SQL migrations are embedded per dialect so deployments need no files
// on disk; the database tracker can then be opened without AutoMigrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	appconfig "github.com/BaSui01/flowgraph/config"
)

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

//go:embed migrations/mysql/*.sql
var mysqlFS embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

// Dialect selects the SQL flavor and embedded migration set.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect normalizes a driver name to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect: %q", s)
	}
}

// Migrator applies the embedded run-history migrations.
type Migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

// New opens the database and prepares a migrator for its dialect.
func New(dialect Dialect, url string) (*Migrator, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}

	db, err := sql.Open(sqlDriverName(dialect), url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	dbDriver, err := databaseDriver(dialect, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	fsys, dir := migrationSource(dialect)
	src, err := iofs.New(fsys, dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), dbDriver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return &Migrator{m: m, db: db}, nil
}

// NewFromConfig builds a migrator from the database section.
func NewFromConfig(cfg appconfig.DatabaseConfig) (*Migrator, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return New(dialect, migrationURL(dialect, cfg))
}

// Up applies all pending migrations. No pending migrations is not an
// error.
func (g *Migrator) Up() error {
	if err := g.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (g *Migrator) Down() error {
	if err := g.m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Drop rolls back every migration.
func (g *Migrator) Drop() error {
	if err := g.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate drop: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether a failed
// migration left it dirty. A fresh database reports version zero.
func (g *Migrator) Version() (uint, bool, error) {
	version, dirty, err := g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the migrate instance and the database handle.
func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr)
}

func sqlDriverName(dialect Dialect) string {
	if dialect == DialectSQLite {
		return "sqlite3"
	}
	return string(dialect)
}

func databaseDriver(dialect Dialect, db *sql.DB) (database.Driver, error) {
	switch dialect {
	case DialectPostgres:
		return postgres.WithInstance(db, &postgres.Config{})
	case DialectMySQL:
		return mysql.WithInstance(db, &mysql.Config{})
	case DialectSQLite:
		return sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration dialect: %q", dialect)
	}
}

func migrationSource(dialect Dialect) (fs.FS, string) {
	switch dialect {
	case DialectPostgres:
		return postgresFS, "migrations/postgres"
	case DialectMySQL:
		return mysqlFS, "migrations/mysql"
	default:
		return sqliteFS, "migrations/sqlite"
	}
}

// migrationURL renders the database/sql connection string, which differs
// from the GORM DSN for postgres.
func migrationURL(dialect Dialect, cfg appconfig.DatabaseConfig) string {
	switch dialect {
	case DialectPostgres:
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, sslMode)
	case DialectMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	default:
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		return fmt.Sprintf("file:%s?mode=rwc", path)
	}
}
