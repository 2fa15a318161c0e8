// Package dbtest gives each test its own throwaway Postgres database with the
// embedded migrations applied, so data-layer tests run against the real schema.
package dbtest

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/fikir-app/fikir-backend/db/migrations"
)

const (
	defaultBaseDSN      = "postgres://localhost:5432/postgres?sslmode=disable"
	migrationsTableName = "fikir_migrations"
)

// DB is a disposable test database. It is dropped when the test finishes.
type DB struct {
	DSN  string
	name string
	t    *testing.T
}

func baseDSN() string {
	if dsn := os.Getenv("DATABASE_TEST_DSN"); dsn != "" {
		return dsn
	}
	return defaultBaseDSN
}

// OpenWithoutMigrations creates a fresh randomly named database without applying migrations.
func OpenWithoutMigrations(t *testing.T) *DB {
	t.Helper()

	base := baseDSN()
	conn, err := sql.Open("postgres", base)
	if err != nil {
		t.Fatalf("opening base test database: %v", err)
	}
	defer conn.Close()

	name := "fikir_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err = conn.Exec(fmt.Sprintf(`CREATE DATABASE %q`, name)); err != nil {
		t.Fatalf("creating test database %s: %v", name, err)
	}

	db := &DB{DSN: dsnForDatabase(t, base, name), name: name, t: t}
	t.Cleanup(db.drop)
	return db
}

// Open creates a fresh database and applies every embedded migration to it.
func Open(t *testing.T) *DB {
	t.Helper()

	db := OpenWithoutMigrations(t)

	conn := db.Open()
	defer conn.Close()

	ms := migrate.MigrationSet{TableName: migrationsTableName}
	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	if _, err := ms.ExecMax(conn.DB, "postgres", m, migrate.Up, 0); err != nil {
		t.Fatal(err)
	}

	return db
}

// Open returns a new connection to the test database. Callers own the close.
func (db *DB) Open() *sqlx.DB {
	db.t.Helper()

	conn, err := sqlx.Open("postgres", db.DSN)
	if err != nil {
		db.t.Fatalf("opening test database %s: %v", db.name, err)
	}
	return conn
}

// Close is a no-op kept so callers can pair Open with a deferred Close; the
// database itself is dropped by the test cleanup.
func (db *DB) Close() {}

func (db *DB) drop() {
	conn, err := sql.Open("postgres", baseDSN())
	if err != nil {
		db.t.Logf("opening base test database to drop %s: %v", db.name, err)
		return
	}
	defer conn.Close()

	if _, err = conn.Exec(fmt.Sprintf(`DROP DATABASE %q WITH (FORCE)`, db.name)); err != nil {
		db.t.Logf("dropping test database %s: %v", db.name, err)
	}
}

func dsnForDatabase(t *testing.T, base, name string) string {
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("parsing base test DSN: %v", err)
	}
	u.Path = "/" + name
	return u.String()
}
