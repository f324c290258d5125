package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

var (
	// ErrStorage marks any failure of the underlying database.
	ErrStorage = errors.New("storage failure")
	// ErrUnsupportedDriver is returned for driver names the store cannot speak.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Options tunes how the Store talks to its database.
type Options struct {
	// Driver is the database/sql driver name the handle was opened with.
	// Empty means DriverSQLite.
	Driver string
	// UniqueTitles adds a unique index on album titles so that concurrent
	// inserts of the same title cannot both succeed.
	UniqueTitles bool
}

// Store provides album persistence backed by SQLite or Postgres.
type Store struct {
	db           *sql.DB
	driver       string
	uniqueTitles bool
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB, opts Options) *Store {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	return &Store{db: db, driver: driver, uniqueTitles: opts.UniqueTitles}
}

// SQLiteDSN builds a modernc sqlite DSN for the database file at path.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// EnsureSchema creates the album table when it does not exist yet. It is
// idempotent and may be called on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch s.driver {
	case DriverSQLite:
		ddl = `
		CREATE TABLE IF NOT EXISTS album (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			year INTEGER,
			artist TEXT,
			genre TEXT,
			album TEXT
		)`
	case DriverPgx, DriverPostgres:
		ddl = `
		CREATE TABLE IF NOT EXISTS album (
			id BIGSERIAL PRIMARY KEY,
			year INTEGER,
			artist TEXT,
			genre TEXT,
			album TEXT
		)`
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, s.driver)
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return storageErr("create album table", err)
	}

	if s.uniqueTitles {
		if _, err := s.db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS album_title_key ON album (album)`); err != nil {
			return storageErr("create album title index", err)
		}
	}

	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// rebind rewrites ? placeholders into $n for the Postgres drivers.
func (s *Store) rebind(query string) string {
	if s.driver == DriverSQLite {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
