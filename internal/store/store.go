package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported values for Options.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultConnectTimeout bounds connecting and pinging the database.
const DefaultConnectTimeout = 5 * time.Second

// Options configures how Open connects.
type Options struct {
	Driver         string        // DriverPostgres or DriverSQLite
	DSN            string        // Postgres URL or SQLite file path
	ConnectTimeout time.Duration // 0 = DefaultConnectTimeout
	MaxOpenConns   int           // Postgres only; 0 = driver default
}

// Store holds the database handles and provides access to repositories.
type Store struct {
	db      *sql.DB
	x       *sqlx.DB
	drv     *entsql.Driver
	dialect string
}

// Open connects to the database described by opts, applies SQLite pragmas
// where relevant and runs auto-migration.
func Open(ctx context.Context, opts Options) (*Store, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	var (
		driverName  string
		dialectName string
		dsn         = opts.DSN
	)
	switch opts.Driver {
	case DriverPostgres:
		driverName, dialectName = "pgx", dialect.Postgres
	case DriverSQLite, "":
		driverName, dialectName = "sqlite", dialect.SQLite
		dsn = sqliteDSN(dsn, timeout)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("empty DSN for driver %q", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialectName == dialect.SQLite {
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &Store{
		db:      db,
		x:       sqlx.NewDb(db, driverName),
		drv:     entsql.OpenDB(dialectName, db),
		dialect: dialectName,
	}

	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	switch dialectName {
	case dialect.SQLite:
		// SQLite doesn't support multiple writers.
		db.SetMaxOpenConns(1)
	case dialect.Postgres:
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
			db.SetMaxIdleConns(opts.MaxOpenConns)
		}
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name ("postgres" or "sqlite3").
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// AnswerRepo returns an AnswerRepo backed by this store.
func (s *Store) AnswerRepo() AnswerRepo {
	return &answerRepo{s: s}
}

// MissionRepo returns a MissionRepo backed by this store.
func (s *Store) MissionRepo() MissionRepo {
	return &missionRepo{s: s}
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// sqliteDSN adds per-connection pragmas so every pooled connection gets them,
// not only the one applyPragmas runs on.
func sqliteDSN(path string, busy time.Duration) string {
	if path == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, sep, busy.Milliseconds())
}

// applyPragmas configures SQLite for a single-process deployment.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the SQLite database file path in priority order:
// 1. TIRGUL_DB environment variable
// 2. $XDG_DATA_HOME/tirgul/tirgul.db
// 3. ~/.local/share/tirgul/tirgul.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("TIRGUL_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "tirgul", "tirgul.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
