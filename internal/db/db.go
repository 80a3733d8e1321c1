package db

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver(string(SQLite), sqlx.QUESTION)
}

// Open connects to the store without touching the schema.
func Open(dialect Dialect, dsn string) (*sqlx.DB, error) {
	if err := dialect.Validate(); err != nil {
		return nil, err
	}
	db, err := sqlx.Connect(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// Connect opens the store and applies migrations.
func Connect(ctx context.Context, dialect Dialect, dsn string, opts MigrateOptions) (*sqlx.DB, error) {
	db, err := Open(dialect, dsn)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, dialect, opts); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Printf("database migrations applied driver=%s polls=%t", dialect, opts.Polls)
	return db, nil
}

// SQLiteDSN builds a DSN for a database file with foreign keys enforced and
// write transactions taking the lock at BEGIN.
func SQLiteDSN(path string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}
