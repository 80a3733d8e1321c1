package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect names a supported store engine.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(name)))
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

// Validate reports whether the dialect is supported.
func (d Dialect) Validate() error {
	switch d {
	case Postgres, SQLite:
		return nil
	}
	return fmt.Errorf("unsupported db driver %q", string(d))
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// ForUpdate is the row-lock suffix for SELECT statements. SQLite has no row
// locks; its write lock is taken when the transaction begins.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// TableExists reports whether table is present in the current schema.
func (d Dialect) TableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`
	if d == Postgres {
		query = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?)`
	}

	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, sqlx.Rebind(sqlx.BindType(d.DriverName()), query), table); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

func (d Dialect) ddl(stmt string) string {
	pk, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if d == Postgres {
		pk, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	return strings.NewReplacer("{{pk}}", pk, "{{timestamp}}", ts).Replace(stmt)
}
