package cascade

import (
	"context"
	"fmt"
	"maps"

	"github.com/jmoiron/sqlx"

	"chat-backend/internal/db"
)

type subsystemState int

const (
	stateUnknown subsystemState = iota
	stateAvailable
	stateUnavailable
)

// guard runs optional steps. A subsystem is checked once per run; when its
// tables are missing, or one of its steps fails, it is skipped for the rest
// of the run with a single warning.
type guard struct {
	tx      *sqlx.Tx
	dialect db.Dialect
	result  *Result
	state   map[string]subsystemState
}

func newGuard(tx *sqlx.Tx, dialect db.Dialect, result *Result) *guard {
	return &guard{tx: tx, dialect: dialect, result: result, state: map[string]subsystemState{}}
}

// run executes fn inside a savepoint. The returned error is fatal and only
// reports failures of the store itself (schema check, savepoint handling,
// cancelled context); fn's own errors are downgraded to a warning.
func (g *guard) run(ctx context.Context, subsystem, step string, fn func(context.Context) error) error {
	switch g.state[subsystem] {
	case stateUnavailable:
		return nil
	case stateUnknown:
		present, err := g.schemaPresent(ctx, subsystem)
		if err != nil {
			return &StepError{Step: step, Err: err}
		}
		if !present {
			g.state[subsystem] = stateUnavailable
			g.result.warn(subsystem, fmt.Sprintf("%s schema not present, skipping %s cleanup", subsystem, subsystem))
			return nil
		}
		g.state[subsystem] = stateAvailable
	}

	savepoint := "cascade_" + step
	if _, err := g.tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return &StepError{Step: step, Err: fmt.Errorf("create savepoint: %w", err)}
	}

	counted := maps.Clone(g.result.RowsDeleted)
	if err := fn(ctx); err != nil {
		if ctx.Err() != nil {
			return &StepError{Step: step, Err: ctx.Err()}
		}
		if _, rbErr := g.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return &StepError{Step: step, Err: fmt.Errorf("rollback savepoint after %v: %w", err, rbErr)}
		}
		g.result.RowsDeleted = counted
		g.state[subsystem] = stateUnavailable
		g.result.warn(step, fmt.Sprintf("%s cleanup failed, skipping remaining %s steps: %v", subsystem, subsystem, err))
	}

	if _, err := g.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return &StepError{Step: step, Err: fmt.Errorf("release savepoint: %w", err)}
	}
	return nil
}

func (g *guard) schemaPresent(ctx context.Context, subsystem string) (bool, error) {
	for _, table := range subsystemTables[subsystem] {
		exists, err := g.dialect.TableExists(ctx, g.tx, table)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
