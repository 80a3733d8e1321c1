package cascade

import (
	"fmt"
	"log"

	"chat-backend/internal/observability"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Warning is a recoverable condition reported during a run.
type Warning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Step, w.Message)
}

// Result describes what a run did. It is returned for aborted runs too, so
// callers can inspect warnings reported before the failure.
type Result struct {
	UserID    int64     `json:"user_id"`
	UserFound bool      `json:"user_found"`
	Status    Status    `json:"status"`
	Warnings  []Warning `json:"warnings,omitempty"`
	// RowsDeleted counts deleted rows per table; tables with no deletions are absent.
	RowsDeleted   map[string]int64 `json:"rows_deleted"`
	DeletedGroups []int64          `json:"deleted_groups,omitempty"`
	AvatarRemoved bool             `json:"avatar_removed"`

	sink func(string)
}

func newResult(userID int64, sink func(string)) *Result {
	return &Result{
		UserID:      userID,
		RowsDeleted: map[string]int64{},
		sink:        sink,
	}
}

func (r *Result) warn(step, message string) {
	w := Warning{Step: step, Message: message}
	r.Warnings = append(r.Warnings, w)
	log.Printf("cascade warning: user_id=%d step=%s %s", r.UserID, step, message)
	observability.IncCascadeWarning(step)
	if r.sink != nil {
		r.sink(w.String())
	}
}

func (r *Result) count(table string, n int64) {
	if n > 0 {
		r.RowsDeleted[table] += n
	}
}

// StepError is a fatal failure of a non-optional step. The enclosing
// transaction has been rolled back when it is returned.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("cascade step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
