// Package cascade permanently deletes a user and every row that depends on
// them, in foreign-key order, inside a single transaction.
package cascade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chat-backend/internal/db"
	"chat-backend/internal/observability"
)

// DefaultChunkSize bounds the number of ids bound into one IN clause.
const DefaultChunkSize = 500

var ErrInvalidUserID = errors.New("invalid user id")

var tracer = otel.Tracer("chat-backend/cascade")

// Options configures a single run.
type Options struct {
	// AvatarDir holds avatar files. Empty disables avatar disposal.
	AvatarDir string
	// OnWarning, when set, receives each warning as it is reported.
	OnWarning func(string)
	ChunkSize int `validate:"gte=0,lte=10000"`
}

// Engine deletes users from a store.
type Engine struct {
	store    *sqlx.DB
	dialect  db.Dialect
	files    Remover
	validate *validator.Validate
}

// NewEngine constructs an Engine removing avatars from the local filesystem.
func NewEngine(store *sqlx.DB, dialect db.Dialect) *Engine {
	return &Engine{
		store:    store,
		dialect:  dialect,
		files:    osRemover{},
		validate: validator.New(),
	}
}

// WithRemover replaces the filesystem used for avatar disposal.
func (e *Engine) WithRemover(files Remover) *Engine {
	e.files = files
	return e
}

// DeleteUser removes userID and all dependent rows, then the avatar file.
// Deleting an id that no longer exists succeeds and changes nothing.
func (e *Engine) DeleteUser(ctx context.Context, userID int64, opts Options) (*Result, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if err := e.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid cascade options: %w", err)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	ctx, span := tracer.Start(ctx, "cascade.DeleteUser",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	start := time.Now()
	result := newResult(userID, opts.OnWarning)

	avatarPath, err := e.deleteRows(ctx, userID, opts.ChunkSize, result)
	if err != nil {
		result.Status = StatusAborted
		observability.ObserveCascade(string(result.Status), time.Since(start))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "cascade aborted")
		log.Printf("cascade aborted: user_id=%d err=%v", userID, err)
		return result, err
	}
	result.Status = StatusCompleted

	disposeAvatar(e.files, opts.AvatarDir, avatarPath, result)

	for table, n := range result.RowsDeleted {
		observability.AddCascadeRows(table, n)
	}
	observability.ObserveCascade(string(result.Status), time.Since(start))
	span.SetAttributes(
		attribute.Bool("user.found", result.UserFound),
		attribute.Int("cascade.warnings", len(result.Warnings)),
		attribute.Int("cascade.deleted_groups", len(result.DeletedGroups)),
	)
	span.SetStatus(otelcodes.Ok, "user deleted")
	log.Printf("cascade completed: user_id=%d found=%t warnings=%d deleted_groups=%d duration=%s",
		userID, result.UserFound, len(result.Warnings), len(result.DeletedGroups), time.Since(start))
	return result, nil
}

func (e *Engine) deleteRows(ctx context.Context, userID int64, chunkSize int, result *Result) (avatarPath string, err error) {
	tx, err := e.store.BeginTxx(ctx, nil)
	if err != nil {
		return "", &StepError{Step: "begin", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	r := &run{
		tx:        tx,
		userID:    userID,
		chunkSize: chunkSize,
		result:    result,
		guard:     newGuard(tx, e.dialect, result),
	}

	avatarPath, err = r.lockUser(ctx, e.dialect)
	if err != nil {
		return "", &StepError{Step: "lock_user", Err: err}
	}
	if err = r.loadMessageIDs(ctx); err != nil {
		return "", &StepError{Step: "load_messages", Err: err}
	}

	for _, step := range Steps {
		if err = r.runStep(ctx, step); err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", &StepError{Step: "commit", Err: err}
	}
	return avatarPath, nil
}

// run carries the state of one DeleteUser call.
type run struct {
	tx        *sqlx.Tx
	userID    int64
	chunkSize int
	result    *Result
	guard     *guard

	messageIDs      []int64
	groupMessageIDs []int64
}

func (r *run) runStep(ctx context.Context, step Step) error {
	if step.Optional() {
		return r.guard.run(ctx, step.Subsystem, step.Name, func(ctx context.Context) error {
			return step.run(ctx, r)
		})
	}
	if err := step.run(ctx, r); err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return err
		}
		return &StepError{Step: step.Name, Err: err}
	}
	return nil
}

// lockUser reads the avatar path and, where the dialect allows, locks the
// user row so concurrent writes referencing the user wait for the run.
func (r *run) lockUser(ctx context.Context, dialect db.Dialect) (string, error) {
	var avatarPath string
	err := r.tx.GetContext(ctx, &avatarPath,
		r.tx.Rebind(`SELECT avatar_path FROM users WHERE id = ?`+dialect.ForUpdate()), r.userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	r.result.UserFound = true
	return avatarPath, nil
}

func (r *run) loadMessageIDs(ctx context.Context) error {
	if err := r.tx.SelectContext(ctx, &r.messageIDs,
		r.tx.Rebind(`SELECT id FROM messages WHERE sender_id = ? OR receiver_id = ? ORDER BY id`), r.userID, r.userID); err != nil {
		return err
	}
	return r.tx.SelectContext(ctx, &r.groupMessageIDs,
		r.tx.Rebind(`SELECT id FROM group_messages WHERE sender_id = ? ORDER BY id`), r.userID)
}

// execUser binds the user id to every placeholder of query.
func (r *run) execUser(ctx context.Context, table, query string) error {
	args := make([]any, strings.Count(query, "?"))
	for i := range args {
		args[i] = r.userID
	}
	return r.exec(ctx, table, query, args...)
}

func (r *run) exec(ctx context.Context, table, query string, args ...any) error {
	res, err := r.tx.ExecContext(ctx, r.tx.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	r.result.count(table, n)
	return nil
}

// execIn runs query once per chunk of ids; query holds a single "IN (?)".
func (r *run) execIn(ctx context.Context, table, query string, ids []int64) error {
	for start := 0; start < len(ids); start += r.chunkSize {
		end := min(start+r.chunkSize, len(ids))
		q, args, err := sqlx.In(query, ids[start:end])
		if err != nil {
			return err
		}
		if err := r.exec(ctx, table, q, args...); err != nil {
			return err
		}
	}
	return nil
}
