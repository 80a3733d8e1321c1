// Package admin implements the operator command that permanently deletes a
// user by username.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/gnuflag"

	"chat-backend/internal/cascade"
	"chat-backend/internal/db"
	"chat-backend/internal/repositories"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// Defaults seeds the flag defaults, normally from the service configuration.
type Defaults struct {
	Driver    string
	DSN       string
	AvatarDir string
	ChunkSize int
}

type options struct {
	driver    string
	dsn       string
	avatarDir string
	timeout   time.Duration
	username  string
}

// Run executes "deleteuser [flags] <username>" and returns the exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, defaults Defaults) int {
	opts, code, ok := parseArgs(args, stderr, defaults)
	if !ok {
		return code
	}

	dialect, err := db.ParseDialect(opts.driver)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	store, err := db.Open(dialect, opts.dsn)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	defer store.Close()

	user, err := repositories.NewUserRepo(store).GetByUsername(ctx, opts.username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		fmt.Fprintf(stderr, "user %q not found\n", opts.username)
		return exitError
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: look up user: %v\n", err)
		return exitError
	}

	fmt.Fprintf(stderr, "WARNING: permanently deleting user %q (id %d) and all associated data\n", user.Username, user.ID)

	engine := cascade.NewEngine(store, dialect)
	result, err := engine.DeleteUser(ctx, int64(user.ID), cascade.Options{
		AvatarDir: opts.avatarDir,
		ChunkSize: defaults.ChunkSize,
		OnWarning: func(w string) {
			fmt.Fprintf(stderr, "warning: %s\n", w)
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	printSummary(stdout, result)
	fmt.Fprintf(stdout, "deleted user %q\n", user.Username)
	return exitOK
}

func parseArgs(args []string, stderr io.Writer, defaults Defaults) (options, int, bool) {
	opts := options{
		driver:    defaults.Driver,
		dsn:       defaults.DSN,
		avatarDir: defaults.AvatarDir,
		timeout:   5 * time.Minute,
	}

	fs := gnuflag.NewFlagSet("deleteuser", gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.driver, "driver", opts.driver, "database driver (postgres or sqlite)")
	fs.StringVar(&opts.dsn, "dsn", opts.dsn, "database connection string")
	fs.StringVar(&opts.avatarDir, "avatar-dir", opts.avatarDir, "directory holding avatar files; empty leaves files alone")
	fs.DurationVar(&opts.timeout, "timeout", opts.timeout, "abort the deletion after this long")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: deleteuser [flags] <username>\n\noptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(true, args); err != nil {
		if errors.Is(err, gnuflag.ErrHelp) {
			return opts, exitOK, false
		}
		return opts, exitUsage, false
	}
	if fs.NArg() != 1 || fs.Arg(0) == "" {
		fs.Usage()
		return opts, exitUsage, false
	}
	if opts.timeout <= 0 {
		fmt.Fprintf(stderr, "error: -timeout must be positive\n")
		return opts, exitUsage, false
	}
	opts.username = fs.Arg(0)
	return opts, exitOK, true
}

func printSummary(w io.Writer, result *cascade.Result) {
	tables := make([]string, 0, len(result.RowsDeleted))
	for table := range result.RowsDeleted {
		tables = append(tables, table)
	}
	slices.Sort(tables)

	for _, table := range tables {
		fmt.Fprintf(w, "  %-24s %s\n", table, humanize.Comma(result.RowsDeleted[table]))
	}
	if n := len(result.DeletedGroups); n > 0 {
		fmt.Fprintf(w, "removed %s orphaned %s\n", humanize.Comma(int64(n)), plural(n, "group", "groups"))
	}
	if result.AvatarRemoved {
		fmt.Fprintln(w, "removed avatar file")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
