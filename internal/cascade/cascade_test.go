package cascade

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/db"
)

func newTestStore(t *testing.T, polls bool) *sqlx.DB {
	t.Helper()
	store, err := db.Connect(context.Background(), db.SQLite,
		db.SQLiteDSN(filepath.Join(t.TempDir(), "chat.db")), db.MigrateOptions{Polls: polls})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func insert(t *testing.T, store *sqlx.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := store.Exec(query, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func count(t *testing.T, store *sqlx.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, store.Get(&n, query, args...))
	return n
}

func addUser(t *testing.T, store *sqlx.DB, username, avatar string) int64 {
	return insert(t, store, `INSERT INTO users (username, display_name, avatar_path) VALUES (?, ?, ?)`, username, username, avatar)
}

func addGroup(t *testing.T, store *sqlx.DB, name string, owner int64, members ...int64) int64 {
	id := insert(t, store, `INSERT INTO chat_groups (name, created_by_user_id) VALUES (?, ?)`, name, owner)
	for _, m := range members {
		insert(t, store, `INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`, id, m)
	}
	return id
}

type graph struct {
	u, v, w                  int64
	soloGroup                int64
	sharedGroup              int64
	othersGroup              int64
	vToW                     int64
	vSharedMessage           int64
	vOwnGroupMessage         int64
	pollOnVMessage           int64
	groupPollOnVGroupMessage int64
}

// seedGraph gives u rows in every table, next to data owned by v and w.
func seedGraph(t *testing.T, store *sqlx.DB, polls bool) graph {
	t.Helper()
	var g graph
	g.u = addUser(t, store, "Ulla", "u.png")
	g.v = addUser(t, store, "victor", "v.png")
	g.w = addUser(t, store, "wen", "")

	m1 := insert(t, store, `INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, 'hi v')`, g.u, g.v)
	m2 := insert(t, store, `INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, 'hi u')`, g.v, g.u)
	g.vToW = insert(t, store, `INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, 'hi w')`, g.v, g.w)

	insert(t, store, `INSERT INTO contacts (user_id, contact_id) VALUES (?, ?), (?, ?), (?, ?)`, g.u, g.v, g.v, g.u, g.v, g.w)
	insert(t, store, `INSERT INTO friend_requests (from_user_id, to_user_id) VALUES (?, ?), (?, ?)`, g.u, g.w, g.v, g.w)

	g.soloGroup = addGroup(t, store, "solo", g.u, g.u)
	g.sharedGroup = addGroup(t, store, "shared", g.u, g.u, g.v)
	g.othersGroup = addGroup(t, store, "others", g.v, g.v, g.u)

	gm1 := insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'alone')`, g.soloGroup, g.u)
	gm2 := insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'from u')`, g.sharedGroup, g.u)
	g.vSharedMessage = insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'from v')`, g.sharedGroup, g.v)
	insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'u in others')`, g.othersGroup, g.u)
	g.vOwnGroupMessage = insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'v in others')`, g.othersGroup, g.v)

	insert(t, store, `INSERT INTO message_reactions (message_id, user_id, emoji) VALUES (?, ?, '+1'), (?, ?, '+1'), (?, ?, 'ok')`, m1, g.v, g.vToW, g.u, m2, g.v)
	insert(t, store, `INSERT INTO group_message_reactions (group_message_id, user_id, emoji) VALUES (?, ?, '+1'), (?, ?, '+1'), (?, ?, 'ok')`, gm2, g.v, g.vSharedMessage, g.u, gm1, g.u)
	insert(t, store, `INSERT INTO group_reads (group_id, user_id) VALUES (?, ?), (?, ?), (?, ?), (?, ?)`, g.soloGroup, g.u, g.sharedGroup, g.u, g.sharedGroup, g.v, g.othersGroup, g.u)

	insert(t, store, `INSERT INTO fcm_tokens (user_id, token) VALUES (?, 'tu'), (?, 'tv')`, g.u, g.v)
	insert(t, store, `INSERT INTO password_reset_tokens (user_id, token_hash) VALUES (?, 'h')`, g.u)
	insert(t, store, `INSERT INTO audit_logs (user_id, action) VALUES (?, 'login'), (?, 'login')`, g.u, g.v)
	insert(t, store, `INSERT INTO privacy_settings (user_id) VALUES (?), (?)`, g.u, g.v)
	insert(t, store, `INSERT INTO privacy_hide_from (user_id, hidden_from_user_id) VALUES (?, ?), (?, ?), (?, ?)`, g.u, g.v, g.v, g.u, g.v, g.w)
	insert(t, store, `INSERT INTO blocked_users (blocker_id, blocked_id) VALUES (?, ?), (?, ?), (?, ?)`, g.u, g.w, g.w, g.u, g.v, g.w)

	if polls {
		p1 := insert(t, store, `INSERT INTO polls (message_id, question) VALUES (?, 'lunch?')`, m1)
		g.pollOnVMessage = insert(t, store, `INSERT INTO polls (message_id, question) VALUES (?, 'dinner?')`, g.vToW)
		insert(t, store, `INSERT INTO poll_votes (poll_id, user_id, option_index) VALUES (?, ?, 0), (?, ?, 1), (?, ?, 0)`, p1, g.v, g.pollOnVMessage, g.u, g.pollOnVMessage, g.w)

		gp1 := insert(t, store, `INSERT INTO group_polls (group_message_id, question) VALUES (?, 'when?')`, gm2)
		g.groupPollOnVGroupMessage = insert(t, store, `INSERT INTO group_polls (group_message_id, question) VALUES (?, 'where?')`, g.vSharedMessage)
		insert(t, store, `INSERT INTO group_poll_votes (group_poll_id, user_id, option_index) VALUES (?, ?, 0), (?, ?, 1)`, gp1, g.v, g.groupPollOnVGroupMessage, g.u)
		insert(t, store, `INSERT INTO group_polls (group_message_id, question) VALUES (?, 'solo?')`, gm1)
	}
	return g
}

var userColumns = map[string][]string{
	"users":                   {"id"},
	"messages":                {"sender_id", "receiver_id"},
	"contacts":                {"user_id", "contact_id"},
	"friend_requests":         {"from_user_id", "to_user_id"},
	"group_members":           {"user_id"},
	"group_messages":          {"sender_id"},
	"message_reactions":       {"user_id"},
	"group_message_reactions": {"user_id"},
	"group_reads":             {"user_id"},
	"fcm_tokens":              {"user_id"},
	"password_reset_tokens":   {"user_id"},
	"audit_logs":              {"user_id"},
	"privacy_settings":        {"user_id"},
	"privacy_hide_from":       {"user_id", "hidden_from_user_id"},
	"blocked_users":           {"blocker_id", "blocked_id"},
}

var pollUserColumns = map[string][]string{
	"poll_votes":       {"user_id"},
	"group_poll_votes": {"user_id"},
}

func references(t *testing.T, store *sqlx.DB, userID int64, polls bool) map[string]int {
	t.Helper()
	found := map[string]int{}
	check := func(columns map[string][]string) {
		for table, cols := range columns {
			for _, col := range cols {
				if n := count(t, store, `SELECT COUNT(*) FROM `+table+` WHERE `+col+` = ?`, userID); n > 0 {
					found[table+"."+col] += n
				}
			}
		}
	}
	check(userColumns)
	if polls {
		check(pollUserColumns)
	}
	return found
}

func TestDeleteUserScenario(t *testing.T) {
	store := newTestStore(t, true)
	avatarDir := t.TempDir()

	u := addUser(t, store, "ulla", "ulla.png")
	v := addUser(t, store, "victor", "")
	w := addUser(t, store, "wen", "")
	m := insert(t, store, `INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, 'hello')`, u, v)
	vm := insert(t, store, `INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, 'unrelated')`, v, w)
	g := addGroup(t, store, "mine", u, u)
	gm := insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'note')`, g, u)
	require.NoError(t, os.WriteFile(filepath.Join(avatarDir, "ulla.png"), []byte("png"), 0o600))

	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), u, Options{AvatarDir: avatarDir})
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, res.Status)
	require.True(t, res.UserFound)
	require.True(t, res.AvatarRemoved)
	require.Empty(t, res.Warnings)
	require.Equal(t, []int64{g}, res.DeletedGroups)

	assert.Zero(t, count(t, store, `SELECT COUNT(*) FROM messages WHERE id = ?`, m))
	assert.Zero(t, count(t, store, `SELECT COUNT(*) FROM chat_groups WHERE id = ?`, g))
	assert.Zero(t, count(t, store, `SELECT COUNT(*) FROM group_messages WHERE id = ?`, gm))
	assert.Zero(t, count(t, store, `SELECT COUNT(*) FROM users WHERE id = ?`, u))
	assert.NoFileExists(t, filepath.Join(avatarDir, "ulla.png"))

	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM messages WHERE id = ?`, vm))
	assert.Equal(t, 2, count(t, store, `SELECT COUNT(*) FROM users WHERE id IN (?, ?)`, v, w))
}

func TestDeleteUserLeavesNoReferences(t *testing.T) {
	store := newTestStore(t, true)
	g := seedGraph(t, store, true)

	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), g.u, Options{})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	require.Empty(t, references(t, store, g.u, true))

	// Only groups that kept members still name u as creator.
	var owned []int64
	require.NoError(t, store.Select(&owned, `SELECT id FROM chat_groups WHERE created_by_user_id = ? ORDER BY id`, g.u))
	require.Equal(t, []int64{g.sharedGroup}, owned)
	require.Equal(t, []int64{g.soloGroup}, res.DeletedGroups)

	// Data of the other users survives.
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM messages WHERE id = ?`, g.vToW))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM polls WHERE id = ?`, g.pollOnVMessage))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM poll_votes WHERE poll_id = ? AND user_id = ?`, g.pollOnVMessage, g.w))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM group_polls WHERE id = ?`, g.groupPollOnVGroupMessage))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM group_messages WHERE id = ?`, g.vOwnGroupMessage))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM group_messages WHERE id = ?`, g.vSharedMessage))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM contacts WHERE user_id = ? AND contact_id = ?`, g.v, g.w))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM blocked_users WHERE blocker_id = ? AND blocked_id = ?`, g.v, g.w))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM fcm_tokens WHERE user_id = ?`, g.v))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM privacy_settings WHERE user_id = ?`, g.v))

	assert.Equal(t, int64(1), res.RowsDeleted["users"])
	assert.Equal(t, int64(2), res.RowsDeleted["messages"])
	assert.Equal(t, int64(1), res.RowsDeleted["chat_groups"])
}

func TestDeleteUserIsIdempotent(t *testing.T) {
	store := newTestStore(t, true)
	g := seedGraph(t, store, true)
	engine := NewEngine(store, db.SQLite)

	_, err := engine.DeleteUser(context.Background(), g.u, Options{})
	require.NoError(t, err)
	before := references(t, store, g.v, true)

	files := &fakeRemover{}
	res, err := engine.WithRemover(files).DeleteUser(context.Background(), g.u, Options{AvatarDir: t.TempDir()})
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, res.Status)
	require.False(t, res.UserFound)
	require.Empty(t, res.RowsDeleted)
	require.Empty(t, res.Warnings)
	require.Empty(t, res.DeletedGroups)
	require.Empty(t, files.removed)
	require.Equal(t, before, references(t, store, g.v, true))
}

func TestDeleteUserKeepsGroupWithMembers(t *testing.T) {
	store := newTestStore(t, true)
	u := addUser(t, store, "ulla", "")
	v := addUser(t, store, "victor", "")
	group := addGroup(t, store, "team", u, u, v)
	insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'u says')`, group, u)
	vMsg := insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'v says')`, group, v)

	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), u, Options{})
	require.NoError(t, err)
	require.Empty(t, res.DeletedGroups)

	var createdBy int64
	require.NoError(t, store.Get(&createdBy, `SELECT created_by_user_id FROM chat_groups WHERE id = ?`, group))
	require.Equal(t, u, createdBy)

	require.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM group_messages WHERE group_id = ?`, group))
	require.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM group_messages WHERE id = ?`, vMsg))
	require.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM group_members WHERE group_id = ?`, group))
}

func TestDeleteUserRemovesOrphanGroupContent(t *testing.T) {
	store := newTestStore(t, true)
	u := addUser(t, store, "ulla", "")
	v := addUser(t, store, "victor", "")
	group := addGroup(t, store, "left", u, u)
	// v used to be a member and left messages, reactions and a read marker behind.
	vMsg := insert(t, store, `INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, 'bye')`, group, v)
	insert(t, store, `INSERT INTO group_message_reactions (group_message_id, user_id, emoji) VALUES (?, ?, 'wave')`, vMsg, v)
	insert(t, store, `INSERT INTO group_reads (group_id, user_id) VALUES (?, ?)`, group, v)
	gp := insert(t, store, `INSERT INTO group_polls (group_message_id, question) VALUES (?, 'stay?')`, vMsg)
	insert(t, store, `INSERT INTO group_poll_votes (group_poll_id, user_id, option_index) VALUES (?, ?, 1)`, gp, v)

	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), u, Options{})
	require.NoError(t, err)
	require.Equal(t, []int64{group}, res.DeletedGroups)

	for _, table := range []string{"chat_groups", "group_messages", "group_message_reactions", "group_reads", "group_polls", "group_poll_votes"} {
		assert.Zero(t, count(t, store, `SELECT COUNT(*) FROM `+table), table)
	}
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM users WHERE id = ?`, v))
}

func TestDeleteUserWithoutPollSchema(t *testing.T) {
	store := newTestStore(t, false)
	g := seedGraph(t, store, false)

	var live []string
	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), g.u, Options{
		OnWarning: func(msg string) { live = append(live, msg) },
	})
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, SubsystemPolls, res.Warnings[0].Step)
	require.Equal(t, []string{res.Warnings[0].String()}, live)
	require.Empty(t, references(t, store, g.u, false))
}

func TestDeleteUserPollFailureIsIsolated(t *testing.T) {
	store := newTestStore(t, false)
	// Tables exist but poll_votes lacks the columns the cleanup relies on.
	for _, stmt := range []string{
		`CREATE TABLE polls (id INTEGER PRIMARY KEY, message_id INTEGER, question TEXT)`,
		`CREATE TABLE poll_votes (id INTEGER PRIMARY KEY, choice TEXT)`,
		`CREATE TABLE group_polls (id INTEGER PRIMARY KEY, group_message_id INTEGER, question TEXT)`,
		`CREATE TABLE group_poll_votes (id INTEGER PRIMARY KEY, group_poll_id INTEGER, user_id INTEGER)`,
	} {
		_, err := store.Exec(stmt)
		require.NoError(t, err)
	}
	g := seedGraph(t, store, false)
	insert(t, store, `INSERT INTO group_poll_votes (group_poll_id, user_id) VALUES (1, ?)`, g.u)

	var live []string
	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), g.u, Options{
		OnWarning: func(msg string) { live = append(live, msg) },
	})
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, "poll_votes", res.Warnings[0].Step)
	require.Len(t, live, 1)
	require.Empty(t, references(t, store, g.u, false))
	// Remaining poll steps were skipped after the failure.
	require.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM group_poll_votes WHERE user_id = ?`, g.u))
}

func TestDeleteUserPollFailureKeepsCoreDeletion(t *testing.T) {
	store := newTestStore(t, true)
	g := seedGraph(t, store, true)
	_, err := store.Exec(`CREATE TRIGGER lock_poll_votes BEFORE DELETE ON poll_votes
		BEGIN SELECT RAISE(ABORT, 'poll votes locked'); END`)
	require.NoError(t, err)

	// Polls hang off u's direct message and u's group messages.
	require.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM polls p JOIN messages m ON m.id = p.message_id WHERE m.sender_id = ?`, g.u))
	require.Equal(t, 2, count(t, store, `SELECT COUNT(*) FROM group_polls p JOIN group_messages m ON m.id = p.group_message_id WHERE m.sender_id = ?`, g.u))

	var live []string
	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), g.u, Options{
		OnWarning: func(msg string) { live = append(live, msg) },
	})
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "poll_votes", res.Warnings[0].Step)
	assert.Contains(t, res.Warnings[0].Message, "poll votes locked")
	assert.Len(t, live, 1)
	assert.Equal(t, int64(1), res.RowsDeleted["users"])
	assert.Zero(t, res.RowsDeleted["polls"])
	assert.Zero(t, res.RowsDeleted["group_polls"])

	require.Empty(t, references(t, store, g.u, false))
	assert.Equal(t, 0, count(t, store, `SELECT COUNT(*) FROM chat_groups WHERE id = ?`, g.soloGroup))
	assert.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM users WHERE id = ?`, g.v))
	// Poll rows are left behind untouched.
	assert.Equal(t, 2, count(t, store, `SELECT COUNT(*) FROM polls`))
	assert.Equal(t, 3, count(t, store, `SELECT COUNT(*) FROM group_polls`))
}

func TestDeleteUserWithoutDependents(t *testing.T) {
	store := newTestStore(t, true)
	u := addUser(t, store, "loner", "")

	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), u, Options{})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"users": 1}, res.RowsDeleted)
	require.Empty(t, res.Warnings)
}

func TestDeleteUserRollsBackOnFatalError(t *testing.T) {
	store := newTestStore(t, true)
	g := seedGraph(t, store, true)
	_, err := store.Exec(`CREATE TRIGGER lock_fcm BEFORE DELETE ON fcm_tokens BEGIN SELECT RAISE(ABORT, 'fcm tokens are locked'); END;`)
	require.NoError(t, err)
	before := references(t, store, g.u, true)

	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), g.u, Options{})
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, "fcm_tokens", stepErr.Step)
	require.Equal(t, StatusAborted, res.Status)

	require.Equal(t, before, references(t, store, g.u, true))
	require.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM chat_groups WHERE id = ?`, g.soloGroup))
}

func TestDeleteUserChunksIDLists(t *testing.T) {
	store := newTestStore(t, true)
	u := addUser(t, store, "chatty", "")
	v := addUser(t, store, "listener", "")
	for i := 0; i < 7; i++ {
		m := insert(t, store, `INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, 'x')`, u, v)
		insert(t, store, `INSERT INTO message_reactions (message_id, user_id, emoji) VALUES (?, ?, '+1')`, m, v)
		p := insert(t, store, `INSERT INTO polls (message_id, question) VALUES (?, 'q')`, m)
		insert(t, store, `INSERT INTO poll_votes (poll_id, user_id, option_index) VALUES (?, ?, 0)`, p, v)
	}

	res, err := NewEngine(store, db.SQLite).DeleteUser(context.Background(), u, Options{ChunkSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(7), res.RowsDeleted["messages"])
	require.Equal(t, int64(7), res.RowsDeleted["message_reactions"])
	require.Equal(t, int64(7), res.RowsDeleted["polls"])
	require.Equal(t, int64(7), res.RowsDeleted["poll_votes"])
}

func TestDeleteUserRejectsInvalidInput(t *testing.T) {
	store := newTestStore(t, true)
	engine := NewEngine(store, db.SQLite)

	_, err := engine.DeleteUser(context.Background(), 0, Options{})
	require.ErrorIs(t, err, ErrInvalidUserID)

	_, err = engine.DeleteUser(context.Background(), 1, Options{ChunkSize: -1})
	require.Error(t, err)
}

func TestDeleteUserCancelledContext(t *testing.T) {
	store := newTestStore(t, true)
	u := addUser(t, store, "ulla", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewEngine(store, db.SQLite).DeleteUser(ctx, u, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusAborted, res.Status)
	require.Equal(t, 1, count(t, store, `SELECT COUNT(*) FROM users WHERE id = ?`, u))
}

func TestDeleteUserSkipsAvatarWithoutDir(t *testing.T) {
	store := newTestStore(t, true)
	u := addUser(t, store, "ulla", "ulla.png")
	files := &fakeRemover{}

	res, err := NewEngine(store, db.SQLite).WithRemover(files).DeleteUser(context.Background(), u, Options{})
	require.NoError(t, err)
	require.Empty(t, files.removed)
	require.False(t, res.AvatarRemoved)
}

func TestDeleteUserAvatarFailureIsWarning(t *testing.T) {
	store := newTestStore(t, true)
	u := addUser(t, store, "ulla", "ulla.png")
	files := &fakeRemover{err: fs.ErrPermission}

	res, err := NewEngine(store, db.SQLite).WithRemover(files).DeleteUser(context.Background(), u, Options{AvatarDir: "/avatars"})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, []string{filepath.Join("/avatars", "ulla.png")}, files.removed)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, "avatar", res.Warnings[0].Step)
	require.Zero(t, count(t, store, `SELECT COUNT(*) FROM users WHERE id = ?`, u))
}
