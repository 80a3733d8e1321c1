package cascade

import (
	"context"
)

// SubsystemPolls covers the poll tables, which not every deployment has.
const SubsystemPolls = "polls"

var subsystemTables = map[string][]string{
	SubsystemPolls: {"polls", "poll_votes", "group_polls", "group_poll_votes"},
}

// Step is one entry of the deletion order. A non-empty Subsystem makes the
// step optional: it runs behind the guard and its failures become warnings.
type Step struct {
	Name      string
	Subsystem string
	run       func(ctx context.Context, r *run) error
}

// Optional reports whether the step's failure is tolerated.
func (s Step) Optional() bool {
	return s.Subsystem != ""
}

// Steps is the deletion order. A table is only cleared once every table
// whose rows reference it has been cleared.
var Steps = []Step{
	{Name: "poll_votes", Subsystem: SubsystemPolls, run: deletePollVotes},
	{Name: "polls", Subsystem: SubsystemPolls, run: deletePolls},
	{Name: "group_poll_votes", Subsystem: SubsystemPolls, run: deleteGroupPollVotes},
	{Name: "group_polls", Subsystem: SubsystemPolls, run: deleteGroupPolls},
	{Name: "message_reactions", run: deleteMessageReactions},
	{Name: "group_message_reactions", run: deleteGroupMessageReactions},
	{Name: "group_reads", run: byUser("group_reads", `DELETE FROM group_reads WHERE user_id = ?`)},
	{Name: "group_messages", run: byUser("group_messages", `DELETE FROM group_messages WHERE sender_id = ?`)},
	{Name: "group_members", run: byUser("group_members", `DELETE FROM group_members WHERE user_id = ?`)},
	{Name: "orphan_groups", run: resolveOwnedGroups},
	{Name: "messages", run: byUser("messages", `DELETE FROM messages WHERE sender_id = ? OR receiver_id = ?`)},
	{Name: "contacts", run: byUser("contacts", `DELETE FROM contacts WHERE user_id = ? OR contact_id = ?`)},
	{Name: "friend_requests", run: byUser("friend_requests", `DELETE FROM friend_requests WHERE from_user_id = ? OR to_user_id = ?`)},
	{Name: "fcm_tokens", run: byUser("fcm_tokens", `DELETE FROM fcm_tokens WHERE user_id = ?`)},
	{Name: "password_reset_tokens", run: byUser("password_reset_tokens", `DELETE FROM password_reset_tokens WHERE user_id = ?`)},
	{Name: "audit_logs", run: byUser("audit_logs", `DELETE FROM audit_logs WHERE user_id = ?`)},
	{Name: "privacy_hide_from", run: byUser("privacy_hide_from", `DELETE FROM privacy_hide_from WHERE user_id = ? OR hidden_from_user_id = ?`)},
	{Name: "privacy_settings", run: byUser("privacy_settings", `DELETE FROM privacy_settings WHERE user_id = ?`)},
	{Name: "blocked_users", run: byUser("blocked_users", `DELETE FROM blocked_users WHERE blocker_id = ? OR blocked_id = ?`)},
	{Name: "users", run: byUser("users", `DELETE FROM users WHERE id = ?`)},
}

func deletePollVotes(ctx context.Context, r *run) error {
	if err := r.execUser(ctx, "poll_votes", `DELETE FROM poll_votes WHERE user_id = ?`); err != nil {
		return err
	}
	return r.execIn(ctx, "poll_votes",
		`DELETE FROM poll_votes WHERE poll_id IN (SELECT id FROM polls WHERE message_id IN (?))`, r.messageIDs)
}

func deletePolls(ctx context.Context, r *run) error {
	return r.execIn(ctx, "polls", `DELETE FROM polls WHERE message_id IN (?)`, r.messageIDs)
}

func deleteGroupPollVotes(ctx context.Context, r *run) error {
	if err := r.execUser(ctx, "group_poll_votes", `DELETE FROM group_poll_votes WHERE user_id = ?`); err != nil {
		return err
	}
	return r.execIn(ctx, "group_poll_votes",
		`DELETE FROM group_poll_votes WHERE group_poll_id IN (SELECT id FROM group_polls WHERE group_message_id IN (?))`, r.groupMessageIDs)
}

func deleteGroupPolls(ctx context.Context, r *run) error {
	return r.execIn(ctx, "group_polls", `DELETE FROM group_polls WHERE group_message_id IN (?)`, r.groupMessageIDs)
}

// Reactions left by other users on the deleted user's messages reference
// those messages and go with them.
func deleteMessageReactions(ctx context.Context, r *run) error {
	if err := r.execUser(ctx, "message_reactions", `DELETE FROM message_reactions WHERE user_id = ?`); err != nil {
		return err
	}
	return r.execIn(ctx, "message_reactions", `DELETE FROM message_reactions WHERE message_id IN (?)`, r.messageIDs)
}

func deleteGroupMessageReactions(ctx context.Context, r *run) error {
	if err := r.execUser(ctx, "group_message_reactions", `DELETE FROM group_message_reactions WHERE user_id = ?`); err != nil {
		return err
	}
	return r.execIn(ctx, "group_message_reactions", `DELETE FROM group_message_reactions WHERE group_message_id IN (?)`, r.groupMessageIDs)
}

func byUser(table, query string) func(context.Context, *run) error {
	return func(ctx context.Context, r *run) error {
		return r.execUser(ctx, table, query)
	}
}
