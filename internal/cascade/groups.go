package cascade

import (
	"context"
	"fmt"
)

// resolveOwnedGroups deletes groups created by the user that no longer have
// members. Groups with remaining members keep their created_by_user_id; no
// ownership transfer happens.
func resolveOwnedGroups(ctx context.Context, r *run) error {
	var groupIDs []int64
	if err := r.tx.SelectContext(ctx, &groupIDs,
		r.tx.Rebind(`SELECT id FROM chat_groups WHERE created_by_user_id = ? ORDER BY id`), r.userID); err != nil {
		return fmt.Errorf("list owned groups: %w", err)
	}

	for _, groupID := range groupIDs {
		var members int
		if err := r.tx.GetContext(ctx, &members,
			r.tx.Rebind(`SELECT COUNT(*) FROM group_members WHERE group_id = ?`), groupID); err != nil {
			return fmt.Errorf("count members of group %d: %w", groupID, err)
		}
		if members > 0 {
			continue
		}
		if err := r.deleteGroup(ctx, groupID); err != nil {
			return fmt.Errorf("delete orphan group %d: %w", groupID, err)
		}
		r.result.DeletedGroups = append(r.result.DeletedGroups, groupID)
	}
	return nil
}

func (r *run) deleteGroup(ctx context.Context, groupID int64) error {
	var messageIDs []int64
	if err := r.tx.SelectContext(ctx, &messageIDs,
		r.tx.Rebind(`SELECT id FROM group_messages WHERE group_id = ? ORDER BY id`), groupID); err != nil {
		return err
	}

	if err := r.guard.run(ctx, SubsystemPolls, "group_poll_votes", func(ctx context.Context) error {
		return r.execIn(ctx, "group_poll_votes",
			`DELETE FROM group_poll_votes WHERE group_poll_id IN (SELECT id FROM group_polls WHERE group_message_id IN (?))`, messageIDs)
	}); err != nil {
		return err
	}
	if err := r.guard.run(ctx, SubsystemPolls, "group_polls", func(ctx context.Context) error {
		return r.execIn(ctx, "group_polls", `DELETE FROM group_polls WHERE group_message_id IN (?)`, messageIDs)
	}); err != nil {
		return err
	}

	if err := r.execIn(ctx, "group_message_reactions", `DELETE FROM group_message_reactions WHERE group_message_id IN (?)`, messageIDs); err != nil {
		return err
	}
	if err := r.exec(ctx, "group_reads", `DELETE FROM group_reads WHERE group_id = ?`, groupID); err != nil {
		return err
	}
	if err := r.exec(ctx, "group_messages", `DELETE FROM group_messages WHERE group_id = ?`, groupID); err != nil {
		return err
	}
	return r.exec(ctx, "chat_groups", `DELETE FROM chat_groups WHERE id = ?`, groupID)
}
