package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MigrateOptions selects optional parts of the schema.
type MigrateOptions struct {
	// Polls creates the poll sub-schema. Deployments without it still run
	// the rest of the application, including account deletion.
	Polls bool
}

// No foreign key cascades: account deletion removes rows in dependency order.
// chat_groups.created_by_user_id deliberately has no foreign key, a group
// outlives its creator while it still has members.
var coreMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id {{pk}},
            username TEXT NOT NULL UNIQUE,
            display_name TEXT NOT NULL DEFAULT '',
            avatar_path TEXT NOT NULL DEFAULT '',
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id {{pk}},
            sender_id BIGINT NOT NULL REFERENCES users(id),
            receiver_id BIGINT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL,
            attachment_path TEXT NOT NULL DEFAULT '',
            deleted_for_all BOOLEAN NOT NULL DEFAULT FALSE,
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);`,
	`CREATE TABLE IF NOT EXISTS contacts (
            user_id BIGINT NOT NULL REFERENCES users(id),
            contact_id BIGINT NOT NULL REFERENCES users(id),
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY(user_id, contact_id)
        );`,
	`CREATE TABLE IF NOT EXISTS friend_requests (
            id {{pk}},
            from_user_id BIGINT NOT NULL REFERENCES users(id),
            to_user_id BIGINT NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'pending',
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS chat_groups (
            id {{pk}},
            name TEXT NOT NULL,
            created_by_user_id BIGINT NOT NULL,
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS group_members (
            group_id BIGINT NOT NULL REFERENCES chat_groups(id),
            user_id BIGINT NOT NULL REFERENCES users(id),
            joined_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY(group_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS group_messages (
            id {{pk}},
            group_id BIGINT NOT NULL REFERENCES chat_groups(id),
            sender_id BIGINT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL,
            deleted_for_all BOOLEAN NOT NULL DEFAULT FALSE,
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE INDEX IF NOT EXISTS idx_group_messages_group ON group_messages(group_id);`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
            id {{pk}},
            message_id BIGINT NOT NULL REFERENCES messages(id),
            user_id BIGINT NOT NULL REFERENCES users(id),
            emoji TEXT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS group_message_reactions (
            id {{pk}},
            group_message_id BIGINT NOT NULL REFERENCES group_messages(id),
            user_id BIGINT NOT NULL REFERENCES users(id),
            emoji TEXT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS group_reads (
            group_id BIGINT NOT NULL REFERENCES chat_groups(id),
            user_id BIGINT NOT NULL REFERENCES users(id),
            last_read_message_id BIGINT NOT NULL DEFAULT 0,
            last_read_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY(group_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS fcm_tokens (
            id {{pk}},
            user_id BIGINT NOT NULL REFERENCES users(id),
            token TEXT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS password_reset_tokens (
            id {{pk}},
            user_id BIGINT NOT NULL REFERENCES users(id),
            token_hash TEXT NOT NULL,
            expires_at {{timestamp}}
        );`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
            id {{pk}},
            user_id BIGINT NOT NULL REFERENCES users(id),
            action TEXT NOT NULL,
            details TEXT NOT NULL DEFAULT '',
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS privacy_settings (
            user_id BIGINT PRIMARY KEY REFERENCES users(id),
            last_seen_visibility TEXT NOT NULL DEFAULT 'everyone',
            avatar_visibility TEXT NOT NULL DEFAULT 'everyone'
        );`,
	`CREATE TABLE IF NOT EXISTS privacy_hide_from (
            user_id BIGINT NOT NULL REFERENCES users(id),
            hidden_from_user_id BIGINT NOT NULL REFERENCES users(id),
            PRIMARY KEY(user_id, hidden_from_user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS blocked_users (
            blocker_id BIGINT NOT NULL REFERENCES users(id),
            blocked_id BIGINT NOT NULL REFERENCES users(id),
            created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY(blocker_id, blocked_id)
        );`,
}

// Poll tables point at core rows without constraints so a failed poll
// cleanup cannot block deleting messages or users.
var pollMigrations = []string{
	`CREATE TABLE IF NOT EXISTS polls (
            id {{pk}},
            message_id BIGINT NOT NULL,
            question TEXT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS poll_votes (
            id {{pk}},
            poll_id BIGINT NOT NULL REFERENCES polls(id),
            user_id BIGINT NOT NULL,
            option_index INT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS group_polls (
            id {{pk}},
            group_message_id BIGINT NOT NULL,
            question TEXT NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS group_poll_votes (
            id {{pk}},
            group_poll_id BIGINT NOT NULL REFERENCES group_polls(id),
            user_id BIGINT NOT NULL,
            option_index INT NOT NULL
        );`,
}

// Migrate creates the schema for the dialect.
func Migrate(ctx context.Context, db *sqlx.DB, dialect Dialect, opts MigrateOptions) error {
	migrations := coreMigrations
	if opts.Polls {
		migrations = append(append([]string{}, coreMigrations...), pollMigrations...)
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, dialect.ddl(m)); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
