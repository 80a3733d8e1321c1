package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"chat-backend/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	IsMember(ctx context.Context, groupID int, userID int) (bool, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

const groupColumns = `id, name, created_by_user_id, created_at`

// CreateGroup creates a group and its members atomically. The creator is
// always a member.
func (r *GroupRepo) CreateGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (group models.Group, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO chat_groups (name, created_by_user_id) VALUES (?, ?) RETURNING `+groupColumns), name, creatorID).
		StructScan(&group); err != nil {
		return models.Group{}, err
	}

	memberSet := map[int]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`), group.ID, id); err != nil {
			return models.Group{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListGroupsForUser returns groups that include the user, newest first.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, r.db.Rebind(`SELECT g.id, g.name, g.created_by_user_id, g.created_at
        FROM chat_groups g
        INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=?
        ORDER BY g.created_at DESC, g.id DESC`), userID)
	return groups, err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID int, userID int) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM group_members WHERE group_id=? AND user_id=?`), groupID, userID)
	return n > 0, err
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, r.db.Rebind(`SELECT `+groupColumns+` FROM chat_groups WHERE id=?`), groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}
