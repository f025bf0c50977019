package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
)

const groupColumns = "id, name, description, created_by, invite_code, invite_code_created_at, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{Members: make(map[string]bool)}
	var (
		inviteCode          sql.NullString
		inviteCodeCreatedAt sql.NullInt64
		createdAt           int64
	)
	if err := row.Scan(&group.ID, &group.Name, &group.Description, &group.CreatedBy,
		&inviteCode, &inviteCodeCreatedAt, &createdAt); err != nil {
		return nil, err
	}
	group.CreatedAt = fromMillis(createdAt)
	if inviteCode.Valid {
		group.InviteCode = inviteCode.String
	}
	if inviteCodeCreatedAt.Valid {
		t := fromMillis(inviteCodeCreatedAt.Int64)
		group.InviteCodeCreatedAt = &t
	}
	return group, nil
}

// CreateGroup persists a new group together with its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		group.ID, group.Name, group.Description, group.CreatedBy,
		nullString(group.InviteCode), nullMillis(group.InviteCodeCreatedAt), toMillis(group.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	joinedAt := toMillis(group.CreatedAt)
	for userID, present := range group.Members {
		if !present {
			continue
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
			group.ID, userID, joinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroupByID retrieves a group and its members. Returns nil, nil if not found.
func (s *SQLiteStore) GetGroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?", groupID))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if err := s.loadMembers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// FindGroupByInviteCode returns the group whose current invite code is exactly code.
func (s *SQLiteStore) FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	if code == "" {
		return nil, nil
	}

	group, err := scanGroup(s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE invite_code = ? ORDER BY created_at LIMIT 1", code))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group by invite code: %w", err)
	}

	if err := s.loadMembers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroupsForUser returns all groups the user is a member of, oldest first.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.description, g.created_by, g.invite_code, g.invite_code_created_at, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.created_at, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	rows.Close()

	for _, group := range groups {
		if err := s.loadMembers(ctx, group); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// UpdateGroup applies a partial update to the group row.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.InviteCode != nil {
		sets = append(sets, "invite_code = ?")
		args = append(args, nullString(*update.InviteCode))
	}
	if update.InviteCodeCreatedAt != nil {
		sets = append(sets, "invite_code_created_at = ?")
		args = append(args, toMillis(*update.InviteCodeCreatedAt))
	}

	if len(sets) == 0 {
		return s.requireGroup(ctx, groupID)
	}

	args = append(args, groupID)
	result, err := s.db.ExecContext(ctx,
		"UPDATE groups SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireAffected(result, groupID)
}

// DeleteGroup removes a group and its memberships.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to delete group members: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if err := requireAffected(result, groupID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// JoinGroup adds the user to the group's members. Re-joining is a no-op.
func (s *SQLiteStore) JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error {
	if err := s.requireGroup(ctx, groupID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, joined_via, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID, nullString(inviteCode), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

// LeaveGroup removes the user from the group's members.
func (s *SQLiteStore) LeaveGroup(ctx context.Context, groupID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete group member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: member %s of group %s", storage.ErrNotFound, userID, groupID)
	}
	return nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, group *models.Group) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ?", group.ID)
	if err != nil {
		return fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		group.Members[userID] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group members: %w", err)
	}
	return nil
}

func (s *SQLiteStore) requireGroup(ctx context.Context, groupID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if isNoRows(err) {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, groupID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}
