// Package postgres implements storage.Store on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
)

const uniqueViolation = "23505"

var _ storage.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

// NewPool parses databaseURL, opens a pool and pings it.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create DB pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	return pool, nil
}

// New connects to databaseURL and migrates the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	store, err := NewWithPool(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool migrates the schema on an existing pool. The store takes ownership of the pool.
func NewWithPool(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO groups (id, name, description, created_by, invite_code, invite_code_created_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, group.ID, group.Name, group.Description, group.CreatedBy,
		optionalString(group.InviteCode), optionalMillis(group.InviteCodeCreatedAt), group.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	for userID, present := range group.Members {
		if !present {
			continue
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)
		`, group.ID, userID, group.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetGroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	return s.queryOneGroup(ctx, `
		SELECT id, name, description, created_by, invite_code, invite_code_created_at, created_at
		FROM groups
		WHERE id = $1
	`, groupID)
}

func (s *Store) FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	if code == "" {
		return nil, nil
	}
	return s.queryOneGroup(ctx, `
		SELECT id, name, description, created_by, invite_code, invite_code_created_at, created_at
		FROM groups
		WHERE invite_code = $1
		ORDER BY created_at
		LIMIT 1
	`, code)
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.name, g.description, g.created_by, g.invite_code, g.invite_code_created_at, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at, g.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Group, error) {
		return scanGroup(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan groups: %w", err)
	}

	if err := s.loadMembers(ctx, groups...); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.InviteCode != nil {
		add("invite_code", optionalString(*update.InviteCode))
	}
	if update.InviteCodeCreatedAt != nil {
		add("invite_code_created_at", update.InviteCodeCreatedAt.UnixMilli())
	}

	if len(sets) == 0 {
		return s.requireGroup(ctx, groupID)
	}

	args = append(args, groupID)
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf("UPDATE groups SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

// DeleteGroup relies on ON DELETE CASCADE for memberships.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

func (s *Store) JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error {
	if err := s.requireGroup(ctx, groupID); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, joined_via, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID, optionalString(inviteCode), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

func (s *Store) LeaveGroup(ctx context.Context, groupID, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: member %s of group %s", storage.ErrNotFound, userID, groupID)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryOneUser(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.queryOneUser(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *Store) queryOneGroup(ctx context.Context, query string, arg string) (*models.Group, error) {
	group, err := scanGroup(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if err := s.loadMembers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Store) queryOneUser(ctx context.Context, query string, arg string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// loadMembers fills Members for every group with a single query.
func (s *Store) loadMembers(ctx context.Context, groups ...*models.Group) error {
	if len(groups) == 0 {
		return nil
	}
	byID := make(map[string]*models.Group, len(groups))
	ids := make([]string, len(groups))
	for i, g := range groups {
		byID[g.ID] = g
		ids[i] = g.ID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT group_id, user_id FROM group_members WHERE group_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("load group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID, userID string
		if err := rows.Scan(&groupID, &userID); err != nil {
			return fmt.Errorf("scan group member: %w", err)
		}
		if g, ok := byID[groupID]; ok {
			g.Members[userID] = true
		}
	}
	return rows.Err()
}

func (s *Store) requireGroup(ctx context.Context, groupID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`, groupID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check group existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

func scanGroup(row pgx.Row) (*models.Group, error) {
	group := &models.Group{Members: make(map[string]bool)}
	var (
		inviteCode          *string
		inviteCodeCreatedAt *int64
		createdAt           int64
	)
	if err := row.Scan(&group.ID, &group.Name, &group.Description, &group.CreatedBy,
		&inviteCode, &inviteCodeCreatedAt, &createdAt); err != nil {
		return nil, err
	}
	group.CreatedAt = time.UnixMilli(createdAt).UTC()
	if inviteCode != nil {
		group.InviteCode = *inviteCode
	}
	if inviteCodeCreatedAt != nil {
		t := time.UnixMilli(*inviteCodeCreatedAt).UTC()
		group.InviteCodeCreatedAt = &t
	}
	return group, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
