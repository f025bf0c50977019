// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/groupcal/internal/models"
)

var (
	// ErrNotFound is returned by mutating operations when the target record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmailExists is returned by CreateUser when the email is already registered.
	ErrEmailExists = errors.New("email already registered")
)

// GroupStore is the Group Record Store contract the invite and membership logic is built on.
// Implementations must not add locking or version checks: reads followed by writes may race
// and a lost update is possible under concurrent joins.
type GroupStore interface {
	// CreateGroup persists a new group. ID and CreatedAt are populated when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroupByID returns the group, or nil and no error when it does not exist.
	GetGroupByID(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns every group userID is a member of.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// UpdateGroup applies the non-nil fields of update. Members are never touched.
	// Returns ErrNotFound if the group does not exist.
	UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error

	// DeleteGroup removes the group and its memberships. Events and todos are not cascaded.
	DeleteGroup(ctx context.Context, groupID string) error

	// FindGroupByInviteCode returns the group whose current invite code equals code exactly,
	// or nil and no error when none matches.
	FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)

	// JoinGroup sets members[userID] = true. Joining twice is a no-op.
	// inviteCode is recorded alongside the membership when non-empty; it is not validated here.
	JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error

	// LeaveGroup removes userID from the group's members.
	LeaveGroup(ctx context.Context, groupID, userID string) error
}

// UserStore holds registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns nil and no error when no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns nil and no error when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUsersByIDs returns a map of user ID to User. Missing users are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// Store is the full persistence contract. Every backend adapter implements it, which
// allows swapping backends (SQLite, Postgres, MongoDB, a remote REST API) without
// changing the service layer.
type Store interface {
	GroupStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
