// Package storagetest is a conformance suite shared by every storage.Store adapter.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
)

// Factory returns a fresh, empty store. Cleanup is registered on t by the factory.
type Factory func(t *testing.T) storage.Store

// Run exercises the storage.Store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateGroup generates ID and keeps members", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		group := NewGroup("Family", "owner-1")
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Fatal("expected group ID to be generated")
		}
		if group.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}

		got, err := store.GetGroupByID(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected group, got nil")
		}
		if got.Name != "Family" || got.Description != "Family description" {
			t.Errorf("unexpected group fields: %+v", got)
		}
		if got.CreatedBy != "owner-1" {
			t.Errorf("CreatedBy = %q, want owner-1", got.CreatedBy)
		}
		if !got.Members["owner-1"] || len(got.Members) != 1 {
			t.Errorf("Members = %v, want only owner-1", got.Members)
		}
		if got.InviteCode != "" || got.InviteCodeCreatedAt != nil {
			t.Errorf("expected no invite code, got %q / %v", got.InviteCode, got.InviteCodeCreatedAt)
		}
	})

	t.Run("GetGroupByID returns nil for unknown group", func(t *testing.T) {
		store := newStore(t)

		got, err := store.GetGroupByID(context.Background(), uuid.New().String())
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("UpdateGroup applies only set fields", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		group := mustCreate(t, store, NewGroup("Roommates", "owner-1"))

		createdAt := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
		code := "ABCD2345"
		if err := store.UpdateGroup(ctx, group.ID, models.GroupUpdate{
			InviteCode:          &code,
			InviteCodeCreatedAt: &createdAt,
		}); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}

		got := mustGet(t, store, group.ID)
		if got.InviteCode != code {
			t.Errorf("InviteCode = %q, want %q", got.InviteCode, code)
		}
		if got.InviteCodeCreatedAt == nil || !got.InviteCodeCreatedAt.Equal(createdAt) {
			t.Errorf("InviteCodeCreatedAt = %v, want %v", got.InviteCodeCreatedAt, createdAt)
		}
		if got.Name != "Roommates" {
			t.Errorf("Name changed to %q", got.Name)
		}
		if !got.Members["owner-1"] {
			t.Error("members were overwritten by a partial update")
		}

		name := "Flatmates"
		if err := store.UpdateGroup(ctx, group.ID, models.GroupUpdate{Name: &name}); err != nil {
			t.Fatalf("UpdateGroup name failed: %v", err)
		}
		got = mustGet(t, store, group.ID)
		if got.Name != name || got.InviteCode != code {
			t.Errorf("unexpected group after rename: %+v", got)
		}
	})

	t.Run("UpdateGroup on unknown group is ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		name := "x"

		err := store.UpdateGroup(context.Background(), uuid.New().String(), models.GroupUpdate{Name: &name})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FindGroupByInviteCode matches the current code exactly", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		group := mustCreate(t, store, NewGroup("Book Club", "owner-1"))
		other := mustCreate(t, store, NewGroup("Chess", "owner-2"))

		setCode(t, store, group.ID, "OLDCODE1")
		setCode(t, store, other.ID, "OTHER123")

		found, err := store.FindGroupByInviteCode(ctx, "OLDCODE1")
		if err != nil {
			t.Fatalf("FindGroupByInviteCode failed: %v", err)
		}
		if found == nil || found.ID != group.ID {
			t.Fatalf("expected group %s, got %+v", group.ID, found)
		}
		if !found.Members["owner-1"] {
			t.Error("expected members to be loaded")
		}

		if found, _ := store.FindGroupByInviteCode(ctx, "oldcode1"); found != nil {
			t.Error("lookup must be case-sensitive")
		}
		if found, _ := store.FindGroupByInviteCode(ctx, ""); found != nil {
			t.Error("empty code must not match")
		}

		setCode(t, store, group.ID, "NEWCODE2")
		if found, _ := store.FindGroupByInviteCode(ctx, "OLDCODE1"); found != nil {
			t.Error("superseded code must not resolve")
		}
		found, err = store.FindGroupByInviteCode(ctx, "NEWCODE2")
		if err != nil || found == nil || found.ID != group.ID {
			t.Errorf("new code did not resolve: %+v, %v", found, err)
		}
	})

	t.Run("JoinGroup is idempotent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		group := mustCreate(t, store, NewGroup("Hiking", "owner-1"))

		for i := 0; i < 2; i++ {
			if err := store.JoinGroup(ctx, group.ID, "joiner-1", "JOINCODE"); err != nil {
				t.Fatalf("JoinGroup attempt %d failed: %v", i+1, err)
			}
		}

		got := mustGet(t, store, group.ID)
		if len(got.Members) != 2 || !got.Members["joiner-1"] || !got.Members["owner-1"] {
			t.Errorf("Members = %v, want owner-1 and joiner-1", got.Members)
		}
	})

	t.Run("JoinGroup on unknown group is ErrNotFound", func(t *testing.T) {
		store := newStore(t)

		err := store.JoinGroup(context.Background(), uuid.New().String(), "joiner-1", "")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListGroupsForUser and LeaveGroup", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		a := mustCreate(t, store, NewGroup("A", "alice"))
		b := mustCreate(t, store, NewGroup("B", "bob"))
		mustCreate(t, store, NewGroup("C", "carol"))

		if err := store.JoinGroup(ctx, b.ID, "alice", ""); err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}

		groups, err := store.ListGroupsForUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if !sameIDs(groups, a.ID, b.ID) {
			t.Errorf("alice's groups = %v, want %s and %s", ids(groups), a.ID, b.ID)
		}

		if err := store.LeaveGroup(ctx, b.ID, "alice"); err != nil {
			t.Fatalf("LeaveGroup failed: %v", err)
		}
		groups, err = store.ListGroupsForUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if !sameIDs(groups, a.ID) {
			t.Errorf("alice's groups after leaving = %v, want %s", ids(groups), a.ID)
		}

		if err := store.LeaveGroup(ctx, b.ID, "alice"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("leaving twice: expected ErrNotFound, got %v", err)
		}

		groups, err = store.ListGroupsForUser(ctx, "nobody")
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if len(groups) != 0 {
			t.Errorf("expected no groups, got %d", len(groups))
		}
	})

	t.Run("DeleteGroup removes group and memberships", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		group := mustCreate(t, store, NewGroup("Temp", "owner-1"))
		setCode(t, store, group.ID, "TEMPCODE")

		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if got, err := store.GetGroupByID(ctx, group.ID); err != nil || got != nil {
			t.Errorf("expected deleted group to be gone, got %+v, %v", got, err)
		}
		if found, _ := store.FindGroupByInviteCode(ctx, "TEMPCODE"); found != nil {
			t.Error("deleted group's code must not resolve")
		}
		groups, err := store.ListGroupsForUser(ctx, "owner-1")
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if len(groups) != 0 {
			t.Errorf("expected no groups after delete, got %d", len(groups))
		}
		if err := store.DeleteGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Users", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		alice := models.NewUser("alice@example.com", "Alice", "hash-a")
		bob := models.NewUser("bob@example.com", "Bob", "hash-b")
		for _, u := range []*models.User{alice, bob} {
			if err := store.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser(%s) failed: %v", u.Email, err)
			}
		}

		dup := models.NewUser("alice@example.com", "Other Alice", "hash-c")
		if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrEmailExists) {
			t.Errorf("duplicate email: expected ErrEmailExists, got %v", err)
		}

		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got == nil || got.ID != alice.ID || got.DisplayName != "Alice" || got.PasswordHash != "hash-a" {
			t.Errorf("unexpected user: %+v", got)
		}

		if got, err := store.GetUserByEmail(ctx, "nobody@example.com"); err != nil || got != nil {
			t.Errorf("expected nil, nil for unknown email, got %+v, %v", got, err)
		}

		got, err = store.GetUserByID(ctx, bob.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got == nil || got.Email != "bob@example.com" || got.CreatedAt != bob.CreatedAt {
			t.Errorf("unexpected user: %+v", got)
		}

		users, err := store.GetUsersByIDs(ctx, []string{alice.ID, bob.ID, uuid.New().String()})
		if err != nil {
			t.Fatalf("GetUsersByIDs failed: %v", err)
		}
		if len(users) != 2 || users[alice.ID] == nil || users[bob.ID] == nil {
			t.Errorf("GetUsersByIDs = %v, want alice and bob", users)
		}

		users, err = store.GetUsersByIDs(ctx, nil)
		if err != nil || len(users) != 0 {
			t.Errorf("GetUsersByIDs(nil) = %v, %v", users, err)
		}
	})
}

// NewGroup returns an unsaved group whose creator is its only member.
func NewGroup(name, creator string) *models.Group {
	return &models.Group{
		Name:        name,
		Description: name + " description",
		CreatedBy:   creator,
		Members:     map[string]bool{creator: true},
	}
}

func mustCreate(t *testing.T, store storage.Store, group *models.Group) *models.Group {
	t.Helper()
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return group
}

func mustGet(t *testing.T, store storage.Store, groupID string) *models.Group {
	t.Helper()
	group, err := store.GetGroupByID(context.Background(), groupID)
	if err != nil {
		t.Fatalf("GetGroupByID failed: %v", err)
	}
	if group == nil {
		t.Fatalf("group %s not found", groupID)
	}
	return group
}

func setCode(t *testing.T, store storage.Store, groupID, code string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.UpdateGroup(context.Background(), groupID, models.GroupUpdate{
		InviteCode:          &code,
		InviteCodeCreatedAt: &now,
	}); err != nil {
		t.Fatalf("UpdateGroup(%s) failed: %v", code, err)
	}
}

func ids(groups []*models.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.ID
	}
	return out
}

func sameIDs(groups []*models.Group, want ...string) bool {
	if len(groups) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		seen[g.ID] = true
	}
	for _, id := range want {
		if !seen[id] {
			return false
		}
	}
	return true
}
