package models

import (
	"sort"
	"time"
)

// Role names derived from a group's CreatedBy and Members fields.
const (
	RoleOwner  = "Owner"
	RoleMember = "Member"
)

// Group is a set of users sharing a calendar and todo list.
//
// Membership is a map from user ID to a presence flag. A key implies membership; absence
// implies non-membership. The creator is added as a member when the group is created and is
// never removed automatically.
type Group struct {
	// ID is the unique identifier for the group (UUID format). Never reassigned.
	ID string

	// Name is the display name of the group (e.g., "Family", "Book Club").
	Name string

	// Description is optional free text.
	Description string

	// Members maps user IDs to true for every member.
	Members map[string]bool

	// CreatedBy is the user ID of the creator. It only drives the derived Owner role.
	CreatedBy string

	// InviteCode is the current invite code, empty when none has been issued.
	// At most one code is active per group; writing a new one invalidates the old one.
	InviteCode string

	// InviteCodeCreatedAt is when InviteCode was (re)generated.
	// Nil means expiration is not tracked for the current code.
	InviteCodeCreatedAt *time.Time

	// CreatedAt is when the group was created.
	CreatedAt time.Time
}

// IsMember reports whether userID is a key in Members with a truthy flag.
func (g *Group) IsMember(userID string) bool {
	return g.Members[userID]
}

// RoleOf returns RoleOwner for the creator, RoleMember for other members and "" otherwise.
func (g *Group) RoleOf(userID string) string {
	if !g.IsMember(userID) {
		return ""
	}
	if g.CreatedBy == userID {
		return RoleOwner
	}
	return RoleMember
}

// MemberIDs returns the sorted IDs of all members except the ones listed in exclude.
func (g *Group) MemberIDs(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	ids := make([]string, 0, len(g.Members))
	for id, present := range g.Members {
		if present && !skip[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// GroupUpdate carries a partial update. Nil fields are left untouched by the store.
type GroupUpdate struct {
	Name                *string
	Description         *string
	InviteCode          *string
	InviteCodeCreatedAt *time.Time
}

// IsEmpty reports whether the update would change nothing.
func (u GroupUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.InviteCode == nil && u.InviteCodeCreatedAt == nil
}
