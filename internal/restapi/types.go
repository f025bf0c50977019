package restapi

import (
	"time"

	"github.com/mmynk/groupcal/internal/models"
)

// Group is the JSON representation of a group on the store API.
type Group struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Members             map[string]bool `json:"members"`
	CreatedBy           string          `json:"createdBy"`
	InviteCode          string          `json:"inviteCode,omitempty"`
	InviteCodeCreatedAt *time.Time      `json:"inviteCodeCreatedAt,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// GroupUpdate is the body of PATCH /groups/:id. Absent fields are left untouched.
type GroupUpdate struct {
	Name                *string    `json:"name,omitempty"`
	Description         *string    `json:"description,omitempty"`
	InviteCode          *string    `json:"inviteCode,omitempty"`
	InviteCodeCreatedAt *time.Time `json:"inviteCodeCreatedAt,omitempty"`
}

// JoinRequest is the body of PUT /groups/:id/members/:userId.
type JoinRequest struct {
	InviteCode string `json:"inviteCode"`
}

// User carries the password hash: this API is only reachable by trusted app servers.
type User struct {
	ID           string `json:"id" binding:"required"`
	Email        string `json:"email" binding:"required"`
	DisplayName  string `json:"displayName"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// UsersRequest is the body of POST /users/batch.
type UsersRequest struct {
	IDs []string `json:"ids"`
}

// UsersResponse maps user IDs to users; unknown IDs are omitted.
type UsersResponse struct {
	Users map[string]User `json:"users"`
}

// Error codes carried in ErrorResponse.Code. Clients rely on them rather than on the HTTP
// status, since a proxy or an unmatched route also answers 404.
const (
	CodeNotFound    = "not_found"
	CodeEmailExists = "email_exists"
)

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func FromGroup(g *models.Group) Group {
	members := make(map[string]bool, len(g.Members))
	for id, present := range g.Members {
		if present {
			members[id] = true
		}
	}
	return Group{
		ID:                  g.ID,
		Name:                g.Name,
		Description:         g.Description,
		Members:             members,
		CreatedBy:           g.CreatedBy,
		InviteCode:          g.InviteCode,
		InviteCodeCreatedAt: g.InviteCodeCreatedAt,
		CreatedAt:           g.CreatedAt,
	}
}

func (g Group) ToModel() *models.Group {
	members := make(map[string]bool, len(g.Members))
	for id, present := range g.Members {
		if present {
			members[id] = true
		}
	}
	return &models.Group{
		ID:                  g.ID,
		Name:                g.Name,
		Description:         g.Description,
		Members:             members,
		CreatedBy:           g.CreatedBy,
		InviteCode:          g.InviteCode,
		InviteCodeCreatedAt: g.InviteCodeCreatedAt,
		CreatedAt:           g.CreatedAt,
	}
}

func FromGroupUpdate(u models.GroupUpdate) GroupUpdate {
	return GroupUpdate{
		Name:                u.Name,
		Description:         u.Description,
		InviteCode:          u.InviteCode,
		InviteCodeCreatedAt: u.InviteCodeCreatedAt,
	}
}

func (u GroupUpdate) ToModel() models.GroupUpdate {
	return models.GroupUpdate{
		Name:                u.Name,
		Description:         u.Description,
		InviteCode:          u.InviteCode,
		InviteCodeCreatedAt: u.InviteCodeCreatedAt,
	}
}

func FromUser(u *models.User) User {
	return User{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (u User) ToModel() *models.User {
	return &models.User{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
