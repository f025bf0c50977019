package api

import "time"

// User is the public view of an account.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User User `json:"user"`
}

// Member is one entry of a group's member list.
type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	// Role is the caller's role in the group.
	Role string `json:"role"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateGroupResponse struct {
	Group Group `json:"group"`
	// InviteCode is the short code issued at creation.
	InviteCode string `json:"inviteCode"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

// UpdateGroupRequest changes the fields that are set.
type UpdateGroupRequest struct {
	GroupID     string  `json:"groupId"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type UpdateGroupResponse struct {
	Group Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}

type DeleteGroupResponse struct{}

type LeaveGroupRequest struct {
	GroupID string `json:"groupId"`
}

type LeaveGroupResponse struct{}

// InviteCodeRequest is shared by GetInviteCode, RegenerateInviteCode and ShareInviteCode.
type InviteCodeRequest struct {
	GroupID string `json:"groupId"`
}

type InviteCodeResponse struct {
	Code          string     `json:"code"`
	IsExpired     bool       `json:"isExpired"`
	DaysRemaining int        `json:"daysRemaining"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

type JoinGroupResponse struct {
	GroupID       string `json:"groupId"`
	GroupName     string `json:"groupName"`
	AlreadyMember bool   `json:"alreadyMember"`
}
