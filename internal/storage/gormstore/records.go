package gormstore

import (
	"time"

	"github.com/mmynk/groupcal/internal/models"
)

// groupRecord is the gorm mapping of models.Group. Timestamps are Unix milliseconds.
type groupRecord struct {
	ID                  string  `gorm:"primaryKey"`
	Name                string  `gorm:"not null"`
	Description         string  `gorm:"not null;default:''"`
	CreatedBy           string  `gorm:"not null"`
	InviteCode          *string `gorm:"index"`
	InviteCodeCreatedAt *int64
	CreatedAt           int64 `gorm:"not null"`

	Members []memberRecord `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (groupRecord) TableName() string { return "groups" }

// memberRecord is one row of the members map.
type memberRecord struct {
	GroupID   string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey;index"`
	JoinedVia *string
	JoinedAt  int64 `gorm:"not null"`
}

func (memberRecord) TableName() string { return "group_members" }

type userRecord struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"not null;uniqueIndex"`
	DisplayName  string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    int64
	UpdatedAt    int64
}

func (userRecord) TableName() string { return "users" }

func newGroupRecord(group *models.Group) *groupRecord {
	rec := &groupRecord{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		CreatedBy:   group.CreatedBy,
		CreatedAt:   group.CreatedAt.UnixMilli(),
	}
	if group.InviteCode != "" {
		code := group.InviteCode
		rec.InviteCode = &code
	}
	if group.InviteCodeCreatedAt != nil {
		ms := group.InviteCodeCreatedAt.UnixMilli()
		rec.InviteCodeCreatedAt = &ms
	}
	for userID, present := range group.Members {
		if present {
			rec.Members = append(rec.Members, memberRecord{
				GroupID:  group.ID,
				UserID:   userID,
				JoinedAt: rec.CreatedAt,
			})
		}
	}
	return rec
}

func (r *groupRecord) toModel() *models.Group {
	group := &models.Group{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
		Members:     make(map[string]bool, len(r.Members)),
	}
	if r.InviteCode != nil {
		group.InviteCode = *r.InviteCode
	}
	if r.InviteCodeCreatedAt != nil {
		t := time.UnixMilli(*r.InviteCodeCreatedAt).UTC()
		group.InviteCodeCreatedAt = &t
	}
	for _, m := range r.Members {
		group.Members[m.UserID] = true
	}
	return group
}

func newUserRecord(user *models.User) *userRecord {
	return &userRecord{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (r *userRecord) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
