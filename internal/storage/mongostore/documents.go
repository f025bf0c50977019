package mongostore

import (
	"time"

	"github.com/mmynk/groupcal/internal/models"
)

// groupDoc keeps members as a map field so a join is a single $set on members.<userID>.
type groupDoc struct {
	ID                  string            `bson:"_id"`
	Name                string            `bson:"name"`
	Description         string            `bson:"description"`
	Members             map[string]bool   `bson:"members"`
	JoinedVia           map[string]string `bson:"joinedVia,omitempty"`
	CreatedBy           string            `bson:"createdBy"`
	InviteCode          string            `bson:"inviteCode,omitempty"`
	InviteCodeCreatedAt *time.Time        `bson:"inviteCodeCreatedAt,omitempty"`
	CreatedAt           time.Time         `bson:"createdAt"`
}

type userDoc struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	DisplayName  string `bson:"displayName"`
	PasswordHash string `bson:"passwordHash"`
	CreatedAt    int64  `bson:"createdAt"`
	UpdatedAt    int64  `bson:"updatedAt"`
}

func newGroupDoc(group *models.Group) *groupDoc {
	doc := &groupDoc{
		ID:                  group.ID,
		Name:                group.Name,
		Description:         group.Description,
		Members:             make(map[string]bool, len(group.Members)),
		CreatedBy:           group.CreatedBy,
		InviteCode:          group.InviteCode,
		InviteCodeCreatedAt: group.InviteCodeCreatedAt,
		CreatedAt:           group.CreatedAt,
	}
	for userID, present := range group.Members {
		if present {
			doc.Members[userID] = true
		}
	}
	return doc
}

func (d *groupDoc) toModel() *models.Group {
	group := &models.Group{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Members:     make(map[string]bool, len(d.Members)),
		CreatedBy:   d.CreatedBy,
		InviteCode:  d.InviteCode,
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if d.InviteCodeCreatedAt != nil {
		t := d.InviteCodeCreatedAt.UTC()
		group.InviteCodeCreatedAt = &t
	}
	for userID, present := range d.Members {
		if present {
			group.Members[userID] = true
		}
	}
	return group
}

func newUserDoc(user *models.User) *userDoc {
	return &userDoc{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
