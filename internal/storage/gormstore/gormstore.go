// Package gormstore implements storage.Store on top of gorm with the SQLite driver.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using gorm.
type Store struct {
	db *gorm.DB
}

// New opens the database at dsn and migrates the schema.
func New(dsn string) (*Store, error) {
	if !strings.HasPrefix(dsn, "file:") && !strings.HasPrefix(dsn, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an already opened gorm connection and migrates the schema.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&groupRecord{}, &memberRecord{}, &userRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateGroup inserts the group and its members in one transaction.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	rec := newGroupRecord(group)
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetGroupByID returns nil, nil when the group does not exist.
func (s *Store) GetGroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	var rec groupRecord
	err := s.db.WithContext(ctx).Preload("Members").First(&rec, "id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return rec.toModel(), nil
}

// FindGroupByInviteCode returns the group whose current invite code is exactly code.
func (s *Store) FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	if code == "" {
		return nil, nil
	}

	var rec groupRecord
	err := s.db.WithContext(ctx).
		Preload("Members").
		Where("invite_code = ?", code).
		Order("created_at").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group by invite code: %w", err)
	}
	return rec.toModel(), nil
}

// ListGroupsForUser returns all groups the user is a member of, oldest first.
func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	var recs []groupRecord
	err := s.db.WithContext(ctx).
		Preload("Members").
		Joins("JOIN group_members m ON m.group_id = groups.id").
		Where("m.user_id = ?", userID).
		Order("groups.created_at, groups.id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groups := make([]*models.Group, len(recs))
	for i := range recs {
		groups[i] = recs[i].toModel()
	}
	return groups, nil
}

// UpdateGroup applies the non-nil fields of update.
func (s *Store) UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error {
	fields := make(map[string]any)
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.InviteCode != nil {
		if *update.InviteCode == "" {
			fields["invite_code"] = nil
		} else {
			fields["invite_code"] = *update.InviteCode
		}
	}
	if update.InviteCodeCreatedAt != nil {
		fields["invite_code_created_at"] = update.InviteCodeCreatedAt.UnixMilli()
	}

	if len(fields) == 0 {
		return s.requireGroup(s.db.WithContext(ctx), groupID)
	}

	result := s.db.WithContext(ctx).Model(&groupRecord{}).Where("id = ?", groupID).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

// DeleteGroup removes the group and its members.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&memberRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete group members: %w", err)
		}
		result := tx.Where("id = ?", groupID).Delete(&groupRecord{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete group: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
		}
		return nil
	})
}

// JoinGroup inserts the membership row unless it already exists.
func (s *Store) JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error {
	db := s.db.WithContext(ctx)
	if err := s.requireGroup(db, groupID); err != nil {
		return err
	}

	member := memberRecord{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: time.Now().UnixMilli(),
	}
	if inviteCode != "" {
		member.JoinedVia = &inviteCode
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

// LeaveGroup deletes the membership row.
func (s *Store) LeaveGroup(ctx context.Context, groupID, userID string) error {
	result := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&memberRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete group member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: member %s of group %s", storage.ErrNotFound, userID, groupID)
	}
	return nil
}

func (s *Store) requireGroup(db *gorm.DB, groupID string) error {
	var count int64
	if err := db.Model(&groupRecord{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

// CreateUser inserts a user. A duplicate email yields storage.ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(newUserRecord(user)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail returns nil, nil when no user has that email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.firstUser(ctx, "email = ?", email)
}

// GetUserByID returns nil, nil when the user does not exist.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.firstUser(ctx, "id = ?", id)
}

func (s *Store) firstUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return rec.toModel(), nil
}

// GetUsersByIDs returns the users that exist among ids, keyed by ID.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var recs []userRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	for i := range recs {
		users[recs[i].ID] = recs[i].toModel()
	}
	return users, nil
}
