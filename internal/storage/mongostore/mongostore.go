// Package mongostore implements storage.Store on MongoDB.
//
// Groups are single documents with a members map, so membership changes are partial
// updates on members.<userID> and never rewrite the whole map.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
)

const (
	groupsCollection = "groups"
	usersCollection  = "users"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using a MongoDB database.
type Store struct {
	client *mongo.Client
	groups *mongo.Collection
	users  *mongo.Collection
}

// New connects to uri, pings the server and ensures indexes exist in database.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	store := &Store{
		client: client,
		groups: db.Collection(groupsCollection),
		users:  db.Collection(usersCollection),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.groups.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "inviteCode", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create invite code index: %w", err)
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		// BSON dates have millisecond precision.
		group.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := s.groups.InsertOne(ctx, newGroupDoc(group)); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *Store) GetGroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	return s.findOneGroup(ctx, bson.M{"_id": groupID})
}

func (s *Store) FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	if code == "" {
		return nil, nil
	}
	return s.findOneGroup(ctx, bson.M{"inviteCode": code})
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.groups.Find(ctx, bson.M{memberField(userID): true}, opts)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	var docs []groupDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}

	groups := make([]*models.Group, len(docs))
	for i := range docs {
		groups[i] = docs[i].toModel()
	}
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error {
	set := bson.M{}
	unset := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.InviteCode != nil {
		if *update.InviteCode == "" {
			unset["inviteCode"] = ""
		} else {
			set["inviteCode"] = *update.InviteCode
		}
	}
	if update.InviteCodeCreatedAt != nil {
		set["inviteCodeCreatedAt"] = update.InviteCodeCreatedAt.UTC()
	}

	if len(set) == 0 && len(unset) == 0 {
		return s.requireGroup(ctx, groupID)
	}

	doc := bson.M{}
	if len(set) > 0 {
		doc["$set"] = set
	}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}

	result, err := s.groups.UpdateOne(ctx, bson.M{"_id": groupID}, doc)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.groups.DeleteOne(ctx, bson.M{"_id": groupID})
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

// JoinGroup only matches documents where the user is not yet a member, so a repeated
// join leaves joinedVia untouched.
func (s *Store) JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error {
	set := bson.M{memberField(userID): true}
	if inviteCode != "" {
		set["joinedVia."+userID] = inviteCode
	}

	result, err := s.groups.UpdateOne(ctx,
		bson.M{"_id": groupID, memberField(userID): bson.M{"$ne": true}},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	if result.MatchedCount == 0 {
		// Either already a member or the group does not exist.
		return s.requireGroup(ctx, groupID)
	}
	return nil
}

func (s *Store) LeaveGroup(ctx context.Context, groupID, userID string) error {
	result, err := s.groups.UpdateOne(ctx,
		bson.M{"_id": groupID, memberField(userID): true},
		bson.M{"$unset": bson.M{memberField(userID): "", "joinedVia." + userID: ""}},
	)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: member %s of group %s", storage.ErrNotFound, userID, groupID)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.users.InsertOne(ctx, newUserDoc(user))
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOneUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOneUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("get users by IDs: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for i := range docs {
		users[docs[i].ID] = docs[i].toModel()
	}
	return users, nil
}

func (s *Store) findOneGroup(ctx context.Context, filter bson.M) (*models.Group, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	var doc groupDoc
	err := s.groups.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) findOneUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) requireGroup(ctx context.Context, groupID string) error {
	n, err := s.groups.CountDocuments(ctx, bson.M{"_id": groupID})
	if err != nil {
		return fmt.Errorf("check group existence: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

func memberField(userID string) string {
	return "members." + userID
}
