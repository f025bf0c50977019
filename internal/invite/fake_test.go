package invite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
)

// fakeStore is an in-memory group store that counts calls.
type fakeStore struct {
	mu     sync.Mutex
	groups map[string]*models.Group
	users  map[string]*models.User

	updateCalls int
	joinCalls   int
	findCalls   int

	// failWith, when set, is returned by every call.
	failWith error
}

func newFakeStore(groups ...*models.Group) *fakeStore {
	s := &fakeStore{groups: make(map[string]*models.Group), users: make(map[string]*models.User)}
	for _, g := range groups {
		s.groups[g.ID] = g
	}
	return s
}

func (s *fakeStore) GetGroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	g, ok := s.groups[groupID]
	if !ok {
		return nil, nil
	}
	return clone(g), nil
}

func (s *fakeStore) UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.failWith != nil {
		return s.failWith
	}
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	if update.Name != nil {
		g.Name = *update.Name
	}
	if update.InviteCode != nil {
		g.InviteCode = *update.InviteCode
	}
	if update.InviteCodeCreatedAt != nil {
		t := *update.InviteCodeCreatedAt
		g.InviteCodeCreatedAt = &t
	}
	return nil
}

func (s *fakeStore) FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, g := range s.groups {
		if code != "" && g.InviteCode == code {
			return clone(g), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinCalls++
	if s.failWith != nil {
		return s.failWith
	}
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	g.Members[userID] = true
	return nil
}

func (s *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *fakeStore) group(id string) *models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.groups[id])
}

func clone(g *models.Group) *models.Group {
	c := *g
	c.Members = make(map[string]bool, len(g.Members))
	for k, v := range g.Members {
		c.Members[k] = v
	}
	return &c
}

type sentNotification struct {
	kind       string
	recipients []string
	groupName  string
	actorName  string
}

// fakeNotifier records every attempt and optionally fails.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail bool
}

var errNotifyDown = errors.New("notification service down")

func (n *fakeNotifier) GroupJoined(ctx context.Context, userID, groupName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: "group_joined", recipients: []string{userID}, groupName: groupName})
	if n.fail {
		return errNotifyDown
	}
	return nil
}

func (n *fakeNotifier) MemberJoined(ctx context.Context, recipients []string, groupName, actorName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: "member_joined", recipients: recipients, groupName: groupName, actorName: actorName})
	if n.fail {
		return errNotifyDown
	}
	return nil
}

func (n *fakeNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.kind == kind {
			c++
		}
	}
	return c
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testGroup(id, name, creator string) *models.Group {
	return &models.Group{
		ID:        id,
		Name:      name,
		CreatedBy: creator,
		Members:   map[string]bool{creator: true},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
