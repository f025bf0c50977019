package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcal/internal/auth"
	"github.com/mmynk/groupcal/internal/invite"
	"github.com/mmynk/groupcal/internal/metrics"
	"github.com/mmynk/groupcal/internal/middleware"
	"github.com/mmynk/groupcal/internal/storage"
	"github.com/mmynk/groupcal/internal/storage/sqlite"
	"github.com/mmynk/groupcal/pkg/api"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sent struct {
	kind       string
	recipients []string
	groupName  string
	actorName  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) GroupJoined(ctx context.Context, userID, groupName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{kind: "group_joined", recipients: []string{userID}, groupName: groupName})
	return nil
}

func (n *recordingNotifier) MemberJoined(ctx context.Context, recipients []string, groupName, actorName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{kind: "member_joined", recipients: recipients, groupName: groupName, actorName: actorName})
	return nil
}

func (n *recordingNotifier) all() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sent(nil), n.sent...)
}

type testEnv struct {
	auth     *api.AuthServiceClient
	groups   *api.GroupServiceClient
	store    *sqlite.SQLiteStore
	clock    *testClock
	notifier *recordingNotifier
}

// setupTestServer starts AuthService and GroupService behind the same interceptors the
// server uses, backed by a temp SQLite database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	return setupTestServerWithStore(t, nil)
}

// setupTestServerWithStore is setupTestServer with the services reading and writing through
// wrap(db) when wrap is non-nil.
func setupTestServerWithStore(t *testing.T, wrap func(storage.Store) storage.Store) *testEnv {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	var store storage.Store = db
	if wrap != nil {
		store = wrap(db)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	m := metrics.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	opts := []invite.Option{invite.WithClock(clock.Now), invite.WithMetrics(m), invite.WithLogger(logger)}
	manager := invite.NewManager(store, opts...)
	joiner := invite.NewJoiner(store, store, notifier, opts...)

	authSvc := NewAuthService(auth.NewPasswordAuthenticator(store), store, jwtManager, logger)
	groupSvc := NewGroupService(store, manager, joiner, logger)

	authPath, authHandler := api.NewAuthServiceHandler(authSvc,
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor(m)))
	groupPath, groupHandler := api.NewGroupServiceHandler(groupSvc,
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(m)))

	mux := http.NewServeMux()
	mux.Handle(authPath, authHandler)
	mux.Handle(groupPath, groupHandler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		db.Close()
		os.Remove(tmpFile.Name())
	})

	return &testEnv{
		auth:     api.NewAuthServiceClient(http.DefaultClient, server.URL),
		groups:   api.NewGroupServiceClient(http.DefaultClient, server.URL),
		store:    db,
		clock:    clock,
		notifier: notifier,
	}
}

type testUser struct {
	id    string
	token string
}

func (e *testEnv) register(t *testing.T, email, displayName string) testUser {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		Password:    "password123",
		DisplayName: displayName,
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return testUser{id: resp.Msg.User.ID, token: resp.Msg.Token}
}

// as wraps msg in a request carrying u's bearer token.
func as[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if u.token != "" {
		req.Header().Set("Authorization", "Bearer "+u.token)
	}
	return req
}

func (e *testEnv) createGroup(t *testing.T, owner testUser, name string) api.Group {
	t.Helper()
	resp, err := e.groups.CreateGroup(context.Background(), as(owner, &api.CreateGroupRequest{Name: name}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

// joinCode regenerates the group's code so it can be used to join.
func (e *testEnv) joinCode(t *testing.T, member testUser, groupID string) string {
	t.Helper()
	resp, err := e.groups.RegenerateInviteCode(context.Background(), as(member, &api.InviteCodeRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("RegenerateInviteCode failed: %v", err)
	}
	return resp.Msg.Code
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (err: %v)", got, want, err)
	}
}
