package invite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/groupcal/internal/metrics"
)

var epoch = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func TestStatusAt(t *testing.T) {
	ms := time.Millisecond

	tests := []struct {
		name        string
		age         time.Duration
		wantExpired bool
		wantDays    int
	}{
		{"fresh", 0, false, 7},
		{"one hour", time.Hour, false, 7},
		{"exactly one day", day, false, 6},
		{"six days 23h59m", 6*day + 23*time.Hour + 59*time.Minute, false, 1},
		{"exactly seven days", ExpirationWindow, false, 0},
		{"seven days and 1ms", ExpirationWindow + ms, true, 0},
		{"eight days", 8 * day, true, 0},
		{"created in the future", -day, false, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createdAt := epoch.Add(-tt.age)
			got := StatusAt("ABCD1234", &createdAt, epoch)
			if got.IsExpired != tt.wantExpired {
				t.Errorf("IsExpired = %v, want %v", got.IsExpired, tt.wantExpired)
			}
			if got.DaysRemaining != tt.wantDays {
				t.Errorf("DaysRemaining = %d, want %d", got.DaysRemaining, tt.wantDays)
			}
		})
	}
}

func TestStatusAtWithoutCreatedAt(t *testing.T) {
	got := StatusAt("ABCD1234", nil, epoch)
	if got.IsExpired || got.DaysRemaining != 7 || got.CreatedAt != nil {
		t.Errorf("untracked code status = %+v, want not expired with 7 days", got)
	}
}

func TestGenerateNewCode(t *testing.T) {
	store := newFakeStore(testGroup("g1", "Family", "owner"))
	clk := &clock{now: epoch}
	m := metrics.New()
	mgr := NewManager(store, WithClock(clk.Now), WithMetrics(m))

	code, err := mgr.GenerateNewCode(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GenerateNewCode failed: %v", err)
	}
	if len(code) != 8 {
		t.Errorf("code %q is not 8 characters", code)
	}

	g := store.group("g1")
	if g.InviteCode != code {
		t.Errorf("stored code = %q, want %q", g.InviteCode, code)
	}
	if g.InviteCodeCreatedAt == nil || !g.InviteCodeCreatedAt.Equal(epoch) {
		t.Errorf("stored created at = %v, want %v", g.InviteCodeCreatedAt, epoch)
	}
	if !g.Members["owner"] {
		t.Error("members must survive a code update")
	}

	// Regenerating supersedes the old code.
	clk.Advance(time.Hour)
	next, err := mgr.GenerateNewCode(context.Background(), "g1")
	if err != nil {
		t.Fatalf("second GenerateNewCode failed: %v", err)
	}
	if next != code {
		if found, _ := store.FindGroupByInviteCode(context.Background(), code); found != nil {
			t.Error("superseded code still resolves")
		}
	}

	expected := `
# HELP groupcal_invite_codes_generated_total Invite codes generated, by code variant.
# TYPE groupcal_invite_codes_generated_total counter
groupcal_invite_codes_generated_total{variant="join"} 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "groupcal_invite_codes_generated_total"); err != nil {
		t.Error(err)
	}
}

func TestGenerateNewCodeErrors(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store)

	if _, err := mgr.GenerateNewCode(context.Background(), "missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("missing group: expected ErrGroupNotFound, got %v", err)
	}

	boom := errors.New("connection reset")
	store = newFakeStore(testGroup("g1", "Family", "owner"))
	store.failWith = boom
	mgr = NewManager(store)
	if _, err := mgr.GenerateNewCode(context.Background(), "g1"); !errors.Is(err, boom) {
		t.Errorf("store failure: expected wrapped error, got %v", err)
	}
}

func TestLoadCurrentCodeGeneratesWhenMissing(t *testing.T) {
	store := newFakeStore(testGroup("g1", "Family", "owner"))
	mgr := NewManager(store, WithClock(func() time.Time { return epoch }))

	status, err := mgr.LoadCurrentCode(context.Background(), "g1")
	if err != nil {
		t.Fatalf("LoadCurrentCode failed: %v", err)
	}
	if status.Code == "" || status.IsExpired || status.DaysRemaining != 7 {
		t.Errorf("status = %+v, want fresh code with 7 days", status)
	}
	if store.group("g1").InviteCode != status.Code {
		t.Error("generated code was not persisted")
	}
	if store.updateCalls != 1 {
		t.Errorf("update calls = %d, want 1", store.updateCalls)
	}
}

func TestLoadCurrentCodeKeepsExistingCode(t *testing.T) {
	g := testGroup("g1", "Family", "owner")
	createdAt := epoch.Add(-2*day - time.Hour)
	g.InviteCode = "EXIST123"
	g.InviteCodeCreatedAt = &createdAt
	store := newFakeStore(g)
	mgr := NewManager(store, WithClock(func() time.Time { return epoch }))

	status, err := mgr.LoadCurrentCode(context.Background(), "g1")
	if err != nil {
		t.Fatalf("LoadCurrentCode failed: %v", err)
	}
	if status.Code != "EXIST123" || status.IsExpired || status.DaysRemaining != 5 {
		t.Errorf("status = %+v", status)
	}
	if store.updateCalls != 0 {
		t.Errorf("update calls = %d, want 0", store.updateCalls)
	}
}

func TestLoadCurrentCodeMissingGroup(t *testing.T) {
	mgr := NewManager(newFakeStore())
	if _, err := mgr.LoadCurrentCode(context.Background(), "nope"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

// Advancing past the window marks the code expired without replacing it.
func TestExpiredCodeIsNotRegenerated(t *testing.T) {
	store := newFakeStore(testGroup("g1", "Family", "owner"))
	clk := &clock{now: epoch}
	mgr := NewManager(store, WithClock(clk.Now))
	ctx := context.Background()

	code, err := mgr.GenerateNewCode(ctx, "g1")
	if err != nil {
		t.Fatalf("GenerateNewCode failed: %v", err)
	}

	clk.Advance(8 * day)
	status, err := mgr.LoadCurrentCode(ctx, "g1")
	if err != nil {
		t.Fatalf("LoadCurrentCode failed: %v", err)
	}
	if !status.IsExpired || status.DaysRemaining != 0 {
		t.Errorf("status = %+v, want expired with 0 days", status)
	}
	if status.Code != code || store.group("g1").InviteCode != code {
		t.Errorf("code changed from %q to %q", code, store.group("g1").InviteCode)
	}
	if store.updateCalls != 1 {
		t.Errorf("update calls = %d, want only the initial generate", store.updateCalls)
	}
}

func TestShareableCode(t *testing.T) {
	store := newFakeStore(testGroup("g1", "Family", "owner"))
	clk := &clock{now: epoch}
	mgr := NewManager(store, WithClock(clk.Now))
	ctx := context.Background()

	status, err := mgr.ShareableCode(ctx, "g1")
	if err != nil {
		t.Fatalf("ShareableCode failed: %v", err)
	}

	clk.Advance(7*day + time.Millisecond)
	expired, err := mgr.ShareableCode(ctx, "g1")
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
	if expired.Code != status.Code {
		t.Errorf("expired status code = %q, want %q", expired.Code, status.Code)
	}
}

func TestInitialCode(t *testing.T) {
	mgr := NewManager(newFakeStore(), WithClock(func() time.Time { return epoch }))

	code, createdAt, err := mgr.InitialCode()
	if err != nil {
		t.Fatalf("InitialCode failed: %v", err)
	}
	if len(code) != 6 || !createdAt.Equal(epoch) {
		t.Errorf("InitialCode = %q, %v", code, createdAt)
	}
}
