package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/groupcal/internal/metrics"
	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
)

// ExpirationWindow is how long a code stays valid after it was generated.
const ExpirationWindow = 7 * 24 * time.Hour

const day = 24 * time.Hour

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrCodeExpired   = errors.New("invite code has expired")
)

// GroupStore is the part of storage.GroupStore the lifecycle manager needs.
type GroupStore interface {
	GetGroupByID(ctx context.Context, groupID string) (*models.Group, error)
	UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error
}

// CodeStatus describes a group's current invite code.
type CodeStatus struct {
	Code          string
	IsExpired     bool
	DaysRemaining int
	// CreatedAt is nil when the code has no creation time recorded.
	CreatedAt *time.Time
}

type options struct {
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Manager or Joiner.
type Option func(*options)

// WithClock replaces time.Now for code creation and expiry. A Joiner ignores it since
// joining never checks expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Manager issues invite codes and reports their expiration state.
//
// Reads and writes go straight to the store with no locking: two concurrent
// GenerateNewCode calls for one group both succeed and the last write wins.
type Manager struct {
	store GroupStore
	options
}

func NewManager(store GroupStore, opts ...Option) *Manager {
	return &Manager{store: store, options: newOptions(opts)}
}

// InitialCode returns a ShortCode and its creation time for a group that is about to be
// created. Nothing is persisted.
func (m *Manager) InitialCode() (string, time.Time, error) {
	code, err := Generate(ShortCode)
	if err != nil {
		return "", time.Time{}, err
	}
	m.metrics.CodeGenerated(ShortCode.Name)
	return code, m.now().UTC(), nil
}

// GenerateNewCode replaces the group's invite code with a fresh JoinCode. The previous
// code stops resolving as soon as the update lands.
func (m *Manager) GenerateNewCode(ctx context.Context, groupID string) (string, error) {
	code, _, err := m.generate(ctx, groupID)
	return code, err
}

func (m *Manager) generate(ctx context.Context, groupID string) (string, time.Time, error) {
	code, err := Generate(JoinCode)
	if err != nil {
		return "", time.Time{}, err
	}

	now := m.now().UTC()
	err = m.store.UpdateGroup(ctx, groupID, models.GroupUpdate{
		InviteCode:          &code,
		InviteCodeCreatedAt: &now,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("persist invite code: %w", err)
	}

	m.metrics.CodeGenerated(JoinCode.Name)
	m.logger.InfoContext(ctx, "invite code generated", "group_id", groupID)
	return code, now, nil
}

// LoadCurrentCode returns the group's code and its expiration state. A group without a
// code gets a new one. An expired code is returned as is and is not regenerated.
func (m *Manager) LoadCurrentCode(ctx context.Context, groupID string) (CodeStatus, error) {
	group, err := m.store.GetGroupByID(ctx, groupID)
	if err != nil {
		return CodeStatus{}, fmt.Errorf("load group: %w", err)
	}
	if group == nil {
		return CodeStatus{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	if group.InviteCode == "" {
		code, createdAt, err := m.generate(ctx, groupID)
		if err != nil {
			return CodeStatus{}, err
		}
		return CodeStatus{
			Code:          code,
			IsExpired:     false,
			DaysRemaining: int(ExpirationWindow / day),
			CreatedAt:     &createdAt,
		}, nil
	}

	return StatusAt(group.InviteCode, group.InviteCodeCreatedAt, m.now()), nil
}

// ShareableCode is LoadCurrentCode for the display and copy path: it refuses to hand out an
// expired code. Joining does not go through here.
func (m *Manager) ShareableCode(ctx context.Context, groupID string) (CodeStatus, error) {
	status, err := m.LoadCurrentCode(ctx, groupID)
	if err != nil {
		return CodeStatus{}, err
	}
	if status.IsExpired {
		return status, ErrCodeExpired
	}
	return status, nil
}

// StatusAt computes the expiration state of code at now. A nil createdAt counts as age 0.
func StatusAt(code string, createdAt *time.Time, now time.Time) CodeStatus {
	var age time.Duration
	if createdAt != nil {
		age = now.Sub(*createdAt)
	}

	remaining := ExpirationWindow - age
	days := 0
	if remaining > 0 {
		days = int((remaining + day - 1) / day)
	}

	return CodeStatus{
		Code:          code,
		IsExpired:     age > ExpirationWindow,
		DaysRemaining: days,
		CreatedAt:     createdAt,
	}
}
