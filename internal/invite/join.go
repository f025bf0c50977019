package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/groupcal/internal/metrics"
	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/notify"
	"github.com/mmynk/groupcal/internal/storage"
)

var (
	ErrInvalidCodeLength = errors.New("invite code must be 8 characters")
	ErrNoGroupFound      = errors.New("no group found")
	// ErrStoreFailure wraps any error returned by the store during a join.
	ErrStoreFailure = errors.New("store failure")
)

// JoinStore is the part of storage.GroupStore the join protocol needs.
type JoinStore interface {
	FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
	JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error
}

// UserLookup resolves the joiner's display name for notifications.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// JoinResult is returned by a successful join.
type JoinResult struct {
	GroupID       string
	GroupName     string
	AlreadyMember bool
}

// NormalizeCode uppercases raw and strips everything outside A-Z and 0-9. The stripped code
// must be exactly JoinCode.Length characters long.
func NormalizeCode(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	code := b.String()
	if len(code) != JoinCode.Length {
		return "", ErrInvalidCodeLength
	}
	return code, nil
}

// Joiner converts a user-entered invite code into a group membership.
//
// The protocol is read-then-write with no lock or version check. Two concurrent joins for
// the same user both see a non-member and both call JoinGroup; stores treat the second
// insert as a no-op, but both callers send notifications.
type Joiner struct {
	store    JoinStore
	users    UserLookup
	notifier notify.Notifier
	options
}

// NewJoiner creates a Joiner. users may be nil, in which case notifications name the
// joiner by user ID.
func NewJoiner(store JoinStore, users UserLookup, notifier notify.Notifier, opts ...Option) *Joiner {
	return &Joiner{
		store:    store,
		users:    users,
		notifier: notifier,
		options:  newOptions(opts),
	}
}

// Join adds userID to the group whose current code matches rawCode. Code expiration is not
// checked here.
func (j *Joiner) Join(ctx context.Context, rawCode, userID string) (JoinResult, error) {
	code, err := NormalizeCode(rawCode)
	if err != nil {
		j.metrics.JoinAttempt(metrics.JoinInvalidCode)
		return JoinResult{}, err
	}

	group, err := j.store.FindGroupByInviteCode(ctx, code)
	if err != nil {
		j.metrics.JoinAttempt(metrics.JoinStoreError)
		return JoinResult{}, fmt.Errorf("%w: find group: %w", ErrStoreFailure, err)
	}
	if group == nil {
		j.metrics.JoinAttempt(metrics.JoinNoGroup)
		return JoinResult{}, ErrNoGroupFound
	}

	result := JoinResult{GroupID: group.ID, GroupName: group.Name}
	if group.IsMember(userID) {
		j.metrics.JoinAttempt(metrics.JoinAlreadyMember)
		result.AlreadyMember = true
		return result, nil
	}

	if err := j.store.JoinGroup(ctx, group.ID, userID, code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted between lookup and join.
			j.metrics.JoinAttempt(metrics.JoinNoGroup)
			return JoinResult{}, ErrNoGroupFound
		}
		j.metrics.JoinAttempt(metrics.JoinStoreError)
		return JoinResult{}, fmt.Errorf("%w: join group: %w", ErrStoreFailure, err)
	}
	j.metrics.JoinAttempt(metrics.JoinJoined)
	j.logger.InfoContext(ctx, "user joined group", "group_id", group.ID, "user_id", userID)

	j.notify(ctx, group, userID)
	return result, nil
}

// notify sends both join notifications. Failures are logged and counted only.
func (j *Joiner) notify(ctx context.Context, group *models.Group, userID string) {
	if j.notifier == nil {
		return
	}

	if err := j.notifier.GroupJoined(ctx, userID, group.Name); err != nil {
		j.metrics.NotificationFailed(notify.KindGroupJoined)
		j.logger.WarnContext(ctx, "joiner notification failed",
			"group_id", group.ID, "user_id", userID, "error", err)
	}

	recipients := group.MemberIDs(userID)
	if len(recipients) == 0 {
		return
	}
	if err := j.notifier.MemberJoined(ctx, recipients, group.Name, j.displayName(ctx, userID)); err != nil {
		j.metrics.NotificationFailed(notify.KindMemberJoined)
		j.logger.WarnContext(ctx, "member notification failed",
			"group_id", group.ID, "user_id", userID, "recipients", len(recipients), "error", err)
	}
}

func (j *Joiner) displayName(ctx context.Context, userID string) string {
	if j.users == nil {
		return userID
	}
	user, err := j.users.GetUserByID(ctx, userID)
	if err != nil || user == nil || user.DisplayName == "" {
		return userID
	}
	return user.DisplayName
}
