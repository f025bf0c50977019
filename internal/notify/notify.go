// Package notify dispatches join notifications. Delivery is best effort: callers log and
// count failures but never fail the operation that triggered them.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Notification kinds.
const (
	KindGroupJoined  = "group_joined"
	KindMemberJoined = "member_joined"
)

// Notifier sends join notifications.
type Notifier interface {
	// GroupJoined tells userID that they joined groupName.
	GroupJoined(ctx context.Context, userID, groupName string) error
	// MemberJoined tells recipients that actorName joined groupName.
	MemberJoined(ctx context.Context, recipients []string, groupName, actorName string) error
}

// Notification is the payload delivered to a single user.
type Notification struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"userId"`
	GroupName string    `json:"groupName"`
	ActorName string    `json:"actorName,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func groupJoinedMessage(groupName string) string {
	return "You joined " + groupName
}

func memberJoinedMessage(groupName, actorName string) string {
	return actorName + " joined " + groupName
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) GroupJoined(ctx context.Context, userID, groupName string) error {
	n.logger.InfoContext(ctx, "notification",
		"kind", KindGroupJoined,
		"user_id", userID,
		"message", groupJoinedMessage(groupName),
	)
	return nil
}

func (n *LogNotifier) MemberJoined(ctx context.Context, recipients []string, groupName, actorName string) error {
	for _, userID := range recipients {
		n.logger.InfoContext(ctx, "notification",
			"kind", KindMemberJoined,
			"user_id", userID,
			"message", memberJoinedMessage(groupName, actorName),
		)
	}
	return nil
}
