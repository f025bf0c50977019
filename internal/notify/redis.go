package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// inboxLimit caps how many notifications are kept per user.
const inboxLimit = 100

// RedisNotifier appends each notification to the recipient's inbox list and publishes it
// on a channel for online clients.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, now: time.Now}
}

// InboxKey is the list holding userID's notifications, oldest first.
func InboxKey(userID string) string {
	return "notifications:" + userID
}

func (n *RedisNotifier) GroupJoined(ctx context.Context, userID, groupName string) error {
	return n.deliver(ctx, []Notification{{
		Kind:      KindGroupJoined,
		UserID:    userID,
		GroupName: groupName,
		Message:   groupJoinedMessage(groupName),
		CreatedAt: n.now().UTC(),
	}})
}

func (n *RedisNotifier) MemberJoined(ctx context.Context, recipients []string, groupName, actorName string) error {
	if len(recipients) == 0 {
		return nil
	}
	now := n.now().UTC()
	batch := make([]Notification, len(recipients))
	for i, userID := range recipients {
		batch[i] = Notification{
			Kind:      KindMemberJoined,
			UserID:    userID,
			GroupName: groupName,
			ActorName: actorName,
			Message:   memberJoinedMessage(groupName, actorName),
			CreatedAt: now,
		}
	}
	return n.deliver(ctx, batch)
}

func (n *RedisNotifier) deliver(ctx context.Context, batch []Notification) error {
	pipe := n.rdb.Pipeline()
	for _, msg := range batch {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		key := InboxKey(msg.UserID)
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -inboxLimit, -1)
		pipe.Publish(ctx, n.channel, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deliver notifications: %w", err)
	}
	return nil
}

// Inbox returns userID's stored notifications, oldest first.
func (n *RedisNotifier) Inbox(ctx context.Context, userID string) ([]Notification, error) {
	raw, err := n.rdb.LRange(ctx, InboxKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var msg Notification
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
