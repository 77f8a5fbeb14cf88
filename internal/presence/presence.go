// Package presence delivers best-effort notifications about relationship and playlist changes.
//
// Notifications never feed back into the operations that trigger them: [Async] runs every delivery on its
// own goroutine, logs the failure and reports success to the caller.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// EventType names what happened to the recipient.
type EventType string

const (
	FriendRequestReceived  EventType = "friend_request_received"
	FriendRequestCancelled EventType = "friend_request_cancelled"
	FriendRequestAccepted  EventType = "friend_request_accepted"
	FriendRequestDeclined  EventType = "friend_request_declined"
	FriendRemoved          EventType = "friend_removed"
	SongLiked              EventType = "song_liked"
	SongUnliked            EventType = "song_unliked"
	PlaylistSongAdded      EventType = "playlist_song_added"
	PlaylistSongRemoved    EventType = "playlist_song_removed"
)

// Event is the payload delivered to a single user.
type Event struct {
	Type    EventType `json:"type"`
	Actor   string    `json:"actor"`
	Subject string    `json:"subject,omitempty"` // peer, song or playlist id depending on Type
	At      time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, actor, subject string) Event {
	return Event{Type: t, Actor: actor, Subject: subject, At: time.Now().UTC()}
}

// Notifier delivers an [Event] to userID.
type Notifier interface {
	Notify(ctx context.Context, userID string, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, string, Event) error { return nil }

// LogNotifier writes events to a logger, for deployments without Redis.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID string, event Event) error {
	n.logger.Info("presence event", "to", userID, "type", event.Type, "actor", event.Actor, "subject", event.Subject)
	return nil
}

// Publisher is the subset of [redis.Client] used for delivery.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes JSON events on the per-user channel prefix+userID.
type RedisNotifier struct {
	client Publisher
	prefix string
}

func NewRedisNotifier(client Publisher, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

// Channel returns the channel events for userID are published on.
func (n *RedisNotifier) Channel(userID string) string {
	return n.prefix + userID
}

func (n *RedisNotifier) Notify(ctx context.Context, userID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, n.Channel(userID), string(data)).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

// Async makes any [Notifier] fire-and-forget.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  *log.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps next. A non-positive timeout defaults to two seconds.
func NewAsync(next Notifier, timeout time.Duration, logger *log.Logger) *Async {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Async{next: next, timeout: timeout, logger: logger}
}

// Notify schedules delivery and returns immediately. The caller's cancellation does not abort delivery.
func (a *Async) Notify(ctx context.Context, userID string, event Event) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Notify(ctx, userID, event); err != nil {
			a.logger.Warn("presence delivery failed", "to", userID, "type", event.Type, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every scheduled delivery has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
