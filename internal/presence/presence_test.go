package presence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/redis/go-redis/v9"
)

type published struct {
	channel string
	message string
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{channel: channel, message: message.(string)})
	cmd.SetVal(1)
	return cmd
}

type funcNotifier func(ctx context.Context, userID string, event Event) error

func (f funcNotifier) Notify(ctx context.Context, userID string, event Event) error {
	return f(ctx, userID, event)
}

func TestRedisNotifier(t *testing.T) {
	t.Run("Publishes JSON On User Channel", func(t *testing.T) {
		pub := &fakePublisher{}
		n := NewRedisNotifier(pub, "presence:")

		event := NewEvent(FriendRequestReceived, "alice", "bob")
		if err := n.Notify(context.Background(), "bob", event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(pub.sent) != 1 {
			t.Fatalf("expected 1 publish, got %d", len(pub.sent))
		}
		if pub.sent[0].channel != "presence:bob" {
			t.Errorf("expected channel presence:bob, got %s", pub.sent[0].channel)
		}

		var decoded Event
		if err := json.Unmarshal([]byte(pub.sent[0].message), &decoded); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if decoded.Type != FriendRequestReceived || decoded.Actor != "alice" {
			t.Errorf("unexpected payload %+v", decoded)
		}
	})

	t.Run("Surfaces Publish Errors", func(t *testing.T) {
		n := NewRedisNotifier(&fakePublisher{err: errors.New("connection refused")}, "p:")
		if err := n.Notify(context.Background(), "bob", NewEvent(FriendRemoved, "alice", "bob")); err == nil {
			t.Fatal("expected publish error")
		}
	})
}

func TestAsync(t *testing.T) {
	t.Run("Never Returns Delivery Errors", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)

		failing := funcNotifier(func(context.Context, string, Event) error {
			return errors.New("redis down")
		})

		a := NewAsync(failing, time.Second, logger)
		if err := a.Notify(context.Background(), "bob", NewEvent(FriendRemoved, "alice", "bob")); err != nil {
			t.Fatalf("async notify must not fail, got %v", err)
		}
		a.Wait()

		if !strings.Contains(buf.String(), "presence delivery failed") {
			t.Errorf("expected failure to be logged, got %q", buf.String())
		}
	})

	t.Run("Outlives Caller Cancellation", func(t *testing.T) {
		var (
			mu        sync.Mutex
			delivered []string
		)
		rec := funcNotifier(func(ctx context.Context, userID string, _ Event) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, userID)
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		a := NewAsync(rec, time.Second, shared.NewLogger(&bytes.Buffer{}))
		_ = a.Notify(ctx, "bob", NewEvent(SongLiked, "alice", "song"))
		cancel()
		a.Wait()

		if len(delivered) != 1 {
			t.Errorf("expected delivery after cancellation, got %v", delivered)
		}
	})

	t.Run("Applies Timeout", func(t *testing.T) {
		var buf bytes.Buffer
		slow := funcNotifier(func(ctx context.Context, _ string, _ Event) error {
			<-ctx.Done()
			return ctx.Err()
		})

		a := NewAsync(slow, 10*time.Millisecond, shared.NewLogger(&buf))
		_ = a.Notify(context.Background(), "bob", NewEvent(SongLiked, "alice", "song"))
		a.Wait()

		if !strings.Contains(buf.String(), "deadline exceeded") {
			t.Errorf("expected timeout to be logged, got %q", buf.String())
		}
	})
}

func TestNopAndLog(t *testing.T) {
	if err := (Nop{}).Notify(context.Background(), "bob", Event{}); err != nil {
		t.Errorf("nop should never fail: %v", err)
	}

	var buf bytes.Buffer
	n := NewLogNotifier(shared.NewLogger(&buf))
	if err := n.Notify(context.Background(), "bob", NewEvent(SongLiked, "alice", "song-1")); err != nil {
		t.Fatalf("log notifier should never fail: %v", err)
	}
	if !strings.Contains(buf.String(), "song_liked") {
		t.Errorf("expected event type in log, got %q", buf.String())
	}
}
