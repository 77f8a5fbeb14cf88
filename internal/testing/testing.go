// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/presence"
)

// Delivery is one event captured by [RecordingNotifier].
type Delivery struct {
	To    string
	Event presence.Event
}

// RecordingNotifier is a [presence.Notifier] that keeps every event it receives
type RecordingNotifier struct {
	mu        sync.Mutex
	delivered []Delivery
	err       error
}

// NewRecordingNotifier returns a notifier that records deliveries and then returns err.
func NewRecordingNotifier(err error) *RecordingNotifier {
	return &RecordingNotifier{err: err}
}

func (n *RecordingNotifier) Notify(_ context.Context, userID string, event presence.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, Delivery{To: userID, Event: event})
	return n.err
}

// Deliveries returns a copy of everything recorded so far.
func (n *RecordingNotifier) Deliveries() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Delivery(nil), n.delivered...)
}

// To returns the event types delivered to userID, in order.
func (n *RecordingNotifier) To(userID string) []presence.EventType {
	var types []presence.EventType
	for _, d := range n.Deliveries() {
		if d.To == userID {
			types = append(types, d.Event.Type)
		}
	}
	return types
}

// SequentialTokens is a [shared.TokenGenerator] returning token-1, token-2, ...
type SequentialTokens struct {
	n atomic.Int64
}

func (s *SequentialTokens) NewOpaqueToken() string {
	return fmt.Sprintf("token-%d", s.n.Add(1))
}

// ErrInjected is returned by the faulty stores when a fault fires.
var ErrInjected = errors.New("injected storage failure")

// FaultyUserStore wraps a [models.UserStore] and fails chosen ConditionalPut calls.
//
// FailPut decides, from the 1-based index of each ConditionalPut call and the record being written, whether
// the call fails with ErrInjected before reaching the wrapped store.
type FaultyUserStore struct {
	models.UserStore
	FailPut func(call int, user *models.User) bool

	puts atomic.Int64
}

func NewFaultyUserStore(inner models.UserStore) *FaultyUserStore {
	return &FaultyUserStore{UserStore: inner}
}

// FailNthPut makes exactly the n-th ConditionalPut fail.
func (s *FaultyUserStore) FailNthPut(n int) {
	s.FailPut = func(call int, _ *models.User) bool { return call == n }
}

// Puts returns how many ConditionalPut calls have been made.
func (s *FaultyUserStore) Puts() int {
	return int(s.puts.Load())
}

func (s *FaultyUserStore) ConditionalPut(ctx context.Context, user *models.User, expectedVersion int64) error {
	call := int(s.puts.Add(1))
	if s.FailPut != nil && s.FailPut(call, user) {
		return ErrInjected
	}
	return s.UserStore.ConditionalPut(ctx, user, expectedVersion)
}

// FaultyPlaylistStore wraps a [models.PlaylistStore] and fails chosen ConditionalPut calls, and every
// Create call while FailCreate is set.
type FaultyPlaylistStore struct {
	models.PlaylistStore
	FailPut    func(call int, playlist *models.Playlist) bool
	FailCreate bool

	puts atomic.Int64
}

func NewFaultyPlaylistStore(inner models.PlaylistStore) *FaultyPlaylistStore {
	return &FaultyPlaylistStore{PlaylistStore: inner}
}

func (s *FaultyPlaylistStore) ConditionalPut(ctx context.Context, playlist *models.Playlist, expectedVersion int64) error {
	call := int(s.puts.Add(1))
	if s.FailPut != nil && s.FailPut(call, playlist) {
		return ErrInjected
	}
	return s.PlaylistStore.ConditionalPut(ctx, playlist, expectedVersion)
}

func (s *FaultyPlaylistStore) Create(ctx context.Context, playlist *models.Playlist) error {
	if s.FailCreate {
		return ErrInjected
	}
	return s.PlaylistStore.Create(ctx, playlist)
}

// MustCreateUser creates a user in store or fails the test.
func MustCreateUser(t *testing.T, store models.UserStore, email, name string) *models.User {
	t.Helper()
	u := models.NewUser(email, name)
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return u
}

// MustGetUser reads a user from store or fails the test.
func MustGetUser(t *testing.T, store models.UserStore, id string) *models.User {
	t.Helper()
	u, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to get user %s: %v", id, err)
	}
	return u
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
