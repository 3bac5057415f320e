package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trycode2018/chathub/internal/adapters/directory"
	"github.com/trycode2018/chathub/internal/adapters/store"
	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

var testIdentities = []domain.Identity{
	{ID: "u-alice", UserName: "alice", DisplayName: "Alice Martin", AvatarRef: "avatars/alice.png"},
	{ID: "u-bob", UserName: "bob", DisplayName: "Bob Ferreira"},
	{ID: "u-carol", UserName: "carol", DisplayName: "Carol Lima"},
}

func newTestHub(opts Options) (*Hub, *store.Memory) {
	mem := store.NewMemory()
	hub := NewHub(core.NewPresenceRegistry(), directory.NewStatic(testIdentities), mem, opts)
	return hub, mem
}

// fakeLink records everything pushed through it.
type fakeLink struct {
	mu     sync.Mutex
	fail   bool
	frames []core.Frame
}

func (l *fakeLink) TrySend(f core.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("link gone")
	}
	l.frames = append(l.frames, f)
	return nil
}

func (l *fakeLink) Close() {}

type recordedEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (l *fakeLink) events(t *testing.T) []recordedEvent {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]recordedEvent, 0, len(l.frames))
	for _, f := range l.frames {
		var e recordedEvent
		require.NoError(t, json.Unmarshal(f, &e))
		out = append(out, e)
	}
	return out
}

// eventsNamed filters the recorded stream down to one event type.
func (l *fakeLink) eventsNamed(t *testing.T, name string) []recordedEvent {
	t.Helper()
	var out []recordedEvent
	for _, e := range l.events(t) {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func (l *fakeLink) messagesNamed(t *testing.T, name string) []domain.Message {
	t.Helper()
	var out []domain.Message
	for _, e := range l.eventsNamed(t, name) {
		var m domain.Message
		require.NoError(t, json.Unmarshal(e.Payload, &m))
		out = append(out, m)
	}
	return out
}

func timeNow() time.Time { return time.Now().UTC() }

// failingStore wraps the memory store and fails selected operations.
type failingStore struct {
	*store.Memory
	failAppend bool
}

var errStoreDown = errors.New("store unavailable")

func (f *failingStore) Append(ctx context.Context, senderID, receiverID domain.UserID, content string, createdAt time.Time) (domain.Message, error) {
	if f.failAppend {
		return domain.Message{}, errStoreDown
	}
	return f.Memory.Append(ctx, senderID, receiverID, content, createdAt)
}
