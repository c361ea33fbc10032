package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/internal/model"
)

// fakeStore satisfies Store and records every write it accepts, optionally
// failing the n-th write to simulate a mid-batch store outage.
type fakeStore struct {
	mu        sync.Mutex
	connected bool
	failAt    int // fail the write with this zero-based index; -1 never fails
	writeLag  time.Duration
	sessions  int
	writes    int
	written   map[string][]model.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{connected: true, failAt: -1, written: make(map[string][]model.Task)}
}

func (f *fakeStore) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStore) Session(ctx context.Context) (StoreSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, errors.New("store unavailable")
	}
	f.sessions++
	return &fakeSession{store: f}, nil
}

type fakeSession struct {
	store *fakeStore
}

func (s *fakeSession) WriteTask(ctx context.Context, tenantID string, task model.Task) (model.Message, error) {
	f := s.store
	if f.writeLag > 0 {
		time.Sleep(f.writeLag)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt >= 0 && f.writes == f.failAt {
		f.connected = false // the adapter flips pessimistically
		return model.Message{}, errors.New("write failed")
	}
	f.writes++
	f.written[tenantID] = append(f.written[tenantID], task)
	return model.Message{ID: int64(f.writes), Content: task.Content, CreatedAt: task.CreatedAt}, nil
}

func (s *fakeSession) Release() {}

func (f *fakeStore) reconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	f.failAt = -1
}

func contentsOf(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Content
	}
	return out
}

func TestDrainFlushesFIFO(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, 0)

	for i := 0; i < 5; i++ {
		m.Enqueue("1234", model.NewTextTask(fmt.Sprintf("msg-%d", i)))
	}

	require.NoError(t, m.Drain(context.Background(), "1234"))
	require.Equal(t, 0, m.Depth("1234"))
	require.Equal(t, StateIdle, m.TenantState("1234"))
	require.Equal(t,
		[]string{"msg-0", "msg-1", "msg-2", "msg-3", "msg-4"},
		contentsOf(store.written["1234"]))
	require.Equal(t, 1, store.sessions, "one session per batch")
}

func TestDrainPartialFailureKeepsTail(t *testing.T) {
	store := newFakeStore()
	store.failAt = 2
	m := NewManager(store, 0)

	for i := 0; i < 5; i++ {
		m.Enqueue("1234", model.NewTextTask(fmt.Sprintf("msg-%d", i)))
	}

	err := m.Drain(context.Background(), "1234")
	require.Error(t, err)

	// Tasks before the failure are gone, the failed one and everything
	// behind it stay in order.
	require.Equal(t, []string{"msg-0", "msg-1"}, contentsOf(store.written["1234"]))
	require.Equal(t, 3, m.Depth("1234"))
	require.Equal(t, StateBlocked, m.TenantState("1234"))

	view := m.PendingView("1234", 100)
	require.Equal(t, "msg-2", view[0].Content)
	require.Equal(t, "msg-4", view[2].Content)

	// After reconnection the retry delivers the tail once, in order.
	store.reconnect()
	require.NoError(t, m.Drain(context.Background(), "1234"))
	require.Equal(t, 0, m.Depth("1234"))
	require.Equal(t,
		[]string{"msg-0", "msg-1", "msg-2", "msg-3", "msg-4"},
		contentsOf(store.written["1234"]))
}

func TestDrainNoopWhenDisconnected(t *testing.T) {
	store := newFakeStore()
	store.connected = false
	m := NewManager(store, 0)

	m.Enqueue("1234", model.NewTextTask("hello"))

	require.NoError(t, m.Drain(context.Background(), "1234"))
	require.Equal(t, 1, m.Depth("1234"))
	require.Equal(t, 0, store.sessions)
	require.Equal(t, StatePending, m.TenantState("1234"))
}

func TestDrainNoopWhenEmpty(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, 0)

	require.NoError(t, m.Drain(context.Background(), "1234"))
	require.Equal(t, 0, store.sessions)
	require.Equal(t, StateIdle, m.TenantState("1234"))
}

func TestPendingView(t *testing.T) {
	store := newFakeStore()
	store.connected = false
	m := NewManager(store, 0)

	m.Enqueue("1234", model.NewTextTask("first"))
	m.Enqueue("1234", model.NewInlineFileTask("second", "pic.png", "image/png", []byte{1}))
	m.Enqueue("1234", model.NewTextTask("third"))

	view := m.PendingView("1234", 100)
	require.Len(t, view, 3)
	require.Equal(t, []string{"first", "second", "third"},
		[]string{view[0].Content, view[1].Content, view[2].Content})

	for _, msg := range view {
		require.True(t, msg.Pending)
		require.NotEmpty(t, msg.TempID)
		require.Zero(t, msg.ID)
	}
	require.True(t, view[1].HasMedia)
	require.Nil(t, view[1].MediaID, "queued media has no fetchable id")

	// The cap keeps the most recent entries.
	capped := m.PendingView("1234", 2)
	require.Len(t, capped, 2)
	require.Equal(t, "second", capped[0].Content)
	require.Equal(t, "third", capped[1].Content)
}

func TestTenantIsolation(t *testing.T) {
	store := newFakeStore()
	store.connected = false
	m := NewManager(store, 0)

	var wg sync.WaitGroup
	for _, tenantID := range []string{"1234", "5678"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.Enqueue(id, model.NewTextTask(fmt.Sprintf("%s-%d", id, i)))
			}
		}(tenantID)
	}
	wg.Wait()

	require.Equal(t, 50, m.Depth("1234"))
	require.Equal(t, 50, m.Depth("5678"))

	for _, tenantID := range []string{"1234", "5678"} {
		for i, msg := range m.PendingView(tenantID, 100) {
			require.Equal(t, fmt.Sprintf("%s-%d", tenantID, i), msg.Content)
		}
	}

	store.reconnect()
	m.DrainAll(context.Background())
	require.Len(t, store.written["1234"], 50)
	require.Len(t, store.written["5678"], 50)
}

func TestConcurrentDrainDeliversOnce(t *testing.T) {
	store := newFakeStore()
	store.writeLag = 2 * time.Millisecond
	m := NewManager(store, 0)

	for i := 0; i < 10; i++ {
		m.Enqueue("1234", model.NewTextTask(fmt.Sprintf("msg-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Drain(context.Background(), "1234")
		}()
	}
	wg.Wait()

	require.Len(t, store.written["1234"], 10, "each task delivered exactly once")
	require.Equal(t, 0, m.Depth("1234"))
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []model.Message
}

func (p *recordingPublisher) MessagePersisted(tenantID string, msg model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func TestDrainPublishesPersistedEvents(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, 0)
	pub := &recordingPublisher{}
	m.SetPublisher(pub)

	m.Enqueue("1234", model.NewTextTask("hello"))
	require.NoError(t, m.Drain(context.Background(), "1234"))

	require.Len(t, pub.msgs, 1)
	require.Equal(t, "hello", pub.msgs[0].Content)
}
