// internal/queue/manager.go
package queue

import (
	"context"
	"log"
	"sync"

	"chat-relay/internal/metrics"
	"chat-relay/internal/model"
)

// State of one tenant queue.
type State string

const (
	StateIdle     State = "idle"     // empty
	StatePending  State = "pending"  // has entries, not draining
	StateDraining State = "draining" // flush in progress
	StateBlocked  State = "blocked"  // last flush attempt failed
)

// StoreSession is one durable-store session held for a whole drain batch.
type StoreSession interface {
	// WriteTask makes one task durable (media insert before the message
	// insert that references it) and returns the resulting message row.
	WriteTask(ctx context.Context, tenantID string, task model.Task) (model.Message, error)
	Release()
}

// Store is the durable store as the queue sees it.
type Store interface {
	Connected() bool
	Session(ctx context.Context) (StoreSession, error)
}

// Publisher receives messages once they are confirmed durable. Optional.
type Publisher interface {
	MessagePersisted(tenantID string, msg model.Message)
}

type tenantQueue struct {
	mu       sync.Mutex
	tasks    []model.Task
	draining bool
	blocked  bool
}

// Manager holds the per-tenant FIFO queues of accepted-but-not-durable
// writes. Queues live in process memory only; a restart loses them.
type Manager struct {
	store     Store
	events    Publisher
	warnDepth int

	mu     sync.RWMutex
	queues map[string]*tenantQueue
}

func NewManager(store Store, warnDepth int) *Manager {
	return &Manager{
		store:     store,
		warnDepth: warnDepth,
		queues:    make(map[string]*tenantQueue),
	}
}

// SetPublisher wires an optional persisted-message publisher.
func (m *Manager) SetPublisher(p Publisher) {
	m.events = p
}

func (m *Manager) tenant(tenantID string) *tenantQueue {
	m.mu.RLock()
	q, ok := m.queues[tenantID]
	m.mu.RUnlock()
	if ok {
		return q
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[tenantID]; ok {
		return q
	}
	q = &tenantQueue{}
	m.queues[tenantID] = q
	return q
}

// Enqueue appends a task to the tenant's queue tail. It never fails; the
// queue is bounded only by process memory, so depth past warnDepth is
// logged and exported for alerting.
func (m *Manager) Enqueue(tenantID string, task model.Task) {
	q := m.tenant(tenantID)

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.QueueDepth.WithLabelValues(tenantID).Set(float64(depth))
	if m.warnDepth > 0 && depth >= m.warnDepth {
		log.Printf("[Queue] Tenant %s depth %d exceeds warn threshold %d", tenantID, depth, m.warnDepth)
	}
}

// Drain replays the tenant's queue head-first against one store session.
// A task is popped only after its writes are confirmed durable; the first
// failure aborts the batch and leaves the failed task and everything behind
// it in order for the next attempt. No-op if the queue is empty, the store
// is disconnected, or a drain is already in progress for this tenant.
func (m *Manager) Drain(ctx context.Context, tenantID string) error {
	q := m.tenant(tenantID)

	q.mu.Lock()
	if q.draining || len(q.tasks) == 0 || !m.store.Connected() {
		q.mu.Unlock()
		return nil
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	sess, err := m.store.Session(ctx)
	if err != nil {
		q.mu.Lock()
		q.blocked = true
		q.mu.Unlock()
		metrics.DrainFailures.WithLabelValues(tenantID).Inc()
		return err
	}
	defer sess.Release()

	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.blocked = false
			q.mu.Unlock()
			return nil
		}
		head := q.tasks[0]
		q.mu.Unlock()

		msg, err := sess.WriteTask(ctx, tenantID, head)
		if err != nil {
			q.mu.Lock()
			q.blocked = true
			depth := len(q.tasks)
			q.mu.Unlock()
			metrics.DrainFailures.WithLabelValues(tenantID).Inc()
			log.Printf("[Queue] Drain aborted for tenant %s, %d task(s) kept: %v", tenantID, depth, err)
			return err
		}

		q.mu.Lock()
		q.tasks = q.tasks[1:]
		q.blocked = false
		depth := len(q.tasks)
		q.mu.Unlock()

		metrics.QueueDepth.WithLabelValues(tenantID).Set(float64(depth))
		metrics.TasksDrained.WithLabelValues(tenantID).Inc()
		if m.events != nil {
			m.events.MessagePersisted(tenantID, msg)
		}
	}
}

// DrainAll drains every tenant with pending tasks. Cross-tenant order is
// not significant; each tenant keeps its own FIFO guarantee.
func (m *Manager) DrainAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.queues))
	for id := range m.queues {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Drain(ctx, id); err != nil {
			// Store flipped to disconnected; later tenants would fail the
			// same way, the next timer tick retries.
			return
		}
	}
}

// PendingView renders the tenant's queued tasks as unpersisted messages so
// readers see their own unflushed writes while the store is down. Oldest
// first, trimmed to the most recent limit entries. Attachments are marked
// present but carry no fetchable id.
func (m *Manager) PendingView(tenantID string, limit int) []model.Message {
	q := m.tenant(tenantID)

	q.mu.Lock()
	tasks := make([]model.Task, len(q.tasks))
	copy(tasks, q.tasks)
	q.mu.Unlock()

	if limit > 0 && len(tasks) > limit {
		tasks = tasks[len(tasks)-limit:]
	}

	out := make([]model.Message, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, model.Message{
			TempID:        t.ID.String(),
			Content:       t.Content,
			HasMedia:      t.HasMedia(),
			MediaFilename: t.Filename,
			MediaMime:     t.MimeType,
			Pending:       true,
			CreatedAt:     t.CreatedAt,
		})
	}
	return out
}

// Depth returns the number of queued tasks for a tenant.
func (m *Manager) Depth(tenantID string) int {
	q := m.tenant(tenantID)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Depths returns queued task counts for every tenant seen so far.
func (m *Manager) Depths() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int, len(m.queues))
	for id, q := range m.queues {
		q.mu.Lock()
		out[id] = len(q.tasks)
		q.mu.Unlock()
	}
	return out
}

// TenantState reports the queue state machine position for a tenant.
func (m *Manager) TenantState(tenantID string) State {
	q := m.tenant(tenantID)
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case q.draining:
		return StateDraining
	case q.blocked:
		return StateBlocked
	case len(q.tasks) == 0:
		return StateIdle
	default:
		return StatePending
	}
}
