// internal/service/service.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"chat-relay/internal/metrics"
	"chat-relay/internal/model"
	"chat-relay/internal/queue"
	"chat-relay/internal/storage"
)

// ReadCap is the maximum number of messages returned by a listing, on both
// the durable and the pending path.
const ReadCap = 100

var (
	// ErrValidation: the post carried neither content nor an attachment.
	ErrValidation = errors.New("content required")
	// ErrNotFound: the requested media row does not exist.
	ErrNotFound = errors.New("media not found")
	// ErrStoreOffline: the operation needs the durable store and it is down.
	ErrStoreOffline = errors.New("store offline")
)

// Store is the durable store as the service consumes it.
type Store interface {
	Connected() bool
	WriteTask(ctx context.Context, tenantID string, task model.Task) (model.Message, error)
	ListMessages(ctx context.Context, tenantID string, limit int) ([]model.Message, error)
	GetMedia(ctx context.Context, tenantID string, mediaID int64) (model.Media, error)
}

// Publisher receives messages once they are confirmed durable. Optional.
type Publisher interface {
	MessagePersisted(tenantID string, msg model.Message)
}

// Upload is an inline file attachment taken from a multipart post.
type Upload struct {
	Filename string
	MimeType string
	Data     []byte
}

// Service orchestrates the post/list/fetch operations over the durable
// store and the offline queue.
type Service struct {
	store  Store
	queue  *queue.Manager
	events Publisher
}

func NewService(store Store, q *queue.Manager) *Service {
	return &Service{store: store, queue: q}
}

// SetPublisher wires an optional persisted-message publisher for the
// direct-write path. The queue manager publishes for drained tasks.
func (s *Service) SetPublisher(p Publisher) {
	s.events = p
}

// PostMessage accepts one logical write. When the store is reachable it
// attempts the durable write immediately; any failure, or a disconnected
// store, routes the task into the offline queue and reports queued=true.
// Store errors never reach the caller: once accepted, the message is
// delivered at least once eventually.
func (s *Service) PostMessage(ctx context.Context, tenantID, content string, file *Upload, mediaID int64) (queued bool, err error) {
	content = strings.TrimSpace(content)
	if content == "" && file == nil && mediaID == 0 {
		return false, ErrValidation
	}

	var task model.Task
	switch {
	case file != nil:
		task = model.NewInlineFileTask(content, file.Filename, file.MimeType, file.Data)
	case mediaID != 0:
		task = model.NewExistingMediaTask(content, mediaID)
	default:
		task = model.NewTextTask(content)
	}

	if s.store.Connected() {
		msg, werr := s.store.WriteTask(ctx, tenantID, task)
		if werr == nil {
			metrics.MessagesPosted.WithLabelValues(tenantID, "persisted").Inc()
			if s.events != nil {
				s.events.MessagePersisted(tenantID, msg)
			}
			return false, nil
		}
		log.Printf("[Service] Direct write failed for tenant %s, queueing: %v", tenantID, werr)
	}

	s.queue.Enqueue(tenantID, task)
	metrics.MessagesPosted.WithLabelValues(tenantID, "queued").Inc()
	return true, nil
}

// ListMessages returns up to ReadCap messages oldest first. While the store
// is CONNECTED only durable rows are returned; while DISCONNECTED only the
// pending view is. The two paths never mix, so a flushed message is counted
// exactly once.
func (s *Service) ListMessages(ctx context.Context, tenantID string) ([]model.Message, error) {
	if !s.store.Connected() {
		return s.queue.PendingView(tenantID, ReadCap), nil
	}

	msgs, err := s.store.ListMessages(ctx, tenantID, ReadCap)
	if err != nil {
		// No queued-view fallback once connected-but-failing mid-query.
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// FetchMedia returns one attachment with its binary payload. Offline fetch
// is unsupported.
func (s *Service) FetchMedia(ctx context.Context, tenantID string, mediaID int64) (model.Media, error) {
	if !s.store.Connected() {
		return model.Media{}, ErrStoreOffline
	}

	md, err := s.store.GetMedia(ctx, tenantID, mediaID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Media{}, ErrNotFound
	}
	if errors.Is(err, storage.ErrUnavailable) {
		return model.Media{}, ErrStoreOffline
	}
	if err != nil {
		return model.Media{}, fmt.Errorf("fetch media: %w", err)
	}
	return md, nil
}
