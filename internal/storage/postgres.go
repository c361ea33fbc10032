// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"

	"chat-relay/internal/metrics"
	"chat-relay/internal/model"
	"chat-relay/internal/queue"
	"chat-relay/internal/tenant"
)

// ErrUnavailable reports that the store is DISCONNECTED and the operation
// was not attempted.
var ErrUnavailable = errors.New("durable store unavailable")

// Store is the lazily-connected durable store adapter. It starts
// DISCONNECTED; Connect flips it CONNECTED and any execution failure flips
// it back. One failure is treated as connectivity loss, not a transient
// per-query error; there is no per-query retry.
type Store struct {
	db        *sql.DB
	registry  *tenant.Registry
	opTimeout time.Duration

	connected atomic.Bool

	mu          sync.Mutex
	provisioned map[string]bool
}

// NewStore opens the connection pool without dialing; the first Connect
// call establishes connectivity.
func NewStore(dsn string, reg *tenant.Registry, opTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return &Store{
		db:          db,
		registry:    reg,
		opTimeout:   opTimeout,
		provisioned: make(map[string]bool),
	}, nil
}

// Connected reports the adapter state.
func (s *Store) Connected() bool {
	return s.connected.Load()
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Connect probes the store and, on success, provisions every configured
// tenant before marking the adapter CONNECTED.
func (s *Store) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}

	for _, id := range s.registry.IDs() {
		if err := s.EnsureTenantProvisioned(ctx, id); err != nil {
			return err
		}
	}

	s.connected.Store(true)
	metrics.StoreConnected.Set(1)
	log.Println("[Store] Connected, tenants provisioned")
	return nil
}

func (s *Store) markDisconnected(err error) {
	if s.connected.Swap(false) {
		metrics.StoreConnected.Set(0)
		log.Printf("[Store] Marked disconnected: %v", err)
	}
}

// EnsureTenantProvisioned creates the tenant's table pair if absent.
// Success is memoized, so repeated and concurrent calls are cheap.
func (s *Store) EnsureTenantProvisioned(ctx context.Context, tenantID string) error {
	if !s.registry.IsValid(tenantID) {
		return fmt.Errorf("unknown tenant: %s", tenantID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provisioned[tenantID] {
		return nil
	}

	names := s.registry.TableNames(tenantID)

	// Media first: the messages table references it.
	mediaDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			filename TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, names.Media)
	messagesDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			media_id INTEGER REFERENCES %s(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, names.Messages, names.Media)

	if _, err := s.db.ExecContext(ctx, mediaDDL); err != nil {
		return fmt.Errorf("failed to provision %s: %w", names.Media, err)
	}
	if _, err := s.db.ExecContext(ctx, messagesDDL); err != nil {
		return fmt.Errorf("failed to provision %s: %w", names.Messages, err)
	}

	s.provisioned[tenantID] = true
	return nil
}

// Provisioned returns the tenants whose tables are known to exist.
func (s *Store) Provisioned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.provisioned))
	for id := range s.provisioned {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Session acquires one pooled connection for a whole drain batch. Fails
// fast with ErrUnavailable while DISCONNECTED.
func (s *Store) Session(ctx context.Context) (queue.StoreSession, error) {
	if !s.Connected() {
		return nil, ErrUnavailable
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		s.markDisconnected(err)
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	return &Session{store: s, conn: conn}, nil
}

// WriteTask runs a single task's durable writes on a one-shot session.
func (s *Store) WriteTask(ctx context.Context, tenantID string, task model.Task) (model.Message, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return model.Message{}, err
	}
	defer sess.Release()
	return sess.WriteTask(ctx, tenantID, task)
}

// ListMessages returns the tenant's durable messages oldest first, joined
// to media for mime metadata only; the binary payload never rides along.
func (s *Store) ListMessages(ctx context.Context, tenantID string, limit int) ([]model.Message, error) {
	if !s.Connected() {
		return nil, ErrUnavailable
	}
	if !s.registry.IsValid(tenantID) {
		return nil, fmt.Errorf("unknown tenant: %s", tenantID)
	}

	names := s.registry.TableNames(tenantID)
	query := fmt.Sprintf(`
		SELECT m.id, m.content, m.media_id, m.created_at, md.mime_type, md.filename
		FROM %s m
		LEFT JOIN %s md ON m.media_id = md.id
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $1`, names.Messages, names.Media)

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		s.markDisconnected(err)
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var (
			m        model.Message
			mediaID  sql.NullInt64
			mime     sql.NullString
			filename sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Content, &mediaID, &m.CreatedAt, &mime, &filename); err != nil {
			s.markDisconnected(err)
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if mediaID.Valid {
			id := mediaID.Int64
			m.MediaID = &id
			m.HasMedia = true
			m.MediaMime = mime.String
			m.MediaFilename = filename.String
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		s.markDisconnected(err)
		return nil, fmt.Errorf("rows failed: %w", err)
	}
	return messages, nil
}

// GetMedia fetches one media row including its binary payload.
func (s *Store) GetMedia(ctx context.Context, tenantID string, mediaID int64) (model.Media, error) {
	if !s.Connected() {
		return model.Media{}, ErrUnavailable
	}
	if !s.registry.IsValid(tenantID) {
		return model.Media{}, fmt.Errorf("unknown tenant: %s", tenantID)
	}

	names := s.registry.TableNames(tenantID)
	query := fmt.Sprintf(
		`SELECT id, filename, mime_type, data, created_at FROM %s WHERE id = $1`, names.Media)

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var md model.Media
	err := s.db.QueryRowContext(ctx, query, mediaID).
		Scan(&md.ID, &md.Filename, &md.MimeType, &md.Data, &md.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Media{}, sql.ErrNoRows
	}
	if err != nil {
		s.markDisconnected(err)
		return model.Media{}, fmt.Errorf("query failed: %w", err)
	}
	return md, nil
}

// Session is one durable-store session. A drain batch holds a single
// session for all of its tasks.
type Session struct {
	store *Store
	conn  *sql.Conn
}

// WriteTask makes one task durable: the media insert, when present, runs
// before the message insert that references it. The two statements are not
// wrapped in a transaction; a failure between them can orphan a media row,
// which the read path never surfaces.
func (ss *Session) WriteTask(ctx context.Context, tenantID string, task model.Task) (model.Message, error) {
	if !ss.store.Connected() {
		return model.Message{}, ErrUnavailable
	}
	if !ss.store.registry.IsValid(tenantID) {
		return model.Message{}, fmt.Errorf("unknown tenant: %s", tenantID)
	}

	names := ss.store.registry.TableNames(tenantID)

	ctx, cancel := context.WithTimeout(ctx, ss.store.opTimeout)
	defer cancel()

	var mediaID sql.NullInt64
	switch task.Kind {
	case model.TaskInlineFile:
		insertMedia := fmt.Sprintf(
			`INSERT INTO %s (filename, mime_type, data, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			names.Media)
		var id int64
		err := ss.conn.QueryRowContext(ctx, insertMedia,
			task.Filename, task.MimeType, task.Data, task.CreatedAt).Scan(&id)
		if err != nil {
			ss.store.markDisconnected(err)
			return model.Message{}, fmt.Errorf("media insert failed: %w", err)
		}
		mediaID = sql.NullInt64{Int64: id, Valid: true}
	case model.TaskExistingMedia:
		mediaID = sql.NullInt64{Int64: task.MediaID, Valid: true}
	}

	insertMessage := fmt.Sprintf(
		`INSERT INTO %s (content, media_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		names.Messages)
	var msgID int64
	err := ss.conn.QueryRowContext(ctx, insertMessage,
		task.Content, mediaID, task.CreatedAt).Scan(&msgID)
	if err != nil {
		ss.store.markDisconnected(err)
		return model.Message{}, fmt.Errorf("message insert failed: %w", err)
	}

	msg := model.Message{
		ID:        msgID,
		Content:   task.Content,
		HasMedia:  mediaID.Valid,
		CreatedAt: task.CreatedAt,
	}
	if mediaID.Valid {
		id := mediaID.Int64
		msg.MediaID = &id
		msg.MediaMime = task.MimeType
		msg.MediaFilename = task.Filename
	}
	return msg, nil
}

// Release returns the session's connection to the pool.
func (ss *Session) Release() {
	_ = ss.conn.Close()
}
