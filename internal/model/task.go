// internal/model/task.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind discriminates the payload shape of a queued write.
type TaskKind int

const (
	// TaskText is a plain text message.
	TaskText TaskKind = iota
	// TaskInlineFile carries the attachment bytes inline; the media row is
	// inserted before the message row that references it.
	TaskInlineFile
	// TaskExistingMedia references a media row that is already durable.
	TaskExistingMedia
)

func (k TaskKind) String() string {
	switch k {
	case TaskText:
		return "text"
	case TaskInlineFile:
		return "inline_file"
	case TaskExistingMedia:
		return "existing_media"
	default:
		return "unknown"
	}
}

// Task is an accepted write that may not be durable yet. CreatedAt is
// assignment time (acceptance), not flush time.
type Task struct {
	ID        uuid.UUID
	Kind      TaskKind
	Content   string
	Filename  string
	MimeType  string
	Data      []byte
	MediaID   int64
	CreatedAt time.Time
}

// NewTextTask builds a text-only task.
func NewTextTask(content string) Task {
	return Task{
		ID:        uuid.New(),
		Kind:      TaskText,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewInlineFileTask builds a task carrying attachment bytes.
func NewInlineFileTask(content, filename, mimeType string, data []byte) Task {
	return Task{
		ID:        uuid.New(),
		Kind:      TaskInlineFile,
		Content:   content,
		Filename:  filename,
		MimeType:  mimeType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// NewExistingMediaTask builds a task referencing an already-durable media row.
func NewExistingMediaTask(content string, mediaID int64) Task {
	return Task{
		ID:        uuid.New(),
		Kind:      TaskExistingMedia,
		Content:   content,
		MediaID:   mediaID,
		CreatedAt: time.Now().UTC(),
	}
}

// HasMedia reports whether the task carries or references an attachment.
func (t Task) HasMedia() bool {
	return t.Kind == TaskInlineFile || t.Kind == TaskExistingMedia
}
