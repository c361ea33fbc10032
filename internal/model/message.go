// internal/model/message.go
package model

import "time"

// Message is one chat message as seen by readers. Durable rows carry the
// store-assigned ID; queued-but-unflushed messages carry a TempID and the
// Pending flag instead.
type Message struct {
	ID            int64     `json:"id"`
	TempID        string    `json:"temp_id,omitempty"`
	Content       string    `json:"content"`
	MediaID       *int64    `json:"media_id,omitempty"`
	MediaMime     string    `json:"media_mime,omitempty"`
	MediaFilename string    `json:"media_filename,omitempty"`
	HasMedia      bool      `json:"has_media"`
	Pending       bool      `json:"pending,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Media is a stored attachment. Data is never included in message listings.
type Media struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
