package models

import "time"

// MediaKind identifies the media payload carried by an incoming message.
type MediaKind string

const (
	MediaKindNone      MediaKind = ""
	MediaKindPhoto     MediaKind = "photo"
	MediaKindVideo     MediaKind = "video"
	MediaKindDocument  MediaKind = "document"
	MediaKindAudio     MediaKind = "audio"
	MediaKindAnimation MediaKind = "animation"
)

// IncomingMessage is the normalized form of a source-chat message handed to
// the buffer and forwarder. Immutable once built by the dispatcher.
type IncomingMessage struct {
	ChatID       int64
	MessageID    int
	MediaGroupID string
	MediaKind    MediaKind
	FileID       string
	Caption      string
	Timestamp    time.Time
}

// IsGrouped reports whether the message is a fragment of a media group.
func (m *IncomingMessage) IsGrouped() bool {
	return m.MediaGroupID != ""
}

// HasMedia reports whether the message carries a media payload that can be
// placed into an album.
func (m *IncomingMessage) HasMedia() bool {
	return m.MediaKind != MediaKindNone && m.FileID != ""
}
