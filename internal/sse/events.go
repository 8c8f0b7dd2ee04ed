// Package sse streams live bookcase snapshots to clients over Server-Sent Events.
package sse

import (
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
	// EventSnapshot carries the user's full bookcase list. One is sent on
	// connect and another after every change to the list.
	EventSnapshot EventType = "snapshot"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
	// EventError reports a failed subscription just before the stream closes.
	EventError EventType = "error"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// ConnectedEventData is the data payload for connected events.
type ConnectedEventData struct {
	ClientID string `json:"client_id"`
}

// SnapshotEventData is the data payload for snapshot events.
type SnapshotEventData struct {
	BookCases []*domain.BookCase `json:"bookCases"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// ErrorEventData is the data payload for error events.
type ErrorEventData struct {
	Message string `json:"message"`
}

// NewConnectedEvent creates the greeting event for a client.
func NewConnectedEvent(clientID string) Event {
	return Event{
		Type:      EventConnected,
		Timestamp: time.Now(),
		Data:      ConnectedEventData{ClientID: clientID},
	}
}

// NewSnapshotEvent creates a snapshot carrying the given bookcases.
func NewSnapshotEvent(bookCases []*domain.BookCase) Event {
	if bookCases == nil {
		bookCases = []*domain.BookCase{}
	}
	return Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Data:      SnapshotEventData{BookCases: bookCases},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}

// NewErrorEvent creates an error event with a client safe message.
func NewErrorEvent(message string) Event {
	return Event{
		Type:      EventError,
		Timestamp: time.Now(),
		Data:      ErrorEventData{Message: message},
	}
}
