package domain

import "encoding/json"

// PresenceRecord marks a user online. Existence of the record in the KV store
// is the sole online signal; the key carries a TTL so a missed disconnect
// expires on its own.
type PresenceRecord struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// MissedEvent is a queued notification for a user who was offline at send
// time, replayed in timestamp order on reconnect.
type MissedEvent struct {
	EventName      Event           `json:"eventName"`
	Payload        json.RawMessage `json:"payload"`
	Timestamp      int64           `json:"timestamp"`
	ConversationID string          `json:"conversationId,omitempty"`
}
