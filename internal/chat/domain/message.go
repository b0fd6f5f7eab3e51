package domain

import "time"

// MessageType definition message type
type MessageType string

const (
	// MessageTypeText plain text message
	MessageTypeText MessageType = "text"
	// MessageTypeMedia message carrying one or more attachments
	MessageTypeMedia MessageType = "media"
	// MessageTypeSystem server generated message
	MessageTypeSystem MessageType = "system"
)

// MessageStatus definition delivery status, monotonic sent -> delivered -> read
type MessageStatus string

const (
	// MessageStatusSent persisted, not yet handed to the recipient
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered handed to an online recipient
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead recipient read the message
	MessageStatusRead MessageStatus = "read"
)

// Rank orders statuses so transitions never regress.
func (s MessageStatus) Rank() int {
	switch s {
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	}
	return 0
}

// MediaAttachment one media item in a message
type MediaAttachment struct {
	URL     string `bson:"url" json:"url"`
	Type    string `bson:"type" json:"type"`
	Caption string `bson:"caption,omitempty" json:"caption,omitempty"`
}

// MessageContent text and/or ordered attachments
type MessageContent struct {
	Text  string            `bson:"text,omitempty" json:"text,omitempty"`
	Media []MediaAttachment `bson:"media,omitempty" json:"media,omitempty"`
}

// Reaction one user's emoji reaction
type Reaction struct {
	User  string `bson:"user" json:"user"`
	Emoji string `bson:"emoji" json:"emoji"`
}

// MessageMetadata forward bookkeeping
type MessageMetadata struct {
	Forwarded     bool   `bson:"forwarded,omitempty" json:"forwarded,omitempty"`
	ForwardedFrom string `bson:"forwarded_from,omitempty" json:"forwardedFrom,omitempty"`
}

// Message belongs to exactly one conversation. Status transitions are the
// only allowed mutation path besides content edit and soft delete.
type Message struct {
	ID              string           `bson:"_id,omitempty" json:"id"`
	ConversationID  string           `bson:"conversation_id" json:"conversationId"`
	SenderID        string           `bson:"sender_id" json:"senderId"`
	Content         MessageContent   `bson:"content" json:"content"`
	Type            MessageType      `bson:"type" json:"type"`
	Status          MessageStatus    `bson:"status" json:"status"`
	ParentMessageID string           `bson:"parent_message_id,omitempty" json:"parentMessageId,omitempty"`
	Reactions       []Reaction       `bson:"reactions,omitempty" json:"reactions,omitempty"`
	Metadata        *MessageMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp       time.Time        `bson:"timestamp" json:"timestamp"`
	IsDeleted       bool             `bson:"is_deleted" json:"isDeleted"`
	EditedAt        *time.Time       `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
}
