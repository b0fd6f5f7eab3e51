package domain

import (
	"encoding/json"
	"time"
)

// Event is the closed set of wire event names shared by client and server.
type Event string

// Client -> server events.
const (
	// EventSendMessage send a message into a conversation
	EventSendMessage Event = "sendMessage"
	// EventUserTyping transient typing start signal
	EventUserTyping Event = "userTyping"
	// EventUserStopTyping transient typing stop signal
	EventUserStopTyping Event = "userStopTyping"
	// EventReadConversation bulk read-mark of a conversation
	EventReadConversation Event = "readConversation"
	// EventUserStatusCheck one-shot presence query
	EventUserStatusCheck Event = "userStatusCheck"
	// EventStartConversation explicit conversation-start action
	EventStartConversation Event = "startConversation"
)

// Server -> client events.
const (
	// EventReceiveMessage a message record pushed to a participant
	EventReceiveMessage Event = "receiveMessage"
	// EventMessageDelivered delivery acknowledgment to the sender
	EventMessageDelivered Event = "messageDelivered"
	// EventMessagesRead bulk read notification to the author
	EventMessagesRead Event = "messagesRead"
	// EventUserOnline contact came online
	EventUserOnline Event = "userOnline"
	// EventUserOffline contact went offline
	EventUserOffline Event = "userOffline"
	// EventOnlineContacts snapshot of online contacts on connect
	EventOnlineContacts Event = "onlineContacts"
	// EventUserStatusUpdate answer to a userStatusCheck
	EventUserStatusUpdate Event = "userStatusUpdate"
	// EventNewConversation a peer started a conversation with you
	EventNewConversation Event = "newConversation"
	// EventConversationCreated conversation-start acknowledgment to the caller
	EventConversationCreated Event = "conversationCreated"
	// EventError handler failure reported to the caller
	EventError Event = "error"
)

// Envelope is one inbound text frame.
type Envelope struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundEvent is one typed message placed on a connection's outbound queue.
type OutboundEvent struct {
	Event   Event       `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// DeliverEnvelope crosses the Broadcast Relay to reach a recipient connected
// to another instance.
type DeliverEnvelope struct {
	Event          Event           `json:"event"`
	ReceiverID     string          `json:"receiverId"`
	ConversationID string          `json:"conversationId,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// SendMessageRequest payload of EventSendMessage
type SendMessageRequest struct {
	ConversationID  string           `json:"conversationId,omitempty"`
	ReceiverID      string           `json:"receiverId"`
	Content         MessageContent   `json:"content"`
	Type            MessageType      `json:"type"`
	ParentMessageID string           `json:"parentMessageId,omitempty"`
	Metadata        *MessageMetadata `json:"metadata,omitempty"`
}

// TypingRequest payload of EventUserTyping / EventUserStopTyping
type TypingRequest struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
}

// ReadConversationRequest payload of EventReadConversation
type ReadConversationRequest struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
}

// StatusCheckRequest payload of EventUserStatusCheck
type StatusCheckRequest struct {
	UserID string `json:"userId"`
}

// StartConversationRequest payload of EventStartConversation
type StartConversationRequest struct {
	ParticipantID string `json:"participantId"`
}

// DeliveredPayload payload of EventMessageDelivered
type DeliveredPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// MessagesReadPayload payload of EventMessagesRead
type MessagesReadPayload struct {
	ConversationID string    `json:"conversationId"`
	ReadMessageIDs []string  `json:"readMessageIds"`
	ReadBy         string    `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
}

// StatusPayload payload of EventUserOnline / EventUserOffline / EventUserStatusUpdate
type StatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// TypingPayload typing signal pushed to the receiver
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// OnlineContactsPayload payload of EventOnlineContacts
type OnlineContactsPayload struct {
	OnlineContacts []string `json:"onlineContacts"`
}

// ErrorPayload payload of EventError
type ErrorPayload struct {
	Message string `json:"message"`
}

// User status values carried by StatusPayload.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)
