package domain

import (
	"sort"
	"strings"
	"time"

	"realtime_chat_service/pkg"
)

// Conversation is a 1:1 chat between two participants. Participants are
// stored in canonical (sorted) order; ConversationKey derives from that order
// and carries the unique index that enforces one active conversation per pair.
type Conversation struct {
	ID              string               `bson:"_id,omitempty" json:"id"`
	Participant1    string               `bson:"participant1" json:"participant1"`
	Participant2    string               `bson:"participant2" json:"participant2"`
	ConversationKey string               `bson:"conversation_key" json:"conversationKey"`
	IsActive        bool                 `bson:"is_active" json:"isActive"`
	IsArchived      bool                 `bson:"is_archived" json:"isArchived"`
	BlockedBy       []string             `bson:"blocked_by" json:"blockedBy"`
	LastMessageID   string               `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastActivityAt  time.Time            `bson:"last_activity_at" json:"lastActivityAt"`
	LastReadAt      map[string]time.Time `bson:"last_read_at,omitempty" json:"lastReadAt,omitempty"`
	MessageCount    int64                `bson:"message_count" json:"messageCount"`
	CreatedAt       time.Time            `bson:"created_at" json:"createdAt"`
}

// ConversationKey canonicalizes an unordered participant pair into the dedup key.
func ConversationKey(userA, userB string) (participant1, participant2, key string) {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair[0], pair[1], strings.Join(pair, "_")
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1 == userID || c.Participant2 == userID
}

// OtherParticipant returns the peer of userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.Participant1 == userID {
		return c.Participant2
	}
	return c.Participant1
}

// IsBlockedBy reports whether userID has blocked the conversation.
func (c *Conversation) IsBlockedBy(userID string) bool {
	return pkg.Contains(c.BlockedBy, userID)
}

// BlockStatus is the block view from one participant's perspective.
type BlockStatus struct {
	IsBlockedByMe    bool `json:"isBlockedByMe"`
	IsBlockedByOther bool `json:"isBlockedByOther"`
	CanSendMessages  bool `json:"canSendMessages"`
}

// ConversationSummary is one row of a user's conversation list: the
// conversation joined with the other participant's public profile, the last
// message, and the caller's unread count.
type ConversationSummary struct {
	Conversation     `bson:",inline"`
	OtherParticipant *PublicProfile `bson:"other_participant,omitempty" json:"otherParticipant,omitempty"`
	LastMessage      *Message       `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	UnreadCount      int64          `bson:"unread_count" json:"unreadCount"`
}
