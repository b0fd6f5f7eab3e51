package app

import (
	"context"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// Insert moke insert conversation
func (m *MockConversationRepository) Insert(ctx context.Context, conversation *domain.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByKey moke find conversation by dedup key
func (m *MockConversationRepository) FindByKey(ctx context.Context, conversationKey string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationKey)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetLastMessage moke update last message pointer
func (m *MockConversationRepository) SetLastMessage(ctx context.Context, id, messageID string, at time.Time) error {
	args := m.Called(ctx, id, messageID, at)
	return args.Error(0)
}

// SetLastReadAt moke update per-user read pointer
func (m *MockConversationRepository) SetLastReadAt(ctx context.Context, id, userID string, at time.Time) error {
	args := m.Called(ctx, id, userID, at)
	return args.Error(0)
}

// AddBlockedBy moke add user to blocked_by
func (m *MockConversationRepository) AddBlockedBy(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// RemoveBlockedBy moke remove user from blocked_by
func (m *MockConversationRepository) RemoveBlockedBy(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// SetArchived moke set archived flag
func (m *MockConversationRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	args := m.Called(ctx, id, archived)
	return args.Error(0)
}

// SetActive moke set active flag
func (m *MockConversationRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// FindUserConversations moke list conversation summaries
func (m *MockConversationRepository) FindUserConversations(ctx context.Context, userID string, skip, limit int64, includeArchived bool) ([]domain.ConversationSummary, int64, error) {
	args := m.Called(ctx, userID, skip, limit, includeArchived)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ConversationSummary), args.Get(1).(int64), args.Error(2)
	}
	return nil, args.Get(1).(int64), args.Error(2)
}

// EnsureIndexes moke ensure indexes
func (m *MockConversationRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert moke insert message
func (m *MockMessageRepository) Insert(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// FindByID moke find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateStatus moke update message status
func (m *MockMessageRepository) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MarkManyRead moke bulk mark read
func (m *MockMessageRepository) MarkManyRead(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

// FindByConversation moke find conversation page
func (m *MockMessageRepository) FindByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, skip, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindUnread moke find unread messages
func (m *MockMessageRepository) FindUnread(ctx context.Context, conversationID, excludeSender string) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, excludeSender)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddReaction moke add reaction
func (m *MockMessageRepository) AddReaction(ctx context.Context, id string, reaction domain.Reaction) error {
	args := m.Called(ctx, id, reaction)
	return args.Error(0)
}

// EditContent moke edit message content
func (m *MockMessageRepository) EditContent(ctx context.Context, id string, content domain.MessageContent, editedAt time.Time) error {
	args := m.Called(ctx, id, content, editedAt)
	return args.Error(0)
}

// SoftDelete moke soft delete message
func (m *MockMessageRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// CountByConversation moke count conversation messages
func (m *MockMessageRepository) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

// EnsureIndexes moke ensure indexes
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// FindByID moke find user by id
func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddReciprocalContact moke reciprocal contact write
func (m *MockUserRepository) AddReciprocalContact(ctx context.Context, userA, userB string) error {
	args := m.Called(ctx, userA, userB)
	return args.Error(0)
}

// MockPresenceRepository Mock PresenceRepository
type MockPresenceRepository struct {
	mock.Mock
}

// MarkOnline moke presence upsert
func (m *MockPresenceRepository) MarkOnline(ctx context.Context, userID, connectionID string) error {
	args := m.Called(ctx, userID, connectionID)
	return args.Error(0)
}

// MarkOffline moke presence delete
func (m *MockPresenceRepository) MarkOffline(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// IsOnline moke presence check
func (m *MockPresenceRepository) IsOnline(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// GetPresence moke presence read
func (m *MockPresenceRepository) GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.PresenceRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// EnqueueMissedEvent moke missed event enqueue
func (m *MockPresenceRepository) EnqueueMissedEvent(ctx context.Context, userID string, event domain.MissedEvent) error {
	args := m.Called(ctx, userID, event)
	return args.Error(0)
}

// PeekMissedEvents moke missed event peek
func (m *MockPresenceRepository) PeekMissedEvents(ctx context.Context, userID string) ([]domain.MissedEvent, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.MissedEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

// ClearMissedEvents moke missed event clear
func (m *MockPresenceRepository) ClearMissedEvents(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockPubSub Mock PubSub
type MockPubSub struct {
	mock.Mock
}

// Publish moke publisher
func (m *MockPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

// Subscribe moke subscriber
func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(env domain.DeliverEnvelope)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockTokenVerifier Mock token.Verifier
type MockTokenVerifier struct {
	mock.Mock
}

// Verify moke token verification
func (m *MockTokenVerifier) Verify(tokenStr string) (string, error) {
	args := m.Called(tokenStr)
	return args.String(0), args.Error(1)
}
