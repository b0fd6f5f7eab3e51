package app

import (
	"context"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/apperr"

	"github.com/google/uuid"
)

// MessageUseCase creates messages and drives their delivery-status state
// machine, reactions, edits and read marking.
type MessageUseCase struct {
	msgRepo repository.MessageRepository
}

// NewMessageUseCase init create message use case
func NewMessageUseCase(msgRepo repository.MessageRepository) *MessageUseCase {
	return &MessageUseCase{
		msgRepo: msgRepo,
	}
}

// Create validates type-specific content and persists the message with
// initial status sent.
func (uc *MessageUseCase) Create(ctx context.Context, conversationID, senderID string, content domain.MessageContent, msgType domain.MessageType, parentMessageID string, metadata *domain.MessageMetadata) (*domain.Message, error) {
	switch msgType {
	case domain.MessageTypeText:
		if content.Text == "" {
			return nil, apperr.Validation("text message requires non-empty text")
		}
	case domain.MessageTypeMedia:
		if len(content.Media) == 0 {
			return nil, apperr.Validation("media message requires at least one attachment")
		}
	case domain.MessageTypeSystem:
		// system messages carry whatever the server put in them
	default:
		return nil, apperr.Validation("unknown message type")
	}

	message := &domain.Message{
		ID:              uuid.New().String(),
		ConversationID:  conversationID,
		SenderID:        senderID,
		Content:         content,
		Type:            msgType,
		Status:          domain.MessageStatusSent,
		ParentMessageID: parentMessageID,
		Metadata:        metadata,
		Timestamp:       time.Now(),
	}

	if err := uc.msgRepo.Insert(ctx, message); err != nil {
		return nil, apperr.Store("message insert failed", err)
	}
	return message, nil
}

// FindByID returns the message or a not-found error.
func (uc *MessageUseCase) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	message, err := uc.msgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Store("message lookup failed", err)
	}
	if message == nil {
		return nil, apperr.NotFound("message not found")
	}
	return message, nil
}

// UpdateStatus advances the delivery status. The state machine is monotonic:
// an equal status is a no-op, an earlier one is rejected.
func (uc *MessageUseCase) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	if status.Rank() == 0 {
		return apperr.Validation("unknown message status")
	}

	message, err := uc.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if status.Rank() == message.Status.Rank() {
		return nil
	}
	if status.Rank() < message.Status.Rank() {
		return apperr.Validation("message status cannot regress")
	}

	if err := uc.msgRepo.UpdateStatus(ctx, id, status); err != nil {
		return apperr.Store("status update failed", err)
	}
	return nil
}

// MarkRead transitions a single message to read.
func (uc *MessageUseCase) MarkRead(ctx context.Context, id string) error {
	return uc.UpdateStatus(ctx, id, domain.MessageStatusRead)
}

// MarkMultipleAsRead bulk-transitions the given ids to read.
func (uc *MessageUseCase) MarkMultipleAsRead(ctx context.Context, ids []string) (int64, error) {
	modified, err := uc.msgRepo.MarkManyRead(ctx, ids)
	if err != nil {
		return 0, apperr.Store("bulk read mark failed", err)
	}
	return modified, nil
}

// FindUnreadForConversation returns messages in the conversation not authored
// by userID and not yet read, oldest first.
func (uc *MessageUseCase) FindUnreadForConversation(ctx context.Context, conversationID, userID string) ([]domain.Message, error) {
	messages, err := uc.msgRepo.FindUnread(ctx, conversationID, userID)
	if err != nil {
		return nil, apperr.Store("unread lookup failed", err)
	}
	return messages, nil
}

// FindForConversation returns a chronological ascending page.
func (uc *MessageUseCase) FindForConversation(ctx context.Context, conversationID string, skip, limit int64) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	messages, err := uc.msgRepo.FindByConversation(ctx, conversationID, skip, limit)
	if err != nil {
		return nil, apperr.Store("message page failed", err)
	}
	return messages, nil
}

// AddReaction records a {user, emoji} reaction on the message.
func (uc *MessageUseCase) AddReaction(ctx context.Context, id, userID, emoji string) error {
	if emoji == "" {
		return apperr.Validation("emoji required")
	}
	if _, err := uc.FindByID(ctx, id); err != nil {
		return err
	}
	if err := uc.msgRepo.AddReaction(ctx, id, domain.Reaction{User: userID, Emoji: emoji}); err != nil {
		return apperr.Store("reaction update failed", err)
	}
	return nil
}

// EditContent replaces the message content and stamps editedAt. Only the
// author may edit.
func (uc *MessageUseCase) EditContent(ctx context.Context, id, userID string, content domain.MessageContent) error {
	message, err := uc.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return apperr.Validation("only the author can edit a message")
	}
	if message.Type == domain.MessageTypeText && content.Text == "" {
		return apperr.Validation("text message requires non-empty text")
	}
	if err := uc.msgRepo.EditContent(ctx, id, content, time.Now()); err != nil {
		return apperr.Store("content edit failed", err)
	}
	return nil
}

// SoftDelete flags the message deleted; it disappears from all reads.
func (uc *MessageUseCase) SoftDelete(ctx context.Context, id, userID string) error {
	message, err := uc.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return apperr.Validation("only the author can delete a message")
	}
	if err := uc.msgRepo.SoftDelete(ctx, id); err != nil {
		return apperr.Store("delete failed", err)
	}
	return nil
}
