package app

import (
	"context"
	"errors"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/apperr"

	"github.com/google/uuid"
)

// ConversationUseCase creates and deduplicates conversations, manages block
// state, last-message pointer and per-user read cursors.
type ConversationUseCase struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
}

// NewConversationUseCase init create conversation use case
func NewConversationUseCase(convRepo repository.ConversationRepository, userRepo repository.UserRepository) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo: convRepo,
		userRepo: userRepo,
	}
}

// Create canonicalizes the pair and returns the existing conversation for the
// dedup key, otherwise creates one and establishes the reciprocal contact
// relationship. A race that loses the insert falls back to refetching by key.
func (uc *ConversationUseCase) Create(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, apperr.Validation("participant id required")
	}
	if userA == userB {
		return nil, apperr.Conflict("cannot start a conversation with yourself")
	}

	participant1, participant2, key := domain.ConversationKey(userA, userB)

	existing, err := uc.convRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, apperr.Store("conversation lookup failed", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	conversation := &domain.Conversation{
		ID:              uuid.New().String(),
		Participant1:    participant1,
		Participant2:    participant2,
		ConversationKey: key,
		IsActive:        true,
		BlockedBy:       []string{},
		LastActivityAt:  now,
		LastReadAt: map[string]time.Time{
			userA: now,
			userB: now,
		},
		CreatedAt: now,
	}

	if err := uc.convRepo.Insert(ctx, conversation); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost the insert race, the winner's record is authoritative.
			winner, ferr := uc.convRepo.FindByKey(ctx, key)
			if ferr != nil {
				return nil, apperr.Store("conversation refetch failed", ferr)
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, apperr.Store("conversation insert failed", err)
	}

	if err := uc.userRepo.AddReciprocalContact(ctx, userA, userB); err != nil {
		return nil, apperr.Store("contact update failed", err)
	}

	return conversation, nil
}

// FindByID returns the conversation or a not-found error.
func (uc *ConversationUseCase) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	conversation, err := uc.convRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Store("conversation lookup failed", err)
	}
	if conversation == nil {
		return nil, apperr.NotFound("conversation not found")
	}
	return conversation, nil
}

// SetLastMessage updates the last-message pointer, activity time and count.
func (uc *ConversationUseCase) SetLastMessage(ctx context.Context, conversationID, messageID string) error {
	if err := uc.convRepo.SetLastMessage(ctx, conversationID, messageID, time.Now()); err != nil {
		return apperr.Store("last message update failed", err)
	}
	return nil
}

// MarkRead moves the caller's read cursor to now.
func (uc *ConversationUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	conversation, err := uc.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return apperr.Validation("not a conversation participant")
	}
	if err := uc.convRepo.SetLastReadAt(ctx, conversationID, userID, time.Now()); err != nil {
		return apperr.Store("read cursor update failed", err)
	}
	return nil
}

// BlockUser adds callerID to the conversation's block set.
func (uc *ConversationUseCase) BlockUser(ctx context.Context, conversationID, callerID, targetID string) error {
	conversation, err := uc.validateBlockPair(ctx, conversationID, callerID, targetID)
	if err != nil {
		return err
	}
	if conversation.IsBlockedBy(callerID) {
		return apperr.Conflict("user is already blocked in this conversation")
	}
	if err := uc.convRepo.AddBlockedBy(ctx, conversationID, callerID); err != nil {
		return apperr.Store("block update failed", err)
	}
	return nil
}

// UnblockUser removes callerID from the conversation's block set.
func (uc *ConversationUseCase) UnblockUser(ctx context.Context, conversationID, callerID, targetID string) error {
	conversation, err := uc.validateBlockPair(ctx, conversationID, callerID, targetID)
	if err != nil {
		return err
	}
	if !conversation.IsBlockedBy(callerID) {
		return apperr.Conflict("user is not blocked in this conversation")
	}
	if err := uc.convRepo.RemoveBlockedBy(ctx, conversationID, callerID); err != nil {
		return apperr.Store("unblock update failed", err)
	}
	return nil
}

func (uc *ConversationUseCase) validateBlockPair(ctx context.Context, conversationID, callerID, targetID string) (*domain.Conversation, error) {
	conversation, err := uc.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(callerID) {
		return nil, apperr.Validation("not a conversation participant")
	}
	if !conversation.HasParticipant(targetID) {
		return nil, apperr.Validation("target user is not a conversation participant")
	}
	if callerID == targetID {
		return nil, apperr.Conflict("cannot block yourself")
	}
	return conversation, nil
}

// GetBlockStatus returns the block view from userID's perspective.
// CanSendMessages is true iff neither side has blocked.
func (uc *ConversationUseCase) GetBlockStatus(ctx context.Context, conversationID, userID string) (*domain.BlockStatus, error) {
	conversation, err := uc.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, apperr.Validation("not a conversation participant")
	}

	other := conversation.OtherParticipant(userID)
	blockedByMe := conversation.IsBlockedBy(userID)
	blockedByOther := conversation.IsBlockedBy(other)

	return &domain.BlockStatus{
		IsBlockedByMe:    blockedByMe,
		IsBlockedByOther: blockedByOther,
		CanSendMessages:  !blockedByMe && !blockedByOther,
	}, nil
}

// FindUserConversations pages the caller's conversation list with the other
// participant's public profile and unread counts joined.
func (uc *ConversationUseCase) FindUserConversations(ctx context.Context, userID string, skip, limit int64, includeArchived bool) ([]domain.ConversationSummary, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	summaries, total, err := uc.convRepo.FindUserConversations(ctx, userID, skip, limit, includeArchived)
	if err != nil {
		return nil, 0, apperr.Store("conversation list failed", err)
	}
	return summaries, total, nil
}

// Archive flags the conversation archived for everyone.
func (uc *ConversationUseCase) Archive(ctx context.Context, conversationID, userID string) error {
	conversation, err := uc.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return apperr.Validation("not a conversation participant")
	}
	if err := uc.convRepo.SetArchived(ctx, conversationID, true); err != nil {
		return apperr.Store("archive failed", err)
	}
	return nil
}

// Deactivate takes the conversation out of the active set. Records are never
// physically deleted in the common path.
func (uc *ConversationUseCase) Deactivate(ctx context.Context, conversationID string) error {
	if err := uc.convRepo.SetActive(ctx, conversationID, false); err != nil {
		return apperr.Store("deactivate failed", err)
	}
	return nil
}
