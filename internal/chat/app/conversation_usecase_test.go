package app

import (
	"context"
	"errors"
	"testing"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// creating a fresh conversation canonicalizes the pair and writes contacts
func TestConversationUseCase_Create(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByKey", ctx, "user-a_user-b").Return(nil, nil)
	mockConvRepo.On("Insert", ctx, mock.Anything).Return(nil)
	mockUserRepo.On("AddReciprocalContact", ctx, "user-b", "user-a").Return(nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	conversation, err := uc.Create(ctx, "user-b", "user-a")

	assert.NoError(t, err)
	assert.NotEmpty(t, conversation.ID)
	assert.Equal(t, "user-a", conversation.Participant1)
	assert.Equal(t, "user-b", conversation.Participant2)
	assert.Equal(t, "user-a_user-b", conversation.ConversationKey)
	assert.True(t, conversation.IsActive)
	assert.Empty(t, conversation.BlockedBy)
	assert.Contains(t, conversation.LastReadAt, "user-a")
	assert.Contains(t, conversation.LastReadAt, "user-b")

	mockConvRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}

// a second create for the same pair returns the existing record untouched
func TestConversationUseCase_Create_Existing(t *testing.T) {
	ctx := context.Background()

	existing := &domain.Conversation{
		ID:              "conv-1",
		Participant1:    "user-a",
		Participant2:    "user-b",
		ConversationKey: "user-a_user-b",
		IsActive:        true,
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByKey", ctx, "user-a_user-b").Return(existing, nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)

	// participant order must not matter
	first, err := uc.Create(ctx, "user-a", "user-b")
	assert.NoError(t, err)
	second, err := uc.Create(ctx, "user-b", "user-a")
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	mockConvRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	mockUserRepo.AssertNotCalled(t, "AddReciprocalContact", mock.Anything, mock.Anything, mock.Anything)
}

// losing the unique-index race falls back to the winner's record
func TestConversationUseCase_Create_DuplicateKeyRace(t *testing.T) {
	ctx := context.Background()

	winner := &domain.Conversation{
		ID:              "conv-winner",
		Participant1:    "user-a",
		Participant2:    "user-b",
		ConversationKey: "user-a_user-b",
		IsActive:        true,
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByKey", ctx, "user-a_user-b").Return(nil, nil).Once()
	mockConvRepo.On("Insert", ctx, mock.Anything).Return(repository.ErrDuplicateKey)
	mockConvRepo.On("FindByKey", ctx, "user-a_user-b").Return(winner, nil).Once()

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	conversation, err := uc.Create(ctx, "user-a", "user-b")

	assert.NoError(t, err)
	assert.Equal(t, "conv-winner", conversation.ID)
	mockConvRepo.AssertExpectations(t)
}

// a user cannot converse with themselves
func TestConversationUseCase_Create_WithSelf(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	_, err := uc.Create(ctx, "user-a", "user-a")

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
	mockConvRepo.AssertNotCalled(t, "FindByKey", mock.Anything, mock.Anything)
}

func TestConversationUseCase_FindByID_NotFound(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "missing").Return(nil, nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	_, err := uc.FindByID(ctx, "missing")

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestConversationUseCase_BlockUser(t *testing.T) {
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{},
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	mockConvRepo.On("AddBlockedBy", ctx, "conv-1", "user-a").Return(nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	err := uc.BlockUser(ctx, "conv-1", "user-a", "user-b")

	assert.NoError(t, err)
	mockConvRepo.AssertExpectations(t)
}

// blocking twice is a conflict, not a silent no-op
func TestConversationUseCase_BlockUser_AlreadyBlocked(t *testing.T) {
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{"user-a"},
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	err := uc.BlockUser(ctx, "conv-1", "user-a", "user-b")

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
	mockConvRepo.AssertNotCalled(t, "AddBlockedBy", mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationUseCase_BlockUser_Self(t *testing.T) {
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	err := uc.BlockUser(ctx, "conv-1", "user-a", "user-a")

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestConversationUseCase_UnblockUser_NotBlocked(t *testing.T) {
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{},
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	err := uc.UnblockUser(ctx, "conv-1", "user-a", "user-b")

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

// either side blocking disables sending for both
func TestConversationUseCase_GetBlockStatus(t *testing.T) {
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{"user-b"},
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)

	statusA, err := uc.GetBlockStatus(ctx, "conv-1", "user-a")
	assert.NoError(t, err)
	assert.False(t, statusA.IsBlockedByMe)
	assert.True(t, statusA.IsBlockedByOther)
	assert.False(t, statusA.CanSendMessages)

	statusB, err := uc.GetBlockStatus(ctx, "conv-1", "user-b")
	assert.NoError(t, err)
	assert.True(t, statusB.IsBlockedByMe)
	assert.False(t, statusB.IsBlockedByOther)
	assert.False(t, statusB.CanSendMessages)
}

func TestConversationUseCase_MarkRead_NotParticipant(t *testing.T) {
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	err := uc.MarkRead(ctx, "conv-1", "user-c")

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	mockConvRepo.AssertNotCalled(t, "SetLastReadAt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationUseCase_Archive(t *testing.T) {
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
	}

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	mockConvRepo.On("SetArchived", ctx, "conv-1", true).Return(nil)

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	err := uc.Archive(ctx, "conv-1", "user-a")

	assert.NoError(t, err)
	mockConvRepo.AssertExpectations(t)
}

// store failures never leak internals through SafeMessage
func TestConversationUseCase_Create_StoreError(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	mockUserRepo := new(MockUserRepository)

	mockConvRepo.On("FindByKey", ctx, "user-a_user-b").Return(nil, errors.New("connection reset"))

	uc := NewConversationUseCase(mockConvRepo, mockUserRepo)
	_, err := uc.Create(ctx, "user-a", "user-b")

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeStore))
	assert.Equal(t, "operation failed", apperr.SafeMessage(err))
}
