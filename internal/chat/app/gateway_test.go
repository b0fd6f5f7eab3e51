package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/apperr"
	"realtime_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type gatewayMocks struct {
	convRepo *MockConversationRepository
	msgRepo  *MockMessageRepository
	userRepo *MockUserRepository
	presence *MockPresenceRepository
	relay    *MockPubSub
	verifier *MockTokenVerifier
}

func newTestGateway() (*Gateway, *gatewayMocks) {
	logger.SetNewNop()

	m := &gatewayMocks{
		convRepo: new(MockConversationRepository),
		msgRepo:  new(MockMessageRepository),
		userRepo: new(MockUserRepository),
		presence: new(MockPresenceRepository),
		relay:    new(MockPubSub),
		verifier: new(MockTokenVerifier),
	}

	gateway := NewGateway(
		m.presence,
		m.relay,
		NewConversationUseCase(m.convRepo, m.userRepo),
		NewMessageUseCase(m.msgRepo),
		m.userRepo,
		m.verifier,
	)
	return gateway, m
}

// drainEvents empties a client's outbound queue without blocking.
func drainEvents(client *Client) []domain.OutboundEvent {
	events := []domain.OutboundEvent{}
	for {
		select {
		case event := <-client.Outbound():
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestGateway_Authenticate(t *testing.T) {
	gateway, m := newTestGateway()

	m.verifier.On("Verify", "good-token").Return("user-a", nil)
	m.verifier.On("Verify", "bad-token").Return("", errors.New("signature invalid"))

	userID, err := gateway.Authenticate("good-token")
	assert.NoError(t, err)
	assert.Equal(t, "user-a", userID)

	_, err = gateway.Authenticate("bad-token")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	_, err = gateway.Authenticate("")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
	m.verifier.AssertNumberOfCalls(t, "Verify", 2)
}

// sending to an offline recipient queues a missed event and never promotes
// the message past sent
func TestGateway_SendMessage_OfflineRecipient(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{},
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	m.convRepo.On("SetLastMessage", ctx, "conv-1", mock.Anything, mock.Anything).Return(nil)
	m.msgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(false, nil)
	m.presence.On("EnqueueMissedEvent", ctx, "user-b", mock.MatchedBy(func(event domain.MissedEvent) bool {
		return event.EventName == domain.EventReceiveMessage && event.ConversationID == "conv-1"
	})).Return(nil)

	sender := NewClient("user-a")
	err := gateway.SendMessage(ctx, sender, domain.SendMessageRequest{
		ConversationID: "conv-1",
		ReceiverID:     "user-b",
		Content:        domain.MessageContent{Text: "hello"},
		Type:           domain.MessageTypeText,
	})

	assert.NoError(t, err)

	events := drainEvents(sender)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventReceiveMessage, events[0].Event)
	echoed := events[0].Payload.(*domain.Message)
	assert.Equal(t, domain.MessageStatusSent, echoed.Status)

	m.presence.AssertExpectations(t)
	m.msgRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

// a blocked conversation rejects the send before anything is written
func TestGateway_SendMessage_Blocked(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{"user-b"},
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)

	sender := NewClient("user-a")
	err := gateway.SendMessage(ctx, sender, domain.SendMessageRequest{
		ConversationID: "conv-1",
		ReceiverID:     "user-b",
		Content:        domain.MessageContent{Text: "hello"},
		Type:           domain.MessageTypeText,
	})

	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	assert.Empty(t, drainEvents(sender))
	m.msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	m.presence.AssertNotCalled(t, "EnqueueMissedEvent", mock.Anything, mock.Anything, mock.Anything)
}

// a locally connected recipient gets the message directly and the sender a
// delivery acknowledgment
func TestGateway_SendMessage_OnlineLocal(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{},
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	m.convRepo.On("SetLastMessage", ctx, "conv-1", mock.Anything, mock.Anything).Return(nil)
	m.msgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	m.msgRepo.On("FindByID", ctx, mock.Anything).Return(&domain.Message{ID: "msg-1", Status: domain.MessageStatusSent}, nil)
	m.msgRepo.On("UpdateStatus", ctx, mock.Anything, domain.MessageStatusDelivered).Return(nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(true, nil)

	receiver := NewClient("user-b")
	gateway.Registry().Register(receiver)

	sender := NewClient("user-a")
	err := gateway.SendMessage(ctx, sender, domain.SendMessageRequest{
		ConversationID: "conv-1",
		ReceiverID:     "user-b",
		Content:        domain.MessageContent{Text: "hello"},
		Type:           domain.MessageTypeText,
	})

	assert.NoError(t, err)

	received := drainEvents(receiver)
	assert.Len(t, received, 1)
	assert.Equal(t, domain.EventReceiveMessage, received[0].Event)

	echoed := drainEvents(sender)
	assert.Len(t, echoed, 2)
	assert.Equal(t, domain.EventReceiveMessage, echoed[0].Event)
	assert.Equal(t, domain.EventMessageDelivered, echoed[1].Event)

	m.msgRepo.AssertExpectations(t)
	m.relay.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// an online recipient without local connections is reached over the relay
func TestGateway_SendMessage_OnlineRemote(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
		BlockedBy:    []string{},
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	m.convRepo.On("SetLastMessage", ctx, "conv-1", mock.Anything, mock.Anything).Return(nil)
	m.msgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	m.msgRepo.On("FindByID", ctx, mock.Anything).Return(&domain.Message{ID: "msg-1", Status: domain.MessageStatusSent}, nil)
	m.msgRepo.On("UpdateStatus", ctx, mock.Anything, domain.MessageStatusDelivered).Return(nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(true, nil)
	m.relay.On("Publish", ctx, RelayChannel, mock.MatchedBy(func(env domain.DeliverEnvelope) bool {
		return env.ReceiverID == "user-b" && env.Event == domain.EventReceiveMessage
	})).Return(nil)

	sender := NewClient("user-a")
	err := gateway.SendMessage(ctx, sender, domain.SendMessageRequest{
		ConversationID: "conv-1",
		ReceiverID:     "user-b",
		Content:        domain.MessageContent{Text: "hello"},
		Type:           domain.MessageTypeText,
	})

	assert.NoError(t, err)
	m.relay.AssertExpectations(t)
	m.presence.AssertNotCalled(t, "EnqueueMissedEvent", mock.Anything, mock.Anything, mock.Anything)
}

// reading a conversation bulk-marks unread messages and notifies the author
// with the affected ids
func TestGateway_ReadConversation(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
	}
	unread := []domain.Message{
		{ID: "msg-1", SenderID: "user-b", Status: domain.MessageStatusDelivered},
		{ID: "msg-2", SenderID: "user-b", Status: domain.MessageStatusSent},
		{ID: "msg-3", SenderID: "user-b", Status: domain.MessageStatusDelivered},
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	m.convRepo.On("SetLastReadAt", ctx, "conv-1", "user-a", mock.Anything).Return(nil)
	m.msgRepo.On("FindUnread", ctx, "conv-1", "user-a").Return(unread, nil)
	m.msgRepo.On("MarkManyRead", ctx, []string{"msg-1", "msg-2", "msg-3"}).Return(int64(3), nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(false, nil)
	m.presence.On("EnqueueMissedEvent", ctx, "user-b", mock.MatchedBy(func(event domain.MissedEvent) bool {
		return event.EventName == domain.EventMessagesRead
	})).Return(nil)

	reader := NewClient("user-a")
	err := gateway.ReadConversation(ctx, reader, domain.ReadConversationRequest{ConversationID: "conv-1"})

	assert.NoError(t, err)

	events := drainEvents(reader)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventMessagesRead, events[0].Event)
	payload := events[0].Payload.(domain.MessagesReadPayload)
	assert.Equal(t, []string{"msg-1", "msg-2", "msg-3"}, payload.ReadMessageIDs)
	assert.Equal(t, "user-a", payload.ReadBy)

	m.msgRepo.AssertExpectations(t)
	m.presence.AssertExpectations(t)
}

// nothing unread means no notification to the other side
func TestGateway_ReadConversation_NothingUnread(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	m.convRepo.On("SetLastReadAt", ctx, "conv-1", "user-a", mock.Anything).Return(nil)
	m.msgRepo.On("FindUnread", ctx, "conv-1", "user-a").Return([]domain.Message{}, nil)

	reader := NewClient("user-a")
	err := gateway.ReadConversation(ctx, reader, domain.ReadConversationRequest{ConversationID: "conv-1"})

	assert.NoError(t, err)
	m.msgRepo.AssertNotCalled(t, "MarkManyRead", mock.Anything, mock.Anything)
	m.presence.AssertNotCalled(t, "IsOnline", mock.Anything, mock.Anything)
}

// the connection flow replays queued events oldest first, then pushes the
// online-contacts snapshot
func TestGateway_Connect_ReplaysMissedEventsInOrder(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	user := &domain.User{
		ID: "user-a",
		Contacts: []domain.ContactRef{
			{UserID: "user-b"},
			{UserID: "user-c", Blocked: true},
		},
	}
	missed := []domain.MissedEvent{
		{EventName: domain.EventMessagesRead, Payload: json.RawMessage(`{"conversationId":"c3"}`), Timestamp: 3},
		{EventName: domain.EventMessagesRead, Payload: json.RawMessage(`{"conversationId":"c1"}`), Timestamp: 1},
		{EventName: domain.EventMessagesRead, Payload: json.RawMessage(`{"conversationId":"c2"}`), Timestamp: 2},
	}

	m.presence.On("MarkOnline", ctx, "user-a", mock.Anything).Return(nil)
	m.userRepo.On("FindByID", ctx, "user-a").Return(user, nil)
	m.presence.On("PeekMissedEvents", ctx, "user-a").Return(missed, nil)
	m.presence.On("ClearMissedEvents", ctx, "user-a").Return(nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(true, nil)
	m.relay.On("Publish", ctx, RelayChannel, mock.MatchedBy(func(env domain.DeliverEnvelope) bool {
		return env.ReceiverID == "user-b" && env.Event == domain.EventUserOnline
	})).Return(nil)

	client := NewClient("user-a")
	err := gateway.Connect(ctx, client)

	assert.NoError(t, err)

	events := drainEvents(client)
	assert.Len(t, events, 4)

	var conversationIDs []string
	for _, event := range events[:3] {
		assert.Equal(t, domain.EventMessagesRead, event.Event)
		var payload domain.MessagesReadPayload
		assert.NoError(t, json.Unmarshal(event.Payload.(json.RawMessage), &payload))
		conversationIDs = append(conversationIDs, payload.ConversationID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, conversationIDs)

	assert.Equal(t, domain.EventOnlineContacts, events[3].Event)
	snapshot := events[3].Payload.(domain.OnlineContactsPayload)
	assert.Equal(t, []string{"user-b"}, snapshot.OnlineContacts)

	// blocked contacts never get a broadcast group
	assert.ElementsMatch(t, []string{"user-a", "user-b"}, gateway.Registry().Groups(client))
	m.presence.AssertExpectations(t)
}

// replayed messages are promoted to delivered and the queue cleared
func TestGateway_Connect_PromotesReplayedMessages(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	queued := domain.Message{
		ID:             "msg-9",
		ConversationID: "conv-1",
		SenderID:       "user-b",
		Status:         domain.MessageStatusSent,
	}
	raw, _ := json.Marshal(&queued)

	user := &domain.User{ID: "user-a", Contacts: []domain.ContactRef{{UserID: "user-b"}}}

	m.presence.On("MarkOnline", ctx, "user-a", mock.Anything).Return(nil)
	m.userRepo.On("FindByID", ctx, "user-a").Return(user, nil)
	m.presence.On("PeekMissedEvents", ctx, "user-a").Return([]domain.MissedEvent{
		{EventName: domain.EventReceiveMessage, Payload: raw, Timestamp: 1, ConversationID: "conv-1"},
	}, nil)
	m.presence.On("ClearMissedEvents", ctx, "user-a").Return(nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(false, nil)
	m.msgRepo.On("FindByID", ctx, "msg-9").Return(&queued, nil)
	m.msgRepo.On("UpdateStatus", ctx, "msg-9", domain.MessageStatusDelivered).Return(nil)

	client := NewClient("user-a")
	err := gateway.Connect(ctx, client)

	assert.NoError(t, err)
	m.msgRepo.AssertExpectations(t)
	m.presence.AssertCalled(t, "ClearMissedEvents", ctx, "user-a")
}

// typing signals are transient: dropped for offline receivers, never queued
func TestGateway_Typing_OfflineReceiver(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(false, nil)

	client := NewClient("user-a")
	err := gateway.Typing(ctx, client, domain.TypingRequest{ConversationID: "conv-1", ReceiverID: "user-b"}, true)

	assert.NoError(t, err)
	m.presence.AssertNotCalled(t, "EnqueueMissedEvent", mock.Anything, mock.Anything, mock.Anything)
	m.relay.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// a typing signal aimed at someone outside the conversation is rejected
func TestGateway_Typing_ReceiverNotParticipant(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	conversation := &domain.Conversation{
		ID:           "conv-1",
		Participant1: "user-a",
		Participant2: "user-b",
	}

	m.convRepo.On("FindByID", ctx, "conv-1").Return(conversation, nil)

	client := NewClient("user-a")
	err := gateway.Typing(ctx, client, domain.TypingRequest{ConversationID: "conv-1", ReceiverID: "user-c"}, true)

	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	m.presence.AssertNotCalled(t, "IsOnline", mock.Anything, mock.Anything)
}

func TestGateway_StatusCheck(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	m.presence.On("IsOnline", ctx, "user-b").Return(true, nil)

	client := NewClient("user-a")
	err := gateway.StatusCheck(ctx, client, domain.StatusCheckRequest{UserID: "user-b"})

	assert.NoError(t, err)

	events := drainEvents(client)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventUserStatusUpdate, events[0].Event)
	payload := events[0].Payload.(domain.StatusPayload)
	assert.Equal(t, domain.StatusOnline, payload.Status)
}

// starting a conversation acknowledges the caller and queues the peer's
// notification when they are offline
func TestGateway_StartConversation_OfflinePeer(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	m.convRepo.On("FindByKey", ctx, "user-a_user-b").Return(nil, nil)
	m.convRepo.On("Insert", ctx, mock.Anything).Return(nil)
	m.userRepo.On("AddReciprocalContact", ctx, "user-a", "user-b").Return(nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(false, nil)
	m.presence.On("EnqueueMissedEvent", ctx, "user-b", mock.MatchedBy(func(event domain.MissedEvent) bool {
		return event.EventName == domain.EventNewConversation
	})).Return(nil)

	client := NewClient("user-a")
	err := gateway.StartConversation(ctx, client, domain.StartConversationRequest{ParticipantID: "user-b"})

	assert.NoError(t, err)

	events := drainEvents(client)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventConversationCreated, events[0].Event)
	m.presence.AssertExpectations(t)
}

// a relay envelope from another instance reaches only the locally-connected
// recipient
func TestGateway_RelayDelivery(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	m.relay.On("Subscribe", ctx, RelayChannel, mock.Anything).Return(nil)
	assert.NoError(t, gateway.Start(ctx))

	handler := m.relay.Calls[0].Arguments.Get(2).(func(domain.DeliverEnvelope))

	receiver := NewClient("user-b")
	bystander := NewClient("user-c")
	gateway.Registry().Register(receiver)
	gateway.Registry().Register(bystander)

	handler(domain.DeliverEnvelope{
		Event:      domain.EventReceiveMessage,
		ReceiverID: "user-b",
		Payload:    json.RawMessage(`{"id":"msg-1"}`),
	})

	events := drainEvents(receiver)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventReceiveMessage, events[0].Event)
	assert.Empty(t, drainEvents(bystander))
}

// disconnecting the last connection clears presence and fans the offline
// status out to the user's contacts
func TestGateway_Disconnect(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	client := NewClient("user-a")
	peer := NewClient("user-b")
	gateway.Registry().Register(client)
	gateway.Registry().Register(peer)

	user := &domain.User{ID: "user-a", Contacts: []domain.ContactRef{{UserID: "user-b"}}}

	m.presence.On("GetPresence", ctx, "user-a").Return(&domain.PresenceRecord{
		UserID:       "user-a",
		ConnectionID: client.ConnectionID,
	}, nil)
	m.presence.On("MarkOffline", ctx, "user-a").Return(nil)
	m.userRepo.On("FindByID", ctx, "user-a").Return(user, nil)
	m.presence.On("IsOnline", ctx, "user-b").Return(true, nil)

	gateway.Disconnect(ctx, client)

	events := drainEvents(peer)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventUserOffline, events[0].Event)
	payload := events[0].Payload.(domain.StatusPayload)
	assert.Equal(t, "user-a", payload.UserID)
	assert.Equal(t, domain.StatusOffline, payload.Status)

	assert.Empty(t, gateway.Registry().UserClients("user-a"))
	m.presence.AssertExpectations(t)
}

// a second live connection keeps the presence key and suppresses the offline
// fan-out
func TestGateway_Disconnect_KeepsStatusWithSecondConnection(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	first := NewClient("user-a")
	second := NewClient("user-a")
	peer := NewClient("user-b")
	gateway.Registry().Register(first)
	gateway.Registry().Register(second)
	gateway.Registry().Register(peer)

	gateway.Disconnect(ctx, first)

	assert.Empty(t, drainEvents(peer))
	assert.Len(t, gateway.Registry().UserClients("user-a"), 1)
	m.presence.AssertNotCalled(t, "MarkOffline", mock.Anything, mock.Anything)
	m.presence.AssertNotCalled(t, "GetPresence", mock.Anything, mock.Anything)
}

// tearing down a stale connection after the user re-registered elsewhere
// leaves the new connection's presence untouched
func TestGateway_Disconnect_StaleConnectionKeepsPresence(t *testing.T) {
	gateway, m := newTestGateway()
	ctx := context.Background()

	stale := NewClient("user-a")
	gateway.Registry().Register(stale)

	m.presence.On("GetPresence", ctx, "user-a").Return(&domain.PresenceRecord{
		UserID:       "user-a",
		ConnectionID: "conn-newer",
	}, nil)

	gateway.Disconnect(ctx, stale)

	m.presence.AssertNotCalled(t, "MarkOffline", mock.Anything, mock.Anything)
	m.userRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// memoryRelay is an in-process stand-in for the redis relay: every published
// envelope reaches every subscribed instance.
type memoryRelay struct {
	mu       sync.Mutex
	handlers []func(domain.DeliverEnvelope)
}

func (r *memoryRelay) Publish(ctx context.Context, channel string, message interface{}) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return err
	}
	var env domain.DeliverEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}

	r.mu.Lock()
	handlers := append([]func(domain.DeliverEnvelope){}, r.handlers...)
	r.mu.Unlock()
	for _, handler := range handlers {
		handler(env)
	}
	return nil
}

func (r *memoryRelay) Subscribe(ctx context.Context, channel string, handler func(env domain.DeliverEnvelope)) error {
	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	r.mu.Unlock()
	return nil
}

func newTestGatewayWithRelay(relay repository.PubSub) (*Gateway, *gatewayMocks) {
	logger.SetNewNop()

	m := &gatewayMocks{
		convRepo: new(MockConversationRepository),
		msgRepo:  new(MockMessageRepository),
		userRepo: new(MockUserRepository),
		presence: new(MockPresenceRepository),
		relay:    new(MockPubSub),
		verifier: new(MockTokenVerifier),
	}

	gateway := NewGateway(
		m.presence,
		relay,
		NewConversationUseCase(m.convRepo, m.userRepo),
		NewMessageUseCase(m.msgRepo),
		m.userRepo,
		m.verifier,
	)
	return gateway, m
}

// a status transition reaches contacts connected to another instance through
// the relay
func TestGateway_StatusFanOutAcrossInstances(t *testing.T) {
	relay := &memoryRelay{}
	instance1, m1 := newTestGatewayWithRelay(relay)
	instance2, _ := newTestGatewayWithRelay(relay)
	ctx := context.Background()

	assert.NoError(t, instance1.Start(ctx))
	assert.NoError(t, instance2.Start(ctx))

	contact := NewClient("user-b")
	instance2.Registry().Register(contact)

	user := &domain.User{ID: "user-a", Contacts: []domain.ContactRef{{UserID: "user-b"}}}
	m1.presence.On("MarkOnline", ctx, "user-a", mock.Anything).Return(nil)
	m1.userRepo.On("FindByID", ctx, "user-a").Return(user, nil)
	m1.presence.On("PeekMissedEvents", ctx, "user-a").Return([]domain.MissedEvent{}, nil)
	m1.presence.On("IsOnline", ctx, "user-b").Return(true, nil)

	client := NewClient("user-a")
	assert.NoError(t, instance1.Connect(ctx, client))

	events := drainEvents(contact)
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventUserOnline, events[0].Event)

	var payload domain.StatusPayload
	assert.NoError(t, json.Unmarshal(events[0].Payload.(json.RawMessage), &payload))
	assert.Equal(t, "user-a", payload.UserID)
	assert.Equal(t, domain.StatusOnline, payload.Status)
}
