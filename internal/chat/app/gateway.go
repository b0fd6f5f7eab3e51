package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/apperr"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/token"

	"go.uber.org/zap"
)

// RelayChannel carries cross-instance delivery envelopes.
const RelayChannel = "chat:deliver"

// Gateway is one server instance's connection manager. It authenticates
// connections, registers presence, joins broadcast groups, replays missed
// events and implements the message-send / typing / read-receipt handlers.
// An explicit instance handle, never a shared singleton: tests run several
// gateways side by side over a shared relay.
type Gateway struct {
	presence repository.PresenceRepository
	relay    repository.PubSub
	convUC   *ConversationUseCase
	msgUC    *MessageUseCase
	userRepo repository.UserRepository
	verifier token.Verifier
	registry *Registry
}

// NewGateway create a Gateway
func NewGateway(
	presence repository.PresenceRepository,
	relay repository.PubSub,
	convUC *ConversationUseCase,
	msgUC *MessageUseCase,
	userRepo repository.UserRepository,
	verifier token.Verifier,
) *Gateway {
	return &Gateway{
		presence: presence,
		relay:    relay,
		convUC:   convUC,
		msgUC:    msgUC,
		userRepo: userRepo,
		verifier: verifier,
		registry: NewRegistry(),
	}
}

// Registry exposes the local subscriber registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Start subscribes the instance to the Broadcast Relay. Envelopes are
// forwarded to locally-registered recipients only; other instances handle
// their own connections.
func (g *Gateway) Start(ctx context.Context) error {
	return g.relay.Subscribe(ctx, RelayChannel, g.deliverLocal)
}

func (g *Gateway) deliverLocal(env domain.DeliverEnvelope) {
	for _, client := range g.registry.UserClients(env.ReceiverID) {
		client.Send(domain.OutboundEvent{Event: env.Event, Payload: env.Payload})
	}
}

// Authenticate verifies the handshake bearer token. Any verification error is
// an authentication failure, fatal to the connection.
func (g *Gateway) Authenticate(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", apperr.Unauthorized("authentication token not provided")
	}
	userID, err := g.verifier.Verify(tokenStr)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnauthorized, "invalid authentication token", err)
	}
	return userID, nil
}

// Connect runs the post-authentication connection flow: presence, broadcast
// groups, missed-event replay, status fan-out and the online-contacts
// snapshot.
func (g *Gateway) Connect(ctx context.Context, client *Client) error {
	if err := g.presence.MarkOnline(ctx, client.UserID, client.ConnectionID); err != nil {
		return apperr.Store("presence update failed", err)
	}

	user, err := g.joinGroups(ctx, client)
	if err != nil {
		return err
	}

	if err := g.replayMissedEvents(ctx, client); err != nil {
		// Replay failure keeps the queue for the next reconnect.
		logger.Log.Error("missed event replay failed", zap.String("userID", client.UserID), zap.Error(err))
	}

	g.notifyContactsStatus(ctx, client.UserID, user.ActiveContacts(), domain.StatusOnline)
	g.notifyOnlineContacts(ctx, client, user)

	return nil
}

// Disconnect tears the connection down. Runs on abnormal termination too, so
// every step is side-effect only. The presence key is removed only when it
// still belongs to this connection; a second live connection or a reconnect
// on another instance keeps the user online.
func (g *Gateway) Disconnect(ctx context.Context, client *Client) {
	g.registry.Unregister(client)

	if len(g.registry.UserClients(client.UserID)) > 0 {
		return
	}

	record, err := g.presence.GetPresence(ctx, client.UserID)
	if err != nil {
		logger.Log.Error("presence lookup failed", zap.String("userID", client.UserID), zap.Error(err))
		return
	}
	if record != nil && record.ConnectionID != client.ConnectionID {
		return
	}

	if err := g.presence.MarkOffline(ctx, client.UserID); err != nil {
		logger.Log.Error("presence delete failed", zap.String("userID", client.UserID), zap.Error(err))
	}

	user, err := g.userRepo.FindByID(ctx, client.UserID)
	if err != nil || user == nil {
		logger.Log.Error("user lookup failed on disconnect", zap.String("userID", client.UserID), zap.Error(err))
		return
	}
	g.notifyContactsStatus(ctx, client.UserID, user.ActiveContacts(), domain.StatusOffline)
}

// joinGroups subscribes the connection to its personal group plus one group
// per active (non-blocked) contact, room and channel membership.
func (g *Gateway) joinGroups(ctx context.Context, client *Client) (*domain.User, error) {
	g.registry.Register(client)
	g.registry.Join(client.UserID, client)

	user, err := g.userRepo.FindByID(ctx, client.UserID)
	if err != nil {
		return nil, apperr.Store("user lookup failed", err)
	}
	if user == nil {
		return nil, apperr.Validation("user not found")
	}

	for _, contact := range user.Contacts {
		if !contact.Blocked && contact.UserID != "" {
			g.registry.Join(contact.UserID, client)
		}
	}
	for _, room := range user.Rooms {
		if !room.Blocked && room.RoomID != "" {
			g.registry.Join(room.RoomID, client)
		}
	}
	for _, channel := range user.Channels {
		if !channel.Blocked && channel.ChannelID != "" {
			g.registry.Join(channel.ChannelID, client)
		}
	}

	return user, nil
}

// replayMissedEvents drains the user's queue in timestamp order. The queue is
// cleared only after every event was handed to the connection; messages
// replayed this way are promoted to delivered and their senders acknowledged.
func (g *Gateway) replayMissedEvents(ctx context.Context, client *Client) error {
	events, err := g.presence.PeekMissedEvents(ctx, client.UserID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	for _, event := range events {
		if !client.Send(domain.OutboundEvent{Event: event.EventName, Payload: event.Payload}) {
			return apperr.Validation("connection closed during replay")
		}
	}

	if err := g.presence.ClearMissedEvents(ctx, client.UserID); err != nil {
		return err
	}

	for _, event := range events {
		if event.EventName != domain.EventReceiveMessage {
			continue
		}
		var message domain.Message
		if err := json.Unmarshal(event.Payload, &message); err != nil {
			logger.Log.Error("replayed message decode err", zap.String("userID", client.UserID), zap.Error(err))
			continue
		}
		if err := g.msgUC.UpdateStatus(ctx, message.ID, domain.MessageStatusDelivered); err != nil {
			logger.Log.Error("replayed message status err", zap.String("messageID", message.ID), zap.Error(err))
			continue
		}
		g.deliverToUser(ctx, message.SenderID, domain.EventMessageDelivered, domain.DeliveredPayload{
			MessageID:      message.ID,
			ConversationID: message.ConversationID,
		}, message.ConversationID, false)
	}

	return nil
}

// notifyContactsStatus fans the user's status transition out to each active
// contact, locally or over the relay for contacts connected elsewhere.
// Status events are transient and never queued.
func (g *Gateway) notifyContactsStatus(ctx context.Context, userID string, contacts []string, status string) {
	event := domain.EventUserOnline
	if status == domain.StatusOffline {
		event = domain.EventUserOffline
	}
	payload := domain.StatusPayload{UserID: userID, Status: status}

	for _, contactID := range contacts {
		if contactID == userID {
			continue
		}
		if _, err := g.deliverToUser(ctx, contactID, event, payload, "", false); err != nil {
			logger.Log.Error("status fan-out failed",
				zap.String("userID", userID),
				zap.String("contactID", contactID),
				zap.Error(err))
		}
	}
}

// notifyOnlineContacts pushes the caller a snapshot of which contacts are
// currently online.
func (g *Gateway) notifyOnlineContacts(ctx context.Context, client *Client, user *domain.User) {
	online := []string{}
	for _, contactID := range user.ActiveContacts() {
		isOnline, err := g.presence.IsOnline(ctx, contactID)
		if err != nil {
			logger.Log.Error("presence check failed", zap.String("userID", contactID), zap.Error(err))
			continue
		}
		if isOnline {
			online = append(online, contactID)
		}
	}
	client.Send(domain.OutboundEvent{Event: domain.EventOnlineContacts, Payload: domain.OnlineContactsPayload{OnlineContacts: online}})
}

// deliverToUser pushes an event to a recipient: directly when locally
// connected, via the Broadcast Relay when connected to another instance, or
// as a missed event when offline and queueWhenOffline is set. Returns whether
// the recipient was online at check time. The online check and the eventual
// enqueue are deliberately not transactional; losing that race delays
// delivery but never the durable record.
func (g *Gateway) deliverToUser(ctx context.Context, receiverID string, event domain.Event, payload interface{}, conversationID string, queueWhenOffline bool) (bool, error) {
	online, err := g.presence.IsOnline(ctx, receiverID)
	if err != nil {
		return false, apperr.Store("presence check failed", err)
	}

	if !online {
		if !queueWhenOffline {
			return false, nil
		}
		raw, merr := json.Marshal(payload)
		if merr != nil {
			return false, apperr.Store("event encode failed", merr)
		}
		missed := domain.MissedEvent{
			EventName:      event,
			Payload:        raw,
			Timestamp:      time.Now().UnixMilli(),
			ConversationID: conversationID,
		}
		if err := g.presence.EnqueueMissedEvent(ctx, receiverID, missed); err != nil {
			return false, apperr.Store("missed event enqueue failed", err)
		}
		return false, nil
	}

	locals := g.registry.UserClients(receiverID)
	if len(locals) > 0 {
		// Local delivery bypasses the relay entirely.
		for _, local := range locals {
			local.Send(domain.OutboundEvent{Event: event, Payload: payload})
		}
		return true, nil
	}

	raw, merr := json.Marshal(payload)
	if merr != nil {
		return true, apperr.Store("event encode failed", merr)
	}
	env := domain.DeliverEnvelope{
		Event:          event,
		ReceiverID:     receiverID,
		ConversationID: conversationID,
		Payload:        raw,
	}
	if err := g.relay.Publish(ctx, RelayChannel, env); err != nil {
		return true, apperr.Store("relay publish failed", err)
	}
	return true, nil
}

// SendMessage resolves or lazily creates the conversation, validates the
// sender, persists the message and routes it by the recipient's presence.
// The message is echoed to the sender; status is promoted to delivered only
// once handed to an online recipient.
func (g *Gateway) SendMessage(ctx context.Context, client *Client, req domain.SendMessageRequest) error {
	if req.ReceiverID == "" {
		return apperr.Validation("receiver id required")
	}

	var conversation *domain.Conversation
	if req.ConversationID != "" {
		found, err := g.convUC.FindByID(ctx, req.ConversationID)
		if err != nil && !apperr.Is(err, apperr.CodeNotFound) {
			return err
		}
		conversation = found
	}
	if conversation == nil {
		created, err := g.convUC.Create(ctx, client.UserID, req.ReceiverID)
		if err != nil {
			return err
		}
		conversation = created
	}

	if !conversation.HasParticipant(client.UserID) {
		return apperr.Validation("not a conversation participant")
	}
	if !conversation.HasParticipant(req.ReceiverID) {
		return apperr.Validation("receiver is not a conversation participant")
	}
	if conversation.IsBlockedBy(client.UserID) || conversation.IsBlockedBy(req.ReceiverID) {
		return apperr.Validation("conversation is blocked")
	}

	message, err := g.msgUC.Create(ctx, conversation.ID, client.UserID, req.Content, req.Type, req.ParentMessageID, req.Metadata)
	if err != nil {
		return err
	}

	if err := g.convUC.SetLastMessage(ctx, conversation.ID, message.ID); err != nil {
		return err
	}

	// Echo the persisted record back to the sender.
	client.Send(domain.OutboundEvent{Event: domain.EventReceiveMessage, Payload: message})

	receiverOnline, err := g.deliverToUser(ctx, req.ReceiverID, domain.EventReceiveMessage, message, conversation.ID, true)
	if err != nil {
		return err
	}

	if receiverOnline {
		if err := g.msgUC.UpdateStatus(ctx, message.ID, domain.MessageStatusDelivered); err != nil {
			logger.Log.Error("delivered promotion failed", zap.String("messageID", message.ID), zap.Error(err))
		}
		client.Send(domain.OutboundEvent{Event: domain.EventMessageDelivered, Payload: domain.DeliveredPayload{
			MessageID:      message.ID,
			ConversationID: conversation.ID,
		}})
	}

	return nil
}

// Typing relays a transient typing signal. Same participant and block
// validation as SendMessage, but never queued and silently dropped when the
// receiver is offline.
func (g *Gateway) Typing(ctx context.Context, client *Client, req domain.TypingRequest, isTyping bool) error {
	conversation, err := g.convUC.FindByID(ctx, req.ConversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(client.UserID) {
		return apperr.Validation("not a conversation participant")
	}
	if !conversation.HasParticipant(req.ReceiverID) {
		return apperr.Validation("receiver is not a conversation participant")
	}
	if conversation.IsBlockedBy(client.UserID) || conversation.IsBlockedBy(req.ReceiverID) {
		return apperr.Validation("conversation is blocked")
	}

	event := domain.EventUserTyping
	if !isTyping {
		event = domain.EventUserStopTyping
	}
	payload := domain.TypingPayload{
		ConversationID: req.ConversationID,
		UserID:         client.UserID,
		IsTyping:       isTyping,
	}
	_, err = g.deliverToUser(ctx, req.ReceiverID, event, payload, req.ConversationID, false)
	return err
}

// ReadConversation bulk-marks the caller's unread messages and notifies the
// other participant with the affected ids and a read timestamp.
func (g *Gateway) ReadConversation(ctx context.Context, client *Client, req domain.ReadConversationRequest) error {
	conversation, err := g.convUC.FindByID(ctx, req.ConversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(client.UserID) {
		return apperr.Validation("not a conversation participant")
	}

	unread, err := g.msgUC.FindUnreadForConversation(ctx, conversation.ID, client.UserID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(unread))
	for _, message := range unread {
		ids = append(ids, message.ID)
	}

	payload, err := g.markConversationRead(ctx, conversation, client.UserID, ids)
	if err != nil {
		return err
	}

	// Acknowledge the caller with the same payload the author side gets.
	client.Send(domain.OutboundEvent{Event: domain.EventMessagesRead, Payload: payload})
	return nil
}

// markConversationRead transitions the given messages to read, moves the
// reader's conversation cursor and notifies the author side. Shared by the
// explicit read-receipt flow and the history fetch, which marks the returned
// page read on the recipient's behalf.
func (g *Gateway) markConversationRead(ctx context.Context, conversation *domain.Conversation, readerID string, ids []string) (domain.MessagesReadPayload, error) {
	payload := domain.MessagesReadPayload{
		ConversationID: conversation.ID,
		ReadBy:         readerID,
		ReadAt:         time.Now(),
		ReadMessageIDs: []string{},
	}

	if len(ids) > 0 {
		if _, err := g.msgUC.MarkMultipleAsRead(ctx, ids); err != nil {
			return payload, err
		}
		payload.ReadMessageIDs = ids
	}

	if err := g.convUC.MarkRead(ctx, conversation.ID, readerID); err != nil {
		return payload, err
	}

	if len(payload.ReadMessageIDs) > 0 {
		other := conversation.OtherParticipant(readerID)
		if _, err := g.deliverToUser(ctx, other, domain.EventMessagesRead, payload, conversation.ID, true); err != nil {
			return payload, err
		}
	}

	return payload, nil
}

// StatusCheck answers a one-shot presence query.
func (g *Gateway) StatusCheck(ctx context.Context, client *Client, req domain.StatusCheckRequest) error {
	online, err := g.presence.IsOnline(ctx, req.UserID)
	if err != nil {
		return apperr.Store("presence check failed", err)
	}
	status := domain.StatusOffline
	if online {
		status = domain.StatusOnline
	}
	client.Send(domain.OutboundEvent{Event: domain.EventUserStatusUpdate, Payload: domain.StatusPayload{
		UserID: req.UserID,
		Status: status,
	}})
	return nil
}

// StartConversation explicitly creates (or returns) the conversation with a
// peer and notifies the peer.
func (g *Gateway) StartConversation(ctx context.Context, client *Client, req domain.StartConversationRequest) error {
	conversation, err := g.convUC.Create(ctx, client.UserID, req.ParticipantID)
	if err != nil {
		return err
	}

	client.Send(domain.OutboundEvent{Event: domain.EventConversationCreated, Payload: conversation})

	_, err = g.deliverToUser(ctx, req.ParticipantID, domain.EventNewConversation, conversation, conversation.ID, true)
	return err
}
