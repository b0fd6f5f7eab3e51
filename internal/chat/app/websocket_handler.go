package app

import (
	"context"
	"encoding/json"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/apperr"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// HandleConnection owns one websocket connection end to end: handshake
// authentication, the connection flow, the single writer goroutine and the
// read-dispatch loop. Returns only when the connection is gone.
func (g *Gateway) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenStr, _ := conn.Locals(middlewares.LocalToken).(string)

	userID, err := g.Authenticate(tokenStr)
	if err != nil {
		logger.Log.Warn("websocket auth rejected", zap.Error(err))
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, apperr.SafeMessage(err))
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	client := NewClient(userID)

	writerDone := make(chan struct{})
	go g.writeLoop(conn, client, writerDone)

	defer func() {
		g.Disconnect(ctx, client)
		client.Close()
		conn.Close()
		<-writerDone
		logger.Log.Info("websocket disconnected", zap.String("userID", userID), zap.String("connectionID", client.ConnectionID))
	}()

	if err := g.Connect(ctx, client); err != nil {
		logger.Log.Error("websocket connect flow failed", zap.String("userID", userID), zap.Error(err))
		return
	}
	logger.Log.Info("websocket connected", zap.String("userID", userID), zap.String("connectionID", client.ConnectionID))

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Log.Warn("websocket read err", zap.String("userID", userID), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		g.dispatch(ctx, client, raw)
	}
}

// writeLoop is the connection's only writer. It serializes outbound events
// into text frames and keeps the connection alive with pings. Every exit
// path closes the client so senders see a dead connection immediately.
func (g *Gateway) writeLoop(conn *websocket.Conn, client *Client, done chan<- struct{}) {
	defer close(done)
	defer client.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.Outbound():
			if !ok {
				return
			}
			frame, err := json.Marshal(event)
			if err != nil {
				logger.Log.Error("outbound encode err", zap.String("userID", client.UserID), zap.Error(err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Log.Warn("websocket write err", zap.String("userID", client.UserID), zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.Done():
			return
		}
	}
}

// dispatch decodes one inbound frame and routes it to its handler. Handler
// failures are reported back on the same connection; store details never
// reach the client.
func (g *Gateway) dispatch(ctx context.Context, client *Client, raw []byte) {
	var envelope domain.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		g.sendError(client, apperr.Validation("malformed event frame"))
		return
	}

	var err error
	switch envelope.Event {
	case domain.EventSendMessage:
		var req domain.SendMessageRequest
		if err = decodePayload(envelope.Payload, &req); err == nil {
			err = g.SendMessage(ctx, client, req)
		}
	case domain.EventUserTyping:
		var req domain.TypingRequest
		if err = decodePayload(envelope.Payload, &req); err == nil {
			err = g.Typing(ctx, client, req, true)
		}
	case domain.EventUserStopTyping:
		var req domain.TypingRequest
		if err = decodePayload(envelope.Payload, &req); err == nil {
			err = g.Typing(ctx, client, req, false)
		}
	case domain.EventReadConversation:
		var req domain.ReadConversationRequest
		if err = decodePayload(envelope.Payload, &req); err == nil {
			err = g.ReadConversation(ctx, client, req)
		}
	case domain.EventUserStatusCheck:
		var req domain.StatusCheckRequest
		if err = decodePayload(envelope.Payload, &req); err == nil {
			err = g.StatusCheck(ctx, client, req)
		}
	case domain.EventStartConversation:
		var req domain.StartConversationRequest
		if err = decodePayload(envelope.Payload, &req); err == nil {
			err = g.StartConversation(ctx, client, req)
		}
	default:
		err = apperr.Newf(apperr.CodeValidation, "unknown event %q", envelope.Event)
	}

	if err != nil {
		logger.Log.Warn("event handler err",
			zap.String("userID", client.UserID),
			zap.String("event", string(envelope.Event)),
			zap.Error(err))
		g.sendError(client, err)
	}
}

func decodePayload(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return apperr.Validation("event payload required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.CodeValidation, "malformed event payload", err)
	}
	return nil
}

func (g *Gateway) sendError(client *Client, err error) {
	client.Send(domain.OutboundEvent{Event: domain.EventError, Payload: domain.ErrorPayload{
		Message: apperr.SafeMessage(err),
	}})
}
