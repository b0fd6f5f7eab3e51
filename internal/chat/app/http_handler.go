package app

import (
	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/apperr"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"
	"realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler serves the REST side of the chat service: conversation
// listing, message history, block management and presence lookup. Real-time
// traffic stays on the websocket.
type ChatHTTPHandler struct {
	convUC   *ConversationUseCase
	msgUC    *MessageUseCase
	presence repository.PresenceRepository
	verifier token.Verifier
	gateway  *Gateway
}

// NewChatHTTPHandler create a ChatHTTPHandler. The gateway carries read
// receipts triggered by history fetches to the author side.
func NewChatHTTPHandler(convUC *ConversationUseCase, msgUC *MessageUseCase, presence repository.PresenceRepository, verifier token.Verifier, gateway *Gateway) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		convUC:   convUC,
		msgUC:    msgUC,
		presence: presence,
		verifier: verifier,
		gateway:  gateway,
	}
}

// callerID resolves the authenticated user from the bearer token stashed by
// the middleware. Empty string means the request was rejected already.
func (h *ChatHTTPHandler) callerID(c *fiber.Ctx) (string, error) {
	tokenStr, _ := c.Locals(middlewares.LocalToken).(string)
	if tokenStr == "" {
		return "", apperr.Unauthorized("authentication token not provided")
	}
	userID, err := h.verifier.Verify(tokenStr)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnauthorized, "invalid authentication token", err)
	}
	return userID, nil
}

func httpStatus(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.CodeValidation:
		return fiber.StatusBadRequest
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func (h *ChatHTTPHandler) fail(c *fiber.Ctx, err error) error {
	logger.Log.Warn("http handler err", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(httpStatus(err)).JSON(fiber.Map{"error": apperr.SafeMessage(err)})
}

// ListConversations pages the caller's conversations newest-activity first.
func (h *ChatHTTPHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	skip := int64(c.QueryInt("skip", 0))
	limit := int64(c.QueryInt("limit", 10))
	includeArchived := c.QueryBool("includeArchived", false)

	summaries, total, err := h.convUC.FindUserConversations(c.Context(), userID, skip, limit, includeArchived)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"conversations": summaries, "total": total})
}

// StartConversation creates (or returns) the conversation with a peer.
func (h *ChatHTTPHandler) StartConversation(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	type request struct {
		ParticipantID string `json:"participantId"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	conversation, err := h.convUC.Create(c.Context(), userID, req.ParticipantID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(conversation)
}

// ListMessages returns a chronological page of a conversation's messages.
// Fetching the page counts as reading it: messages authored by the other
// participant are marked read and the author side is notified, same as an
// explicit read receipt.
func (h *ChatHTTPHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	conversation, err := h.convUC.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if !conversation.HasParticipant(userID) {
		return h.fail(c, apperr.Validation("not a conversation participant"))
	}

	skip := int64(c.QueryInt("skip", 0))
	limit := int64(c.QueryInt("limit", 20))

	messages, err := h.msgUC.FindForConversation(c.Context(), conversation.ID, skip, limit)
	if err != nil {
		return h.fail(c, err)
	}

	unreadIdx := make(map[string]int)
	ids := []string{}
	for i, message := range messages {
		if message.SenderID != userID && message.Status != domain.MessageStatusRead {
			unreadIdx[message.ID] = i
			ids = append(ids, message.ID)
		}
	}
	if len(ids) > 0 {
		if _, err := h.gateway.markConversationRead(c.Context(), conversation, userID, ids); err != nil {
			return h.fail(c, err)
		}
		for _, i := range unreadIdx {
			messages[i].Status = domain.MessageStatusRead
		}
	}

	return c.JSON(fiber.Map{"messages": messages})
}

// BlockStatus reports the block view from the caller's perspective.
func (h *ChatHTTPHandler) BlockStatus(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	status, err := h.convUC.GetBlockStatus(c.Context(), c.Params("id"), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(status)
}

// Block adds the caller to the conversation's block set.
func (h *ChatHTTPHandler) Block(c *fiber.Ctx) error {
	return h.setBlocked(c, true)
}

// Unblock removes the caller from the conversation's block set.
func (h *ChatHTTPHandler) Unblock(c *fiber.Ctx) error {
	return h.setBlocked(c, false)
}

func (h *ChatHTTPHandler) setBlocked(c *fiber.Ctx, blocked bool) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	type request struct {
		TargetID string `json:"targetId"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	if blocked {
		err = h.convUC.BlockUser(c.Context(), c.Params("id"), userID, req.TargetID)
	} else {
		err = h.convUC.UnblockUser(c.Context(), c.Params("id"), userID, req.TargetID)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// Archive flags the conversation archived.
func (h *ChatHTTPHandler) Archive(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.convUC.Archive(c.Context(), c.Params("id"), userID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// React records an emoji reaction on a message.
func (h *ChatHTTPHandler) React(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	type request struct {
		Emoji string `json:"emoji"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	if err := h.msgUC.AddReaction(c.Context(), c.Params("id"), userID, req.Emoji); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// Edit replaces a message's content; author only.
func (h *ChatHTTPHandler) Edit(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	type request struct {
		Content domain.MessageContent `json:"content"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	if err := h.msgUC.EditContent(c.Context(), c.Params("id"), userID, req.Content); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// Delete soft-deletes a message; author only.
func (h *ChatHTTPHandler) Delete(c *fiber.Ctx) error {
	userID, err := h.callerID(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.msgUC.SoftDelete(c.Context(), c.Params("id"), userID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// Presence answers a one-shot presence lookup for a user.
func (h *ChatHTTPHandler) Presence(c *fiber.Ctx) error {
	if _, err := h.callerID(c); err != nil {
		return h.fail(c, err)
	}

	record, err := h.presence.GetPresence(c.Context(), c.Params("userID"))
	if err != nil {
		return h.fail(c, apperr.Store("presence lookup failed", err))
	}
	if record == nil {
		return c.JSON(fiber.Map{"userId": c.Params("userID"), "status": domain.StatusOffline})
	}
	return c.JSON(fiber.Map{"userId": record.UserID, "status": domain.StatusOnline})
}
