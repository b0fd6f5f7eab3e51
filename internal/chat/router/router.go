package router

import (
	"context"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wires the websocket entrypoint and the REST side. The bearer
// token is lifted off the request here; verification happens inside the
// gateway and handlers so a bad token closes the socket instead of failing
// the HTTP upgrade.
func RegisterRoutes(r *fiber.App, gateway *app.Gateway, httpHandler *app.ChatHTTPHandler) {
	r.Use(middlewares.BearerMiddleware())

	r.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		gateway.HandleConnection(context.Background(), c)
	}))

	r.Get("/conversations", httpHandler.ListConversations)
	r.Post("/conversations", httpHandler.StartConversation)
	r.Get("/conversations/:id/messages", httpHandler.ListMessages)
	r.Get("/conversations/:id/block-status", httpHandler.BlockStatus)
	r.Post("/conversations/:id/block", httpHandler.Block)
	r.Post("/conversations/:id/unblock", httpHandler.Unblock)
	r.Post("/conversations/:id/archive", httpHandler.Archive)

	r.Post("/messages/:id/reactions", httpHandler.React)
	r.Patch("/messages/:id", httpHandler.Edit)
	r.Delete("/messages/:id", httpHandler.Delete)

	r.Get("/presence/:userID", httpHandler.Presence)
}
