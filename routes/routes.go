package routes

import (
	"github.com/situ-28/p2p-video/controllers"
	"github.com/situ-28/p2p-video/shared"

	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, state *shared.State) {
	app.Use(shared.GetRequestLoggingMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(200).JSON(fiber.Map{
			"message": "p2p-video is alive",
		})
	})

	roomController := controllers.NewRoomController(state)
	membershipController := controllers.NewMembershipController(state)
	signalController := controllers.NewSignalController(state)

	api := app.Group("/api")
	api.Post("/rooms", roomController.CreateRoom)
	api.Get("/rooms/:code", roomController.GetRoom)
	api.Post("/rooms/:code/join", membershipController.Join)
	api.Delete("/rooms/:code/join", membershipController.Leave)
	api.Post("/rooms/:code/heartbeat", membershipController.Heartbeat)
	api.Post("/rooms/:code/signal", signalController.Send)
	api.Get("/rooms/:code/events", signalController.Poll)
}
