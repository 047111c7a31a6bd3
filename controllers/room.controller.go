package controllers

import (
	"errors"

	"github.com/situ-28/p2p-video/services"
	"github.com/situ-28/p2p-video/shared"

	"github.com/gofiber/fiber/v2"
)

type RoomController struct {
	roomService *services.RoomService
}

func NewRoomController(state *shared.State) *RoomController {
	roomService := services.NewRoomService(state)
	return &RoomController{
		roomService,
	}
}

func (rc *RoomController) CreateRoom(c *fiber.Ctx) error {
	room, err := rc.roomService.Create()
	if err != nil {
		return sendError(c, err, "failed to create room")
	}

	return shared.SendStandardResponse(
		c,
		shared.StatusOK,
		&map[string]interface{}{
			"room": room,
		},
		"room created successfully",
	)
}

func (rc *RoomController) GetRoom(c *fiber.Ctx) error {
	room, participants, err := rc.roomService.Get(c.Params("code"))
	if err != nil {
		return sendError(c, err, "failed to fetch room")
	}

	return shared.SendStandardResponse(
		c,
		shared.StatusOK,
		&map[string]interface{}{
			"room":  room,
			"users": participants,
		},
		"room fetched successfully",
	)
}

// sendError translates service errors into the standard response. Client
// errors keep their status and message, everything else is a 500.
func sendError(c *fiber.Ctx, err error, fallback string) error {
	var clientError *shared.ClientError
	if errors.As(err, &clientError) {
		return shared.SendStandardResponse(
			c,
			clientError.Status(),
			nil,
			clientError.Message(),
		)
	}

	return shared.SendStandardResponse(
		c,
		shared.StatusInternalServerError,
		nil,
		fallback,
	)
}
