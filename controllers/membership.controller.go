package controllers

import (
	"github.com/situ-28/p2p-video/services"
	"github.com/situ-28/p2p-video/shared"

	"github.com/gofiber/fiber/v2"
)

type MembershipController struct {
	membershipService *services.MembershipService
}

func NewMembershipController(state *shared.State) *MembershipController {
	membershipService := services.NewMembershipService(state)
	return &MembershipController{
		membershipService,
	}
}

type joinRequest struct {
	UserId      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func (mc *MembershipController) Join(c *fiber.Ctx) error {
	var request joinRequest
	if err := c.BodyParser(&request); err != nil || request.UserId == "" {
		return sendError(c, shared.ErrMissingUserId, "")
	}

	role, participants, err := mc.membershipService.Join(
		c.Params("code"),
		request.UserId,
		request.DisplayName,
	)
	if err != nil {
		return sendError(c, err, "failed to join room")
	}

	return shared.SendStandardResponse(
		c,
		shared.StatusOK,
		&map[string]interface{}{
			"role":  role,
			"users": participants,
		},
		"joined room successfully",
	)
}

type leaveRequest struct {
	UserId string `json:"userId"`
}

func (mc *MembershipController) Leave(c *fiber.Ctx) error {
	var request leaveRequest
	if err := c.BodyParser(&request); err != nil || request.UserId == "" {
		return sendError(c, shared.ErrMissingUserId, "")
	}

	if err := mc.membershipService.Leave(c.Params("code"), request.UserId); err != nil {
		return sendError(c, err, "failed to leave room")
	}

	return shared.SendStandardResponse(c, shared.StatusNoContent, nil, "")
}

func (mc *MembershipController) Heartbeat(c *fiber.Ctx) error {
	var request leaveRequest
	if err := c.BodyParser(&request); err != nil || request.UserId == "" {
		return sendError(c, shared.ErrMissingUserId, "")
	}

	if err := mc.membershipService.Heartbeat(c.Params("code"), request.UserId); err != nil {
		return sendError(c, err, "failed to refresh heartbeat")
	}

	return shared.SendStandardResponse(c, shared.StatusNoContent, nil, "")
}
