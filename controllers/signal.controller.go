package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/situ-28/p2p-video/services"
	"github.com/situ-28/p2p-video/shared"

	"github.com/gofiber/fiber/v2"
)

type SignalController struct {
	signalService *services.SignalService
}

func NewSignalController(state *shared.State) *SignalController {
	signalService := services.NewSignalService(state)
	go signalService.Bootstrap()
	return &SignalController{
		signalService,
	}
}

type sendRequest struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	To      *string         `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

func (sc *SignalController) Send(c *fiber.Ctx) error {
	var request sendRequest
	if err := c.BodyParser(&request); err != nil {
		return sendError(c, shared.ErrInvalidSignal, "")
	}

	err := sc.signalService.Send(
		c.Params("code"),
		request.Type,
		request.From,
		request.To,
		request.Payload,
	)
	if err != nil {
		return sendError(c, err, "failed to store signal")
	}

	return shared.SendStandardResponse(c, shared.StatusNoContent, nil, "")
}

func (sc *SignalController) Poll(c *fiber.Ctx) error {
	userId := c.Query("userId")
	if userId == "" {
		return sendError(c, shared.ErrMissingUserId, "")
	}
	since, _ := strconv.ParseInt(c.Query("since", "0"), 10, 64)

	// fasthttp only closes its Done() channel on server shutdown, so an
	// abandoned poll has to be noticed by watching the connection itself
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if conn := c.Context().Conn(); conn != nil {
		go watchDisconnect(ctx, cancel, conn, shared.PollTick)
	}

	result, err := sc.signalService.Poll(ctx, c.Params("code"), userId, since)
	if err != nil {
		// the client hung up mid-wait, nobody is reading this response
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return sendError(c, err, "failed to poll signals")
	}

	return shared.SendStandardResponse(
		c,
		shared.StatusOK,
		&map[string]interface{}{
			"now":    result.Now,
			"events": result.Events,
		},
		"signals fetched successfully",
	)
}

// watchDisconnect cancels ctx once the client behind conn goes away.
// The probe is a one-byte read under a short deadline: a long-poll
// client sends nothing after its request, so a timeout means the peer
// is still there and a closed or reset connection fails the read.
func watchDisconnect(ctx context.Context, cancel context.CancelFunc, conn net.Conn, interval time.Duration) {
	buffer := make([]byte, 1)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		conn.SetReadDeadline(time.Now().Add(time.Millisecond))
		_, err := conn.Read(buffer)
		conn.SetReadDeadline(time.Time{})

		var netErr net.Error
		if err == nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			continue
		}

		cancel()
		return
	}
}
