package services

import (
	"errors"
	"time"

	"github.com/situ-28/p2p-video/logger"
	"github.com/situ-28/p2p-video/shared"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

type RoomService struct {
	state *shared.State
}

func NewRoomService(state *shared.State) *RoomService {
	return &RoomService{
		state: state,
	}
}

// Create generates a room code and inserts the room. A collision with an
// existing code is retried with a fresh code a bounded number of times
// rather than assumed impossible.
func (roomService *RoomService) Create() (*shared.Room, error) {
	for attempt := 0; attempt < shared.RoomCodeAttempts; attempt++ {
		code, err := gonanoid.Generate(shared.RoomCodeAlphabet, shared.RoomCodeLength)
		if err != nil {
			logger.Error("failed to generate room code: %v", err)
			return nil, err
		}

		room := &shared.Room{
			Code:      code,
			Status:    shared.RoomStatusWaiting,
			CreatedAt: time.Now(),
		}

		result := roomService.state.Database.Create(room)
		if result.Error == nil {
			return room, nil
		}
		if !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			logger.Error("failed to create room in database: %v", result.Error)
			return nil, result.Error
		}
		logger.Warn("room code %s already taken, retrying", code)
	}

	return nil, shared.ErrCodesExhausted
}

// Get looks a room up by code, case-insensitively, together with its
// current participants.
func (roomService *RoomService) Get(code string) (*shared.Room, []shared.Participant, error) {
	code = shared.NormalizeRoomCode(code)

	var room shared.Room
	result := roomService.state.Database.First(&room, "code = ?", code)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil, shared.ErrRoomNotFound
		}
		logger.Error("failed to fetch room %s: %v", code, result.Error)
		return nil, nil, result.Error
	}

	var participants []shared.Participant
	result = roomService.state.Database.
		Where("room_code = ?", code).
		Order("id ASC").
		Find(&participants)
	if result.Error != nil {
		logger.Error("failed to fetch participants of room %s: %v", code, result.Error)
		return nil, nil, result.Error
	}

	return &room, participants, nil
}
