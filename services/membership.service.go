package services

import (
	"errors"
	"time"

	"github.com/situ-28/p2p-video/logger"
	"github.com/situ-28/p2p-video/shared"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MembershipService struct {
	state *shared.State
}

func NewMembershipService(state *shared.State) *MembershipService {
	return &MembershipService{
		state: state,
	}
}

// Join admits a participant into a room and derives their negotiation
// role. Joining is idempotent for a userId that is already a member: the
// upsert refreshes lastActive instead of adding a row.
//
// The capacity check runs twice. The pre-check rejects the common case
// cheaply; because two joiners can race past it, the participant set is
// re-read after the upsert and a row that arrived third (by insertion
// id) removes itself and reports the room full. The unique index on
// (room_code, user_id) keeps a reconnect from ever counting twice.
func (membershipService *MembershipService) Join(
	code string,
	userId string,
	displayName string,
) (string, []shared.Participant, error) {
	code = shared.NormalizeRoomCode(code)

	var room shared.Room
	result := membershipService.state.Database.First(&room, "code = ?", code)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil, shared.ErrRoomNotFound
		}
		logger.Error("failed to fetch room %s: %v", code, result.Error)
		return "", nil, result.Error
	}

	existing, err := membershipService.listParticipants(code)
	if err != nil {
		return "", nil, err
	}
	if len(existing) >= shared.MaxParticipants && !containsUser(existing, userId) {
		return "", nil, shared.ErrRoomFull
	}

	now := time.Now()
	participant := &shared.Participant{
		RoomCode:    code,
		UserId:      userId,
		DisplayName: displayName,
		JoinedAt:    now,
		LastActive:  now,
	}
	result = membershipService.state.Database.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_code"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"display_name": displayName,
			"last_active":  now,
		}),
	}).Create(participant)
	if result.Error != nil {
		logger.Error("failed to upsert participant %s in room %s: %v", userId, code, result.Error)
		return "", nil, result.Error
	}

	participants, err := membershipService.listParticipants(code)
	if err != nil {
		return "", nil, err
	}

	// close the join race: whoever lost the insertion-order tie backs out
	if len(participants) > shared.MaxParticipants {
		admitted := participants[:shared.MaxParticipants]
		if !containsUser(admitted, userId) {
			result = membershipService.state.Database.
				Where("room_code = ? AND user_id = ?", code, userId).
				Delete(&shared.Participant{})
			if result.Error != nil {
				logger.Error("failed to back %s out of over-capacity room %s: %v", userId, code, result.Error)
				return "", nil, result.Error
			}
			return "", nil, shared.ErrRoomFull
		}
		participants = admitted
	}

	if len(participants) == shared.MaxParticipants && room.Status == shared.RoomStatusWaiting {
		result = membershipService.state.Database.Model(&shared.Room{}).
			Where("code = ?", code).
			Update("status", shared.RoomStatusActive)
		if result.Error != nil {
			logger.Error("failed to mark room %s active: %v", code, result.Error)
		}
	}

	return assignRole(userId, participants), participants, nil
}

// Leave removes the participant. Absent records are treated as already
// removed, so Leave can be fired blindly on teardown.
func (membershipService *MembershipService) Leave(code string, userId string) error {
	code = shared.NormalizeRoomCode(code)

	result := membershipService.state.Database.
		Where("room_code = ? AND user_id = ?", code, userId).
		Delete(&shared.Participant{})
	if result.Error != nil {
		logger.Error("failed to delete participant %s in room %s: %v", userId, code, result.Error)
		return result.Error
	}

	if result.RowsAffected > 0 {
		update := membershipService.state.Database.Model(&shared.Room{}).
			Where("code = ? AND status = ?", code, shared.RoomStatusActive).
			Update("status", shared.RoomStatusEnded)
		if update.Error != nil {
			logger.Error("failed to mark room %s ended: %v", code, update.Error)
		}
	}

	return nil
}

// Heartbeat refreshes lastActive. A ping for a participant that already
// left matches nothing and succeeds anyway.
func (membershipService *MembershipService) Heartbeat(code string, userId string) error {
	code = shared.NormalizeRoomCode(code)

	result := membershipService.state.Database.Model(&shared.Participant{}).
		Where("room_code = ? AND user_id = ?", code, userId).
		Update("last_active", time.Now())
	if result.Error != nil {
		logger.Error("failed to refresh heartbeat of %s in room %s: %v", userId, code, result.Error)
		return result.Error
	}

	return nil
}

func (membershipService *MembershipService) listParticipants(code string) ([]shared.Participant, error) {
	var participants []shared.Participant
	result := membershipService.state.Database.
		Where("room_code = ?", code).
		Order("id ASC").
		Find(&participants)
	if result.Error != nil {
		logger.Error("failed to fetch participants of room %s: %v", code, result.Error)
		return nil, result.Error
	}
	return participants, nil
}

// assignRole derives the caller/callee split without coordination: both
// sides compare the same two userIds and reach the same answer, so
// neither can start an offer while believing the other one will.
func assignRole(userId string, participants []shared.Participant) string {
	for _, p := range participants {
		if p.UserId == userId {
			continue
		}
		if userId > p.UserId {
			return shared.RoleCallee
		}
		return shared.RoleCaller
	}
	return shared.RoleWaiting
}

func containsUser(participants []shared.Participant, userId string) bool {
	for _, p := range participants {
		if p.UserId == userId {
			return true
		}
	}
	return false
}
