package shared

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type State struct {
	Database    *gorm.DB
	Environment string
}

type Room struct {
	Code      string    `json:"code"      gorm:"column:code;primaryKey"`
	Status    string    `json:"status"    gorm:"column:status"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
}

func (Room) TableName() string {
	return "rooms"
}

type Participant struct {
	Id          uint64    `json:"-"           gorm:"column:id;primaryKey"`
	RoomCode    string    `json:"-"           gorm:"column:room_code;uniqueIndex:idx_participants_room_user"`
	UserId      string    `json:"userId"      gorm:"column:user_id;uniqueIndex:idx_participants_room_user"`
	DisplayName string    `json:"displayName" gorm:"column:display_name"`
	JoinedAt    time.Time `json:"joinedAt"    gorm:"column:joined_at"`
	LastActive  time.Time `json:"lastActive"  gorm:"column:last_active"`
}

func (Participant) TableName() string {
	return "participants"
}

// SignalEvent carries one unit of negotiation data between participants.
// Payload is opaque to the relay, it is stored and forwarded untouched.
// Recipient is nil for broadcast to everyone in the room but the sender.
type SignalEvent struct {
	Id        uint64          `json:"-"         gorm:"column:id;primaryKey"`
	RoomCode  string          `json:"-"         gorm:"column:room_code;index:idx_signal_events_room_created"`
	Type      string          `json:"type"      gorm:"column:type"`
	From      string          `json:"from"      gorm:"column:sender"`
	To        *string         `json:"to"        gorm:"column:recipient"`
	Payload   json.RawMessage `json:"payload"   gorm:"column:payload"`
	CreatedAt time.Time       `json:"createdAt" gorm:"column:created_at;index:idx_signal_events_room_created;index:idx_signal_events_created"`
}

func (SignalEvent) TableName() string {
	return "signal_events"
}

// SignalDelivery is one row of an event's delivered-to set. The set only
// ever grows; rows disappear together with the parent event.
type SignalDelivery struct {
	EventId uint64 `gorm:"column:event_id;primaryKey"`
	UserId  string `gorm:"column:user_id;primaryKey"`
}

func (SignalDelivery) TableName() string {
	return "signal_deliveries"
}

// PollResult is the long-poll response. Now is server time in Unix
// milliseconds and must be passed back as the next poll's since cursor.
type PollResult struct {
	Now    int64         `json:"now"`
	Events []SignalEvent `json:"events"`
}
