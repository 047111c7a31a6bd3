package shared

import "time"

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// HTTP Status Codes
const (
	StatusOK                  = 200
	StatusNoContent           = 204
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusNotFound            = 404
	StatusConflict            = 409
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
)

// Room statuses (advisory)
const (
	RoomStatusWaiting = "waiting"
	RoomStatusActive  = "active"
	RoomStatusEnded   = "ended"
)

// Negotiation roles. Roles are derived, never stored: with one
// participant the joiner waits, with two the lexicographically greater
// userId answers and the lesser initiates the offer.
const (
	RoleWaiting = "waiting"
	RoleCaller  = "caller"
	RoleCallee  = "callee"
)

// Signal event types
const (
	SignalReady     = "ready"
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
	SignalBye       = "bye"
)

// Room codes: uppercase, no 0/O/1/I to keep them readable over voice.
const (
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLength   = 6
	RoomCodeAttempts = 5
)

// A room never holds more than two participants.
const MaxParticipants = 2

// Relay tunables
const (
	PollTimeout     = 25 * time.Second
	PollTick        = 800 * time.Millisecond
	PollBatchSize   = 25
	SignalRetention = 6 * time.Hour
	SweepInterval   = 10 * time.Minute
)
