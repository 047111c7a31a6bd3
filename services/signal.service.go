package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/situ-28/p2p-video/logger"
	"github.com/situ-28/p2p-video/shared"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var validSignalTypes = map[string]bool{
	shared.SignalReady:     true,
	shared.SignalOffer:     true,
	shared.SignalAnswer:    true,
	shared.SignalCandidate: true,
	shared.SignalBye:       true,
}

type SignalService struct {
	state *shared.State

	pollTimeout   time.Duration
	pollTick      time.Duration
	pollBatchSize int
	retention     time.Duration
	sweepInterval time.Duration
}

func NewSignalService(state *shared.State) *SignalService {
	return &SignalService{
		state:         state,
		pollTimeout:   shared.PollTimeout,
		pollTick:      shared.PollTick,
		pollBatchSize: shared.PollBatchSize,
		retention:     shared.SignalRetention,
		sweepInterval: shared.SweepInterval,
	}
}

// Send stores one signal event with an empty delivered-to set. Durable
// insertion is the only guarantee made here; delivery happens through
// Poll.
func (signalService *SignalService) Send(
	code string,
	signalType string,
	from string,
	to *string,
	payload json.RawMessage,
) error {
	if signalType == "" || from == "" {
		return shared.ErrInvalidSignal
	}
	if !validSignalTypes[signalType] {
		return shared.ErrUnknownSignalType
	}

	event := &shared.SignalEvent{
		RoomCode:  shared.NormalizeRoomCode(code),
		Type:      signalType,
		From:      from,
		To:        to,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	result := signalService.state.Database.Create(event)
	if result.Error != nil {
		logger.Error("failed to store signal event in room %s: %v", event.RoomCode, result.Error)
		return result.Error
	}

	return nil
}

// Poll is the long-poll primitive. It returns the next batch of events
// addressed to userId, blocking up to the poll timeout while none are
// pending. The since cursor is the Now value of the previous result in
// Unix milliseconds (0 on the first call); an older cursor only widens
// the scan, the delivered-to set still keeps every event at most once
// per recipient.
//
// Events are marked delivered in the same transaction that read them,
// so a batch handed out is never handed out again even if the response
// is lost on the wire.
func (signalService *SignalService) Poll(
	ctx context.Context,
	code string,
	userId string,
	since int64,
) (*shared.PollResult, error) {
	code = shared.NormalizeRoomCode(code)
	deadline := time.Now().Add(signalService.pollTimeout)

	for {
		events, err := signalService.fetchAndMark(code, userId, since)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			return &shared.PollResult{
				Now:    time.Now().UnixMilli(),
				Events: events,
			}, nil
		}

		if !time.Now().Before(deadline) {
			return &shared.PollResult{
				Now:    time.Now().UnixMilli(),
				Events: []shared.SignalEvent{},
			}, nil
		}

		// wait one tick, bail out as soon as the client goes away
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(signalService.pollTick):
		}
	}
}

// fetchAndMark selects the next eligible batch for userId and records
// the delivery inside one transaction. An event is eligible when it was
// created after the cursor, was not sent by userId, is addressed to
// userId or to the whole room, and has not been delivered to userId yet.
func (signalService *SignalService) fetchAndMark(
	code string,
	userId string,
	since int64,
) ([]shared.SignalEvent, error) {
	var events []shared.SignalEvent

	err := signalService.state.Database.Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("room_code = ? AND created_at > ? AND sender <> ?", code, time.UnixMilli(since), userId).
			Where("(recipient IS NULL OR recipient = ?)", userId).
			Where("NOT EXISTS (SELECT 1 FROM signal_deliveries d WHERE d.event_id = signal_events.id AND d.user_id = ?)", userId).
			Order("created_at ASC, id ASC").
			Limit(signalService.pollBatchSize).
			Find(&events)
		if result.Error != nil {
			return result.Error
		}
		if len(events) == 0 {
			return nil
		}

		deliveries := make([]shared.SignalDelivery, 0, len(events))
		for _, event := range events {
			deliveries = append(deliveries, shared.SignalDelivery{
				EventId: event.Id,
				UserId:  userId,
			})
		}

		// set-union: a concurrent poll by the same user inserts nothing
		result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&deliveries)
		return result.Error
	})
	if err != nil {
		logger.Error("failed to fetch signal events in room %s for %s: %v", code, userId, err)
		return nil, err
	}

	return events, nil
}

// Bootstrap runs the retention sweep for as long as the process lives.
// Undelivered events are purged like any other once they age out; the
// retention window caps storage, it is not a delivery guarantee.
func (signalService *SignalService) Bootstrap() {
	ticker := time.NewTicker(signalService.sweepInterval)
	defer ticker.Stop()

	for {
		signalService.sweepExpired()
		<-ticker.C
	}
}

func (signalService *SignalService) sweepExpired() {
	cutoff := time.Now().Add(-signalService.retention)

	result := signalService.state.Database.
		Where("event_id IN (SELECT id FROM signal_events WHERE created_at < ?)", cutoff).
		Delete(&shared.SignalDelivery{})
	if result.Error != nil {
		logger.Error("failed to sweep signal deliveries: %v", result.Error)
		return
	}

	result = signalService.state.Database.
		Where("created_at < ?", cutoff).
		Delete(&shared.SignalEvent{})
	if result.Error != nil {
		logger.Error("failed to sweep signal events: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		logger.Info("swept %d expired signal events", result.RowsAffected)
	}
}
