package services

import (
	"testing"

	"github.com/situ-28/p2p-video/shared"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestState opens an in-memory sqlite store with the same schema as
// the postgres migrations. The pool is pinned to one connection because
// every sqlite connection gets its own :memory: database.
func newTestState(t *testing.T) *shared.State {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	connection, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sqlite connection: %v", err)
	}
	connection.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&shared.Room{},
		&shared.Participant{},
		&shared.SignalEvent{},
		&shared.SignalDelivery{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return &shared.State{
		Database:    db,
		Environment: shared.EnvDevelopment,
	}
}

// newTestRoom creates a room and returns its code.
func newTestRoom(t *testing.T, state *shared.State) string {
	t.Helper()

	room, err := NewRoomService(state).Create()
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return room.Code
}
