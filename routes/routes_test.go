package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/situ-28/p2p-video/shared"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *fiber.App {
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

	app := fiber.New()
	Setup(app, &shared.State{Database: db, Environment: shared.EnvDevelopment})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	var env envelope
	if resp.StatusCode != shared.StatusNoContent {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("failed to read response body: %v", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("response %s is not an envelope: %v", raw, err)
			}
		}
	}
	resp.Body.Close()

	return resp, env
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "GET", "/health", nil)
	if resp.StatusCode != shared.StatusOK {
		t.Fatalf("GET /health returned %d", resp.StatusCode)
	}
}

func TestRendezvousFlow(t *testing.T) {
	app := newTestApp(t)

	// create a room
	resp, env := doJSON(t, app, "POST", "/api/rooms", nil)
	if resp.StatusCode != shared.StatusOK {
		t.Fatalf("POST /api/rooms returned %d", resp.StatusCode)
	}
	var created struct {
		Room shared.Room `json:"room"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	code := created.Room.Code
	if code == "" {
		t.Fatal("created room has no code")
	}

	// lookup is case-insensitive
	resp, _ = doJSON(t, app, "GET", "/api/rooms/"+strings.ToLower(code), nil)
	if resp.StatusCode != shared.StatusOK {
		t.Fatalf("GET room with lowercase code returned %d", resp.StatusCode)
	}

	// first joiner waits
	resp, env = doJSON(t, app, "POST", "/api/rooms/"+code+"/join",
		map[string]string{"userId": "alice", "displayName": "Alice"})
	if resp.StatusCode != shared.StatusOK {
		t.Fatalf("join by alice returned %d", resp.StatusCode)
	}
	var joined struct {
		Role  string               `json:"role"`
		Users []shared.Participant `json:"users"`
	}
	if err := json.Unmarshal(env.Data, &joined); err != nil {
		t.Fatalf("failed to decode join response: %v", err)
	}
	if joined.Role != shared.RoleWaiting {
		t.Errorf("alice got role %q, want %q", joined.Role, shared.RoleWaiting)
	}

	// second joiner completes the pair, "bob" > "alice" answers
	resp, env = doJSON(t, app, "POST", "/api/rooms/"+code+"/join",
		map[string]string{"userId": "bob", "displayName": "Bob"})
	if resp.StatusCode != shared.StatusOK {
		t.Fatalf("join by bob returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, &joined); err != nil {
		t.Fatalf("failed to decode join response: %v", err)
	}
	if joined.Role != shared.RoleCallee {
		t.Errorf("bob got role %q, want %q", joined.Role, shared.RoleCallee)
	}
	if len(joined.Users) != 2 {
		t.Errorf("join returned %d users, want 2", len(joined.Users))
	}

	// a third joiner bounces
	resp, _ = doJSON(t, app, "POST", "/api/rooms/"+code+"/join",
		map[string]string{"userId": "carol", "displayName": "Carol"})
	if resp.StatusCode != shared.StatusConflict {
		t.Errorf("join by carol returned %d, want %d", resp.StatusCode, shared.StatusConflict)
	}

	// relay an offer and fetch it
	resp, _ = doJSON(t, app, "POST", "/api/rooms/"+code+"/signal",
		map[string]interface{}{
			"type":    shared.SignalOffer,
			"from":    "alice",
			"to":      "bob",
			"payload": map[string]string{"sdp": "v=0"},
		})
	if resp.StatusCode != shared.StatusNoContent {
		t.Fatalf("signal send returned %d", resp.StatusCode)
	}

	resp, env = doJSON(t, app, "GET",
		fmt.Sprintf("/api/rooms/%s/events?userId=bob&since=0", code), nil)
	if resp.StatusCode != shared.StatusOK {
		t.Fatalf("poll returned %d", resp.StatusCode)
	}
	var polled struct {
		Now    int64                `json:"now"`
		Events []shared.SignalEvent `json:"events"`
	}
	if err := json.Unmarshal(env.Data, &polled); err != nil {
		t.Fatalf("failed to decode poll response: %v", err)
	}
	if len(polled.Events) != 1 || polled.Events[0].Type != shared.SignalOffer {
		t.Fatalf("poll returned %+v, want one offer", polled.Events)
	}
	if polled.Now == 0 {
		t.Error("poll returned a zero now cursor")
	}

	// heartbeat and leave never fail
	resp, _ = doJSON(t, app, "POST", "/api/rooms/"+code+"/heartbeat",
		map[string]string{"userId": "bob"})
	if resp.StatusCode != shared.StatusNoContent {
		t.Errorf("heartbeat returned %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, "DELETE", "/api/rooms/"+code+"/join",
		map[string]string{"userId": "bob"})
	if resp.StatusCode != shared.StatusNoContent {
		t.Errorf("leave returned %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, "DELETE", "/api/rooms/"+code+"/join",
		map[string]string{"userId": "bob"})
	if resp.StatusCode != shared.StatusNoContent {
		t.Errorf("repeated leave returned %d", resp.StatusCode)
	}
}

func TestRoomNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "GET", "/api/rooms/NOSUCH", nil)
	if resp.StatusCode != shared.StatusNotFound {
		t.Errorf("GET of unknown room returned %d, want %d", resp.StatusCode, shared.StatusNotFound)
	}

	resp, _ = doJSON(t, app, "POST", "/api/rooms/NOSUCH/join",
		map[string]string{"userId": "alice", "displayName": "Alice"})
	if resp.StatusCode != shared.StatusNotFound {
		t.Errorf("join of unknown room returned %d, want %d", resp.StatusCode, shared.StatusNotFound)
	}
}

func TestSignalValidationOverHTTP(t *testing.T) {
	app := newTestApp(t)

	resp, env := doJSON(t, app, "POST", "/api/rooms", nil)
	if resp.StatusCode != shared.StatusOK {
		t.Fatalf("POST /api/rooms returned %d", resp.StatusCode)
	}
	var created struct {
		Room shared.Room `json:"room"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}

	resp, _ = doJSON(t, app, "POST", "/api/rooms/"+created.Room.Code+"/signal",
		map[string]string{"from": "alice"})
	if resp.StatusCode != shared.StatusBadRequest {
		t.Errorf("signal without type returned %d, want %d", resp.StatusCode, shared.StatusBadRequest)
	}

	resp, _ = doJSON(t, app, "GET", "/api/rooms/"+created.Room.Code+"/events?since=0", nil)
	if resp.StatusCode != shared.StatusBadRequest {
		t.Errorf("poll without userId returned %d, want %d", resp.StatusCode, shared.StatusBadRequest)
	}
}
