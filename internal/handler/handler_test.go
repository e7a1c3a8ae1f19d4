package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdmisri/mapfrens-backend/internal/app/hub"
	"github.com/mdmisri/mapfrens-backend/internal/configs"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/resp"
)

func newTestServer(t *testing.T) (*httptest.Server, *AppDeps) {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:           "development",
		Port:                  5000,
		BroadcastMode:         configs.BroadcastModeAll,
		ProximityRadiusMeters: configs.DefaultProximityRadiusMeters,
	}

	h := hub.NewHub(cfg)
	t.Cleanup(h.Shutdown)

	deps := &AppDeps{Hub: h, Config: cfg}
	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	return srv, deps
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) hub.Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}

	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	var env hub.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("decode frame %q: %v", frame, err)
	}
	return env
}

func getJSON(t *testing.T, url string) (int, resp.JSONResponse) {
	t.Helper()

	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()

	var body resp.JSONResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return res.StatusCode, body
}

func TestWebSocketPresenceFlow(t *testing.T) {
	srv, deps := newTestServer(t)

	conn := dialWS(t, srv)

	env := readEvent(t, conn)
	if env.Type != hub.EventUsersUpdate {
		t.Fatalf("first event = %q, want %q", env.Type, hub.EventUsersUpdate)
	}
	var users []json.RawMessage
	if err := json.Unmarshal(env.Payload, &users); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("initial snapshot has %d records, want 0", len(users))
	}

	update := map[string]any{
		"type": "location_update",
		"payload": map[string]any{
			"latitude":  12.5,
			"longitude": 55.1,
		},
	}
	if err := conn.WriteJSON(update); err != nil {
		t.Fatalf("write location_update: %v", err)
	}

	env = readEvent(t, conn)
	if env.Type != hub.EventUsersUpdate {
		t.Fatalf("event after update = %q, want %q", env.Type, hub.EventUsersUpdate)
	}
	var located []struct {
		ID        string   `json:"id"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(env.Payload, &located); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if len(located) != 1 || located[0].Latitude == nil || *located[0].Latitude != 12.5 {
		t.Fatalf("unexpected broadcast payload: %s", env.Payload)
	}

	if count := deps.Hub.ConnectionCount(); count != 1 {
		t.Fatalf("connection count = %d, want 1", count)
	}
}

func TestReplacedConnectionReceivesCloseCode(t *testing.T) {
	srv, _ := newTestServer(t)

	claim := map[string]any{
		"type": "location",
		"payload": map[string]any{
			"id":        "alice",
			"latitude":  12.5,
			"longitude": 55.1,
		},
	}

	first := dialWS(t, srv)
	readEvent(t, first) // initial snapshot
	if err := first.WriteJSON(claim); err != nil {
		t.Fatalf("write location: %v", err)
	}
	readEvent(t, first) // broadcast after the fix

	second := dialWS(t, srv)
	readEvent(t, second) // initial snapshot
	if err := second.WriteJSON(claim); err != nil {
		t.Fatalf("write location: %v", err)
	}

	if err := first.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	for {
		_, _, err := first.ReadMessage()
		if err == nil {
			continue // drain frames queued before the close
		}
		if !websocket.IsCloseError(err, hub.WsCloseCodeSessionReplaced) {
			t.Fatalf("expected close code %d, got %v", hub.WsCloseCodeSessionReplaced, err)
		}
		return
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/health")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body.Code != 0 {
		t.Fatalf("business code = %d, want 0", body.Code)
	}

	data, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", body.Data)
	}
	if data["status"] != "OK" {
		t.Fatalf("health status = %v, want OK", data["status"])
	}
	if _, ok := data["connectedUsers"]; !ok {
		t.Fatal("health data missing connectedUsers")
	}
}

func TestRootEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	data, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", body.Data)
	}
	if data["version"] != ServiceVersion {
		t.Fatalf("version = %v, want %s", data["version"], ServiceVersion)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/nope")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if body.Code == 0 {
		t.Fatal("expected a non-zero business error code")
	}
}
