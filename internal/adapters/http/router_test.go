package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/config"
	"github.com/gorilla/websocket"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:           "release",
		Port:           8080,
		StaticPath:     "./web",
		ReadLimit:      65536,
		PingPeriod:     time.Minute,
		WriteWait:      time.Second,
		SendBuffer:     16,
		Secret:         "test-secret",
		AllowedOrigins: []string{"*"},
		RateLimit:      0,
		ICEServers:     []config.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	}
}

func newServer(t *testing.T) (*httptest.Server, *orch.Orchestrator, *orch.Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	chat := orch.New(orch.ChatRelay, app.SimplePolicy{})
	stream := orch.New(orch.StreamRelay, app.SimplePolicy{})
	srv := httptest.NewServer(SetupRouter(ctx, testConfig(), chat, stream))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, chat, stream
}

func dial(t *testing.T, srv *httptest.Server, path string) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { ws.Close() })
	welcome := read(t, ws)
	if welcome["type"] != "welcome" {
		t.Fatalf("first frame = %v", welcome)
	}
	return ws, welcome["connectionId"].(string)
}

func read(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m map[string]any
	if err := ws.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func send(t *testing.T, ws *websocket.Conn, raw string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHealthAndICE(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		t.Errorf("health = %d %+v", resp.StatusCode, health)
	}

	resp, err = http.Get(srv.URL + "/api/ice-servers")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var ice struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ice); err != nil {
		t.Fatal(err)
	}
	if len(ice.ICEServers) != 1 || ice.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("ice = %+v", ice)
	}
}

func TestChatOverWebSocket(t *testing.T) {
	srv, chat, _ := newServer(t)
	a, _ := dial(t, srv, "/api/ws/chat")
	b, _ := dial(t, srv, "/api/ws/chat")

	send(t, a, `{"type":"join-room","roomId":"r1","userId":"u1","userName":"alice"}`)
	if m := read(t, a); m["type"] != "message-history" {
		t.Fatalf("A got %v", m)
	}
	send(t, b, `{"type":"join-room","roomId":"r1","userId":"u2","userName":"bob"}`)
	if m := read(t, b); m["type"] != "message-history" {
		t.Fatalf("B got %v", m)
	}
	if m := read(t, a); m["type"] != "user-joined" || m["userName"] != "bob" {
		t.Fatalf("A got %v", m)
	}

	send(t, a, `not json`)
	send(t, a, `{"type":"send-message","roomId":"r1","message":"hi","sender":"u1","senderName":"alice"}`)
	ma, mb := read(t, a), read(t, b)
	if ma["type"] != "receive-message" || mb["type"] != "receive-message" {
		t.Fatalf("A=%v B=%v", ma, mb)
	}
	if ma["message"].(map[string]any)["id"] != mb["message"].(map[string]any)["id"] {
		t.Error("echo and broadcast carry different ids")
	}

	b.Close()
	if m := read(t, a); m["type"] != "user-left" || m["userId"] != "u2" {
		t.Errorf("A got %v", m)
	}

	resp, err := http.Get(srv.URL + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var rooms struct {
		Rooms []struct {
			ID           string `json:"id"`
			MessageCount int    `json:"message_count"`
		} `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatal(err)
	}
	if len(rooms.Rooms) != 1 || rooms.Rooms[0].MessageCount != 1 {
		t.Errorf("rooms = %+v", rooms)
	}
	if chat.Rooms.List()[0].MemberCount != 1 {
		t.Error("disconnected member still in room")
	}
}

func TestStreamOverWebSocket(t *testing.T) {
	srv, _, _ := newServer(t)
	bc, bid := dial(t, srv, "/api/ws/stream")
	v, vid := dial(t, srv, "/api/ws/stream")

	send(t, v, `{"type":"join-stream","streamId":"s1","viewerId":"v1"}`)
	if m := read(t, v); m["type"] != "error" || m["message"] != "Stream not found" {
		t.Fatalf("V got %v", m)
	}

	send(t, bc, `{"type":"start-stream","streamId":"s1","streamerName":"bea"}`)
	send(t, bc, `{"type":"ping"}`)
	if m := read(t, bc); m["type"] != "pong" {
		t.Fatalf("B got %v", m)
	}
	send(t, v, `{"type":"join-stream","streamId":"s1","viewerId":"v1"}`)
	if m := read(t, bc); m["type"] != "viewer-joined" || m["viewerId"] != vid {
		t.Fatalf("B got %v", m)
	}

	send(t, bc, `{"type":"offer","to":"`+vid+`","offer":{"type":"offer","sdp":"v=0"}}`)
	if m := read(t, v); m["type"] != "offer" || m["from"] != bid {
		t.Fatalf("V got %v", m)
	}

	send(t, bc, `{"type":"end-stream","streamId":"s1"}`)
	if m := read(t, v); m["type"] != "stream-ended" || m["streamId"] != "s1" {
		t.Errorf("V got %v", m)
	}
}
