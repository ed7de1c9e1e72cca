package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/auth"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWebSocketFullGameFlow(t *testing.T) {
	server, authenticator := newTestServer(t)
	defer server.Close()

	token, err := authenticator.IssueToken("letmein")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	host := dial(t, server, "?token="+token)
	defer host.Close()

	// Host creates a room.
	writeMsg(t, host, "host:create", map[string]any{})
	_, payload := readUntil(t, host, "host:create:ack")
	code, _ := payload["code"].(string)
	if len(code) != 6 {
		t.Fatalf("bad room code %q", code)
	}
	// The room subscription replays a state snapshot.
	readUntil(t, host, "room:state")

	// A participant joins.
	player := dial(t, server, "")
	defer player.Close()
	writeMsg(t, player, "player:join", map[string]any{"code": code, "name": "Alice"})
	readUntil(t, player, "player:join:ack")

	// Host starts the quiz; both sides see the first question.
	writeMsg(t, host, "host:start", map[string]any{"code": code})
	readUntil(t, host, "host:start:ack")
	_, question := readUntil(t, player, "question:start")
	if question["text"] == "" || question["startedAtMs"] == nil {
		t.Fatalf("incomplete question payload: %v", question)
	}

	// Wait out the pre-delay, then answer correctly.
	time.Sleep(30 * time.Millisecond)
	writeMsg(t, player, "player:answer", map[string]any{"code": code, "choiceIndex": 1})
	_, result := readUntil(t, player, "player:answer:ack")
	if result["correct"] != true {
		t.Fatalf("expected correct answer, got %v", result)
	}
	if pts, _ := result["points"].(float64); pts < 1 {
		t.Fatalf("expected points awarded, got %v", result)
	}
	if rank, _ := result["rank"].(float64); rank != 1 {
		t.Fatalf("expected rank 1, got %v", result)
	}

	// Advancing reveals the outcome and announces the next question.
	writeMsg(t, host, "host:next", map[string]any{"code": code})
	_, next := readUntil(t, host, "host:next:ack")
	if next["ended"] != false {
		t.Fatalf("quiz should not be over yet: %v", next)
	}
	_, end := readUntil(t, player, "question:end")
	if ci, _ := end["correctIndex"].(float64); ci != 1 {
		t.Fatalf("unexpected reveal %v", end)
	}
	readUntil(t, player, "question:start")

	// Second advance finishes the two-question catalog.
	writeMsg(t, host, "host:next", map[string]any{"code": code})
	_, next = readUntil(t, host, "host:next:ack")
	if next["ended"] != true {
		t.Fatalf("expected quiz over: %v", next)
	}
	_, final := readUntil(t, player, "game:end")
	if tp, _ := final["totalPlayers"].(float64); tp != 1 {
		t.Fatalf("unexpected final standings %v", final)
	}
}

func TestWebSocketHostCreateRequiresToken(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()

	writeMsg(t, conn, "host:create", map[string]any{})
	_, payload := readUntil(t, conn, "error")
	if payload["op"] != "host:create" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestWebSocketHostDisconnectEndsGame(t *testing.T) {
	server, authenticator := newTestServer(t)
	defer server.Close()

	token, err := authenticator.IssueToken("letmein")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	host := dial(t, server, "?token="+token)
	writeMsg(t, host, "host:create", map[string]any{})
	_, payload := readUntil(t, host, "host:create:ack")
	code, _ := payload["code"].(string)

	player := dial(t, server, "")
	defer player.Close()
	writeMsg(t, player, "player:join", map[string]any{"code": code, "name": "Bob"})
	readUntil(t, player, "player:join:ack")

	host.Close()

	readUntil(t, player, "game:end")
}

func TestWebSocketUnsupportedMessage(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()

	writeMsg(t, conn, "bogus:type", map[string]any{})
	_, payload := readUntil(t, conn, "error")
	if payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestHostLoginHandler(t *testing.T) {
	authenticator := auth.NewHostAuthenticator("letmein", "signing-secret", time.Hour)
	handler := NewHostLoginHandler(authenticator)

	body, _ := json.Marshal(map[string]string{"key": "letmein"})
	req := httptest.NewRequest(http.MethodPost, "/host/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("bad login response: %v %q", err, rec.Body.String())
	}
	if err := authenticator.Verify(resp.Token); err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}

	body, _ = json.Marshal(map[string]string{"key": "wrong"})
	req = httptest.NewRequest(http.MethodPost, "/host/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/host/login", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestQRHandler(t *testing.T) {
	service := newService()
	code, err := service.CreateRoom("conn-host")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	handler := NewQRHandler(service, "https://trivia.example.com")

	req := httptest.NewRequest(http.MethodGet, "/qr?code="+code, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected png, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("empty image body")
	}

	req = httptest.NewRequest(http.MethodGet, "/qr?code=ZZZZZZ", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/qr", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing code, got %d", rec.Code)
	}
}

// --- helpers ---

func newService() *app.RoomService {
	catalog := domain.Catalog{
		ID:    "cat-1",
		Title: "Test catalog",
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, CorrectIndex: 1, TimeLimitSec: 20},
			{Text: "Largest planet?", Choices: []string{"Mars", "Jupiter"}, CorrectIndex: 1, TimeLimitSec: 20},
		},
	}
	return app.NewRoomService(memory.NewRoomRegistry(), catalog, app.Timing{
		PreDelay:  time.Millisecond,
		MaxPoints: 1000,
	})
}

func newTestServer(t *testing.T) (*httptest.Server, *auth.HostAuthenticator) {
	t.Helper()
	authenticator := auth.NewHostAuthenticator("letmein", "signing-secret", time.Hour)
	wsHandler := NewWSHandler(newService(), authenticator)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	return httptest.NewServer(mux), authenticator
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, typ string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips unrelated broadcasts until a message of the wanted type
// arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (string, map[string]any) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Type, msg.Payload
		}
	}
}
