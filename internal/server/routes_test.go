package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
)

// setupTestServer builds a Server without a database; persistence is skipped
// when no PersistenceManager is wired.
func setupTestServer() (*Server, string, func()) {
	s := &Server{
		connectionManager: NewConnectionManager(),
		gameManager:       NewGameManager(),
		sessionManager:    NewSessionManager(),
		rateLimiter:       NewRateLimiter(50, time.Second),
		connectionHealth:  NewConnectionHealth(),
	}

	server := httptest.NewServer(http.HandlerFunc(s.websocketHandler))
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/websocket"

	cleanup := func() {
		server.Close()
	}

	return s, url, cleanup
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// readMessage reads and decodes the next server message on the socket.
func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) ServerMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read from socket: %v", err)
	}
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to parse server message: %v", err)
	}
	return msg
}

// readUntil discards messages until one of the wanted type arrives.
// Broadcasts from other players' actions interleave with direct responses,
// so most assertions key on type rather than position.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) ServerMessage {
	t.Helper()
	for {
		msg := readMessage(t, ctx, conn)
		if msg.Type == msgType {
			return msg
		}
	}
}

// decodePayload recovers a typed payload from the interface{} the envelope
// decodes into.
func decodePayload(t *testing.T, msg ServerMessage, out interface{}) {
	t.Helper()
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("failed to re-marshal payload: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode %s payload: %v", msg.Type, err)
	}
}

func TestIndexHandler(t *testing.T) {
	s := &Server{}
	server := httptest.NewServer(http.HandlerFunc(s.indexHandler))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("error making request to server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status OK; got %v", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("error reading response body: %v", err)
	}
	expected := `{"service":"canasta-arena"}`
	if expected != string(body) {
		t.Errorf("expected body %v; got %v", expected, string(body))
	}
}

func TestWebSocketPingPong(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ping := ClientMessage{Type: "ping"}
	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ping))
	assert.NoErrorf(err, "Failed to send ping")

	response := readMessage(t, ctx, conn)
	assert.Equal("pong", response.Type)
}

func TestWebSocketInvalidJSON(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err = conn.Write(ctx, websocket.MessageText, []byte("junk"))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)

	// A ping proves the connection survived the bad input.
	err = conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "ping"}))
	assert.NoError(err)

	response = readMessage(t, ctx, conn)
	assert.Equal("pong", response.Type)
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	msg := ClientMessage{Type: "launch_missiles"}
	err = conn.Write(ctx, websocket.MessageText, mustMarshal(msg))
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)

	var errMsg ErrorMessage
	decodePayload(t, response, &errMsg)
	assert.Contains(errMsg.Message, "INVALID_MESSAGE_TYPE")
}

func TestWebSocketConnectionRegistration(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, url, cleanup := setupTestServer()
	defer cleanup()

	s.connectionManager.mu.RLock()
	initialCount := len(s.connectionManager.connections)
	s.connectionManager.mu.RUnlock()
	assert.Equal(0, initialCount)

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)

	// A ping round trip ensures the handler goroutine has registered the
	// connection; Dial returns before AddConnection runs.
	conn.Write(ctx, websocket.MessageText, mustMarshal(ClientMessage{Type: "ping"}))
	readMessage(t, ctx, conn)

	s.connectionManager.mu.RLock()
	connected := len(s.connectionManager.connections)
	s.connectionManager.mu.RUnlock()
	assert.Equal(1, connected)

	conn.Close(websocket.StatusNormalClosure, "")

	// Close returns before the handler's deferred cleanup completes.
	time.Sleep(10 * time.Millisecond)

	s.connectionManager.mu.RLock()
	finalCount := len(s.connectionManager.connections)
	s.connectionManager.mu.RUnlock()
	assert.Equal(0, finalCount)
}

func TestWebSocketRateLimiting(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, url, cleanup := setupTestServer()
	defer cleanup()

	// Two messages per second so the third trips the limiter.
	s.rateLimiter = NewRateLimiter(2, time.Second)

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ping := mustMarshal(ClientMessage{Type: "ping"})

	for i := 0; i < 2; i++ {
		err = conn.Write(ctx, websocket.MessageText, ping)
		assert.NoError(err)

		response := readMessage(t, ctx, conn)
		assert.Equal("pong", response.Type, "Request %d should succeed", i+1)
	}

	err = conn.Write(ctx, websocket.MessageText, ping)
	assert.NoError(err)

	response := readMessage(t, ctx, conn)
	assert.Equal("error", response.Type)

	var errMsg ErrorMessage
	decodePayload(t, response, &errMsg)
	assert.Contains(errMsg.Message, "RATE_LIMITED")
}
