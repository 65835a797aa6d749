package tracking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
)

type testFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialStream(t *testing.T, state *State, query string) *websocket.Conn {
	t.Helper()
	return dialStreamWith(t, state, nil, query)
}

func dialStreamWith(t *testing.T, state *State, channelOf ChannelFunc, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewStreamHandler(state, channelOf))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/tracking/ws" + query
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readTestFrame(t *testing.T, conn *websocket.Conn) testFrame {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	var got testFrame
	if err := json.NewDecoder(conn).Decode(&got); err != nil {
		t.Fatalf("decode server frame: %v", err)
	}
	return got
}

func TestStreamDeliversIncomingTopics(t *testing.T) {
	state := NewState()
	state.TrackIncoming("categories")
	conn := dialStream(t, state, "")

	if frame := readTestFrame(t, conn); frame.Type != frameReady {
		t.Fatalf("first frame = %q, want %q", frame.Type, frameReady)
	}

	state.Publish(NewTopic{TopicID: 42, CategoryID: 3})
	frame := readTestFrame(t, conn)
	if frame.Type != frameIncoming {
		t.Fatalf("frame type = %q", frame.Type)
	}
	var event Incoming
	if err := json.Unmarshal(frame.Payload, &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.TopicID != 42 || event.CategoryID != 3 {
		t.Fatalf("event = %+v", event)
	}
}

func TestStreamFiltersByChannel(t *testing.T) {
	state := NewState()
	state.TrackIncoming("categories")
	conn := dialStream(t, state, "?channel=latest")
	readTestFrame(t, conn)

	state.Publish(NewTopic{TopicID: 1})
	state.TrackIncoming("latest")
	state.Publish(NewTopic{TopicID: 2})

	frame := readTestFrame(t, conn)
	var event Incoming
	if err := json.Unmarshal(frame.Payload, &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.TopicID != 2 {
		t.Fatalf("expected only the latest-channel topic, got %+v", event)
	}
	if len(event.Channels) != 1 || event.Channels[0] != "latest" {
		t.Fatalf("expected other channels hidden, got %v", event.Channels)
	}
}

func TestStreamUsesChannelFunc(t *testing.T) {
	state := NewState()
	state.TrackIncoming("categories:a")
	state.TrackIncoming("categories:b")
	conn := dialStreamWith(t, state, func(*http.Request) string { return "categories:b" }, "?channel=categories:a")

	var ready readyPayload
	if err := json.Unmarshal(readTestFrame(t, conn).Payload, &ready); err != nil {
		t.Fatalf("decode ready: %v", err)
	}
	if ready.Channel != "categories:b" {
		t.Fatalf("ready channel = %q", ready.Channel)
	}

	state.Publish(NewTopic{TopicID: 9})
	var event Incoming
	if err := json.Unmarshal(readTestFrame(t, conn).Payload, &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.TopicID != 9 || len(event.Channels) != 1 || event.Channels[0] != "categories:b" {
		t.Fatalf("event = %+v", event)
	}
}

func TestStreamRejectsNonGet(t *testing.T) {
	srv := httptest.NewServer(NewStreamHandler(NewState(), nil))
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL, "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
