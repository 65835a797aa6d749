package tracking

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/topicfeed/internal/platform/timeouts"
)

const (
	streamBuffer = 32

	frameReady    = "tracking.ready"
	frameIncoming = "tracking.incoming"
)

type streamFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type readyPayload struct {
	Channel string `json:"channel,omitempty"`
}

// ChannelFunc picks the channel a stream request is limited to. An empty
// result streams every channel.
type ChannelFunc func(r *http.Request) string

// QueryChannel reads the channel from the channel query parameter.
func QueryChannel(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("channel"))
}

// NewStreamHandler returns a websocket handler pushing incoming-topic
// notifications to the peer, limited to the channel channelOf picks.
// A nil channelOf uses QueryChannel.
func NewStreamHandler(state *State, channelOf ChannelFunc) http.Handler {
	if channelOf == nil {
		channelOf = QueryChannel
	}
	ws := websocket.Handler(func(conn *websocket.Conn) {
		channel := ""
		if req := conn.Request(); req != nil {
			channel = channelOf(req)
		}
		serveStream(conn, state, channel)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ws.ServeHTTP(w, r)
	})
}

func serveStream(conn *websocket.Conn, state *State, channel string) {
	defer func() {
		_ = conn.Close()
	}()

	events := make(chan Incoming, streamBuffer)
	unsubscribe := state.Subscribe(func(event Incoming) {
		if channel != "" {
			if !containsChannel(event.Channels, channel) {
				return
			}
			event.Channels = []string{channel}
		}
		select {
		case events <- event:
		default:
			log.Printf("tracking: stream buffer full, dropping topic %d", event.TopicID)
		}
	})
	defer unsubscribe()

	// The peer never sends frames; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_, _ = io.Copy(io.Discard, conn)
	}()

	encoder := json.NewEncoder(conn)
	if err := writeStreamFrame(conn, encoder, frameReady, readyPayload{Channel: channel}); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case event := <-events:
			if err := writeStreamFrame(conn, encoder, frameIncoming, event); err != nil {
				log.Printf("tracking: write stream frame: %v", err)
				return
			}
		}
	}
}

func writeStreamFrame(conn *websocket.Conn, encoder *json.Encoder, frameType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(timeouts.WebsocketWrite)); err != nil {
		return err
	}
	return encoder.Encode(streamFrame{Type: frameType, Payload: body})
}

func containsChannel(channels []string, channel string) bool {
	for _, name := range channels {
		if name == channel {
			return true
		}
	}
	return false
}
