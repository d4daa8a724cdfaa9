package asr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// realtimeScript drives a fake recognition endpoint: it answers the
// session.update handshake, then hands the connection to the script once
// the commit event arrives.
func realtimeScript(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
		require.Equal(t, "realtime=v1", req.Header.Get("OpenAI-Beta"))

		conn, err := upgrader.Upgrade(w, req, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event map[string]any
			require.NoError(t, json.Unmarshal(data, &event))

			switch event["type"] {
			case "session.update":
				require.NoError(t, conn.WriteJSON(map[string]any{"type": "session.updated"}))
			case "input_audio_buffer.append":
				require.NotEmpty(t, event["audio"])
			case "input_audio_buffer.commit":
				script(conn)
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testRealtimeConfig(server *httptest.Server) RealtimeConfig {
	return RealtimeConfig{
		URL:           wsURL(server),
		Model:         "qwen3-asr-flash-realtime",
		Language:      "zh",
		ResultTimeout: 2 * time.Second,
	}
}

func TestRealtimeSessionDeliversFinalTranscript(t *testing.T) {
	server := realtimeScript(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{"type": "input_audio_buffer.committed"})
		_ = conn.WriteJSON(map[string]any{"type": "response.audio_transcript.delta", "delta": "hello "})
		_ = conn.WriteJSON(map[string]any{"type": "response.audio_transcript.delta", "delta": "world"})
		_ = conn.WriteJSON(map[string]any{"type": "response.audio_transcript.done", "transcript": "hello, world!"})
	})
	defer server.Close()

	session, err := DialRealtime(context.Background(), testLogger(), testRealtimeConfig(server), "test-key")
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.SendPCM([]int16{0, 100, -100, 32000}))
	require.NoError(t, session.Commit())

	text, err := session.Result(context.Background())
	require.NoError(t, err)
	// Realtime transcripts drop every punctuation mark, not just trailing ones.
	require.Equal(t, "hello world", text)
}

func TestRealtimeSessionAccumulatesDeltasWhenDoneOmitsTranscript(t *testing.T) {
	server := realtimeScript(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{"type": "response.audio_transcript.delta", "delta": "你好"})
		_ = conn.WriteJSON(map[string]any{"type": "response.audio_transcript.delta", "delta": "世界"})
		_ = conn.WriteJSON(map[string]any{"type": "response.done"})
	})
	defer server.Close()

	session, err := DialRealtime(context.Background(), testLogger(), testRealtimeConfig(server), "test-key")
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Commit())

	text, err := session.Result(context.Background())
	require.NoError(t, err)
	require.Equal(t, "你好世界", text)
}

func TestRealtimeSessionSurfacesServerError(t *testing.T) {
	server := realtimeScript(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{
			"type":  "error",
			"error": map[string]any{"message": "audio format rejected"},
		})
	})
	defer server.Close()

	session, err := DialRealtime(context.Background(), testLogger(), testRealtimeConfig(server), "test-key")
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Commit())

	_, err = session.Result(context.Background())
	require.ErrorIs(t, err, ErrFailed)
	require.Contains(t, err.Error(), "audio format rejected")
}

func TestRealtimeSessionResultTimesOut(t *testing.T) {
	server := realtimeScript(t, func(conn *websocket.Conn) {
		time.Sleep(500 * time.Millisecond)
	})
	defer server.Close()

	cfg := testRealtimeConfig(server)
	cfg.ResultTimeout = 50 * time.Millisecond

	session, err := DialRealtime(context.Background(), testLogger(), cfg, "test-key")
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Commit())

	_, err = session.Result(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
}

func TestRealtimeDialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "no upgrade here", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testRealtimeConfig(server)
	_, err := DialRealtime(context.Background(), testLogger(), cfg, "test-key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "dial realtime endpoint")
}
