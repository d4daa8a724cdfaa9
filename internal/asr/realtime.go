package asr

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yyyzl/push-2-talk/internal/transcript"
)

// RealtimeConfig shapes one streaming recognition session.
type RealtimeConfig struct {
	URL           string
	Model         string
	Language      string
	ResultTimeout time.Duration
}

// RealtimeSession streams PCM to the recognition service over a websocket
// while the recording is still in progress. One session serves exactly one
// utterance: append chunks, commit, then wait for the result.
type RealtimeSession struct {
	logger *slog.Logger
	cfg    RealtimeConfig

	conn    *websocket.Conn
	writeMu sync.Mutex

	result    chan realtimeResult
	closeOnce sync.Once
}

type realtimeResult struct {
	text string
	err  error
}

// DialRealtime opens the websocket, configures the session for manual
// commit (no server-side voice activity detection), and starts the reader.
func DialRealtime(ctx context.Context, logger *slog.Logger, cfg RealtimeConfig, apiKey string) (*RealtimeSession, error) {
	if cfg.ResultTimeout <= 0 {
		cfg.ResultTimeout = 10 * time.Second
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := cfg.URL + "?model=" + cfg.Model
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime endpoint: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial realtime endpoint: %w", err)
	}

	s := &RealtimeSession{
		logger: logger,
		cfg:    cfg,
		conn:   conn,
		result: make(chan realtimeResult, 1),
	}

	update := outboundEvent{
		EventID: eventID(),
		Type:    "session.update",
		Session: &sessionConfig{
			Modalities:       []string{"text"},
			InputAudioFormat: "pcm",
			SampleRate:       16000,
			InputAudioTranscription: languageConfig{
				Language: cfg.Language,
			},
		},
	}
	if err := s.writeJSON(update); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send session.update: %w", err)
	}

	go s.readLoop()
	return s, nil
}

// SendPCM appends one chunk of 16kHz mono s16 audio to the server buffer.
func (s *RealtimeSession) SendPCM(chunk []int16) error {
	buf := make([]byte, len(chunk)*2)
	for i, sample := range chunk {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return s.writeJSON(outboundEvent{
		EventID: eventID(),
		Type:    "input_audio_buffer.append",
		Audio:   base64.StdEncoding.EncodeToString(buf),
	})
}

// Commit tells the server the utterance is complete.
func (s *RealtimeSession) Commit() error {
	return s.writeJSON(outboundEvent{
		EventID: eventID(),
		Type:    "input_audio_buffer.commit",
	})
}

// Result waits for the final transcript. Realtime output has all punctuation
// removed rather than only trailing marks.
func (s *RealtimeSession) Result(ctx context.Context) (string, error) {
	timer := time.NewTimer(s.cfg.ResultTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("%w: no realtime result within %s", ErrTimeout, s.cfg.ResultTimeout)
	case res := <-s.result:
		if res.err != nil {
			return "", res.err
		}
		return transcript.StripPunctuation(res.text), nil
	}
}

// Close tears the websocket down. Safe to call more than once.
func (s *RealtimeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *RealtimeSession) writeJSON(event outboundEvent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(event)
}

// readLoop consumes server events until a final transcript, a server error,
// or the connection drops. Exactly one result is delivered.
func (s *RealtimeSession) readLoop() {
	var accumulated string

	deliver := func(res realtimeResult) {
		select {
		case s.result <- res:
		default:
		}
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				deliver(realtimeResult{err: fmt.Errorf("realtime session closed before result")})
			} else {
				deliver(realtimeResult{err: fmt.Errorf("realtime read: %w", err)})
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Warn("unparseable realtime event", "error", err.Error())
			continue
		}

		switch event.Type {
		case "session.created", "session.updated", "input_audio_buffer.committed":
			s.logger.Debug("realtime event", "type", event.Type)
		case "response.audio_transcript.delta":
			accumulated += event.Delta
		case "response.audio_transcript.done",
			"conversation.item.input_audio_transcription.completed":
			if event.Transcript != "" {
				accumulated = event.Transcript
			}
			deliver(realtimeResult{text: accumulated})
			return
		case "response.done":
			deliver(realtimeResult{text: accumulated})
			return
		case "error":
			message := "unknown realtime error"
			if event.Error != nil && event.Error.Message != "" {
				message = event.Error.Message
			}
			deliver(realtimeResult{err: fmt.Errorf("%w: %s", ErrFailed, message)})
			return
		default:
			s.logger.Debug("unhandled realtime event", "type", event.Type)
		}
	}
}

func eventID() string {
	return fmt.Sprintf("event_%d", time.Now().UnixMilli())
}

type outboundEvent struct {
	EventID string         `json:"event_id"`
	Type    string         `json:"type"`
	Audio   string         `json:"audio,omitempty"`
	Session *sessionConfig `json:"session,omitempty"`
}

type sessionConfig struct {
	Modalities              []string       `json:"modalities"`
	InputAudioFormat        string         `json:"input_audio_format"`
	SampleRate              int            `json:"sample_rate"`
	InputAudioTranscription languageConfig `json:"input_audio_transcription"`
	// TurnDetection stays null: commits are manual, VAD is disabled.
	TurnDetection any `json:"turn_detection"`
}

type languageConfig struct {
	Language string `json:"language"`
}

type inboundEvent struct {
	Type       string         `json:"type"`
	Delta      string         `json:"delta"`
	Transcript string         `json:"transcript"`
	Error      *inboundError  `json:"error"`
}

type inboundError struct {
	Message string `json:"message"`
}
