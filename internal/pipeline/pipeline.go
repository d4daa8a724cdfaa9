// Package pipeline binds audio capture, recognition, and refinement into the
// transcriber consumed by the session controller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yyyzl/push-2-talk/internal/asr"
	"github.com/yyyzl/push-2-talk/internal/audio"
	"github.com/yyyzl/push-2-talk/internal/config"
	"github.com/yyyzl/push-2-talk/internal/refine"
	"github.com/yyyzl/push-2-talk/internal/session"
	"github.com/yyyzl/push-2-talk/internal/transcript"
	"github.com/yyyzl/push-2-talk/internal/wav"
)

// Transcriber implements session.Transcriber over one recording at a time.
// The recorder handle never leaves this struct; the rest of the system talks
// to it through Start/StopAndTranscribe/Cancel only.
type Transcriber struct {
	logger  *slog.Logger
	cfg     config.Config
	client  *asr.Client
	refiner *refine.Client

	mu       sync.Mutex
	recorder *audio.Recorder
	realtime *asr.RealtimeSession
	sendDone chan struct{}
	device   string
}

// New builds the pipeline from configuration. The refinement client is only
// constructed when the refinement pass is enabled.
func New(logger *slog.Logger, cfg config.Config) *Transcriber {
	t := &Transcriber{
		logger: logger,
		cfg:    cfg,
		client: asr.NewClient(logger, cfg.ASR.Endpoint, cfg.ASR.Model),
	}
	if cfg.Refine.Enable {
		t.refiner = refine.NewClient(logger, refine.Config{
			Endpoint:     cfg.Refine.Endpoint,
			Model:        cfg.Refine.Model,
			APIKey:       cfg.Refine.APIKey,
			SystemPrompt: cfg.Refine.SystemPrompt,
			Timeout:      time.Duration(cfg.Refine.TimeoutMS) * time.Millisecond,
		})
	}
	return t
}

// Start resolves the input device and opens the capture stream. With
// realtime mode enabled it also dials the streaming endpoint and forwards
// reduced PCM chunks while the user is still speaking; a failed dial
// degrades to buffered transcription instead of failing the session.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.recorder != nil {
		return errors.New("recording already in progress")
	}

	selection, err := audio.SelectDevice(ctx, t.cfg.Audio.Input, t.cfg.Audio.Fallback)
	if err != nil {
		return fmt.Errorf("select audio device: %w", err)
	}
	if selection.Warning != "" {
		t.logger.Warn(selection.Warning)
	}

	streaming := t.cfg.ASR.Realtime.Enable
	recorder, err := audio.StartRecorder(ctx, selection.Device, streaming)
	if err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	t.recorder = recorder
	t.device = selection.Device.ID

	if streaming {
		rt, err := asr.DialRealtime(ctx, t.logger, asr.RealtimeConfig{
			URL:           t.cfg.ASR.Realtime.URL,
			Model:         t.cfg.ASR.Realtime.Model,
			Language:      t.cfg.ASR.Realtime.Language,
			ResultTimeout: time.Duration(t.cfg.ASR.Realtime.ResultTimeoutMS) * time.Millisecond,
		}, t.cfg.Keys.Primary)
		if err != nil {
			t.logger.Warn("realtime dial failed, using buffered transcription", "error", err.Error())
		} else {
			t.realtime = rt
			t.sendDone = make(chan struct{})
			go t.forwardChunks(rt, recorder.Chunks(), t.sendDone)
		}
	}

	t.logger.Info("capture started",
		"device", selection.Device.ID, "fallback", selection.Fallback, "realtime", t.realtime != nil)
	return nil
}

// forwardChunks streams reduced PCM to the realtime session until the
// recorder closes its chunk channel.
func (t *Transcriber) forwardChunks(rt *asr.RealtimeSession, chunks <-chan []int16, done chan struct{}) {
	defer close(done)
	for chunk := range chunks {
		if err := rt.SendPCM(chunk); err != nil {
			t.logger.Warn("realtime chunk send failed", "error", err.Error())
			return
		}
	}
}

// StopAndTranscribe closes the capture stream, runs recognition (realtime
// result first, buffered HTTP as fallback), and the optional refinement
// pass. The refinement pass degrades to the raw transcript on failure.
func (t *Transcriber) StopAndTranscribe(ctx context.Context) (session.StopResult, error) {
	t.mu.Lock()
	recorder := t.recorder
	rt := t.realtime
	sendDone := t.sendDone
	device := t.device
	t.recorder = nil
	t.realtime = nil
	t.sendDone = nil
	t.mu.Unlock()

	if recorder == nil {
		return session.StopResult{}, errors.New("no recording in progress")
	}
	if rt != nil {
		defer rt.Close()
	}

	pcm, err := recorder.Stop()
	if err != nil {
		return session.StopResult{}, err
	}
	if sendDone != nil {
		<-sendDone
	}

	result := session.StopResult{AudioDevice: device}

	asrStart := time.Now()
	raw, usedFallback, err := t.recognize(ctx, rt, pcm)
	result.ASRLatency = time.Since(asrStart)
	if err != nil {
		return result, err
	}
	result.UsedFallback = usedFallback
	result.RawTranscript = transcript.Normalize(raw, transcript.Options{
		TrailingSpace: t.cfg.Transcript.TrailingSpace,
	})

	refined, refineLatency, err := t.refinePass(ctx, raw)
	result.RefineLatency = refineLatency
	if err != nil {
		return result, err
	}
	result.RefinedTranscript = refined

	return result, nil
}

// refinePass runs the optional refinement call. Refinement failures degrade
// to an empty refined transcript; only caller cancellation is propagated.
func (t *Transcriber) refinePass(ctx context.Context, raw string) (string, time.Duration, error) {
	if t.refiner == nil {
		return "", 0, nil
	}

	start := time.Now()
	refined, err := t.refiner.Polish(ctx, raw)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", latency, err
		}
		t.logger.Warn("refinement failed, keeping raw transcript", "error", err.Error())
		return "", latency, nil
	}
	if refined == "" {
		return "", latency, nil
	}
	if t.cfg.Transcript.TrailingSpace {
		refined += " "
	}
	return refined, latency, nil
}

// Cancel discards the in-flight recording and any realtime session.
func (t *Transcriber) Cancel(context.Context) error {
	t.mu.Lock()
	recorder := t.recorder
	rt := t.realtime
	t.recorder = nil
	t.realtime = nil
	t.sendDone = nil
	t.mu.Unlock()

	if recorder != nil {
		_, _ = recorder.Stop()
	}
	if rt != nil {
		_ = rt.Close()
	}
	return nil
}

// recognize produces the raw transcript for one utterance. The realtime
// session, when present, is committed and awaited first; any failure there
// falls back to the buffered HTTP request over the full recording.
func (t *Transcriber) recognize(ctx context.Context, rt *asr.RealtimeSession, pcm []int16) (string, bool, error) {
	if rt != nil {
		if err := rt.Commit(); err != nil {
			t.logger.Warn("realtime commit failed, falling back to buffered", "error", err.Error())
		} else {
			text, err := rt.Result(ctx)
			if err == nil {
				return text, false, nil
			}
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			t.logger.Warn("realtime transcription failed, falling back to buffered", "error", err.Error())
		}
	}
	return t.buffered(ctx, pcm)
}

// buffered encodes the recording as WAV, parks it in a transient file for
// the duration of the request, and runs the retrying HTTP transcription.
// The transient file is removed on every path.
func (t *Transcriber) buffered(ctx context.Context, pcm []int16) (string, bool, error) {
	wavData := wav.Encode(pcm, audio.TargetRate, 1)

	if t.cfg.Debug.EnableAudioDump {
		t.dumpAudio(wavData)
	}

	tmp, err := os.CreateTemp("", "p2t-*.wav")
	if err != nil {
		return "", false, fmt.Errorf("create transient audio file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(wavData); err != nil {
		tmp.Close()
		return "", false, fmt.Errorf("write transient audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("close transient audio file: %w", err)
	}

	res, err := t.client.Transcribe(ctx, wavData,
		asr.Credentials{Primary: t.cfg.Keys.Primary, Fallback: t.cfg.Keys.Fallback},
		asr.RetryPolicy{
			MaxAttempts:    t.cfg.Retry.MaxAttempts,
			AttemptTimeout: time.Duration(t.cfg.Retry.AttemptTimeoutMS) * time.Millisecond,
			Backoff:        time.Duration(t.cfg.Retry.BackoffMS) * time.Millisecond,
		})
	if err != nil {
		return "", false, err
	}

	t.logger.Info("buffered transcription finished",
		"attempts", res.Attempts, "used_fallback", res.UsedFallback, "latency_ms", res.Latency.Milliseconds())
	return res.Text, res.UsedFallback, nil
}

// dumpAudio keeps a copy of the encoded recording under the state directory.
func (t *Transcriber) dumpAudio(wavData []byte) {
	dir, err := dumpDir()
	if err != nil {
		t.logger.Warn("audio dump skipped", "error", err.Error())
		return
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.logger.Warn("audio dump skipped", "error", err.Error())
		return
	}
	path := filepath.Join(dir, time.Now().Format("20060102-150405.000")+".wav")
	if err := os.WriteFile(path, wavData, 0o600); err != nil {
		t.logger.Warn("audio dump failed", "error", err.Error())
		return
	}
	t.logger.Info("audio dump written", "path", path)
}

func dumpDir() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "push-2-talk", "audio"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "push-2-talk", "audio"), nil
}
