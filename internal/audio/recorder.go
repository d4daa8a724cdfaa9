package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// ErrNoAudio reports that a recording stopped before any PCM frames arrived.
var ErrNoAudio = errors.New("no audio captured")

const (
	// TargetRate is the sample rate delivered to transcription backends.
	TargetRate = 16000

	captureRate     = 48000
	captureChannels = 2

	// streamBlockFrames keeps streamed chunks around 20ms of output audio.
	streamBlockFrames = captureRate / 50
)

// Recorder captures wideband float32 stereo from one Pulse source and reduces
// it to 16kHz mono s16 on Stop. When streaming is enabled it also emits
// reduced chunks while the recording is still in progress.
type Recorder struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	mu      sync.Mutex
	raw     []float32
	carry   []float32
	stopped bool
	result  []int16
	resErr  error

	chunks    chan []int16
	done      chan struct{}
	senders   sync.WaitGroup
	recording atomic.Bool
}

// StartRecorder opens a capture stream on the selected device. With stream
// set, reduced PCM chunks are available on Chunks() during the recording.
func StartRecorder(ctx context.Context, selected Device, stream bool) (*Recorder, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, fmt.Errorf("connect to pulseaudio: %w", err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("look up source %q: %w", selected.ID, err)
	}

	rec := &Recorder{
		device: selected,
		client: client,
		done:   make(chan struct{}),
	}
	if stream {
		rec.chunks = make(chan []int16, 128)
	}

	writer := pulse.NewWriter(pcmWriterFunc(rec.onPCM), pulseproto.FormatFloat32LE)
	record, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordStereo,
		pulse.RecordSampleRate(captureRate),
		pulse.RecordMediaName("p2t dictation"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open record stream: %w", err)
	}

	rec.stream = record
	rec.recording.Store(true)
	record.Start()

	go func() {
		<-ctx.Done()
		_, _ = rec.Stop()
	}()

	return rec, nil
}

// Device returns capture metadata for logging and diagnostics.
func (r *Recorder) Device() Device {
	return r.device
}

// Recording reports whether the capture stream is still running.
func (r *Recorder) Recording() bool {
	return r.recording.Load()
}

// Chunks streams reduced 16kHz mono s16 blocks, or nil when streaming is off.
// The channel closes when the recording stops.
func (r *Recorder) Chunks() <-chan []int16 {
	return r.chunks
}

// Stop halts capture and returns the full recording as 16kHz mono s16.
// Stop is idempotent; later calls return the first call's result.
func (r *Recorder) Stop() ([]int16, error) {
	r.mu.Lock()
	if r.stopped {
		result, err := r.result, r.resErr
		r.mu.Unlock()
		return result, err
	}
	r.stopped = true
	r.mu.Unlock()

	r.recording.Store(false)

	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
	}
	if r.client != nil {
		r.client.Close()
	}

	// Unblock any in-flight chunk send before the channel is closed.
	if r.done != nil {
		close(r.done)
	}
	r.senders.Wait()

	r.mu.Lock()
	raw := r.raw
	r.raw = nil
	r.carry = nil
	if r.chunks != nil {
		close(r.chunks)
	}
	r.result, r.resErr = reduce(raw)
	result, err := r.result, r.resErr
	r.mu.Unlock()

	return result, err
}

// reduce turns raw interleaved capture samples into 16kHz mono s16.
func reduce(raw []float32) ([]int16, error) {
	frames := len(raw) / captureChannels
	if frames == 0 {
		return nil, ErrNoAudio
	}
	mono := downmixMono(raw[:frames*captureChannels], captureChannels)
	pcm := toS16(resampleLinear(mono, captureRate, TargetRate))
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}
	return pcm, nil
}

// onPCM receives raw float32 frames from Pulse and buffers them. With
// streaming enabled it also reduces whole resample blocks incrementally so
// the streamed chunks concatenate to the same PCM that Stop produces.
func (r *Recorder) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	samples := decodeFloat32LE(buffer)

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0, io.EOF
	}
	r.raw = append(r.raw, samples...)

	var block []float32
	if r.chunks != nil {
		r.carry = append(r.carry, samples...)
		// A block must hold whole interleaved frames in a multiple of the
		// capture/target rate ratio, or chunk boundaries would drift.
		step := captureChannels * (captureRate / TargetRate)
		usable := len(r.carry) - len(r.carry)%step
		if usable/captureChannels >= streamBlockFrames {
			block = r.carry[:usable]
			r.carry = append([]float32(nil), r.carry[usable:]...)
			r.senders.Add(1)
		}
	}
	r.mu.Unlock()

	if block != nil {
		mono := downmixMono(block, captureChannels)
		chunk := toS16(resampleLinear(mono, captureRate, TargetRate))
		// A stalled consumer must not lose mid-utterance audio: the send
		// blocks until the chunk is taken or the recording stops.
		select {
		case r.chunks <- chunk:
		case <-r.done:
		}
		r.senders.Done()
	}

	return len(buffer), nil
}

// decodeFloat32LE converts little-endian float32 bytes, dropping any tail
// shorter than one sample.
func decodeFloat32LE(buffer []byte) []float32 {
	n := len(buffer) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(buffer[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// pcmWriterFunc adapts a function to io.Writer for pulse.NewWriter.
type pcmWriterFunc func([]byte) (int, error)

func (f pcmWriterFunc) Write(b []byte) (int, error) {
	return f(b)
}
