// Package config resolves, parses, validates, and defaults p2t configuration.
package config

// Config is the fully materialized runtime configuration used by p2t.
type Config struct {
	Keys       KeysConfig
	ASR        ASRConfig
	Retry      RetryConfig
	Refine     RefineConfig
	Hotkey     HotkeyConfig
	Audio      AudioConfig
	Inject     InjectConfig
	Transcript TranscriptConfig
	Notify     NotifyConfig
	Debug      DebugConfig
}

// KeysConfig holds the recognizer credential pair. The fallback key is only
// used after the primary's retry budget is exhausted.
type KeysConfig struct {
	Primary  string
	Fallback string
}

// ASRConfig controls the remote recognition endpoint and realtime mode.
type ASRConfig struct {
	Endpoint string
	Model    string
	Realtime RealtimeConfig
}

// RealtimeConfig controls the streaming WebSocket recognition mode.
type RealtimeConfig struct {
	Enable          bool
	URL             string
	Model           string
	Language        string
	ResultTimeoutMS int
}

// RetryConfig is the per-call retry policy for recognition requests.
type RetryConfig struct {
	MaxAttempts      int
	AttemptTimeoutMS int
	BackoffMS        int
}

// RefineConfig controls the optional LLM transcript refinement pass.
type RefineConfig struct {
	Enable       bool
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
	TimeoutMS    int
}

// HotkeyConfig holds the global push-to-talk chord.
type HotkeyConfig struct {
	Chord string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// InjectConfig controls clipboard-transaction timing during text injection.
type InjectConfig struct {
	SettleMS       int
	RestoreDelayMS int
}

// TranscriptConfig controls transcript normalization.
type TranscriptConfig struct {
	TrailingSpace bool
}

// NotifyConfig controls desktop notification output for lifecycle events.
type NotifyConfig struct {
	Enable         bool
	AppName        string
	ErrorTimeoutMS int
}

// DebugConfig enables development artifacts.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal configuration diagnostic surfaced to the user.
type Warning struct {
	Message string
	Line    int
}
