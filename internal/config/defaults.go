package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Keys: KeysConfig{},
		ASR: ASRConfig{
			Endpoint: "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation",
			Model:    "qwen3-asr-flash",
			Realtime: RealtimeConfig{
				Enable:          false,
				URL:             "wss://dashscope.aliyuncs.com/api-ws/v1/realtime",
				Model:           "qwen3-asr-flash-realtime",
				Language:        "zh",
				ResultTimeoutMS: 10000,
			},
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			AttemptTimeoutMS: 6000,
			BackoffMS:        500,
		},
		Refine: RefineConfig{
			Enable:       false,
			Endpoint:     "https://open.bigmodel.cn/api/paas/v4/chat/completions",
			Model:        "glm-4-flash-250414",
			SystemPrompt: defaultSystemPrompt,
			TimeoutMS:    15000,
		},
		Hotkey: HotkeyConfig{Chord: "ctrl+alt+space"},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Inject: InjectConfig{
			SettleMS:       80,
			RestoreDelayMS: 120,
		},
		Transcript: TranscriptConfig{TrailingSpace: false},
		Notify: NotifyConfig{
			Enable:         true,
			AppName:        "p2t",
			ErrorTimeoutMS: 1600,
		},
		Debug: DebugConfig{},
	}
}

const defaultSystemPrompt = "You polish speech-to-text transcripts. Without changing the meaning: " +
	"remove repeated or near-duplicate sentences, merge content on the same topic, " +
	"drop filler words, keep numbers and key facts verbatim, and arrange the result " +
	"into natural paragraphs. Output plain text only."
