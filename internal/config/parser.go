package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parse reads configuration content as JSONC and merges it over base.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

type jsoncConfig struct {
	Keys       *jsoncKeys       `json:"keys"`
	ASR        *jsoncASR        `json:"asr"`
	Retry      *jsoncRetry      `json:"retry"`
	Refine     *jsoncRefine     `json:"refine"`
	Hotkey     *jsoncHotkey     `json:"hotkey"`
	Audio      *jsoncAudio      `json:"audio"`
	Inject     *jsoncInject     `json:"inject"`
	Transcript *jsoncTranscript `json:"transcript"`
	Notify     *jsoncNotify     `json:"notify"`
	Debug      *jsoncDebug      `json:"debug"`
}

type jsoncKeys struct {
	Primary  *string `json:"primary"`
	Fallback *string `json:"fallback"`
}

type jsoncASR struct {
	Endpoint *string        `json:"endpoint"`
	Model    *string        `json:"model"`
	Realtime *jsoncRealtime `json:"realtime"`
}

type jsoncRealtime struct {
	Enable          *bool   `json:"enable"`
	URL             *string `json:"url"`
	Model           *string `json:"model"`
	Language        *string `json:"language"`
	ResultTimeoutMS *int    `json:"result_timeout_ms"`
}

type jsoncRetry struct {
	MaxAttempts      *int `json:"max_attempts"`
	AttemptTimeoutMS *int `json:"attempt_timeout_ms"`
	BackoffMS        *int `json:"backoff_ms"`
}

type jsoncRefine struct {
	Enable       *bool   `json:"enable"`
	Endpoint     *string `json:"endpoint"`
	Model        *string `json:"model"`
	APIKey       *string `json:"api_key"`
	SystemPrompt *string `json:"system_prompt"`
	TimeoutMS    *int    `json:"timeout_ms"`
}

type jsoncHotkey struct {
	Chord *string `json:"chord"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncInject struct {
	SettleMS       *int `json:"settle_ms"`
	RestoreDelayMS *int `json:"restore_delay_ms"`
}

type jsoncTranscript struct {
	TrailingSpace *bool `json:"trailing_space"`
}

type jsoncNotify struct {
	Enable         *bool   `json:"enable"`
	AppName        *string `json:"app_name"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if payload.Keys != nil {
		if payload.Keys.Primary != nil {
			cfg.Keys.Primary = strings.TrimSpace(*payload.Keys.Primary)
		}
		if payload.Keys.Fallback != nil {
			cfg.Keys.Fallback = strings.TrimSpace(*payload.Keys.Fallback)
		}
	}

	if payload.ASR != nil {
		if payload.ASR.Endpoint != nil {
			cfg.ASR.Endpoint = strings.TrimSpace(*payload.ASR.Endpoint)
		}
		if payload.ASR.Model != nil {
			cfg.ASR.Model = strings.TrimSpace(*payload.ASR.Model)
		}
		if rt := payload.ASR.Realtime; rt != nil {
			if rt.Enable != nil {
				cfg.ASR.Realtime.Enable = *rt.Enable
			}
			if rt.URL != nil {
				cfg.ASR.Realtime.URL = strings.TrimSpace(*rt.URL)
			}
			if rt.Model != nil {
				cfg.ASR.Realtime.Model = strings.TrimSpace(*rt.Model)
			}
			if rt.Language != nil {
				cfg.ASR.Realtime.Language = strings.TrimSpace(*rt.Language)
			}
			if rt.ResultTimeoutMS != nil {
				cfg.ASR.Realtime.ResultTimeoutMS = *rt.ResultTimeoutMS
			}
		}
	}

	if payload.Retry != nil {
		if payload.Retry.MaxAttempts != nil {
			cfg.Retry.MaxAttempts = *payload.Retry.MaxAttempts
		}
		if payload.Retry.AttemptTimeoutMS != nil {
			cfg.Retry.AttemptTimeoutMS = *payload.Retry.AttemptTimeoutMS
		}
		if payload.Retry.BackoffMS != nil {
			cfg.Retry.BackoffMS = *payload.Retry.BackoffMS
		}
	}

	if payload.Refine != nil {
		if payload.Refine.Enable != nil {
			cfg.Refine.Enable = *payload.Refine.Enable
		}
		if payload.Refine.Endpoint != nil {
			cfg.Refine.Endpoint = strings.TrimSpace(*payload.Refine.Endpoint)
		}
		if payload.Refine.Model != nil {
			cfg.Refine.Model = strings.TrimSpace(*payload.Refine.Model)
		}
		if payload.Refine.APIKey != nil {
			cfg.Refine.APIKey = strings.TrimSpace(*payload.Refine.APIKey)
		}
		if payload.Refine.SystemPrompt != nil {
			cfg.Refine.SystemPrompt = *payload.Refine.SystemPrompt
		}
		if payload.Refine.TimeoutMS != nil {
			cfg.Refine.TimeoutMS = *payload.Refine.TimeoutMS
		}
	}

	if payload.Hotkey != nil && payload.Hotkey.Chord != nil {
		cfg.Hotkey.Chord = strings.TrimSpace(*payload.Hotkey.Chord)
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Inject != nil {
		if payload.Inject.SettleMS != nil {
			cfg.Inject.SettleMS = *payload.Inject.SettleMS
		}
		if payload.Inject.RestoreDelayMS != nil {
			cfg.Inject.RestoreDelayMS = *payload.Inject.RestoreDelayMS
		}
	}

	if payload.Transcript != nil && payload.Transcript.TrailingSpace != nil {
		cfg.Transcript.TrailingSpace = *payload.Transcript.TrailingSpace
	}

	if payload.Notify != nil {
		if payload.Notify.Enable != nil {
			cfg.Notify.Enable = *payload.Notify.Enable
		}
		if payload.Notify.AppName != nil {
			cfg.Notify.AppName = strings.TrimSpace(*payload.Notify.AppName)
		}
		if payload.Notify.ErrorTimeoutMS != nil {
			cfg.Notify.ErrorTimeoutMS = *payload.Notify.ErrorTimeoutMS
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	if decoder.More() {
		return fmt.Errorf("unexpected trailing content after configuration object")
	}
	return nil
}
