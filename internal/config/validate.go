package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.ASR.Endpoint) == "" {
		return nil, fmt.Errorf("asr.endpoint must not be empty")
	}
	if !strings.HasPrefix(cfg.ASR.Endpoint, "http://") && !strings.HasPrefix(cfg.ASR.Endpoint, "https://") {
		return nil, fmt.Errorf("asr.endpoint must be an http(s) URL")
	}
	if strings.TrimSpace(cfg.ASR.Model) == "" {
		return nil, fmt.Errorf("asr.model must not be empty")
	}

	if cfg.ASR.Realtime.Enable {
		url := strings.TrimSpace(cfg.ASR.Realtime.URL)
		if url == "" {
			return nil, fmt.Errorf("asr.realtime.url must not be empty when asr.realtime.enable=true")
		}
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return nil, fmt.Errorf("asr.realtime.url must be a ws(s) URL")
		}
		if strings.TrimSpace(cfg.ASR.Realtime.Model) == "" {
			return nil, fmt.Errorf("asr.realtime.model must not be empty when asr.realtime.enable=true")
		}
		if cfg.ASR.Realtime.ResultTimeoutMS <= 0 {
			return nil, fmt.Errorf("asr.realtime.result_timeout_ms must be > 0")
		}
	}

	if cfg.Retry.MaxAttempts <= 0 {
		return nil, fmt.Errorf("retry.max_attempts must be > 0")
	}
	if cfg.Retry.AttemptTimeoutMS <= 0 {
		return nil, fmt.Errorf("retry.attempt_timeout_ms must be > 0")
	}
	if cfg.Retry.BackoffMS < 0 {
		return nil, fmt.Errorf("retry.backoff_ms must be >= 0")
	}

	if cfg.Refine.Enable {
		if strings.TrimSpace(cfg.Refine.Endpoint) == "" {
			return nil, fmt.Errorf("refine.endpoint must not be empty when refine.enable=true")
		}
		if strings.TrimSpace(cfg.Refine.Model) == "" {
			return nil, fmt.Errorf("refine.model must not be empty when refine.enable=true")
		}
		if cfg.Refine.TimeoutMS <= 0 {
			return nil, fmt.Errorf("refine.timeout_ms must be > 0")
		}
		if strings.TrimSpace(cfg.Refine.APIKey) == "" {
			warnings = append(warnings, Warning{Message: "refine.api_key is empty; refinement requests will be unauthenticated"})
		}
	}

	if strings.TrimSpace(cfg.Hotkey.Chord) == "" {
		return nil, fmt.Errorf("hotkey.chord must not be empty")
	}

	if cfg.Inject.SettleMS < 0 {
		return nil, fmt.Errorf("inject.settle_ms must be >= 0")
	}
	if cfg.Inject.RestoreDelayMS < 0 {
		return nil, fmt.Errorf("inject.restore_delay_ms must be >= 0")
	}

	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}
	if cfg.Notify.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("notify.error_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Keys.Primary) == "" {
		warnings = append(warnings, Warning{Message: "keys.primary is empty; recognition requests will fail until a key is configured"})
	}

	return warnings, nil
}
