// Package doctor runs runtime readiness diagnostics for config, audio,
// endpoints, and desktop integration.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/yyyzl/push-2-talk/internal/audio"
	"github.com/yyyzl/push-2-talk/internal/config"
	"github.com/yyyzl/push-2-talk/internal/hotkey"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{configCheck(loaded)}

	checks = append(checks, keyCheck(cfg))
	checks = append(checks, chordCheck(cfg))
	checks = append(checks, runtimeDirCheck())
	checks = append(checks, audioCheck(ctx, cfg))
	checks = append(checks, endpointCheck("asr.endpoint", cfg.ASR.Endpoint))
	if cfg.Refine.Enable {
		checks = append(checks, endpointCheck("refine.endpoint", cfg.Refine.Endpoint))
	}
	if cfg.Notify.Enable {
		checks = append(checks, binaryCheck("busctl", "desktop notifications use busctl"))
	}

	return Report{Checks: checks}
}

func configCheck(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("no file at %q, using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func keyCheck(cfg config.Config) Check {
	if strings.TrimSpace(cfg.Keys.Primary) == "" {
		return Check{Name: "keys.primary", Pass: false, Message: "empty; transcription requests will be rejected"}
	}
	return Check{Name: "keys.primary", Pass: true, Message: "credential configured"}
}

func chordCheck(cfg config.Config) Check {
	chord, err := hotkey.ParseChord(cfg.Hotkey.Chord)
	if err != nil {
		return Check{Name: "hotkey.chord", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hotkey.chord", Pass: true, Message: fmt.Sprintf("parsed %q", chord.String())}
}

func runtimeDirCheck() Check {
	if strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")) == "" {
		return Check{Name: "XDG_RUNTIME_DIR", Pass: false, Message: "not set; the control socket has no home"}
	}
	return Check{Name: "XDG_RUNTIME_DIR", Pass: true, Message: "set"}
}

// audioCheck runs live device selection to surface selection/fallback issues.
func audioCheck(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// endpointCheck verifies the endpoint answers HTTP at all. Auth and method
// rejections still prove reachability, so any response passes.
func endpointCheck(name, url string) Check {
	if strings.TrimSpace(url) == "" {
		return Check{Name: name, Pass: false, Message: "endpoint is empty"}
	}

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable (HTTP %d)", resp.StatusCode)}
}

func binaryCheck(bin, purpose string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH (%s)", purpose)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s", path)}
}
