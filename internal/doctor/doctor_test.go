package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yyyzl/push-2-talk/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestKeyCheckEmptyPrimary(t *testing.T) {
	cfg := config.Default()
	cfg.Keys.Primary = "   "

	check := keyCheck(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "empty")
}

func TestKeyCheckConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Keys.Primary = "sk-test"

	check := keyCheck(cfg)
	require.True(t, check.Pass)
}

func TestChordCheckValid(t *testing.T) {
	cfg := config.Default()
	cfg.Hotkey.Chord = "ctrl+shift+space"

	check := chordCheck(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, `"ctrl+shift+space"`)
}

func TestChordCheckInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Hotkey.Chord = "ctrl+ctrl+space"

	check := chordCheck(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "duplicate modifier")
}

func TestRuntimeDirCheck(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	require.True(t, runtimeDirCheck().Pass)

	t.Setenv("XDG_RUNTIME_DIR", "")
	check := runtimeDirCheck()
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "control socket")
}

func TestEndpointCheckReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	t.Cleanup(server.Close)

	check := endpointCheck("asr.endpoint", server.URL)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 405")
}

func TestEndpointCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	check := endpointCheck("asr.endpoint", url)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "request failed")
}

func TestEndpointCheckEmpty(t *testing.T) {
	check := endpointCheck("refine.endpoint", "  ")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "endpoint is empty")
}

func TestBinaryCheckFound(t *testing.T) {
	check := binaryCheck("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "found at")
}

func TestBinaryCheckMissing(t *testing.T) {
	check := binaryCheck("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestAudioCheckFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := audioCheck(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestRunSkipsOptionalChecksWhenDisabled(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Keys.Primary = "sk-test"
	cfg.ASR.Endpoint = server.URL
	cfg.Refine.Enable = false
	cfg.Notify.Enable = false

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	require.NotEmpty(t, report.Checks)

	for _, check := range report.Checks {
		require.NotEqual(t, "refine.endpoint", check.Name)
		require.NotEqual(t, "busctl", check.Name)
	}
}

func TestRunIncludesRefineAndNotifyChecksWhenEnabled(t *testing.T) {
	binDir := t.TempDir()
	fakeBusctl := filepath.Join(binDir, "busctl")
	require.NoError(t, os.WriteFile(fakeBusctl, []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Keys.Primary = "sk-test"
	cfg.ASR.Endpoint = server.URL
	cfg.Refine.Enable = true
	cfg.Refine.Endpoint = server.URL
	cfg.Notify.Enable = true

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true})

	var sawRefine, sawBusctl bool
	for _, check := range report.Checks {
		switch check.Name {
		case "refine.endpoint":
			sawRefine = true
			require.True(t, check.Pass)
		case "busctl":
			sawBusctl = true
			require.True(t, check.Pass)
		}
	}
	require.True(t, sawRefine)
	require.True(t, sawBusctl)
}
