// Package audio handles input device discovery, selection, and PCM capture.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device is one PulseAudio input source as shown by `p2t devices`.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection names the source that capture will open. Warning is set when the
// configured input was passed over for the fallback.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newPulseClient() (*pulse.Client, error) {
	return pulse.NewClient(
		pulse.ClientApplicationName("p2t"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
}

// ListDevices snapshots the server's input sources, marking the default one
// and folding mute state and active-port availability into each entry.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, fmt.Errorf("connect to pulseaudio: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("query default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("enumerate sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice picks the capture source for a new recording from the live
// source list and the audio.input/audio.fallback settings.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList resolves the configured input against a source
// snapshot. A primary that is muted or has no usable port is passed over for
// the configured fallback, or for the server default when none is set.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	primary, err := resolveTerm(devices, input)
	if err != nil {
		return Selection{}, fmt.Errorf("audio.input: %w", err)
	}

	reason := blockReason(*primary)
	if reason == "" {
		return Selection{Device: *primary}, nil
	}

	alternate, err := resolveTerm(devices, fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("input source %q is %s and audio.fallback: %w", primary.ID, reason, err)
	}
	if altReason := blockReason(*alternate); altReason != "" {
		return Selection{}, fmt.Errorf("fallback source %q is %s (input source %q is %s)", alternate.ID, altReason, primary.ID, reason)
	}

	return Selection{
		Device:   *alternate,
		Warning:  fmt.Sprintf("input source %q is %s; capturing from %q instead", primary.ID, reason, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

// resolveTerm maps a config value to a source: empty or "default" means the
// server default, anything else is a substring search over id and description.
func resolveTerm(devices []Device, term string) (*Device, error) {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" || term == "default" {
		for i := range devices {
			if devices[i].Default {
				return &devices[i], nil
			}
		}
		return nil, errors.New("pulseaudio reports no default input source")
	}

	for i := range devices {
		if deviceMatches(devices[i], term) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("%q did not match any input source", term)
}

// blockReason returns why a source cannot be captured from, or "" when it can.
func blockReason(dev Device) string {
	if dev.Muted {
		return "muted"
	}
	if !dev.Available {
		return "unavailable"
	}
	return ""
}

func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable reads availability off the active port. Sources without
// ports (monitors, some virtual devices) count as available.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// Port availability is unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
