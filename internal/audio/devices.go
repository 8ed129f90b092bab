// Package audio handles input device discovery, selection, and clip capture.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device is one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// usable reports whether the source can be recorded from right now.
func (d Device) usable() bool { return d.Available && !d.Muted }

// problem names why an unusable source was skipped.
func (d Device) problem() string {
	if d.Muted {
		return "muted"
	}
	return "unavailable"
}

// Selection is the source chosen for a recording. Warning is set when the
// configured input could not be used as-is.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ErrPermissionDenied marks a capture refused by the sound server.
var ErrPermissionDenied = errors.New("microphone access denied")

var sourceStates = map[uint32]string{
	0: "running",
	1: "idle",
	2: "suspended",
}

// ListDevices queries the sound server for its input sources.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := connect()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	def, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var reply pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	out := make([]Device, 0, len(reply))
	for _, info := range reply {
		if info == nil {
			continue
		}
		out = append(out, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == def.ID(),
		})
	}
	return out, nil
}

// SelectDevice picks the source for input, trying fallback when input is
// muted or unplugged. Either may be "default" or empty for the server default.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// preference is a normalized device query; an empty term means the default
// source.
type preference struct {
	term string
}

func parsePreference(raw string) preference {
	term := strings.ToLower(strings.TrimSpace(raw))
	if term == "default" {
		term = ""
	}
	return preference{term: term}
}

func (p preference) isDefault() bool { return p.term == "" }

// find resolves p within devices. It returns nil when nothing matches.
func (p preference) find(devices []Device) *Device {
	for i := range devices {
		if p.isDefault() && devices[i].Default {
			return &devices[i]
		}
		if !p.isDefault() && deviceMatches(devices[i], p.term) {
			return &devices[i]
		}
	}
	return nil
}

func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}
	want, alt := parsePreference(input), parsePreference(fallback)

	primary := want.find(devices)
	switch {
	case primary == nil && want.isDefault():
		return Selection{}, errors.New("default audio source is unavailable")
	case primary == nil:
		return Selection{}, fmt.Errorf("audio.input %q did not match any device", want.term)
	case primary.usable():
		return Selection{Device: *primary}, nil
	}

	why := primary.problem()
	backup := alt.find(devices)
	if backup == nil {
		if alt.isDefault() {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: default audio source is unavailable", primary.ID, why)
		}
		return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, why, alt.term)
	}
	if !backup.usable() {
		return Selection{}, fmt.Errorf("audio fallback device %q is %s", backup.ID, backup.problem())
	}

	return Selection{
		Device:   *backup,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, why, backup.ID),
		Fallback: backup.ID != primary.ID,
	}, nil
}

// deviceMatches reports whether term (already lowercased) appears in the
// device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceStateString(state uint32) string {
	if name, ok := sourceStates[state]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// sourceAvailable is false only when the active port reports "no".
// Sources without ports are always available.
func sourceAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	const portUnavailable = 1
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			return port.Available != portUnavailable
		}
	}
	return true
}

func connect() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("recite"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, classifyPulseError(fmt.Errorf("connect pulse server: %w", err))
	}
	return client, nil
}

// classifyPulseError wraps access-denied failures with ErrPermissionDenied.
func classifyPulseError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"access denied", "permission denied"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}
	return err
}
