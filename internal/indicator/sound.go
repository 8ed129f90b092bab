package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"

	"github.com/rbright/recite/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

var cueNames = map[cueKind]string{
	cueStart:    "start",
	cueStop:     "stop",
	cueComplete: "complete",
	cueCancel:   "cancel",
}

func (k cueKind) String() string {
	if name, ok := cueNames[k]; ok {
		return name
	}
	return "unknown"
}

// file returns the configured override for k, with ~ expanded.
func (k cueKind) file(cfg config.IndicatorConfig) string {
	switch k {
	case cueStart:
		return expandHome(cfg.SoundStartFile)
	case cueStop:
		return expandHome(cfg.SoundStopFile)
	case cueComplete:
		return expandHome(cfg.SoundCompleteFile)
	case cueCancel:
		return expandHome(cfg.SoundCancelFile)
	default:
		return ""
	}
}

const (
	cueRate   = 16000
	cueGain   = 0.18
	noteGap   = 22 * time.Millisecond
	rampLimit = 5 * time.Millisecond
)

type note struct {
	hz  float64
	dur time.Duration
}

// melodies are the built-in cues: rising for start and complete, falling
// for cancel.
var melodies = map[cueKind][]note{
	cueStart:    {{880, 70 * time.Millisecond}, {1175, 70 * time.Millisecond}},
	cueStop:     {{620, 120 * time.Millisecond}},
	cueComplete: {{740, 65 * time.Millisecond}, {988, 90 * time.Millisecond}},
	cueCancel:   {{480, 75 * time.Millisecond}, {360, 90 * time.Millisecond}},
}

var rendered = func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(melodies))
	for kind, notes := range melodies {
		out[kind] = render(notes)
	}
	return out
}()

type cuePlayer interface {
	play(cueKind) error
}

// pulseCuePlayer plays a configured cue file through pw-play and falls back
// to the built-in melody over PulseAudio.
type pulseCuePlayer struct {
	cfg config.IndicatorConfig
}

func (p pulseCuePlayer) play(kind cueKind) error {
	if path := kind.file(p.cfg); path != "" {
		if err := playFile(path); err == nil {
			return nil
		}
	}
	samples := rendered[kind]
	if len(samples) == 0 {
		return nil
	}
	return playSamples(samples)
}

// render lays notes end to end with a short silence between them.
func render(notes []note) []int16 {
	if len(notes) == 0 {
		return nil
	}
	var pcm []int16
	for i, n := range notes {
		if i > 0 {
			pcm = append(pcm, make([]int16, sampleCount(noteGap))...)
		}
		pcm = appendNote(pcm, n)
	}
	return pcm
}

// appendNote adds one sine note with linear attack and release ramps.
func appendNote(pcm []int16, n note) []int16 {
	count := sampleCount(n.dur)
	if count <= 0 || n.hz <= 0 {
		return pcm
	}
	ramp := max(min(count/10, sampleCount(rampLimit)), 1)
	step := 2 * math.Pi * n.hz / cueRate
	for i := range count {
		gain := cueGain * min(1, float64(i)/float64(ramp), float64(count-1-i)/float64(ramp))
		pcm = append(pcm, int16(math.Round(math.Sin(step*float64(i))*gain*math.MaxInt16)))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueRate))
}

func expandHome(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

func playFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	if out, err := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path).CombinedOutput(); err != nil {
		return fmt.Errorf("pw-play %q: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func playSamples(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("recite"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("recite cue"),
	)
	if err != nil {
		return fmt.Errorf("open cue playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}
