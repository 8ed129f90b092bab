package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// fragmentBytes is 20ms of 16kHz mono s16.
const fragmentBytes = 640

const bytesPerSecond = SampleRate * Channels * bitsPerSample / 8

// CaptureOptions bounds one capture.
type CaptureOptions struct {
	// MaxDuration caps retained audio; zero keeps everything.
	MaxDuration time.Duration
}

// pcmBuffer keeps captured frames up to limit bytes. A zero limit is
// unbounded.
type pcmBuffer struct {
	data      []byte
	limit     int
	truncated bool
}

func (b *pcmBuffer) append(frame []byte) {
	if b.limit > 0 {
		room := max(b.limit-len(b.data), 0)
		if len(frame) > room {
			frame = frame[:room]
			b.truncated = true
		}
	}
	b.data = append(b.data, frame...)
}

// Capture records one Pulse source into memory until stopped or its context
// ends.
type Capture struct {
	device Device
	client *pulse.Client
	stream *pulse.RecordStream
	done   chan struct{}

	mu      sync.Mutex
	buf     pcmBuffer
	stopped bool

	writers  sync.WaitGroup
	received atomic.Int64
}

func newCapture(device Device, opts CaptureOptions) *Capture {
	c := &Capture{device: device, done: make(chan struct{})}
	if opts.MaxDuration > 0 {
		c.buf.limit = int(opts.MaxDuration.Seconds() * bytesPerSecond)
	}
	return c
}

// StartCapture opens a 16kHz mono s16 record stream on device.
func StartCapture(ctx context.Context, device Device, opts CaptureOptions) (*Capture, error) {
	client, err := connect()
	if err != nil {
		return nil, err
	}
	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, classifyPulseError(fmt.Errorf("resolve source %q: %w", device.ID, err))
	}

	c := newCapture(device, opts)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("recite reading practice"),
	)
	if err != nil {
		c.Close()
		return nil, classifyPulseError(fmt.Errorf("create pulse record stream: %w", err))
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()
	return c, nil
}

func (c *Capture) Device() Device { return c.device }

// BytesCaptured counts every byte delivered by the server, including any
// dropped past MaxDuration.
func (c *Capture) BytesCaptured() int64 { return c.received.Load() }

func (c *Capture) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.truncated
}

// RawPCM copies the retained samples.
func (c *Capture) RawPCM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf.data...)
}

func (c *Capture) Clip() Clip {
	return Clip{PCM: c.RawPCM(), SampleRate: SampleRate, Channels: Channels, Device: c.device.ID}
}

// Err reports a stream failure while the capture is running. A stopped
// capture never fails.
func (c *Capture) Err() error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	switch {
	case stopped || c.stream == nil:
		return nil
	case c.stream.Error() != nil:
		return classifyPulseError(fmt.Errorf("record stream: %w", c.stream.Error()))
	case c.stream.Closed():
		return errors.New("record stream closed by sound server")
	}
	return nil
}

// Stop ends the stream and waits for in-flight frames. Calling it again is a
// no-op.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	c.writers.Wait()
	return nil
}

func (c *Capture) Close() { _ = c.Stop() }

// onPCM is the record stream's sink. It returns io.EOF once stopped so the
// stream winds down.
func (c *Capture) onPCM(frame []byte) (int, error) {
	if len(frame) == 0 {
		return 0, nil
	}
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop cannot start waiting between the check and Add.
	c.writers.Add(1)
	defer c.writers.Done()
	c.buf.append(frame)
	c.mu.Unlock()

	c.received.Add(int64(len(frame)))
	return len(frame), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }
