package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"
)

const (
	// SampleRate is the capture rate used for every recording.
	SampleRate = 16000
	// Channels is the capture channel count.
	Channels = 1

	bitsPerSample = 16
)

// Clip is one finished recording of little-endian s16 PCM.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
	Device     string
}

// Empty reports whether the clip carries no samples.
func (c Clip) Empty() bool {
	return len(c.PCM) == 0
}

// Duration returns the playback length of the clip.
func (c Clip) Duration() time.Duration {
	rate, channels := c.format()
	bytesPerSecond := rate * channels * (bitsPerSample / 8)
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(len(c.PCM)) * time.Second / time.Duration(bytesPerSecond)
}

// WAV returns the clip wrapped in a minimal RIFF/WAVE container.
func (c Clip) WAV() []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(c.PCM))
	rate, channels := c.format()
	_ = WriteWAV(&buf, c.PCM, rate, channels)
	return buf.Bytes()
}

func (c Clip) format() (int, int) {
	rate := c.SampleRate
	if rate <= 0 {
		rate = SampleRate
	}
	channels := c.Channels
	if channels <= 0 {
		channels = Channels
	}
	return rate, channels
}

// WriteWAV writes raw little-endian PCM bytes with a minimal WAV header.
func WriteWAV(w io.Writer, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
