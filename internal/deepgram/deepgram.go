// Package deepgram transcribes finished clips over Deepgram's streaming
// listen websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/transcript"
	"github.com/rbright/recite/internal/version"
)

// chunkBytes is 250ms of 16kHz mono s16 audio.
const chunkBytes = 8000

type Config struct {
	APIKey   string
	URL      string
	Model    string
	Language string
	Dialer   *websocket.Dialer
}

type Client struct {
	cfg Config
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("deepgram: DEEPGRAM_API_KEY is not set")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = "wss://api.deepgram.com/v1/listen"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "nova-3"
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{cfg: cfg}, nil
}

// Transcribe streams the clip, closes the stream, and joins every final
// segment Deepgram returns before hanging up.
func (c *Client) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Empty() {
		return "", nil
	}
	wsURL, err := listenURL(c.cfg, clip)
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+c.cfg.APIKey)
	headers.Set("User-Agent", version.UserAgent())

	conn, _, err := c.cfg.Dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return "", fmt.Errorf("deepgram: connect: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var (
		wg       sync.WaitGroup
		writeErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeErr = writeClip(conn, clip.PCM)
	}()

	segments, readErr := readFinals(conn)
	wg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if readErr != nil {
		return "", readErr
	}
	if writeErr != nil {
		return "", writeErr
	}
	return transcript.Join(segments), nil
}

func writeClip(conn *websocket.Conn, pcm []byte) error {
	for start := 0; start < len(pcm); start += chunkBytes {
		end := min(start+chunkBytes, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[start:end]); err != nil {
			return fmt.Errorf("deepgram: send audio: %w", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("deepgram: close stream: %w", err)
	}
	return nil
}

// readFinals collects final transcripts until the server sends Metadata or
// closes the socket.
func readFinals(conn *websocket.Conn) ([]string, error) {
	var segments []string
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return segments, nil
			}
			return nil, fmt.Errorf("deepgram: read: %w", err)
		}

		var msg message
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		switch {
		case strings.EqualFold(msg.Type, "Error"):
			detail := strings.TrimSpace(msg.Description)
			if detail == "" {
				detail = strings.TrimSpace(msg.Message)
			}
			if detail == "" {
				detail = "unknown error"
			}
			return nil, fmt.Errorf("deepgram: %s", detail)
		case strings.EqualFold(msg.Type, "Metadata"):
			return segments, nil
		case msg.IsFinal:
			if text := msg.transcript(); text != "" {
				segments = append(segments, text)
			}
		}
	}
}

type message struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (m message) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Channel.Alternatives[0].Transcript)
}

func listenURL(cfg Config, clip audio.Clip) (string, error) {
	raw := strings.TrimSpace(cfg.URL)
	switch {
	case strings.HasPrefix(raw, "https://"):
		raw = "wss://" + strings.TrimPrefix(raw, "https://")
	case strings.HasPrefix(raw, "http://"):
		raw = "ws://" + strings.TrimPrefix(raw, "http://")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("deepgram: invalid url %q", cfg.URL)
	}

	rate, channels := clip.SampleRate, clip.Channels
	if rate <= 0 {
		rate = audio.SampleRate
	}
	if channels <= 0 {
		channels = audio.Channels
	}

	q := u.Query()
	q.Set("model", cfg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(rate))
	q.Set("channels", strconv.Itoa(channels))
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "false")
	if lang := strings.TrimSpace(cfg.Language); lang != "" {
		q.Set("language", lang)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
