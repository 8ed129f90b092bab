package indicator

import (
	"os"
	"strings"

	"github.com/rbright/recite/internal/config"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	recording  string
	processing string
	errorText  string
}

func localeFromEnv() locale {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			return resolveLocale(raw)
		}
	}
	return localeEnglish
}

// resolveLocale maps a POSIX locale string to a supported message set.
// English is the only set shipped today.
func resolveLocale(string) locale {
	return localeEnglish
}

func defaultMessages(locale) messages {
	return messages{
		recording:  "Recording…",
		processing: "Processing…",
		errorText:  "Something went wrong",
	}
}

// resolveMessages overlays configured texts onto the locale defaults.
func resolveMessages(cfg config.IndicatorConfig, tag locale) messages {
	m := defaultMessages(tag)
	if text := strings.TrimSpace(cfg.TextRecording); text != "" {
		m.recording = text
	}
	if text := strings.TrimSpace(cfg.TextProcessing); text != "" {
		m.processing = text
	}
	if text := strings.TrimSpace(cfg.TextError); text != "" {
		m.errorText = text
	}
	return m
}
