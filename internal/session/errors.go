package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPipelineUnavailable indicates a collaborator was not wired.
	ErrPipelineUnavailable = errors.New("speech pipeline not configured")
	// ErrPermission marks microphone access being refused.
	ErrPermission = errors.New("microphone permission denied")
	// ErrDevice marks capture hardware failures.
	ErrDevice = errors.New("audio device error")
	// ErrService marks transcription or question backend failures.
	ErrService = errors.New("service error")
	// ErrContent marks unusable results such as a too-short story.
	ErrContent = errors.New("content error")
	// ErrShareCancelled is returned by a Sharer when the user dismisses the share sheet.
	ErrShareCancelled = errors.New("share cancelled")
	// ErrShareUnavailable is returned by a Sharer when no share target exists.
	ErrShareUnavailable = errors.New("share unavailable")
	// ErrNoCapture means stop found no active capture.
	ErrNoCapture = errors.New("no active capture")
	// ErrBusy rejects an intent while another operation is in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrNothingToCopy rejects copy and share before a summary exists.
	ErrNothingToCopy = errors.New("no finished session to copy")
)

// Kind classifies a failure for the user-facing error state.
type Kind int

const (
	KindPermission Kind = iota + 1
	KindDevice
	KindService
	KindContent
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission"
	case KindDevice:
		return "device"
	case KindService:
		return "service"
	case KindContent:
		return "content"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPermission:
		return ErrPermission
	case KindDevice:
		return ErrDevice
	case KindContent:
		return ErrContent
	default:
		return ErrService
	}
}

// Failure is a classified collaborator error.
type Failure struct {
	Kind  Kind
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Stage, f.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind.sentinel()}
	}
	return []error{f.Kind.sentinel(), f.Err}
}

// classify wraps err as a Failure, inferring the kind from sentinels.
func classify(stage string, fallback Kind, err error) *Failure {
	var existing *Failure
	if errors.As(err, &existing) {
		return existing
	}
	kind := fallback
	switch {
	case errors.Is(err, ErrPermission):
		kind = KindPermission
	case errors.Is(err, ErrDevice):
		kind = KindDevice
	case errors.Is(err, ErrContent):
		kind = KindContent
	}
	return &Failure{Kind: kind, Stage: stage, Err: err}
}

// Message renders err as the text shown in the error state.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if !errors.As(err, &f) {
		return err.Error()
	}

	detail := ""
	if f.Err != nil {
		detail = strings.TrimSpace(f.Err.Error())
	}
	switch f.Kind {
	case KindPermission:
		return "Microphone permission denied. Allow microphone access and try again."
	case KindDevice:
		return joinDetail("Could not record audio", detail)
	case KindContent:
		return joinDetail("Unusable result", detail)
	default:
		return joinDetail(stageTitle(f.Stage)+" failed", detail)
	}
}

func stageTitle(stage string) string {
	if stage == "" {
		return "Request"
	}
	return strings.ToUpper(stage[:1]) + stage[1:]
}

func joinDetail(prefix string, detail string) string {
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}
