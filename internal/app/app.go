// Package app wires the recite commands to their collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/cli"
	"github.com/rbright/recite/internal/config"
	"github.com/rbright/recite/internal/doctor"
	"github.com/rbright/recite/internal/fsm"
	"github.com/rbright/recite/internal/indicator"
	"github.com/rbright/recite/internal/ipc"
	"github.com/rbright/recite/internal/logging"
	"github.com/rbright/recite/internal/metrics"
	"github.com/rbright/recite/internal/output"
	"github.com/rbright/recite/internal/pipeline"
	"github.com/rbright/recite/internal/session"
	"github.com/rbright/recite/internal/tui"
)

const (
	forwardTimeout = 2 * time.Second
	probeTimeout   = 180 * time.Millisecond
	acquireRetries = 8
)

// Runner executes one recite invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Present renders a practice session; nil uses the terminal UI.
	Present func(ctx context.Context, ctrl tui.Controller, out io.Writer) error
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	root := cli.NewRootCommand(r, r.Stdout, r.Stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	code := cli.ExitCode(err)
	switch {
	case err == nil:
	case errors.As(err, new(cli.ExitError)):
	case errors.As(err, new(cli.UsageError)):
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, root.UsageString())
	default:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
	}
	return code
}

type env struct {
	logger *slog.Logger
	loaded config.Loaded
	close  func()
}

// setup opens the log sink and, when withConfig is set, loads and reports the
// configuration.
func (r Runner) setup(opts cli.Options, command string, withConfig bool) (env, error) {
	runtime, err := logging.New(logging.Options{Level: logging.ParseLevel(opts.LogLevel), Command: command})
	if err != nil {
		return env{}, fmt.Errorf("setup logging: %w", err)
	}
	e := env{logger: r.Logger, close: func() { _ = runtime.Close() }}
	if e.logger == nil {
		e.logger = runtime.Logger
	}

	if withConfig {
		if err := config.LoadDotenv(); err != nil {
			e.logger.Warn("dotenv load failed", "error", err.Error())
		}
		e.loaded, err = config.Load(opts.ConfigPath)
		if err != nil {
			e.logger.Error("load config failed", "error", err.Error())
			e.close()
			return env{}, err
		}
		for _, w := range e.loaded.Warnings {
			msg := w.Message
			if w.Line > 0 {
				msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
			}
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
			e.logger.Warn("config warning", "line", w.Line, "message", w.Message)
		}
	}

	e.logger.Info("command start",
		"config", e.loaded.Path,
		"log", runtime.Path,
	)
	return e, nil
}

// Practice owns the control socket and runs one controller until the user
// quits or ctx ends.
func (r Runner) Practice(ctx context.Context, opts cli.Options) error {
	e, err := r.setup(opts, "practice", true)
	if err != nil {
		return err
	}
	defer e.close()
	cfg, logger := e.loaded.Config, e.logger

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	listener, err := ipc.Acquire(ctx, socketPath, probeTimeout, acquireRetries, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	registry := metrics.New()
	notifier := indicator.New(cfg.Indicator, logger)
	defer notifier.Wait()

	var transcriber session.Transcriber
	transcriber, err = pipeline.NewTranscriber(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("transcriber unavailable", "backend", cfg.Transcription.Backend, "error", err.Error())
		transcriber = pipeline.Unavailable{Err: err}
	}
	var questions session.QuestionGenerator
	questions, err = pipeline.NewQuestionGenerator(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("question generator unavailable", "backend", cfg.Questions.Backend, "error", err.Error())
		questions = pipeline.Unavailable{Err: err}
	}

	ctrl := session.NewController(logger, session.Deps{
		Recorder:    pipeline.NewRecorder(cfg, logger),
		Transcriber: transcriber,
		Questions:   questions,
		Clipboard:   output.NewClipboard(cfg.Clipboard, logger),
		Sharer:      output.NewSharer(cfg.Share, logger),
		Indicator:   notifier,
		Observer:    registry,
	}, session.Options{
		StoryTimeout:   cfg.Session.StoryTimeout,
		CopiedFlash:    cfg.Session.CopiedFlash,
		NoticeDuration: cfg.Session.NoticeDuration,
		MinStoryChars:  cfg.Session.MinStoryChars,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	resultCh := make(chan session.Result, 1)
	go func() { resultCh <- ctrl.Run(runCtx) }()

	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- ipc.Serve(runCtx, listener, ctrl) }()

	present := r.Present
	if present == nil {
		present = tui.Run
	}
	presentErr := present(runCtx, ctrl, r.Stdout)

	ctrl.Close()
	result := <-resultCh
	cancelRun()
	serverErr := <-serverErrCh

	logSessionResult(logger, result)
	if path := cfg.Metrics.Textfile; path != "" {
		if err := registry.WriteTextfile(path); err != nil {
			logger.Error("write metrics textfile failed", "path", path, "error", err.Error())
		}
	}

	switch {
	case presentErr != nil:
		return fmt.Errorf("ui: %w", presentErr)
	case serverErr != nil:
		return fmt.Errorf("ipc server failed: %w", serverErr)
	case errors.Is(result.Err, context.Canceled) && ctx.Err() != nil:
		return nil
	default:
		return result.Err
	}
}

// Forward sends one session command to the running owner.
func (r Runner) Forward(ctx context.Context, opts cli.Options, command string) error {
	e, err := r.setup(opts, command, false)
	if err != nil {
		return err
	}
	defer e.close()

	resp, err := r.send(ctx, command)
	if err != nil {
		e.logger.Warn("forward failed", "command", command, "error", err.Error())
		return err
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

// Status prints the owner's state, or idle when no session is running.
func (r Runner) Status(ctx context.Context, opts cli.Options) error {
	e, err := r.setup(opts, "status", false)
	if err != nil {
		return err
	}
	defer e.close()

	resp, err := r.send(ctx, "status")
	if errors.Is(err, errNoSession) {
		fmt.Fprintln(r.Stdout, "idle")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Stdout, formatStatus(resp))
	return nil
}

func (r Runner) Doctor(ctx context.Context, opts cli.Options) error {
	e, err := r.setup(opts, "doctor", true)
	if err != nil {
		return err
	}
	defer e.close()

	report := doctor.Run(ctx, e.loaded)
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return cli.ExitError{Code: 1}
	}
	return nil
}

func (r Runner) Devices(ctx context.Context, opts cli.Options) error {
	e, err := r.setup(opts, "devices", false)
	if err != nil {
		return err
	}
	defer e.close()

	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return cli.ExitError{Code: 1}
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return nil
}

var errNoSession = errors.New("no active recite session")

// send forwards command to the owner. An error response becomes an error
// carrying the owner's message.
func (r Runner) send(ctx context.Context, command string) (ipc.Response, error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return ipc.Response{}, err
	}
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if errors.Is(err, ipc.ErrNoOwner) {
		return ipc.Response{}, errNoSession
	}
	if err != nil {
		return ipc.Response{}, fmt.Errorf("forward command %q: %w", command, err)
	}
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	switch {
	case resp.Question != "":
		state += fmt.Sprintf(" [%d/%d]: %s", resp.Index+1, resp.Total, resp.Question)
	case resp.Error != "":
		state += ": " + resp.Error
	}
	if resp.Notice != "" {
		state += " (" + resp.Notice + ")"
	}
	return state
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"final_state", fsm.Describe(result.Final.State),
		"completed", result.Completed,
		"failures", result.Failures,
		"resets", result.Resets,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"story_length", len(result.Final.Session.StoryText),
		"question_count", len(result.Final.Session.QnA),
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
