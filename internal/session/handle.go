package session

import (
	"context"

	"github.com/rbright/recite/internal/fsm"
	"github.com/rbright/recite/internal/ipc"
)

// Handle maps one IPC command onto controller intents.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var (
		err     error
		message string
	)

	switch req.Command {
	case "status":
		return c.statusResponse("")
	case "story":
		if _, recording := c.State().(fsm.RecordingStory); recording {
			err, message = c.StopStory(ctx), "story stop requested"
		} else {
			err, message = c.StartStory(ctx), "story recording requested"
		}
	case "answer":
		if _, recording := c.State().(fsm.RecordingAnswer); recording {
			err, message = c.StopAnswer(ctx), "answer stop requested"
		} else {
			err, message = c.StartAnswer(ctx), "answer recording requested"
		}
	case "stop":
		switch c.State().(type) {
		case fsm.RecordingStory:
			err, message = c.StopStory(ctx), "story stop requested"
		case fsm.RecordingAnswer:
			err, message = c.StopAnswer(ctx), "answer stop requested"
		default:
			message = "not recording"
		}
	case "reset":
		err, message = c.Reset(ctx), "session reset"
	case "copy":
		err, message = c.Copy(ctx), "copy requested"
	case "share":
		err, message = c.Share(ctx), "share requested"
	default:
		return ipc.Response{OK: false, Error: "unknown command: " + req.Command}
	}

	if err != nil {
		resp := c.statusResponse("")
		resp.OK = false
		resp.Error = err.Error()
		return resp
	}
	return c.statusResponse(message)
}

func (c *Controller) statusResponse(message string) ipc.Response {
	snap := c.Snapshot()
	resp := ipc.Response{
		OK:      true,
		State:   snap.State.Name(),
		Message: message,
		Copied:  snap.Copied,
		Notice:  snap.Notice,
	}
	if text, index, total, ok := snap.Question(); ok {
		resp.Question = text
		resp.Index = index
		resp.Total = total
	}
	if failure := snap.ErrorMessage(); failure != "" {
		resp.Error = failure
	}
	return resp
}
