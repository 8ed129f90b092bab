package ipc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Question string `json:"question,omitempty"`
	Index    int    `json:"index,omitempty"`
	Total    int    `json:"total,omitempty"`
	Copied   bool   `json:"copied,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

func (r Request) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"command": r.Command})
}

func requestFromStruct(s *structpb.Struct) (Request, error) {
	if s == nil {
		return Request{}, fmt.Errorf("empty request")
	}
	field, ok := s.GetFields()["command"]
	if !ok {
		return Request{}, fmt.Errorf("request missing command")
	}
	command, ok := field.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return Request{}, fmt.Errorf("request command must be a string")
	}
	return Request{Command: command.StringValue}, nil
}

func (r Response) toStruct() (*structpb.Struct, error) {
	fields := map[string]any{"ok": r.OK}
	putString(fields, "state", r.State)
	putString(fields, "message", r.Message)
	putString(fields, "error", r.Error)
	putString(fields, "question", r.Question)
	putString(fields, "notice", r.Notice)
	if r.Total > 0 {
		fields["index"] = float64(r.Index)
		fields["total"] = float64(r.Total)
	}
	if r.Copied {
		fields["copied"] = true
	}
	return structpb.NewStruct(fields)
}

func responseFromStruct(s *structpb.Struct) Response {
	fields := s.GetFields()
	return Response{
		OK:       fields["ok"].GetBoolValue(),
		State:    fields["state"].GetStringValue(),
		Message:  fields["message"].GetStringValue(),
		Error:    fields["error"].GetStringValue(),
		Question: fields["question"].GetStringValue(),
		Index:    int(fields["index"].GetNumberValue()),
		Total:    int(fields["total"].GetNumberValue()),
		Copied:   fields["copied"].GetBoolValue(),
		Notice:   fields["notice"].GetStringValue(),
	}
}

func putString(fields map[string]any, key string, value string) {
	if value != "" {
		fields[key] = value
	}
}
