package bridge

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeSender struct {
	sent []map[string]any
}

func (s *fakeSender) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	s.sent = append(s.sent, m)
	return nil
}

// outputs returns the function_call_output items among sent events.
func (s *fakeSender) outputs() []map[string]any {
	var out []map[string]any
	for _, evt := range s.sent {
		if evt["type"] != "conversation.item.create" {
			continue
		}
		item := evt["item"].(map[string]any)
		if item["type"] == "function_call_output" {
			out = append(out, item)
		}
	}
	return out
}

type echoTool struct {
	gotArgs json.RawMessage
}

func (e *echoTool) Name() string        { return "echo" }
func (e *echoTool) Description() string { return "Echoes input" }
func (e *echoTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`)
}
func (e *echoTool) Handle(_ context.Context, args json.RawMessage) Result {
	e.gotArgs = args
	var p struct {
		Text string `json:"text"`
	}
	json.Unmarshal(args, &p)
	return Result{Output: map[string]any{"ok": true, "text": p.Text}, Reply: "Say it back."}
}

func newTestBridge(tools ...Tool) (*Bridge, *fakeSender) {
	r := NewRegistry()
	for _, t := range tools {
		r.Register(t)
	}
	b := New(r)
	s := &fakeSender{}
	b.SetSender(s)
	return b, s
}

func TestHandleToolCallEmitsOneCorrelatedResult(t *testing.T) {
	b, s := newTestBridge(&echoTool{})

	b.HandleEvent(context.Background(), []byte(`{
		"type": "response.function_call_arguments.done",
		"name": "echo",
		"call_id": "call-1",
		"arguments": "{\"text\":\"hi\"}"
	}`))

	outputs := s.outputs()
	if len(outputs) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(outputs))
	}
	if outputs[0]["call_id"] != "call-1" {
		t.Errorf("expected call_id call-1, got %v", outputs[0]["call_id"])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(outputs[0]["output"].(string)), &payload); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if payload["text"] != "hi" {
		t.Errorf("unexpected payload %v", payload)
	}

	// A response turn follows the result.
	last := s.sent[len(s.sent)-1]
	if last["type"] != "response.create" {
		t.Errorf("expected trailing response.create, got %v", last["type"])
	}
	if last["response"].(map[string]any)["instructions"] != "Say it back." {
		t.Errorf("expected reply instructions, got %v", last)
	}
}

func TestMissingCallIDDroppedSilently(t *testing.T) {
	b, s := newTestBridge(&echoTool{})

	b.HandleEvent(context.Background(), []byte(`{
		"type": "response.function_call_arguments.done",
		"name": "echo",
		"arguments": "{}"
	}`))

	if len(s.sent) != 0 {
		t.Errorf("uncorrelatable call must emit nothing, got %v", s.sent)
	}
}

func TestUnknownToolGetsNotImplementedResult(t *testing.T) {
	b, s := newTestBridge()

	b.HandleEvent(context.Background(), []byte(`{
		"type": "response.function_call_arguments.done",
		"name": "launch_rockets",
		"call_id": "call-9",
		"arguments": "{}"
	}`))

	outputs := s.outputs()
	if len(outputs) != 1 {
		t.Fatalf("expected one result, got %d", len(outputs))
	}
	var payload map[string]any
	json.Unmarshal([]byte(outputs[0]["output"].(string)), &payload)
	if payload["ok"] != false {
		t.Errorf("expected ok=false, got %v", payload)
	}
	if payload["error"] != "tool launch_rockets not implemented" {
		t.Errorf("unexpected error text %v", payload["error"])
	}
}

func TestMalformedArgumentsDegradeToEmptyObject(t *testing.T) {
	tool := &echoTool{}
	b, s := newTestBridge(tool)

	b.HandleEvent(context.Background(), []byte(`{
		"type": "response.function_call_arguments.done",
		"name": "echo",
		"call_id": "call-2",
		"arguments": "{not json"
	}`))

	if string(tool.gotArgs) != "{}" {
		t.Errorf("expected empty-object args, got %s", tool.gotArgs)
	}
	if len(s.outputs()) != 1 {
		t.Error("malformed args must still produce a result")
	}
}

func TestInlineArgumentObjectAccepted(t *testing.T) {
	tool := &echoTool{}
	b, _ := newTestBridge(tool)

	b.HandleEvent(context.Background(), []byte(`{
		"type": "response.function_call_arguments.done",
		"name": "echo",
		"call_id": "call-3",
		"arguments": {"text": "inline"}
	}`))

	var p struct {
		Text string `json:"text"`
	}
	json.Unmarshal(tool.gotArgs, &p)
	if p.Text != "inline" {
		t.Errorf("expected inline args decoded, got %s", tool.gotArgs)
	}
}

func TestUnrelatedEventsIgnored(t *testing.T) {
	b, s := newTestBridge(&echoTool{})

	b.HandleEvent(context.Background(), []byte(`{"type":"response.audio_transcript.delta","delta":"hel"}`))
	b.HandleEvent(context.Background(), []byte(`not even json`))

	if len(s.sent) != 0 {
		t.Errorf("unrelated events must emit nothing, got %v", s.sent)
	}
}

func TestStartSendsSessionToolsAndGreeting(t *testing.T) {
	b, s := newTestBridge(&echoTool{})

	b.Start()

	if len(s.sent) != 2 {
		t.Fatalf("expected session.update and response.create, got %d events", len(s.sent))
	}
	if s.sent[0]["type"] != "session.update" {
		t.Errorf("expected session.update first, got %v", s.sent[0]["type"])
	}
	session := s.sent[0]["session"].(map[string]any)
	tools := session["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected 1 session tool, got %d", len(tools))
	}
	if tools[0].(map[string]any)["name"] != "echo" {
		t.Errorf("unexpected tool %v", tools[0])
	}
	if s.sent[1]["type"] != "response.create" {
		t.Errorf("expected greeting response.create, got %v", s.sent[1]["type"])
	}
}

func TestRegistryOrderPreserved(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{})
	all := r.All()
	if len(all) != 1 || all[0].Name() != "echo" {
		t.Fatalf("unexpected registry contents %v", all)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected not to find missing tool")
	}
}
