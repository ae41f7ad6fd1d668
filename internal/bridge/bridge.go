// Package bridge correlates tool calls arriving over the realtime channel
// with registered tool handlers and emits exactly one result per call.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vuen/kiosk/internal/types"
)

// Sender transmits an event to the remote side of the realtime channel.
type Sender interface {
	Send(v any) error
}

// Bridge routes inbound channel events to tools and funnels every outcome
// through a single result-emission point.
type Bridge struct {
	registry *Registry
	sender   Sender
}

func New(registry *Registry) *Bridge {
	return &Bridge{registry: registry}
}

// SetSender wires the outbound side of the channel. Must be called before
// the channel starts delivering events.
func (b *Bridge) SetSender(s Sender) { b.sender = s }

// Start configures the session with the registered tools and kicks off the
// greeting turn. Called once when the channel opens.
func (b *Bridge) Start() {
	b.send(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"tools":       b.registry.AsSessionTools(),
			"tool_choice": "auto",
		},
	})
	b.send(map[string]any{
		"type": "response.create",
		"response": map[string]any{
			"instructions": "Greet the customer warmly and ask what they would like to order.",
		},
	})
}

// HandleEvent processes one raw event from the channel. Anything that is
// not a completed tool call is ignored except for remote errors, which are
// logged. Nothing here panics past the handler boundary.
func (b *Bridge) HandleEvent(ctx context.Context, raw []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		slog.Debug("undecodable channel event dropped", "error", err)
		return
	}

	switch {
	case head.Type == "error":
		slog.Warn("realtime channel reported error", "event", string(raw))
	case head.Type == "response.function_call_arguments.done" ||
		strings.HasSuffix(head.Type, "function_call_arguments.done"):
		b.handleToolCall(ctx, raw)
	}
}

func (b *Bridge) handleToolCall(ctx context.Context, raw []byte) {
	call := extractCall(raw)
	if call.CallID == "" {
		// Without a correlation id a result cannot be delivered; drop.
		slog.Debug("tool call without call id dropped", "tool", call.Name)
		return
	}

	tool, ok := b.registry.Get(call.Name)
	if !ok {
		b.sendResult(call.CallID, Result{
			Output: map[string]any{"ok": false, "error": fmt.Sprintf("tool %s not implemented", call.Name)},
		})
		return
	}

	slog.Info("tool call", "tool", call.Name, "call_id", call.CallID)
	b.sendResult(call.CallID, tool.Handle(ctx, call.Args))
}

// sendResult is the single emission point: one function_call_output item
// correlated to callID, then a response turn.
func (b *Bridge) sendResult(callID types.CallID, res Result) {
	output, err := json.Marshal(res.Output)
	if err != nil {
		output = []byte(`{"ok":false,"error":"unserializable tool output"}`)
	}
	b.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  string(output),
		},
	})

	response := map[string]any{}
	if res.Reply != "" {
		response["instructions"] = res.Reply
	}
	b.send(map[string]any{"type": "response.create", "response": response})
}

func (b *Bridge) send(v any) {
	if b.sender == nil {
		return
	}
	if err := b.sender.Send(v); err != nil {
		slog.Warn("send on realtime channel failed", "error", err)
	}
}

// extractCall pulls tool metadata out of a call event, tolerating the
// field spellings seen across event revisions. Arguments that fail to
// parse as JSON degrade to an empty object.
func extractCall(raw []byte) types.ToolCall {
	call := types.ToolCall{Args: emptyArgs}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return call
	}

	call.Name = firstString(fields, "name", "tool_name", "toolName")
	call.CallID = types.CallID(firstString(fields, "call_id", "callId"))

	for _, key := range []string{"arguments", "args"} {
		rawArgs, ok := fields[key]
		if !ok {
			continue
		}
		// Arguments usually arrive as a JSON-encoded string, occasionally
		// as an inline object.
		var s string
		if err := json.Unmarshal(rawArgs, &s); err == nil {
			if json.Valid([]byte(s)) && strings.TrimSpace(s) != "" {
				call.Args = json.RawMessage(s)
			}
		} else if json.Valid(rawArgs) {
			call.Args = rawArgs
		}
		break
	}
	return call
}

var emptyArgs = json.RawMessage(`{}`)

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
