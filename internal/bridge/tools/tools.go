// Package tools implements the kiosk's realtime tool set: the functions
// the voice agent may invoke to read or change order state. All of them
// return structured results through the bridge; none of them fail loudly.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vuen/kiosk/internal/bridge"
	"github.com/vuen/kiosk/internal/dispatch"
	"github.com/vuen/kiosk/internal/lifecycle"
	"github.com/vuen/kiosk/internal/mirror"
	"github.com/vuen/kiosk/internal/types"
)

// RegisterAll installs the full tool set on a registry.
func RegisterAll(r *bridge.Registry, backend types.Backend, m *mirror.Mirror, machine *lifecycle.Machine, d *dispatch.Dispatcher, clientID types.ClientID) {
	r.Register(&UpdateFront{Backend: backend})
	r.Register(&UpdateCart{Dispatcher: d})
	r.Register(&GetCart{Backend: backend, Mirror: m, ClientID: clientID})
	r.Register(&GetOrderStatus{Backend: backend, Machine: machine})
	r.Register(&TransitionOrderStatus{Machine: machine})
}

// UpdateFront broadcasts a list of item names to the recommendation
// display. Best-effort: a failed broadcast still reports ok so the agent
// keeps talking instead of apologizing about a cosmetic panel.
type UpdateFront struct {
	Backend types.Backend
}

func (t *UpdateFront) Name() string { return "update_front" }

func (t *UpdateFront) Description() string {
	return "Show a list of menu item names on the recommendation display. Pass an empty list to clear it."
}

func (t *UpdateFront) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"names":{"type":"array","items":{"type":"string"},"description":"Menu item names to display"},"reply":{"type":"string","description":"What to say to the customer about the displayed items"}},"required":["names"]}`)
}

func (t *UpdateFront) Handle(ctx context.Context, args json.RawMessage) bridge.Result {
	var in struct {
		Names []string `json:"names"`
		Items []string `json:"items"`
		Reply string   `json:"reply"`
	}
	_ = json.Unmarshal(args, &in)
	names := in.Names
	if len(names) == 0 {
		names = in.Items
	}

	if len(names) == 0 {
		_ = t.Backend.RecommendReset(ctx)
	} else {
		_ = t.Backend.Recommend(ctx, names)
	}
	return bridge.Result{Output: map[string]any{"ok": true, "names": names}, Reply: in.Reply}
}

// UpdateCart applies cart operations or clears the cart. Submission is
// fire-and-forget through the dispatcher; the authoritative cart comes
// back over the push channel.
type UpdateCart struct {
	Dispatcher *dispatch.Dispatcher
}

func (t *UpdateCart) Name() string { return "update_cart" }

func (t *UpdateCart) Description() string {
	return "Modify the customer's cart. action=apply submits add/remove/set operations; action=clear empties the cart."
}

func (t *UpdateCart) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"action":{"type":"string","enum":["apply","clear"]},"ops":{"type":"array","items":{"type":"object","properties":{"op":{"type":"string","enum":["add","remove","set"]},"name":{"type":"string"},"qty":{"type":"integer"}},"required":["op","name"]}},"reply":{"type":"string","description":"What to say to the customer about the cart change"}},"required":["action"]}`)
}

type cartOpArg struct {
	Op   string `json:"op"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

func (t *UpdateCart) Handle(_ context.Context, args json.RawMessage) bridge.Result {
	var in struct {
		Action string      `json:"action"`
		Ops    []cartOpArg `json:"ops"`
		Reply  string      `json:"reply"`
	}
	_ = json.Unmarshal(args, &in)

	if strings.EqualFold(in.Action, "clear") {
		t.Dispatcher.Reset()
		t.Dispatcher.Submit([]types.CartOperation{{Op: types.OpClear}})
		return bridge.Result{Output: map[string]any{"ok": true, "action": "clear"}, Reply: in.Reply}
	}

	ops := make([]types.CartOperation, 0, len(in.Ops))
	for _, arg := range in.Ops {
		kind, ok := parseOpKind(arg.Op)
		if !ok || arg.Name == "" {
			continue
		}
		ops = append(ops, types.CartOperation{Op: kind, Name: arg.Name, Qty: arg.Qty})
	}
	t.Dispatcher.Submit(ops)
	return bridge.Result{Output: map[string]any{"ok": true, "action": "apply", "applied": len(ops)}, Reply: in.Reply}
}

func parseOpKind(s string) (types.OpKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add":
		return types.OpAdd, true
	case "remove":
		return types.OpRemove, true
	case "set":
		return types.OpSet, true
	case "clear":
		return types.OpClear, true
	}
	return "", false
}

// GetCart fetches the authoritative cart snapshot, installs it in the
// mirror, and summarizes it for the agent.
type GetCart struct {
	Backend  types.Backend
	Mirror   *mirror.Mirror
	ClientID types.ClientID
}

func (t *GetCart) Name() string { return "get_cart" }

func (t *GetCart) Description() string {
	return "Fetch the current cart contents and total from the order system."
}

func (t *GetCart) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *GetCart) Handle(ctx context.Context, _ json.RawMessage) bridge.Result {
	resp, err := t.Backend.CartState(ctx)
	if err != nil {
		return bridge.Result{
			Output: map[string]any{"ok": false, "error": err.Error()},
			Reply:  "Apologize briefly: the order system did not respond, and the cart could not be read.",
		}
	}

	t.Mirror.Replace(resp.Cart)
	lines := t.Mirror.Lines()
	total := t.Mirror.Total()

	return bridge.Result{
		Output: map[string]any{
			"ok":        true,
			"client_id": t.ClientID,
			"cart":      lines,
			"total":     total,
		},
		Reply: "Relay the cart contents to the customer: " + summarizeCart(lines, total),
	}
}

func summarizeCart(lines []types.CartLine, total float64) string {
	if len(lines) == 0 {
		return "The cart is currently empty."
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%d x %s", line.Qty, line.Name))
	}
	return fmt.Sprintf("The cart has %s, totaling $%.2f.", strings.Join(parts, ", "), total)
}

// GetOrderStatus fetches the authoritative order status and adopts it
// locally without touching the UI.
type GetOrderStatus struct {
	Backend types.Backend
	Machine *lifecycle.Machine
}

func (t *GetOrderStatus) Name() string { return "get_order_status" }

func (t *GetOrderStatus) Description() string {
	return "Read the current order status from the order system."
}

func (t *GetOrderStatus) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *GetOrderStatus) Handle(ctx context.Context, _ json.RawMessage) bridge.Result {
	status, err := t.Backend.OrderStatus(ctx)
	if err != nil {
		return bridge.Result{Output: map[string]any{"ok": false, "error": err.Error()}}
	}
	t.Machine.Adopt(status)
	return bridge.Result{
		Output: map[string]any{"ok": true, "status": status},
		Reply:  "Tell the customer: " + status.Describe(),
	}
}

// TransitionOrderStatus asks the backend to move the order to a new
// status. Confirming an order clears the cart before the request goes out.
type TransitionOrderStatus struct {
	Machine *lifecycle.Machine
}

func (t *TransitionOrderStatus) Name() string { return "transition_order_status" }

func (t *TransitionOrderStatus) Description() string {
	return "Request an order status change, optionally carrying checkout prefill fields. Status 5 confirms the order."
}

func (t *TransitionOrderStatus) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"to":{"type":"integer","minimum":0,"maximum":5},"prefill":{"type":"object","properties":{"name":{"type":"string"},"phone":{"type":"string"},"email":{"type":"string"},"card":{"type":"string"},"exp":{"type":"string"},"cvv":{"type":"string"}}},"reply":{"type":"string","description":"What to say to the customer after the change"}},"required":["to"]}`)
}

func (t *TransitionOrderStatus) Handle(ctx context.Context, args json.RawMessage) bridge.Result {
	var in struct {
		To      *int           `json:"to"`
		Prefill *types.Prefill `json:"prefill"`
		Reply   string         `json:"reply"`
	}
	_ = json.Unmarshal(args, &in)
	if in.To == nil {
		return bridge.Result{Output: map[string]any{"ok": false, "error": "missing target status"}}
	}

	resp, err := t.Machine.RequestTransition(ctx, types.OrderStatus(*in.To), in.Prefill)
	if err != nil {
		return bridge.Result{
			Output: map[string]any{"ok": false, "error": err.Error()},
			Reply:  "Tell the customer the status change did not go through and invite them to try again.",
		}
	}
	return bridge.Result{Output: resp, Reply: in.Reply}
}
