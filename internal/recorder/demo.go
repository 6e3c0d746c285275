package recorder

import (
	"time"

	"github.com/agentbox/agentbox/internal/trace"
)

// Demo records the sample checkout-agent session. Ids and timestamps
// are scripted, so every call returns an identical session: seeding a
// database twice is a no-op replace, and tests can assert on exact
// values.
//
// The session spans nine seconds and exercises every event kind, a
// nested span, a failed tool call with a retry, and a restorable
// checkpoint.
func Demo() *trace.Session {
	at := trace.FromWall(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	advance := func(ms float64) { at = at.Add(ms) }

	rec := New(
		WithIDGenerator(NewSequenceGenerator("demo")),
		WithNow(func() trace.Time { return at }),
	)

	s := rec.StartSession(
		"demo-checkout-agent",
		"Scripted checkout run used by the demo command and tests.",
		map[string]any{"scenario": "checkout"},
	)
	s.Framework = "demo"

	root := rec.BeginSpan("checkout-agent", map[string]any{"run": "demo"})

	advance(100)
	plan := rec.BeginLLMCall("gpt-4", "openai")
	advance(2000)
	rec.EndLLMCall(plan, trace.TokenUsage{Prompt: 420, Completion: 180, Total: 600})

	advance(100)
	search := rec.BeginToolCall("search_products", map[string]any{"query": "espresso machine"})
	advance(800)
	rec.EndToolCall(search, []any{"EM-200", "EM-340"}, "")

	advance(100)
	cart := rec.BeginSpan("update-cart", nil)

	advance(100)
	price := rec.BeginToolCall("price_lookup", map[string]any{"sku": "EM-200"})
	advance(400)
	rec.EndToolCall(price, 199.0, "")

	advance(100)
	rec.RecordStateChange("cart-updated", map[string]any{"items": 1})

	advance(100)
	rec.Checkpoint("cart-ready",
		map[string]any{"items": []string{"EM-200"}, "total": 199.0},
		"Cart populated and priced.")

	advance(200)
	rec.End(cart, trace.StatusSuccess)

	advance(200)
	submit := rec.BeginToolCall("submit_order", map[string]any{"cart": "EM-200"})
	advance(300)
	rec.EndToolCall(submit, nil, "payment gateway timeout")

	advance(100)
	rec.RecordError("order-submit-failed", "payment gateway timeout, scheduling one retry")

	advance(200)
	retry := rec.BeginToolCall("submit_order", map[string]any{"cart": "EM-200", "attempt": 2})
	advance(400)
	rec.EndToolCall(retry, map[string]any{"order_id": "ORD-7311"}, "")

	advance(200)
	summary := rec.BeginLLMCall("gpt-4", "openai")
	advance(3400)
	rec.EndLLMCall(summary, trace.TokenUsage{Prompt: 530, Completion: 310, Total: 840})

	advance(200)
	rec.End(root, trace.StatusSuccess)

	return rec.EndSession(trace.StatusSuccess)
}
