package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"rafpad/internal/config"
	"rafpad/internal/domain"
	"rafpad/internal/llm"
)

type panickingDispatcher struct{}

func (panickingDispatcher) Dispatch(context.Context, domain.Directive) bool {
	panic("dispatcher exploded")
}

func newTestChatService(client llm.CompletionClient, disp Dispatcher, opts ChatOptions) *ChatService {
	history := NewHistoryStore(DefaultMaxHistory)
	filter := NewCommandFilter(DefaultDirectiveExtractor(), disp, zap.NewNop())
	return NewChatService(client, history, filter, NewFallbackPolicy(nil), zap.NewNop(), opts)
}

func TestChatServiceRespond_AppendsPromptAndFilteredReply(t *testing.T) {
	client := &llm.MockClient{Response: `[add_task]: "buy milk"`}
	disp := &mockDispatcher{ok: true}
	svc := newTestChatService(client, disp, DefaultChatOptions())

	reply := svc.Respond(context.Background(), "please remember milk", "s1", nil)
	if reply != AckTaskAdded {
		t.Fatalf("expected %q, got %q", AckTaskAdded, reply)
	}
	if len(disp.dispatched) != 1 || disp.dispatched[0].Payload != "buy milk" {
		t.Fatalf("expected one dispatched directive, got %+v", disp.dispatched)
	}

	history := svc.History("s1")
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != domain.RoleUser || history[0].Content != "please remember milk" {
		t.Fatalf("unexpected user entry: %+v", history[0])
	}
	if history[1].Role != domain.RoleAssistant || history[1].Content != AckTaskAdded {
		t.Fatalf("assistant entry must hold the filtered text, got %+v", history[1])
	}
	if history[0].Timestamp.IsZero() || history[1].Timestamp.IsZero() {
		t.Fatalf("expected timestamps on history entries")
	}
}

func TestChatServiceRespond_ReplaysAtMostFiveMessages(t *testing.T) {
	client := &llm.MockClient{Response: "ok"}
	svc := newTestChatService(client, nil, DefaultChatOptions())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		svc.Respond(ctx, fmt.Sprintf("turn %d", i), "s1", nil)
	}

	reqs := client.Requests()
	if len(reqs) != 4 {
		t.Fatalf("expected 4 completion requests, got %d", len(reqs))
	}
	if len(reqs[0].History) != 0 {
		t.Fatalf("first turn should have no history, got %d", len(reqs[0].History))
	}
	last := reqs[3]
	if len(last.History) != 5 {
		t.Fatalf("expected 5 replayed messages, got %d", len(last.History))
	}
	// 6 mensajes guardados antes del cuarto turno; se omite el más viejo.
	if last.History[0].Role != domain.RoleAssistant || last.History[4].Content != "ok" {
		t.Fatalf("unexpected replay window: %+v", last.History)
	}
	if last.Prompt != "turn 3" || last.SystemPrompt != llm.SystemPrompt {
		t.Fatalf("unexpected request: prompt=%q", last.Prompt)
	}
	if len(svc.History("s1")) != 8 {
		t.Fatalf("older history must be retained in the session")
	}
}

func TestChatServiceRespond_HistoryBound(t *testing.T) {
	client := &llm.MockClient{Response: "ok"}
	svc := newTestChatService(client, nil, DefaultChatOptions())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		svc.Respond(ctx, fmt.Sprintf("p%d", i), "s1", nil)
		if n := len(svc.History("s1")); n > DefaultMaxHistory {
			t.Fatalf("history exceeded bound after %d turns: %d", i+1, n)
		}
	}
	history := svc.History("s1")
	if history[0].Content != "p20" || history[len(history)-2].Content != "p24" {
		t.Fatalf("expected oldest entries evicted first, got first=%q", history[0].Content)
	}
}

func TestChatServiceRespond_FallbackOnError(t *testing.T) {
	client := &llm.MockClient{Err: errors.New("service down")}
	svc := newTestChatService(client, nil, DefaultChatOptions())
	ctx := context.Background()

	if got := svc.Respond(ctx, "hello", "s1", nil); !contains(GreetingResponses, got) {
		t.Fatalf("expected greeting fallback, got %q", got)
	}
	if got := svc.Respond(ctx, "xyz", "s1", nil); !contains(DefaultResponses, got) {
		t.Fatalf("expected default fallback, got %q", got)
	}
	if len(svc.History("s1")) != 4 {
		t.Fatalf("fallback turns are still recorded in history")
	}
}

func TestChatServiceRespond_NoClientUsesFallback(t *testing.T) {
	svc := newTestChatService(nil, nil, DefaultChatOptions())
	if got := svc.Respond(context.Background(), "hi there", "s1", nil); !contains(GreetingResponses, got) {
		t.Fatalf("expected greeting fallback, got %q", got)
	}
}

func TestChatServiceRespond_EmptyCompletionUsesFallback(t *testing.T) {
	svc := newTestChatService(&llm.MockClient{Response: ""}, nil, DefaultChatOptions())
	if got := svc.Respond(context.Background(), "xyz", "s1", nil); !contains(DefaultResponses, got) {
		t.Fatalf("expected default fallback, got %q", got)
	}
}

func TestChatServiceRespond_TimeoutUsesFallback(t *testing.T) {
	opts := DefaultChatOptions()
	opts.Timeout = 20 * time.Millisecond
	svc := newTestChatService(&llm.MockClient{Block: true}, nil, opts)

	start := time.Now()
	got := svc.Respond(context.Background(), "xyz", "s1", nil)
	if !contains(DefaultResponses, got) {
		t.Fatalf("expected default fallback on timeout, got %q", got)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not applied")
	}
}

func TestChatServiceRespond_PanicDegradesToFallback(t *testing.T) {
	client := &llm.MockClient{Response: `[add_task]: "x"`}
	svc := newTestChatService(client, panickingDispatcher{}, DefaultChatOptions())

	got := svc.Respond(context.Background(), "xyz", "s1", nil)
	if !contains(DefaultResponses, got) {
		t.Fatalf("expected fallback after panic, got %q", got)
	}
	// El lock de la sesión debe liberarse aunque haya panic.
	done := make(chan struct{})
	go func() {
		svc.Respond(context.Background(), "xyz", "s1", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("session lock not released after panic")
	}
}

func TestChatServiceRespond_MalformedDirective(t *testing.T) {
	disp := &mockDispatcher{ok: true}
	svc := newTestChatService(&llm.MockClient{Response: `[add_task]: ""`}, disp, DefaultChatOptions())

	if got := svc.Respond(context.Background(), "add empty", "s1", nil); got != MsgMissingTaskContent {
		t.Fatalf("expected %q, got %q", MsgMissingTaskContent, got)
	}
	if len(disp.dispatched) != 0 {
		t.Fatalf("malformed directive must not reach the dispatcher")
	}
}

func TestChatServiceRespond_PassesContextHint(t *testing.T) {
	client := &llm.MockClient{Response: "noted"}
	svc := newTestChatService(client, nil, DefaultChatOptions())
	hint := &domain.ChatContext{Type: domain.ContextTypeTask, Project: "#home"}

	svc.Respond(context.Background(), "fix the sink", "s1", hint)

	reqs := client.Requests()
	if len(reqs) != 1 || reqs[0].Context == nil || reqs[0].Context.Project != "#home" {
		t.Fatalf("expected context hint forwarded, got %+v", reqs)
	}
	if svc.History("s1")[0].Content != "fix the sink" {
		t.Fatalf("history must store the original prompt, not the formatted one")
	}
}

func TestChatService_ClearHistory(t *testing.T) {
	svc := newTestChatService(&llm.MockClient{Response: "ok"}, nil, DefaultChatOptions())

	svc.ClearHistory("never-seen")
	if h := svc.History("never-seen"); len(h) != 0 {
		t.Fatalf("expected empty history, got %+v", h)
	}

	svc.Respond(context.Background(), "hi", "s1", nil)
	svc.ClearHistory("s1")
	if h := svc.History("s1"); len(h) != 0 {
		t.Fatalf("expected cleared history, got %+v", h)
	}
}

func TestChatServiceRespond_ConcurrentSameSession(t *testing.T) {
	svc := newTestChatService(&llm.MockClient{Response: "ok"}, nil, DefaultChatOptions())

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.Respond(context.Background(), fmt.Sprintf("p%d", i), "shared", nil)
		}(i)
	}
	wg.Wait()

	history := svc.History("shared")
	if len(history) != DefaultMaxHistory {
		t.Fatalf("expected %d messages, got %d", DefaultMaxHistory, len(history))
	}
	// Cada turno agrega el par user/assistant sin intercalarse con otros turnos.
	for i := 0; i < len(history); i += 2 {
		if history[i].Role != domain.RoleUser || history[i+1].Role != domain.RoleAssistant {
			t.Fatalf("turn pairs interleaved at %d: %+v", i, history)
		}
	}
}

func TestChatOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		ChatContextSize: 3,
		LLMTimeout:      5 * time.Second,
		LLMTemperature:  0.2,
		LLMMaxTokens:    100,
		LLMTopP:         0.5,
	}
	opts := ChatOptionsFromConfig(cfg)
	if opts.ContextMessages != 3 || opts.Timeout != 5*time.Second {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.Params.Temperature != 0.2 || opts.Params.MaxTokens != 100 || opts.Params.TopP != 0.5 {
		t.Fatalf("unexpected params: %+v", opts.Params)
	}
	if opts.SystemPrompt != llm.SystemPrompt {
		t.Fatalf("expected default system prompt")
	}

	if got := ChatOptionsFromConfig(nil); got.ContextMessages != DefaultContextMessages {
		t.Fatalf("nil config must yield defaults")
	}
}

func TestChatServiceRespond_StripsReasoningBeforeFilter(t *testing.T) {
	disp := &mockDispatcher{ok: true}
	client := &llm.MockClient{Response: "<think>the user wants a task</think>\n[add_task]: \"call mom\""}
	svc := newTestChatService(client, disp, DefaultChatOptions())

	if got := svc.Respond(context.Background(), "remind me to call mom", "s1", nil); got != AckTaskAdded {
		t.Fatalf("expected %q, got %q", AckTaskAdded, got)
	}
	if len(disp.dispatched) != 1 || disp.dispatched[0].Payload != "call mom" {
		t.Fatalf("unexpected dispatch: %+v", disp.dispatched)
	}
}

func TestChatServiceRespond_FencedReplyWithoutDirectivePassesThrough(t *testing.T) {
	const reply = "```go\nfmt.Println(1)\n```"
	disp := &mockDispatcher{ok: true}
	svc := newTestChatService(&llm.MockClient{Response: reply}, disp, DefaultChatOptions())

	if got := svc.Respond(context.Background(), "print one in go", "s1", nil); got != reply {
		t.Fatalf("expected reply unchanged %q, got %q", reply, got)
	}
	if len(disp.dispatched) != 0 {
		t.Fatalf("expected no dispatch, got %+v", disp.dispatched)
	}
	history := svc.History("s1")
	if len(history) != 2 || history[1].Content != reply {
		t.Fatalf("expected unchanged reply in history, got %+v", history)
	}
}
