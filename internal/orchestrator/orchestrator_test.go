package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/switchboard-dev/switchboard/internal/agent"
	"github.com/switchboard-dev/switchboard/internal/classifier"
	"github.com/switchboard-dev/switchboard/internal/history"
	"github.com/switchboard-dev/switchboard/pkg/models"
)

// stubClassifier counts invocations and delegates to fn.
type stubClassifier struct {
	calls int
	fn    func(input string) (classifier.Result, error)
}

func (s *stubClassifier) Classify(ctx context.Context, input string, _ []models.Message) (classifier.Result, error) {
	s.calls++
	return s.fn(input)
}

// streamAgent is a streaming test agent that yields fixed fragments.
type streamAgent struct {
	info  models.AgentInfo
	frags []string
	calls int
}

func newStreamAgent(name string, frags []string) *streamAgent {
	return &streamAgent{
		info: models.AgentInfo{
			ID:           models.DeriveAgentID(name),
			Name:         name,
			Capabilities: models.Capabilities{Streaming: true},
		},
		frags: frags,
	}
}

func (a *streamAgent) Info() models.AgentInfo { return a.info }

func (a *streamAgent) Process(ctx context.Context, req agent.Request) (*models.Message, error) {
	a.calls++
	reply := models.AssistantText(strings.Join(a.frags, ""))
	return &reply, nil
}

func (a *streamAgent) ProcessStream(ctx context.Context, req agent.Request) (<-chan string, error) {
	a.calls++
	out := make(chan string)
	go func() {
		defer close(out)
		for _, frag := range a.frags {
			select {
			case out <- frag:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func countingMathAgent(calls *int) *agent.FuncAgent {
	return agent.NewFuncAgent("Math", "arithmetic", func(ctx context.Context, req agent.Request) (string, error) {
		*calls++
		return "4", nil
	})
}

func selectInfo(infos []models.AgentInfo, name string) *models.AgentInfo {
	for i := range infos {
		if infos[i].Name == name {
			return &infos[i]
		}
	}
	return nil
}

func TestRetryBoundThenRejection(t *testing.T) {
	// A classifier that never produces structured output is invoked
	// exactly maxRetries times, then the turn is rejected without any
	// agent invocation or history append.
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{}, classifier.ErrNoStructuredOutput
	}}

	agentCalls := 0
	registry := NewRegistry()
	if err := registry.Register(countingMathAgent(&agentCalls)); err != nil {
		t.Fatal(err)
	}
	store := history.NewMemoryStore()

	orch, err := New(cls, registry, store, WithMaxRetries(3), WithNoAgentMessage("no agent"))
	if err != nil {
		t.Fatal(err)
	}

	env, err := orch.Route(context.Background(), Request{
		Input: "hello", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cls.calls != 3 {
		t.Errorf("classifier calls = %d, want 3", cls.calls)
	}
	if agentCalls != 0 {
		t.Errorf("agent calls = %d, want 0", agentCalls)
	}
	if env.Streaming {
		t.Error("rejection envelope must not be streaming")
	}
	if env.Text() != "no agent" {
		t.Errorf("rejection text = %q, want %q", env.Text(), "no agent")
	}
	if env.Metadata.AgentID != "" {
		t.Errorf("rejection envelope carries agent id %q", env.Metadata.AgentID)
	}

	<-env.Persisted()
	if n := store.PairCount("u1", "s1", "math"); n != 0 {
		t.Errorf("history pairs = %d, want 0", n)
	}
}

func TestScenarioMathAndTech(t *testing.T) {
	agentCalls := 0
	registry := NewRegistry()
	if err := registry.Register(countingMathAgent(&agentCalls)); err != nil {
		t.Fatal(err)
	}
	tech := newStreamAgent("Tech", []string{"TCP ", "is ", "a ", "reliable ", "transport"})
	if err := registry.Register(tech); err != nil {
		t.Fatal(err)
	}

	infos := registry.Infos()
	cls := &stubClassifier{fn: func(input string) (classifier.Result, error) {
		if strings.Contains(input, "2+2") {
			return classifier.Result{Agent: selectInfo(infos, "Math"), Confidence: 0.95}, nil
		}
		return classifier.Result{Agent: selectInfo(infos, "Tech"), Confidence: 0.9}, nil
	}}
	store := history.NewMemoryStore()

	orch, err := New(cls, registry, store)
	if err != nil {
		t.Fatal(err)
	}

	// Non-streaming dispatch.
	env, err := orch.Route(context.Background(), Request{
		Input: "2+2", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Streaming {
		t.Error("math envelope should not be streaming")
	}
	if env.Text() != "4" {
		t.Errorf("math reply = %q, want %q", env.Text(), "4")
	}
	if env.Metadata.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", env.Metadata.Confidence)
	}
	<-env.Persisted()
	if n := store.PairCount("u1", "s1", "math"); n != 1 {
		t.Errorf("math history pairs = %d, want 1", n)
	}

	// Streaming dispatch: fragments concatenate to the full reply, and
	// exactly one pair lands in Tech's history after the drain.
	env, err = orch.Route(context.Background(), Request{
		Input: "explain TCP", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !env.Streaming {
		t.Fatal("tech envelope should be streaming")
	}

	var got strings.Builder
	for frag := range env.Stream {
		got.WriteString(frag)
	}
	want := "TCP is a reliable transport"
	if got.String() != want {
		t.Errorf("stream text = %q, want %q", got.String(), want)
	}

	<-env.Persisted()
	if n := store.PairCount("u1", "s1", "tech"); n != 1 {
		t.Errorf("tech history pairs = %d, want 1", n)
	}
	msgs, err := store.LoadRecent(context.Background(), "u1", "s1", "tech", history.DefaultMaxPairs)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(msgs))
	}
	if msgs[1].Text() != want {
		t.Errorf("persisted reply = %q, want %q", msgs[1].Text(), want)
	}
}

func TestUnknownSelectionNoRetry(t *testing.T) {
	// A classifier decision naming no registered agent is not retried; it
	// applies the no-agent policy directly.
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{Agent: nil, Confidence: 0.7}, nil
	}}

	agentCalls := 0
	registry := NewRegistry()
	if err := registry.Register(countingMathAgent(&agentCalls)); err != nil {
		t.Fatal(err)
	}

	orch, err := New(cls, registry, history.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}

	env, err := orch.Route(context.Background(), Request{
		Input: "hi", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", cls.calls)
	}
	if agentCalls != 0 {
		t.Errorf("agent calls = %d, want 0", agentCalls)
	}
	if env.Text() != DefaultNoAgentMessage {
		t.Errorf("reply = %q, want rejection message", env.Text())
	}
}

func TestDefaultAgentFallback(t *testing.T) {
	// With fallback enabled, an unclassifiable turn is dispatched to the
	// default agent, and its history is updated exactly like a normally
	// selected agent's.
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{}, classifier.ErrNoStructuredOutput
	}}

	fallbackCalls := 0
	fallback := agent.NewFuncAgent("General", "catch-all", func(ctx context.Context, req agent.Request) (string, error) {
		fallbackCalls++
		return "let me try anyway", nil
	})

	registry := NewRegistry()
	if err := registry.Register(fallback); err != nil {
		t.Fatal(err)
	}
	if err := registry.SetDefault("general"); err != nil {
		t.Fatal(err)
	}
	store := history.NewMemoryStore()

	orch, err := New(cls, registry, store, WithUseDefaultAgent(true), WithMaxRetries(2))
	if err != nil {
		t.Fatal(err)
	}

	env, err := orch.Route(context.Background(), Request{
		Input: "something odd", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cls.calls != 2 {
		t.Errorf("classifier calls = %d, want 2", cls.calls)
	}
	if fallbackCalls != 1 {
		t.Errorf("fallback agent calls = %d, want 1", fallbackCalls)
	}
	if !env.Metadata.Fallback {
		t.Error("envelope should be marked as fallback")
	}
	if env.Text() != "let me try anyway" {
		t.Errorf("reply = %q", env.Text())
	}

	<-env.Persisted()
	if n := store.PairCount("u1", "s1", "general"); n != 1 {
		t.Errorf("fallback history pairs = %d, want 1", n)
	}
}

func TestForcedSelectionSkipsClassifier(t *testing.T) {
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{}, errors.New("should not be called")
	}}

	agentCalls := 0
	registry := NewRegistry()
	if err := registry.Register(countingMathAgent(&agentCalls)); err != nil {
		t.Fatal(err)
	}

	orch, err := New(cls, registry, history.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}

	env, err := orch.Route(context.Background(), Request{
		Input: "2+2", UserID: "u1", SessionID: "s1",
		ForcedAgent: "Math", ForcedConfidence: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.calls != 0 {
		t.Errorf("classifier calls = %d, want 0", cls.calls)
	}
	if agentCalls != 1 {
		t.Errorf("agent calls = %d, want 1", agentCalls)
	}
	if env.Text() != "4" || env.Metadata.Confidence != 1 {
		t.Errorf("envelope = %q conf %v", env.Text(), env.Metadata.Confidence)
	}
}

func TestForcedSelectionUnknownAgent(t *testing.T) {
	orch, err := New(
		&stubClassifier{fn: func(string) (classifier.Result, error) { return classifier.Result{}, nil }},
		NewRegistry(), history.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := orch.Route(context.Background(), Request{
		Input: "hi", UserID: "u1", SessionID: "s1", ForcedAgent: "Nobody",
	}); err == nil {
		t.Fatal("expected error for unknown forced agent")
	}
}

func TestAgentFailureNotRetried(t *testing.T) {
	failing := agent.NewFuncAgent("Flaky", "always fails", func(ctx context.Context, req agent.Request) (string, error) {
		return "", errors.New("backend down")
	})

	registry := NewRegistry()
	if err := registry.Register(failing); err != nil {
		t.Fatal(err)
	}
	infos := registry.Infos()
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{Agent: selectInfo(infos, "Flaky"), Confidence: 0.8}, nil
	}}
	store := history.NewMemoryStore()

	orch, err := New(cls, registry, store, WithErrorMessage("general error"))
	if err != nil {
		t.Fatal(err)
	}

	env, err := orch.Route(context.Background(), Request{
		Input: "hi", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cls.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", cls.calls)
	}
	if env.Text() != "general error" {
		t.Errorf("reply = %q, want error message", env.Text())
	}

	<-env.Persisted()
	if n := store.PairCount("u1", "s1", "flaky"); n != 0 {
		t.Errorf("history pairs = %d, want 0 after failure", n)
	}
}

func TestCancelledStreamNotPersisted(t *testing.T) {
	tech := newStreamAgent("Tech", []string{"a", "b", "c", "d"})
	registry := NewRegistry()
	if err := registry.Register(tech); err != nil {
		t.Fatal(err)
	}
	infos := registry.Infos()
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{Agent: selectInfo(infos, "Tech"), Confidence: 0.9}, nil
	}}
	store := history.NewMemoryStore()

	orch, err := New(cls, registry, store)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	env, err := orch.Route(ctx, Request{
		Input: "explain", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Take one fragment, then cancel mid-stream.
	<-env.Stream
	cancel()
	for range env.Stream {
	}

	select {
	case <-env.Persisted():
	case <-time.After(2 * time.Second):
		t.Fatal("persistence bookkeeping did not finish")
	}
	if n := store.PairCount("u1", "s1", "tech"); n != 0 {
		t.Errorf("history pairs = %d, want 0 for cancelled exchange", n)
	}
}

func TestRouteValidatesInput(t *testing.T) {
	orch, err := New(
		&stubClassifier{fn: func(string) (classifier.Result, error) { return classifier.Result{}, nil }},
		NewRegistry(), history.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}

	cases := []Request{
		{Input: "   ", UserID: "u1", SessionID: "s1"},
		{Input: "hi", SessionID: "s1"},
		{Input: "hi", UserID: "u1"},
	}
	for _, req := range cases {
		if _, err := orch.Route(context.Background(), req); err == nil {
			t.Errorf("expected error for request %+v", req)
		}
	}
}

// blockingStreamAgent emits one fragment and then holds the stream open
// until its context is cancelled.
type blockingStreamAgent struct {
	info models.AgentInfo
}

func newBlockingStreamAgent(name string) *blockingStreamAgent {
	return &blockingStreamAgent{info: models.AgentInfo{
		ID:           models.DeriveAgentID(name),
		Name:         name,
		Capabilities: models.Capabilities{Streaming: true},
	}}
}

func (a *blockingStreamAgent) Info() models.AgentInfo { return a.info }

func (a *blockingStreamAgent) Process(ctx context.Context, req agent.Request) (*models.Message, error) {
	reply := models.AssistantText("partial")
	return &reply, nil
}

func (a *blockingStreamAgent) ProcessStream(ctx context.Context, req agent.Request) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		select {
		case out <- "partial":
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
	}()
	return out, nil
}

func TestSignalCancelsStreamingTurn(t *testing.T) {
	tech := newBlockingStreamAgent("Tech")
	registry := NewRegistry()
	if err := registry.Register(tech); err != nil {
		t.Fatal(err)
	}
	infos := registry.Infos()
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{Agent: selectInfo(infos, "Tech"), Confidence: 0.9}, nil
	}}
	store := history.NewMemoryStore()

	sm, err := NewSignalManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer sm.Close()

	orch, err := New(cls, registry, store, WithSignals(sm))
	if err != nil {
		t.Fatal(err)
	}

	env, err := orch.Route(context.Background(), Request{
		Input: "explain", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Take the first fragment, then drop the cancel file for the session.
	<-env.Stream
	if err := sm.CancelSession("s1"); err != nil {
		t.Fatal(err)
	}
	for range env.Stream {
	}

	select {
	case <-env.Persisted():
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not settle after the cancel signal")
	}
	if n := store.PairCount("u1", "s1", "tech"); n != 0 {
		t.Errorf("history pairs = %d, want 0 for a cancelled exchange", n)
	}
}

func TestAgentTimeoutBoundsStreaming(t *testing.T) {
	tech := newBlockingStreamAgent("Tech")
	registry := NewRegistry()
	if err := registry.Register(tech); err != nil {
		t.Fatal(err)
	}
	infos := registry.Infos()
	cls := &stubClassifier{fn: func(string) (classifier.Result, error) {
		return classifier.Result{Agent: selectInfo(infos, "Tech"), Confidence: 0.9}, nil
	}}
	store := history.NewMemoryStore()

	orch, err := New(cls, registry, store, WithAgentTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	env, err := orch.Route(context.Background(), Request{
		Input: "explain", UserID: "u1", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The agent never closes its stream; the timeout must end the turn.
	for range env.Stream {
	}

	select {
	case <-env.Persisted():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end at the agent timeout")
	}
	if n := store.PairCount("u1", "s1", "tech"); n != 0 {
		t.Errorf("history pairs = %d, want 0 for a timed-out exchange", n)
	}
}
