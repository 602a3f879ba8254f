package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/switchboard-dev/switchboard/internal/agent"
	"github.com/switchboard-dev/switchboard/internal/classifier"
	"github.com/switchboard-dev/switchboard/internal/history"
	"github.com/switchboard-dev/switchboard/pkg/models"
)

// persistTimeout bounds the history write for one exchange. The write is
// decoupled from the caller's context so a cancelled caller cannot abort
// bookkeeping for an already-delivered answer.
const persistTimeout = 10 * time.Second

// cancelPollInterval is how often in-flight turns check for file-based
// cancel signals.
const cancelPollInterval = 100 * time.Millisecond

// Orchestrator routes one user turn at a time: classify, dispatch to the
// selected agent with its bounded history, persist the exchange, and wrap
// the result in an Envelope. Independent (user, session) turns may be
// routed concurrently.
type Orchestrator struct {
	classifier classifier.Classifier
	registry   *Registry
	store      history.Store
	opts       *orchestratorOptions
}

// New creates an Orchestrator over a classifier, an agent registry, and a
// history store.
func New(cls classifier.Classifier, registry *Registry, store history.Store, opts ...Option) (*Orchestrator, error) {
	if cls == nil || registry == nil || store == nil {
		return nil, fmt.Errorf("orchestrator: classifier, registry, and store are required")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.useDefaultAgent && registry.Default() == nil {
		return nil, fmt.Errorf("orchestrator: default agent fallback enabled but no default agent set")
	}

	return &Orchestrator{
		classifier: cls,
		registry:   registry,
		store:      store,
		opts:       options,
	}, nil
}

// Request is one turn to route.
type Request struct {
	// Input is the user's text. Required.
	Input string
	// UserID identifies the end user. Required.
	UserID string
	// SessionID identifies the conversation. Required.
	SessionID string
	// Params are passed through to the agent and echoed in the envelope.
	Params map[string]string
	// ForcedAgent names an agent to dispatch to directly, skipping
	// classification. Empty means classify normally.
	ForcedAgent string
	// ForcedConfidence is recorded in the envelope when ForcedAgent is set.
	ForcedConfidence float64
}

// Route handles one turn end to end and returns its Envelope. Routing
// outcomes the caller should see (rejection, agent failure) are returned
// as envelopes; an error return means the request itself was unusable.
func (o *Orchestrator) Route(ctx context.Context, req Request) (*Envelope, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("route: empty input")
	}
	if req.UserID == "" || req.SessionID == "" {
		return nil, fmt.Errorf("route: user and session ids are required")
	}

	ctx, finish := o.withCancelSignals(ctx, req.SessionID)

	if req.ForcedAgent != "" {
		selected := o.registry.Resolve(req.ForcedAgent)
		if selected == nil {
			finish()
			return nil, fmt.Errorf("route: forced agent %q not registered", req.ForcedAgent)
		}
		return o.dispatch(ctx, finish, req, selected, req.ForcedConfidence, false), nil
	}

	result, classified := o.classify(ctx, req)

	switch {
	case classified && result.Agent != nil:
		selected := o.registry.Get(result.Agent.ID)
		if selected == nil {
			// Resolver and registry disagree; treat as no selection.
			log.Printf("[orchestrator] classifier selected %q but registry has no such agent", result.Agent.ID)
			return o.noSelection(ctx, finish, req, result.Confidence), nil
		}
		return o.dispatch(ctx, finish, req, selected, result.Confidence, false), nil
	case classified:
		// A decision naming no registered agent. Policy applies, no retry.
		return o.noSelection(ctx, finish, req, result.Confidence), nil
	default:
		return o.noSelection(ctx, finish, req, 0), nil
	}
}

// classify runs the classifier with the configured retry bound. The second
// return is false when every attempt failed.
func (o *Orchestrator) classify(ctx context.Context, req Request) (classifier.Result, bool) {
	for attempt := 1; attempt <= o.opts.maxRetries; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if o.opts.classifierTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, o.opts.classifierTimeout)
		}

		result, err := o.classifier.Classify(attemptCtx, req.Input, nil)
		cancel()
		if err == nil {
			return result, true
		}

		log.Printf("[orchestrator] classification attempt %d/%d failed: %v", attempt, o.opts.maxRetries, err)
		if ctx.Err() != nil {
			break
		}
	}
	return classifier.Result{}, false
}

// noSelection applies the no-agent policy: fall back to the default agent
// when configured, otherwise reject without touching any agent or history.
func (o *Orchestrator) noSelection(ctx context.Context, finish func(), req Request, confidence float64) *Envelope {
	if o.opts.useDefaultAgent {
		if fallback := o.registry.Default(); fallback != nil {
			log.Printf("[orchestrator] no agent selected, falling back to %s", fallback.Info().ID)
			return o.dispatch(ctx, finish, req, fallback, confidence, true)
		}
	}

	finish()
	log.Printf("[orchestrator] no agent selected for user=%s session=%s, rejecting", req.UserID, req.SessionID)

	reply := models.AssistantText(o.opts.noAgentMessage)
	env := newEnvelope(Metadata{
		UserInput: req.Input,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Params:    req.Params,
	})
	env.Message = &reply
	close(env.persisted)
	return env
}

// dispatch invokes the selected agent with its bounded history and wires
// up persistence. finish releases the turn's cancel watcher and must be
// called exactly once on every path.
func (o *Orchestrator) dispatch(ctx context.Context, finish func(), req Request, selected agent.Agent, confidence float64, fallback bool) *Envelope {
	info := selected.Info()
	env := newEnvelope(Metadata{
		UserInput:  req.Input,
		AgentID:    info.ID,
		AgentName:  info.Name,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Params:     req.Params,
		Confidence: confidence,
		Fallback:   fallback,
	})

	msgs, err := o.store.LoadRecent(ctx, req.UserID, req.SessionID, info.ID, o.maxPairs())
	if err != nil {
		// A missing history degrades the answer, it must not block it.
		log.Printf("[orchestrator] history load failed for agent %s: %v", info.ID, err)
		msgs = nil
	}

	areq := agent.Request{
		Input:     req.Input,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		History:   msgs,
		Params:    req.Params,
	}

	streamer, ok := selected.(agent.Streamer)
	if ok && info.Capabilities.Streaming {
		return o.dispatchStreaming(ctx, finish, env, streamer, areq)
	}
	return o.dispatchBuffered(ctx, finish, env, selected, areq)
}

func (o *Orchestrator) dispatchBuffered(ctx context.Context, finish func(), env *Envelope, selected agent.Agent, areq agent.Request) *Envelope {
	defer finish()

	callCtx := ctx
	cancel := func() {}
	if o.opts.agentTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.opts.agentTimeout)
	}
	reply, err := selected.Process(callCtx, areq)
	cancel()

	if err == nil && (reply == nil || reply.Validate() != nil) {
		err = &agent.ProcessError{AgentName: env.Metadata.AgentName, Err: agent.ErrEmptyReply}
	}
	if err != nil {
		log.Printf("[orchestrator] agent %s failed: %v", env.Metadata.AgentID, err)
		errReply := models.AssistantText(o.opts.errorMessage)
		env.Message = &errReply
		close(env.persisted)
		return env
	}

	env.Message = reply
	o.persistExchange(env.Metadata, areq.Input, *reply)
	close(env.persisted)
	return env
}

func (o *Orchestrator) dispatchStreaming(ctx context.Context, finish func(), env *Envelope, streamer agent.Streamer, areq agent.Request) *Envelope {
	// The agent timeout bounds the whole stream, start to drain. A stream
	// that outlives it is cancelled and its partial text discarded.
	callCtx := ctx
	cancelCall := func() {}
	if o.opts.agentTimeout > 0 {
		callCtx, cancelCall = context.WithTimeout(ctx, o.opts.agentTimeout)
	}

	frags, err := streamer.ProcessStream(callCtx, areq)
	if err != nil {
		cancelCall()
		finish()
		log.Printf("[orchestrator] agent %s failed to start stream: %v", env.Metadata.AgentID, err)
		errReply := models.AssistantText(o.opts.errorMessage)
		env.Message = &errReply
		close(env.persisted)
		return env
	}

	out, acc := agent.Tee(callCtx, frags)
	env.Stream = out
	env.Streaming = true

	// Persist only once the stream has fully drained, and never persist a
	// cancelled or empty exchange as if it were a complete turn.
	go func() {
		defer finish()
		defer close(env.persisted)
		defer cancelCall()

		<-acc.Done()
		if acc.Cancelled() {
			log.Printf("[orchestrator] stream for agent %s cancelled, discarding partial text", env.Metadata.AgentID)
			return
		}
		text := acc.Text()
		if text == "" {
			log.Printf("[orchestrator] agent %s produced an empty stream, nothing to persist", env.Metadata.AgentID)
			return
		}
		o.persistExchange(env.Metadata, areq.Input, models.AssistantText(text))
	}()

	return env
}

// persistExchange appends one settled pair to the agent's history. Storage
// failures are logged, never allowed to block answer delivery.
func (o *Orchestrator) persistExchange(md Metadata, input string, reply models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	userMsg := models.UserText(input)
	err := o.store.AppendExchange(ctx, md.UserID, md.SessionID, md.AgentID, userMsg, reply, o.maxPairs())
	if err != nil {
		log.Printf("[orchestrator] persisting exchange for agent %s failed: %v", md.AgentID, err)
	}
}

func (o *Orchestrator) maxPairs() int {
	if o.opts.maxPairsPerAgent > 0 {
		return o.opts.maxPairsPerAgent
	}
	return history.DefaultMaxPairs
}

// withCancelSignals derives a context cancelled when a file-based cancel
// signal appears for the session. The returned finish func stops the
// watcher and must always be called.
func (o *Orchestrator) withCancelSignals(ctx context.Context, sessionID string) (context.Context, func()) {
	if o.opts.signals == nil {
		return ctx, func() {}
	}

	sctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sctx.Done():
				return
			case <-ticker.C:
				if o.opts.signals.Cancelled(sessionID) {
					log.Printf("[orchestrator] cancel signal for session %s", sessionID)
					cancel()
					return
				}
			}
		}
	}()
	return sctx, cancel
}
