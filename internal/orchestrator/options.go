package orchestrator

import "time"

// Defaults for optional orchestrator configuration.
const (
	// DefaultMaxRetries is how many classification attempts are made
	// before giving up on agent selection.
	DefaultMaxRetries = 3
	// DefaultNoAgentMessage is the rejection reply when no agent can be
	// selected and no fallback is configured.
	DefaultNoAgentMessage = "I'm not sure which of my agents can help with that. Could you rephrase?"
	// DefaultErrorMessage is the reply when the selected agent fails.
	DefaultErrorMessage = "Something went wrong while answering. Please try again."
)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	maxRetries        int
	maxPairsPerAgent  int
	useDefaultAgent   bool
	noAgentMessage    string
	errorMessage      string
	classifierTimeout time.Duration
	agentTimeout      time.Duration
	signals           *SignalManager
}

func defaultOptions() *orchestratorOptions {
	return &orchestratorOptions{
		maxRetries:     DefaultMaxRetries,
		noAgentMessage: DefaultNoAgentMessage,
		errorMessage:   DefaultErrorMessage,
	}
}

// WithMaxRetries sets how many classification attempts are made per turn.
// Values below one are ignored.
func WithMaxRetries(n int) Option {
	return func(o *orchestratorOptions) {
		if n >= 1 {
			o.maxRetries = n
		}
	}
}

// WithMaxPairsPerAgent bounds the history kept per (user, session, agent).
func WithMaxPairsPerAgent(n int) Option {
	return func(o *orchestratorOptions) { o.maxPairsPerAgent = n }
}

// WithUseDefaultAgent routes unclassifiable turns to the registry's
// default agent instead of rejecting them.
func WithUseDefaultAgent(use bool) Option {
	return func(o *orchestratorOptions) { o.useDefaultAgent = use }
}

// WithNoAgentMessage sets the rejection reply text.
func WithNoAgentMessage(msg string) Option {
	return func(o *orchestratorOptions) { o.noAgentMessage = msg }
}

// WithErrorMessage sets the reply text used when an agent fails.
func WithErrorMessage(msg string) Option {
	return func(o *orchestratorOptions) { o.errorMessage = msg }
}

// WithClassifierTimeout bounds each classification attempt.
func WithClassifierTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.classifierTimeout = d }
}

// WithAgentTimeout bounds each agent invocation. For streaming agents the
// timeout covers the whole stream; one that outlives it is cancelled and
// its partial text is not persisted.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.agentTimeout = d }
}

// WithSignals attaches a SignalManager for file-based session cancellation.
func WithSignals(sm *SignalManager) Option {
	return func(o *orchestratorOptions) { o.signals = sm }
}
