package agent

import (
	"context"
	"strings"
	"sync"
)

// Accumulator joins the fragments of one streaming reply for persistence
// while they are forwarded, unchanged, to the caller. Done is closed once
// the source stream is fully drained or the consumer is cancelled; only
// then are Text and Cancelled meaningful.
type Accumulator struct {
	mu        sync.Mutex
	parts     []string
	cancelled bool
	done      chan struct{}
}

// Tee forwards fragments from in on the returned channel while recording
// them in the returned Accumulator. If ctx is cancelled before in is
// exhausted, forwarding stops, the remaining fragments are drained and
// discarded, and the accumulator is marked cancelled so that partial text
// is never persisted as a complete turn.
func Tee(ctx context.Context, in <-chan string) (<-chan string, *Accumulator) {
	out := make(chan string)
	acc := &Accumulator{done: make(chan struct{})}

	go func() {
		defer close(out)
		defer close(acc.done)
		for {
			select {
			case frag, ok := <-in:
				if !ok {
					return
				}
				acc.append(frag)
				select {
				case out <- frag:
				case <-ctx.Done():
					acc.markCancelled()
					drain(in)
					return
				}
			case <-ctx.Done():
				acc.markCancelled()
				drain(in)
				return
			}
		}
	}()

	return out, acc
}

// drain discards the rest of a fragment stream. The producer closes the
// channel when its own context is cancelled, so this terminates.
func drain(in <-chan string) {
	for range in {
	}
}

// Done returns a channel closed when the stream has been fully consumed
// or cancelled.
func (a *Accumulator) Done() <-chan struct{} {
	return a.done
}

// Text returns the accumulated fragments joined in yield order.
func (a *Accumulator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.parts, "")
}

// Cancelled reports whether the stream was cut short by cancellation.
func (a *Accumulator) Cancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

func (a *Accumulator) append(frag string) {
	a.mu.Lock()
	a.parts = append(a.parts, frag)
	a.mu.Unlock()
}

func (a *Accumulator) markCancelled() {
	a.mu.Lock()
	a.cancelled = true
	a.mu.Unlock()
}
