package agent

import "context"

// Retriever supplies external context for retrieval-capable agents.
// Implementations live outside this core (vector search, document lookup);
// agents consume only this boundary.
type Retriever interface {
	// RetrieveAndCombine looks up context relevant to text and returns
	// the combined prompt to send to the underlying model.
	RetrieveAndCombine(ctx context.Context, text string) (string, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, text string) (string, error)

// RetrieveAndCombine implements Retriever.
func (f RetrieverFunc) RetrieveAndCombine(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
