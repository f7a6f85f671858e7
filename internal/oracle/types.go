package oracle

import "context"

// The reasoning oracle and the embedding backend are injected capabilities.
// The decision core never hard-wires a specific model binding; both
// interfaces must be callable with a bounded context and surface failure as
// a plain error, which the reasoner maps to its ReasoningError.

// #region oracle

// Oracle generates free-form text for a prompt.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// #endregion oracle

// #region embedder

// Embedder converts text into an opaque embedding vector. Callers must
// tolerate failure by degrading (preference retrieval is best-effort).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion embedder
