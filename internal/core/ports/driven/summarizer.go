package driven

import "context"

// Summarizer generates document abstracts and tags.
// This is an optional capability: when Enabled returns false, or a call
// fails, the store proceeds without an abstract. Implementations report
// failure by returning an empty result, never an error.
type Summarizer interface {
	// Enabled reports whether a summary model is configured.
	Enabled() bool

	// GenerateAbstract produces a short abstract of text. The title
	// may be empty. Returns "" on failure.
	GenerateAbstract(ctx context.Context, text, title string) string

	// GenerateTags produces lowercase topic tags for text.
	// Returns nil on failure.
	GenerateTags(ctx context.Context, text, title string) []string
}
