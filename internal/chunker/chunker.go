// Package chunker splits document text into embedding-sized chunks.
//
// It uses a hybrid strategy: a target chunk size in estimated tokens,
// with cuts moved back to natural text boundaries (paragraph, newline,
// sentence end, word) and a configurable overlap between consecutive
// chunks to preserve context across cuts.
//
// Token estimation is character based (~3.3 chars/token for German,
// ~4 for English). The ratio does not need to be exact; the target
// chunk size already includes a buffer below the embedding model's
// hard context window limit.
package chunker

import "strings"

// DefaultChunkSizeTokens is the default target chunk size in tokens.
const DefaultChunkSizeTokens = 1000

// DefaultOverlapTokens is the default chunk overlap in tokens.
const DefaultOverlapTokens = 100

// DefaultCharsPerToken is the default character-to-token ratio.
const DefaultCharsPerToken = 3.3

// boundarySearchTokens bounds how far behind the target position the
// boundary search may reach.
const boundarySearchTokens = 300

// EstimateTokens estimates the token count of text from its character
// length.
func EstimateTokens(text string, charsPerToken float64) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return int(float64(len(text)) / charsPerToken)
}

// TokensToChars converts a token count to an approximate character
// count.
func TokensToChars(tokens int, charsPerToken float64) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return int(float64(tokens) * charsPerToken)
}

// Chunker splits text into overlapping chunks at natural boundaries.
// The zero value is not usable; construct with New.
type Chunker struct {
	chunkSizeTokens int
	overlapTokens   int
	charsPerToken   float64
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in tokens.
func WithChunkSize(tokens int) Option {
	return func(c *Chunker) {
		if tokens > 0 {
			c.chunkSizeTokens = tokens
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in tokens.
func WithOverlap(tokens int) Option {
	return func(c *Chunker) {
		if tokens >= 0 {
			c.overlapTokens = tokens
		}
	}
}

// WithCharsPerToken sets the character-to-token estimation ratio.
func WithCharsPerToken(ratio float64) Option {
	return func(c *Chunker) {
		if ratio > 0 {
			c.charsPerToken = ratio
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSizeTokens: DefaultChunkSizeTokens,
		overlapTokens:   DefaultOverlapTokens,
		charsPerToken:   DefaultCharsPerToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	// The overlap must leave room to advance.
	if c.overlapTokens >= c.chunkSizeTokens {
		c.overlapTokens = c.chunkSizeTokens / 4
	}
	return c
}

// Chunk splits text into an ordered list of trimmed chunks.
//
// If the whole text fits the target size it is returned as a single
// trimmed chunk; blank input yields nil. Otherwise the cursor advances
// through the text: each cut is searched backwards from the target
// position for a natural boundary, the chunk is trimmed and appended,
// and the next chunk starts overlapTokens worth of characters before
// the cut. A safety rule forces the start to the cut position whenever
// the overlap would not advance the cursor, so the scan always
// terminates. Output is deterministic for identical input and settings.
func (c *Chunker) Chunk(text string) []string {
	chunkSizeChars := TokensToChars(c.chunkSizeTokens, c.charsPerToken)
	overlapChars := TokensToChars(c.overlapTokens, c.charsPerToken)
	searchWindowChars := TokensToChars(boundarySearchTokens, c.charsPerToken)

	if len(text) <= chunkSizeChars {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	pos := 0

	for pos < len(text) {
		target := pos + chunkSizeChars

		// Remaining text fits in one chunk.
		if target >= len(text) {
			if chunk := strings.TrimSpace(text[pos:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		minPos := pos + 1
		if window := target - searchWindowChars; window > minPos {
			minPos = window
		}
		cut := findBoundary(text, target, minPos)

		if chunk := strings.TrimSpace(text[pos:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Next chunk starts with overlap; force the start to the cut
		// when the overlap would not advance past the previous start.
		next := cut - overlapChars
		if next <= pos {
			next = cut
		}
		pos = next
	}

	return chunks
}

// findBoundary searches backwards from target within [minPos, target)
// for a natural cut position, in priority order: paragraph break,
// newline, sentence-ending punctuation followed by whitespace, space.
// It returns target (hard cut) when no boundary is found.
func findBoundary(text string, target, minPos int) int {
	if target >= len(text) {
		return len(text)
	}
	region := text[minPos:target]

	// Priority 1: paragraph break, cut after it.
	if idx := strings.LastIndex(region, "\n\n"); idx != -1 {
		return minPos + idx + 2
	}

	// Priority 2: newline, cut after it.
	if idx := strings.LastIndex(region, "\n"); idx != -1 {
		return minPos + idx + 1
	}

	// Priority 3: sentence end followed by whitespace, cut after the
	// whitespace.
	if idx := lastSentenceEnd(region); idx != -1 {
		return minPos + idx
	}

	// Priority 4: word boundary, cut after the space.
	if idx := strings.LastIndex(region, " "); idx != -1 {
		return minPos + idx + 1
	}

	return target
}

// lastSentenceEnd returns the offset just past the last occurrence of
// sentence-ending punctuation followed by a whitespace byte, or -1.
func lastSentenceEnd(region string) int {
	for i := len(region) - 1; i > 0; i-- {
		switch region[i] {
		case ' ', '\t', '\n', '\r':
			switch region[i-1] {
			case '.', '!', '?':
				return i + 1
			}
		}
	}
	return -1
}
