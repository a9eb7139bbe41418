// Package splitter breaks long text into overlapping chunks for embedding.
//
// Splitting is delegated to langchaingo's recursive character splitter:
// text is split on the first separator that occurs in it, preferring
// paragraph breaks, then line breaks, then spaces, then single characters,
// and the pieces are merged back into windows of at most ChunkSize runes
// that share up to ChunkOverlap runes.
package splitter

import (
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/liliang-cn/castle/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators in order of preference
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter is a recursive character text splitter. Lengths are counted in runes.
type Splitter struct {
	rc textsplitter.RecursiveCharacter
}

// New creates a splitter. A zero chunk size selects the default.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < 0 || chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk size and overlap must not be negative: %w", domain.ErrInvalidRequest)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d: %w", chunkOverlap, chunkSize, domain.ErrInvalidRequest)
	}
	return &Splitter{
		rc: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(DefaultSeparators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}, nil
}

// SplitText splits text into trimmed, non-empty chunks
func (s *Splitter) SplitText(text string) ([]string, error) {
	texts, err := s.rc.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return texts, nil
}

// SplitChunks splits text and attaches a copy of metadata to every chunk
func (s *Splitter) SplitChunks(text string, metadata map[string]any) ([]domain.Chunk, error) {
	texts, err := s.SplitText(text)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(texts))
	for _, t := range texts {
		md := make(map[string]any, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
		chunks = append(chunks, domain.Chunk{Text: t, Metadata: md})
	}
	return chunks, nil
}
