// Package chunker splits normalized text into fixed-size overlapping windows.
package chunker

import (
	"fmt"
)

const (
	// DefaultSize is the default window length in characters.
	DefaultSize = 500
	// DefaultOverlap is the default number of characters shared by consecutive windows.
	DefaultOverlap = 50
)

// Chunk is one window of a document's normalized text.
// Start and End are character (rune) offsets, End exclusive.
type Chunk struct {
	Index    int    `json:"index"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Text     string `json:"text"`
	Checksum uint64 `json:"checksum"`
}

// ID returns the store identifier of the chunk within docID.
func (c *Chunk) ID(docID string) string {
	return ID(docID, c.Index)
}

// ID builds a chunk identifier from a document ID and a sequence index.
func ID(docID string, index int) string {
	return fmt.Sprintf("%s#%d", docID, index)
}

// Validate checks that size and overlap make the window advance.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d must be positive", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be less than size %d", ErrInvalidConfig, overlap, size)
	}
	return nil
}

// Split cuts text into windows of size characters advancing by size-overlap.
// The last window may be shorter. Empty text yields no chunks.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	n := len(runes)
	chunks := make([]Chunk, 0, estimate(n, size, overlap))
	step := size - overlap
	for start := 0; start < n; start += step {
		end := n
		if size < n-start {
			end = start + size
		}
		segment := string(runes[start:end])
		sum, err := Checksum([]byte(segment))
		if err != nil {
			return nil, fmt.Errorf("checksum chunk %d: %w", len(chunks), err)
		}
		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Start:    start,
			End:      end,
			Text:     segment,
			Checksum: sum,
		})
		if step >= n-start {
			break
		}
	}
	return chunks, nil
}

// Texts returns only the window strings of Split.
func Texts(text string, size, overlap int) ([]string, error) {
	chunks, err := Split(text, size, overlap)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].Text
	}
	return out, nil
}

func estimate(n, size, overlap int) int {
	if n == 0 {
		return 0
	}
	step := size - overlap
	count := n / step
	if n%step != 0 {
		count++
	}
	return count
}
