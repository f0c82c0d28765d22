package service

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one bounded fragment of extracted text. Start and End are byte
// offsets into the source text; consecutive chunks overlap by the configured
// overlap so context carries across fragment boundaries.
type Chunk struct {
	Content string
	Index   int
	Start   int
	End     int
}

// Chunker splits text into overlapping fragments of at most size bytes,
// preferring to cut at the largest semantic boundary available: paragraph
// break, then line break, then sentence end, then word boundary, then a plain
// character position. Splitting is deterministic for fixed parameters.
type Chunker struct {
	size    int
	overlap int
}

var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size/2 {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the full materialized chunk sequence; callers need the total
// count up front for batching and chunk_total metadata.
func (c *Chunker) Split(text string) []Chunk {
	if len(text) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + c.size
		if end >= len(text) {
			chunks = append(chunks, Chunk{
				Content: text[start:],
				Index:   len(chunks),
				Start:   start,
				End:     len(text),
			})
			return chunks
		}

		cut := c.snap(text, start, end)
		chunks = append(chunks, Chunk{
			Content: text[start:cut],
			Index:   len(chunks),
			Start:   start,
			End:     cut,
		})

		next := cut - c.overlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}
}

// snap moves the window end back to the nearest separator boundary in the
// trailing half of the window, so chunks end on paragraph, line, sentence or
// word boundaries whenever the text offers one. The cut never exceeds the
// configured size.
func (c *Chunker) snap(text string, start, end int) int {
	floor := start + c.size/2
	for _, sep := range chunkSeparators {
		if i := strings.LastIndex(text[floor:end], sep); i >= 0 {
			return floor + i + len(sep)
		}
	}
	// No boundary available: cut at the size limit, backing off a partial rune.
	for end > floor && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}
