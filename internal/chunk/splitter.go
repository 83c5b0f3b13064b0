package chunk

import (
	"fmt"
	"strings"
)

// separators are tried in order: paragraph breaks first, then line
// breaks, then raw character windows.
var separators = []string{"\n\n", "\n"}

// Splitter splits text recursively on natural boundaries, falling back
// to fixed character windows when no boundary fits.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter with the given chunk size and overlap,
// both in characters.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split splits a file into chunks. The output is deterministic: the
// same input always produces the same chunks in the same order.
func (s *Splitter) Split(file *FileInput) []*Chunk {
	text := string(file.Content)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.splitText(text, separators)

	chunks := make([]*Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		idx := len(chunks)
		chunks = append(chunks, &Chunk{
			ID:       chunkID(file.Path, idx),
			FilePath: file.Path,
			Content:  piece,
			Language: file.Language,
			Index:    idx,
		})
	}

	return chunks
}

// splitText splits text on the first separator present, merges the
// resulting pieces back up to chunkSize with overlap, and recurses on
// any piece still too large.
func (s *Splitter) splitText(text string, seps []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	if len(seps) == 0 {
		return s.splitByWindow(text)
	}

	sep := seps[0]
	rest := seps[1:]

	if !strings.Contains(text, sep) {
		return s.splitText(text, rest)
	}

	splits := strings.Split(text, sep)

	// Pack small pieces together; recurse on pieces still too large.
	var result []string
	var pending []string
	for _, sp := range splits {
		if len(sp) <= s.chunkSize {
			pending = append(pending, sp)
			continue
		}
		if len(pending) > 0 {
			result = append(result, s.mergeSplits(pending, sep)...)
			pending = nil
		}
		result = append(result, s.splitText(sp, rest)...)
	}
	if len(pending) > 0 {
		result = append(result, s.mergeSplits(pending, sep)...)
	}

	return result
}

// mergeSplits greedily packs small pieces into chunks up to chunkSize,
// carrying roughly overlap characters from the tail of each chunk into
// the next.
func (s *Splitter) mergeSplits(splits []string, sep string) []string {
	sepLen := len(sep)

	var docs []string
	var current []string
	total := 0

	joinedLen := func(add int) int {
		n := total + add
		if len(current) > 0 {
			n += sepLen
		}
		return n
	}

	flush := func() {
		if len(current) == 0 {
			return
		}
		doc := strings.Join(current, sep)
		if strings.TrimSpace(doc) != "" {
			docs = append(docs, doc)
		}
	}

	for _, piece := range splits {
		if joinedLen(len(piece)) > s.chunkSize && len(current) > 0 {
			flush()
			// Drop head pieces until the carried tail fits the overlap
			// and leaves room for the incoming piece.
			for len(current) > 0 &&
				(total > s.overlap || joinedLen(len(piece)) > s.chunkSize) {
				total -= len(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += len(piece)
	}
	flush()

	return docs
}

// splitByWindow slices text into fixed windows of chunkSize runes,
// stepping by chunkSize-overlap. Windows are cut on rune boundaries so
// multi-byte text never yields invalid UTF-8 chunk edges.
func (s *Splitter) splitByWindow(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
