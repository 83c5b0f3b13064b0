package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter_Validation(t *testing.T) {
	_, err := NewSplitter(0, 0)
	assert.Error(t, err)

	_, err = NewSplitter(100, 100)
	assert.Error(t, err, "overlap must be smaller than chunk size")

	_, err = NewSplitter(100, -1)
	assert.Error(t, err)

	s, err := NewSplitter(800, 100)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSplit_SmallFileSingleChunk(t *testing.T) {
	s, err := NewSplitter(800, 100)
	require.NoError(t, err)

	content := "package main\n\nfunc main() {}\n"
	chunks := s.Split(&FileInput{Path: "main.go", Content: []byte(content), Language: "go"})

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(content), chunks[0].Content)
	assert.Equal(t, "main.go", chunks[0].FilePath)
	assert.Equal(t, "go", chunks[0].Language)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_EmptyAndWhitespaceOnly(t *testing.T) {
	s, err := NewSplitter(800, 100)
	require.NoError(t, err)

	assert.Nil(t, s.Split(&FileInput{Path: "empty.txt", Content: nil}))
	assert.Nil(t, s.Split(&FileInput{Path: "blank.txt", Content: []byte("  \n\n \t\n")}))
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)

	para1 := strings.Repeat("a", 80)
	para2 := strings.Repeat("b", 80)
	content := para1 + "\n\n" + para2

	chunks := s.Split(&FileInput{Path: "doc.md", Content: []byte(content)})

	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0].Content)
	assert.Equal(t, para2, chunks[1].Content)
}

func TestSplit_FallsBackToLines(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	// One paragraph of short lines, no blank lines.
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, strings.Repeat("x", 20))
	}
	content := strings.Join(lines, "\n")

	chunks := s.Split(&FileInput{Path: "code.go", Content: []byte(content)})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 50)
	}
}

func TestSplit_CharWindowForUnbrokenText(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)

	content := strings.Repeat("z", 350)
	chunks := s.Split(&FileInput{Path: "blob.txt", Content: []byte(content)})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 100)
	}

	// Windows step by chunkSize-overlap, so consecutive chunks share text.
	assert.Equal(t, 100, len(chunks[0].Content))
}

func TestSplit_CharWindowKeepsRunesIntact(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)

	// Multi-byte text with no newlines forces the window fallback.
	content := strings.Repeat("héllo wörld ", 50)
	chunks := s.Split(&FileInput{Path: "i18n.txt", Content: []byte(content)})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Content), "chunk edges must not split runes")
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 100)
	}
}

func TestSplit_ChunksRespectMaxSize(t *testing.T) {
	s, err := NewSplitter(800, 100)
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("func helper() { return }\n")
		if i%10 == 0 {
			b.WriteString("\n")
		}
	}

	chunks := s.Split(&FileInput{Path: "big.go", Content: []byte(b.String())})

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 800)
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := NewSplitter(120, 30)
	require.NoError(t, err)

	content := []byte(strings.Repeat("some line of code here\n", 40))
	first := s.Split(&FileInput{Path: "a.go", Content: content})
	second := s.Split(&FileInput{Path: "a.go", Content: content})

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}

func TestSplit_IDsUniquePerFileAndIndex(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	content := []byte(strings.Repeat("line of text\n", 30))
	a := s.Split(&FileInput{Path: "a.go", Content: content})
	b := s.Split(&FileInput{Path: "b.go", Content: content})

	seen := map[string]bool{}
	for _, c := range append(a, b...) {
		assert.False(t, seen[c.ID], "duplicate chunk ID %s", c.ID)
		seen[c.ID] = true
		assert.Len(t, c.ID, 16)
	}
}

func TestSplit_IndexesAreSequential(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	chunks := s.Split(&FileInput{Path: "a.go", Content: []byte(strings.Repeat("line of text\n", 30))})
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}
