package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/pdfchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleText returns n runes of deterministic text mixing ASCII and multi-byte runes.
func sampleText(n int) string {
	alphabet := []rune("abcdefghij klmnopqrst uvwxyzäöüß 0123456789.\n")
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteRune(alphabet[(i*7+i/13)%len(alphabet)])
	}
	return b.String()
}

func TestWindowSplitter_Properties(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"defaults long page", 12345, DefaultChunkSize, DefaultChunkOverlap},
		{"exact fit", 9500, DefaultChunkSize, DefaultChunkOverlap},
		{"one rune over", 5001, DefaultChunkSize, DefaultChunkOverlap},
		{"small windows", 1000, 100, 10},
		{"no overlap", 1000, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := sampleText(tt.length)
			splitter, err := NewWindowSplitter(tt.size, tt.overlap)
			require.NoError(t, err)

			chunks, err := splitter.SplitText(text)
			require.NoError(t, err)
			require.Greater(t, len(chunks), 1)

			for i, chunk := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(chunk), tt.size, "chunk %d too long", i)
				if i < len(chunks)-1 {
					assert.Equal(t, tt.size, utf8.RuneCountInString(chunk), "only the final chunk may be shorter")
				}
			}

			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1])
				next := []rune(chunks[i])
				assert.Equal(t, string(prev[len(prev)-tt.overlap:]), string(next[:tt.overlap]), "overlap between %d and %d", i-1, i)
			}

			// Dropping each overlap reassembles the page.
			var rebuilt strings.Builder
			rebuilt.WriteString(chunks[0])
			for _, chunk := range chunks[1:] {
				rebuilt.WriteString(string([]rune(chunk)[tt.overlap:]))
			}
			assert.Equal(t, text, rebuilt.String())
		})
	}
}

func TestWindowSplitter_ShortAndBlank(t *testing.T) {
	splitter := WindowSplitter{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}

	chunks, err := splitter.SplitText("short page")
	require.NoError(t, err)
	assert.Equal(t, []string{"short page"}, chunks)

	chunks, err = splitter.SplitText(" \n\t ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitterValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr error
	}{
		{"zero size", 0, 0, ErrInvalidChunkSize},
		{"negative overlap", 10, -1, ErrInvalidChunkOverlap},
		{"overlap equals size", 10, 10, ErrInvalidChunkOverlap},
		{"overlap larger", 10, 20, ErrInvalidChunkOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWindowSplitter(tt.size, tt.overlap)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = NewSplitter(SplitterRecursive, tt.size, tt.overlap)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = WindowSplitter{Size: tt.size, Overlap: tt.overlap}.SplitText("text")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewSplitter(t *testing.T) {
	s, err := NewSplitter("", 100, 10)
	require.NoError(t, err)
	assert.IsType(t, WindowSplitter{}, s)

	s, err = NewSplitter(SplitterWindow, 100, 10)
	require.NoError(t, err)
	assert.IsType(t, WindowSplitter{}, s)

	_, err = NewSplitter("semantic", 100, 10)
	assert.ErrorIs(t, err, ErrUnknownSplitter)
}

func TestRecursiveSplitter_LengthBound(t *testing.T) {
	splitter, err := NewSplitter(SplitterRecursive, 200, 20)
	require.NoError(t, err)

	paragraph := strings.Repeat("Tomato plants need water every morning during summer. ", 12)
	text := paragraph + "\n\n" + paragraph + "\n" + paragraph

	chunks, err := splitter.SplitText(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 3)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 200, "chunk %d too long", i)
	}
}

func TestChunkPages(t *testing.T) {
	pages := []core.Page{
		{Number: 1, Text: sampleText(250)},
		{Number: 3, Text: "third page"},
		{Number: 4, Text: "   "},
	}
	splitter := WindowSplitter{Size: 100, Overlap: 10}

	chunks, err := ChunkPages("doc-1", pages, splitter)
	require.NoError(t, err)

	// 250 runes with stride 90: [0,100) [90,190) [180,250)
	require.Len(t, chunks, 4)

	seen := make(map[core.ID]bool)
	for i, chunk := range chunks[:3] {
		assert.Equal(t, 1, chunk.Page)
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.Equal(t, core.ChunkID("doc-1", 1, i), chunk.Id)
		seen[chunk.Id] = true
	}
	assert.Equal(t, 3, chunks[3].Page)
	assert.Equal(t, 0, chunks[3].Ordinal)
	assert.Equal(t, "third page", chunks[3].Text)
	assert.False(t, seen[chunks[3].Id])
}

func TestChunkPages_KeepsBlankWindows(t *testing.T) {
	text := strings.Repeat("a", 100) + strings.Repeat(" ", 200) + strings.Repeat("b", 100)
	splitter := WindowSplitter{Size: 100, Overlap: 10}

	chunks, err := ChunkPages("doc-1", []core.Page{{Number: 1, Text: text}}, splitter)
	require.NoError(t, err)

	// Stride 90 over 400 runes: [180,280) is all spaces.
	require.Len(t, chunks, 5)
	assert.Empty(t, strings.TrimSpace(chunks[2].Text))
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		next := []rune(chunks[i].Text)
		assert.Equal(t, string(prev[len(prev)-10:]), string(next[:10]), "overlap between %d and %d", i-1, i)
	}
}
