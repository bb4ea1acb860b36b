package ingestion

import (
	"fmt"
	"strings"

	"github.com/poiesic/pdfchat/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 5000
	// DefaultChunkOverlap is the number of characters adjacent chunks share.
	DefaultChunkOverlap = 500
)

// Splitter strategies accepted by NewSplitter.
const (
	SplitterWindow    = "window"
	SplitterRecursive = "recursive"
)

// WindowSplitter cuts text into windows of Size characters advancing by
// Size-Overlap, so neighbouring chunks share exactly Overlap characters.
// Lengths are counted in runes.
type WindowSplitter struct {
	Size    int
	Overlap int
}

var _ textsplitter.TextSplitter = WindowSplitter{}

// NewWindowSplitter validates size and overlap.
func NewWindowSplitter(size, overlap int) (WindowSplitter, error) {
	if err := validateChunking(size, overlap); err != nil {
		return WindowSplitter{}, err
	}
	return WindowSplitter{Size: size, Overlap: overlap}, nil
}

// SplitText splits text into overlapping windows. The final window may be shorter.
func (s WindowSplitter) SplitText(text string) ([]string, error) {
	if err := validateChunking(s.Size, s.Overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}, nil
	}

	stride := s.Size - s.Overlap
	chunks := make([]string, 0, len(runes)/stride+1)
	for start := 0; ; start += stride {
		end := min(start+s.Size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// NewSplitter builds the splitter for strategy. An empty strategy selects the window splitter.
func NewSplitter(strategy string, size, overlap int) (textsplitter.TextSplitter, error) {
	if err := validateChunking(size, overlap); err != nil {
		return nil, err
	}

	switch strategy {
	case "", SplitterWindow:
		return WindowSplitter{Size: size, Overlap: overlap}, nil
	case SplitterRecursive:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplitter, strategy)
	}
}

func validateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap %d, size %d", ErrInvalidChunkOverlap, overlap, size)
	}
	return nil
}

// ChunkPages splits every page independently, so no chunk spans two pages.
// Chunks are returned in page order then position order. Blank pages yield
// no chunks, but a whitespace-only window inside a page is kept so that its
// neighbours still share exactly the configured overlap with it.
func ChunkPages(documentID string, pages []core.Page, splitter textsplitter.TextSplitter) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	for _, page := range pages {
		texts, err := splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("splitting page %d: %w", page.Number, err)
		}

		ordinal := 0
		for _, text := range texts {
			if text == "" {
				continue
			}
			chunks = append(chunks, &core.Chunk{
				Id:         core.ChunkID(documentID, page.Number, ordinal),
				DocumentID: documentID,
				Page:       page.Number,
				Ordinal:    ordinal,
				Text:       text,
			})
			ordinal++
		}
	}
	return chunks, nil
}
