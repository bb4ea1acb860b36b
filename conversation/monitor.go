package conversation

import (
	"fmt"
	"io"

	"github.com/poiesic/pdfchat/core"
)

// Monitor provides hooks to observe one chain invocation.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(sessionID, question string, history []core.Turn)
	Rewritten(standalone string)
	Retrieved(results []*core.SearchResult)
	Answered(answer string)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string, _ []core.Turn) {}
func (n *noopMonitor) Rewritten(_ string) {}
func (n *noopMonitor) Retrieved(_ []*core.SearchResult) {}
func (n *noopMonitor) Answered(_ string) {}

// WriterMonitor prints each step to a writer.
type WriterMonitor struct {
	w io.Writer
}

var _ Monitor = (*WriterMonitor)(nil)

// NewWriterMonitor creates a monitor that writes to w.
func NewWriterMonitor(w io.Writer) *WriterMonitor {
	return &WriterMonitor{w: w}
}

func (m *WriterMonitor) Start(sessionID, question string, history []core.Turn) {
	fmt.Fprintf(m.w, "session %s: %q (%d prior turns)\n", sessionID, question, len(history))
}

func (m *WriterMonitor) Rewritten(standalone string) {
	fmt.Fprintf(m.w, "  standalone question: %q\n", standalone)
}

func (m *WriterMonitor) Retrieved(results []*core.SearchResult) {
	fmt.Fprintf(m.w, "  retrieved %d chunks\n", len(results))
	for _, result := range results {
		fmt.Fprintf(m.w, "    [page %d #%d] %.4f %s\n", result.Chunk.Page, result.Chunk.Ordinal, result.Score, preview(result.Chunk.Text, 60))
	}
}

func (m *WriterMonitor) Answered(answer string) {
	fmt.Fprintf(m.w, "  answered (%d chars)\n", len(answer))
}

func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return fmt.Sprintf("%q", text)
	}
	return fmt.Sprintf("%q", string(runes[:max])+"...")
}
