package retrieval

import (
	"sync"

	"github.com/poiesic/pdfchat/core"
)

// Holder owns the active index. Readers see either the old or the new index,
// never a partially built one.
type Holder struct {
	mu    sync.RWMutex
	index Index
}

// NewHolder returns a holder with no active index.
func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the active index or ErrNoIndex.
func (h *Holder) Current() (Index, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.index == nil {
		return nil, ErrNoIndex
	}
	return h.index, nil
}

// Swap installs index as the active one and returns the index it replaced.
func (h *Holder) Swap(index Index) Index {
	h.mu.Lock()
	defer h.mu.Unlock()
	previous := h.index
	h.index = index
	return previous
}

// Document describes the active document, or nil when nothing is indexed.
func (h *Holder) Document() *core.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.index == nil {
		return nil
	}
	return h.index.Document()
}
