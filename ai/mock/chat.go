package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// DefaultResponse is returned by MockChatModel when no scripted response is left.
const DefaultResponse = "I don't know."

// MockChatModel is a test double for ai.ChatModel.
// Scripted responses are returned in order; every call is recorded.
type MockChatModel struct {
	// GenerateFunc is called by Generate if set, bypassing scripted responses.
	GenerateFunc func(ctx context.Context, messages []llms.MessageContent) (string, error)

	mu        sync.Mutex
	responses []string
	calls     [][]llms.MessageContent
}

// NewMockChatModel creates a chat model that answers with responses in order,
// then with DefaultResponse.
func NewMockChatModel(responses ...string) *MockChatModel {
	return &MockChatModel{responses: responses}
}

// Generate records the messages and returns the next scripted response.
func (m *MockChatModel) Generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	fn := m.GenerateFunc
	var next string
	if fn == nil {
		next = DefaultResponse
		if len(m.responses) > 0 {
			next = m.responses[0]
			m.responses = m.responses[1:]
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return next, nil
}

// Script appends responses to the queue.
func (m *MockChatModel) Script(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// CallCount returns the number of Generate calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded message lists.
func (m *MockChatModel) Calls() [][]llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]llms.MessageContent, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls, scripted responses and injected behavior.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = nil
	m.GenerateFunc = nil
}

// MessageText joins the text parts of a message.
func MessageText(message llms.MessageContent) string {
	var b strings.Builder
	for _, part := range message.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}
