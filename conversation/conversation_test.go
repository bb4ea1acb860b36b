package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/pdfchat/ai/mock"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/retrieval"
	"github.com/poiesic/pdfchat/storage"
	"github.com/poiesic/pdfchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

var gardenTexts = []string{
	"Tomato plants need water every morning.",
	"Roses bloom in late spring and need full sun.",
	"Compost improves clay soil over several seasons.",
	"Prune apple trees in winter while they are dormant.",
	"Basil grows well next to tomatoes.",
}

func newHolder(t *testing.T, texts ...string) *retrieval.Holder {
	t.Helper()
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Id:         core.ChunkID("garden", 1, i),
			DocumentID: "garden",
			Page:       1,
			Ordinal:    i,
			Text:       text,
			Vector:     mock.BagOfWords(text, mock.DefaultDimension),
		}
	}
	index, err := retrieval.NewMemoryIndex(&core.Document{ID: "garden"}, chunks)
	require.NoError(t, err)

	holder := retrieval.NewHolder()
	holder.Swap(index)
	return holder
}

func newSessions(t *testing.T) storage.SessionRepository {
	t.Helper()
	repo, backend, err := badger.NewMemorySessionRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func newChain(t *testing.T, model *mock.MockChatModel, holder *retrieval.Holder, sessions storage.SessionRepository, opts ...Option) *Chain {
	t.Helper()
	retriever, err := retrieval.NewRetriever(holder, mock.NewMockEmbedder())
	require.NoError(t, err)
	chain, err := NewChain(model, retriever, sessions, opts...)
	require.NoError(t, err)
	return chain
}

func roles(messages []llms.MessageContent) []schema.ChatMessageType {
	out := make([]schema.ChatMessageType, len(messages))
	for i, m := range messages {
		out[i] = m.Role
	}
	return out
}

func TestRewriter(t *testing.T) {
	ctx := context.Background()
	history := []core.Turn{
		core.UserTurn("How often should I water tomatoes?"),
		core.AssistantTurn("Every morning."),
	}

	t.Run("no history is a no-op", func(t *testing.T) {
		model := mock.NewMockChatModel("should not be used")
		r, err := NewRewriter(model, nil)
		require.NoError(t, err)

		got, err := r.Rewrite(ctx, nil, "What is compost?")
		require.NoError(t, err)
		assert.Equal(t, "What is compost?", got)
		assert.Zero(t, model.CallCount())
	})

	t.Run("uses history", func(t *testing.T) {
		model := mock.NewMockChatModel("  How often should I water tomatoes in summer?\n")
		r, err := NewRewriter(model, nil)
		require.NoError(t, err)

		got, err := r.Rewrite(ctx, history, "And in summer?")
		require.NoError(t, err)
		assert.Equal(t, "How often should I water tomatoes in summer?", got)

		require.Equal(t, 1, model.CallCount())
		messages := model.Calls()[0]
		assert.Equal(t, []schema.ChatMessageType{
			schema.ChatMessageTypeSystem,
			schema.ChatMessageTypeHuman,
			schema.ChatMessageTypeAI,
			schema.ChatMessageTypeHuman,
		}, roles(messages))
		assert.Equal(t, ContextualizePrompt, mock.MessageText(messages[0]))
		assert.Equal(t, "Every morning.", mock.MessageText(messages[2]))
		assert.Equal(t, "And in summer?", mock.MessageText(messages[3]))
	})

	t.Run("empty response falls back", func(t *testing.T) {
		r, err := NewRewriter(mock.NewMockChatModel("   "), nil)
		require.NoError(t, err)

		got, err := r.Rewrite(ctx, history, "And in summer?")
		require.NoError(t, err)
		assert.Equal(t, "And in summer?", got)
	})

	t.Run("model failure", func(t *testing.T) {
		model := mock.NewMockChatModel()
		model.GenerateFunc = func(ctx context.Context, messages []llms.MessageContent) (string, error) {
			return "", errors.New("401 invalid api key")
		}
		r, err := NewRewriter(model, nil)
		require.NoError(t, err)

		_, err = r.Rewrite(ctx, history, "And in summer?")
		assert.ErrorIs(t, err, ErrUpstream)
		assert.ErrorContains(t, err, "401 invalid api key")
	})

	t.Run("requires model", func(t *testing.T) {
		_, err := NewRewriter(nil, nil)
		assert.ErrorIs(t, err, ErrChatModelRequired)
	})
}

func TestSystemPrompt(t *testing.T) {
	results := []*core.SearchResult{
		{Chunk: &core.Chunk{Text: "First chunk."}},
		{Chunk: &core.Chunk{Text: "Second chunk, it's quoted \"here\"."}},
	}

	prompt, err := SystemPrompt(results)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(prompt, "\n\nFirst chunk.\n\nSecond chunk, it's quoted \"here\"."))
	assert.Contains(t, prompt, "three sentences maximum")
	assert.Contains(t, prompt, "say that you don't know")
	assert.NotContains(t, prompt, "{{")
}

func TestSynthesizer(t *testing.T) {
	ctx := context.Background()
	results := []*core.SearchResult{{Chunk: &core.Chunk{Text: "Tomato plants need water every morning."}}}
	history := []core.Turn{core.UserTurn("hi"), core.AssistantTurn("hello")}

	t.Run("stuffs context and keeps original question", func(t *testing.T) {
		model := mock.NewMockChatModel("Water them every morning.")
		s, err := NewSynthesizer(model, nil)
		require.NoError(t, err)

		answer, err := s.Answer(ctx, results, history, "How often do I water tomatoes?")
		require.NoError(t, err)
		assert.Equal(t, "Water them every morning.", answer)

		messages := model.Calls()[0]
		require.Len(t, messages, 4)
		assert.Contains(t, mock.MessageText(messages[0]), "Tomato plants need water every morning.")
		assert.Equal(t, schema.ChatMessageTypeAI, messages[2].Role)
		assert.Equal(t, "How often do I water tomatoes?", mock.MessageText(messages[3]))
	})

	t.Run("I don't know is returned verbatim", func(t *testing.T) {
		s, err := NewSynthesizer(mock.NewMockChatModel("I don't know."), nil)
		require.NoError(t, err)

		answer, err := s.Answer(ctx, results, nil, "Who won the 1998 World Cup?")
		require.NoError(t, err)
		assert.Equal(t, "I don't know.", answer)
	})

	t.Run("empty answer", func(t *testing.T) {
		s, err := NewSynthesizer(mock.NewMockChatModel(""), nil)
		require.NoError(t, err)

		_, err = s.Answer(ctx, results, nil, "q")
		assert.ErrorIs(t, err, ErrEmptyAnswer)
		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestNewChain_RequiresDependencies(t *testing.T) {
	sessions := newSessions(t)
	retriever, err := retrieval.NewRetriever(retrieval.NewHolder(), mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = NewChain(nil, retriever, sessions)
	assert.ErrorIs(t, err, ErrChatModelRequired)
	_, err = NewChain(mock.NewMockChatModel(), nil, sessions)
	assert.ErrorIs(t, err, ErrRetrieverRequired)
	_, err = NewChain(mock.NewMockChatModel(), retriever, nil)
	assert.ErrorIs(t, err, ErrSessionRepositoryRequired)
}

func TestChain_FirstQuestionSkipsRewrite(t *testing.T) {
	model := mock.NewMockChatModel("Every morning.")
	chain := newChain(t, model, newHolder(t, gardenTexts...), newSessions(t))

	resp, err := chain.Invoke(context.Background(), core.DefaultSessionID, "How often do tomato plants need water?")
	require.NoError(t, err)

	assert.Equal(t, 1, model.CallCount(), "only the answer call")
	assert.Equal(t, resp.Input, resp.StandaloneQuestion)
	assert.Equal(t, "Every morning.", resp.Answer)
	require.Len(t, resp.Context, retrieval.DefaultTopK)
	assert.Equal(t, gardenTexts[0], resp.Context[0].Chunk.Text)

	require.Len(t, resp.History, 2)
	assert.Equal(t, core.SpeakerUser, resp.History[0].Speaker)
	assert.Equal(t, "How often do tomato plants need water?", resp.History[0].Text)
	assert.Equal(t, core.SpeakerAssistant, resp.History[1].Speaker)
	assert.Equal(t, "Every morning.", resp.History[1].Text)
}

func TestChain_HistoryGrowsByPairs(t *testing.T) {
	model := mock.NewMockChatModel()
	sessions := newSessions(t)
	chain := newChain(t, model, newHolder(t, gardenTexts...), sessions)
	ctx := context.Background()

	const n = 4
	for i := 0; i < n; i++ {
		if i > 0 {
			model.Script(fmt.Sprintf("standalone %d", i))
		}
		model.Script(fmt.Sprintf("answer %d", i))

		resp, err := chain.Invoke(ctx, "s1", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		assert.Len(t, resp.History, 2*(i+1))
		if i > 0 {
			assert.Equal(t, fmt.Sprintf("standalone %d", i), resp.StandaloneQuestion)
		}
	}

	turns, err := sessions.GetTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2*n)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("question %d", i), turns[2*i].Text)
		assert.Equal(t, fmt.Sprintf("answer %d", i), turns[2*i+1].Text)
	}
}

func TestChain_AnswerUsesHistory(t *testing.T) {
	model := mock.NewMockChatModel("Every morning.", "How often should tomatoes be watered in summer?", "Twice a day.")
	chain := newChain(t, model, newHolder(t, gardenTexts...), newSessions(t))
	ctx := context.Background()

	_, err := chain.Invoke(ctx, "s", "How often do tomato plants need water?")
	require.NoError(t, err)
	_, err = chain.Invoke(ctx, "s", "And in summer?")
	require.NoError(t, err)

	calls := model.Calls()
	require.Len(t, calls, 3)
	answerCall := calls[2]
	require.Len(t, answerCall, 4, "system, two history turns, question")
	assert.Equal(t, "And in summer?", mock.MessageText(answerCall[3]), "answer step sees the original question")
}

func TestChain_SessionsAreIndependent(t *testing.T) {
	model := mock.NewMockChatModel("a1", "b1")
	chain := newChain(t, model, newHolder(t, gardenTexts...), newSessions(t))
	ctx := context.Background()

	_, err := chain.Invoke(ctx, "alice", "What about roses?")
	require.NoError(t, err)
	resp, err := chain.Invoke(ctx, "bob", "What about basil?")
	require.NoError(t, err)

	assert.Len(t, resp.History, 2)
	assert.Equal(t, 2, model.CallCount(), "bob's first question is not rewritten")
}

func TestChain_UnsupportedQuestion(t *testing.T) {
	chain := newChain(t, mock.NewMockChatModel(), newHolder(t, gardenTexts...), newSessions(t))

	resp, err := chain.Invoke(context.Background(), "s", "Who won the 1998 World Cup?")
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultResponse, resp.Answer)
}

func TestChain_NoDocument(t *testing.T) {
	model := mock.NewMockChatModel()
	sessions := newSessions(t)
	chain := newChain(t, model, retrieval.NewHolder(), sessions)

	_, err := chain.Invoke(context.Background(), "s", "anything?")
	assert.ErrorIs(t, err, retrieval.ErrNoIndex)
	assert.NotErrorIs(t, err, ErrUpstream)
	assert.Zero(t, model.CallCount())

	turns, err := sessions.GetTurns(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChain_ModelFailureLeavesHistory(t *testing.T) {
	model := mock.NewMockChatModel("Every morning.")
	sessions := newSessions(t)
	chain := newChain(t, model, newHolder(t, gardenTexts...), sessions)
	ctx := context.Background()

	_, err := chain.Invoke(ctx, "s", "How often do tomato plants need water?")
	require.NoError(t, err)

	model.GenerateFunc = func(ctx context.Context, messages []llms.MessageContent) (string, error) {
		return "", errors.New("rate limited")
	}
	_, err = chain.Invoke(ctx, "s", "And roses?")
	assert.ErrorIs(t, err, ErrUpstream)

	turns, err := sessions.GetTurns(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, turns, 2, "failed interaction is not recorded")
}

func TestChain_InvalidInput(t *testing.T) {
	model := mock.NewMockChatModel()
	chain := newChain(t, model, newHolder(t, gardenTexts...), newSessions(t))
	ctx := context.Background()

	_, err := chain.Invoke(ctx, "s", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = chain.Invoke(ctx, "", "question")
	assert.ErrorIs(t, err, core.ErrInvalidSessionID)

	assert.Zero(t, model.CallCount())
}

func TestChain_ContextEndIsNotUpstream(t *testing.T) {
	blocking := func(ctx context.Context, messages []llms.MessageContent) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("request: %w", ctx.Err())
	}

	t.Run("deadline", func(t *testing.T) {
		model := mock.NewMockChatModel()
		model.GenerateFunc = blocking
		chain := newChain(t, model, newHolder(t, gardenTexts...), newSessions(t))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := chain.Invoke(ctx, "s", "How often do tomato plants need water?")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrUpstream)
	})

	t.Run("canceled", func(t *testing.T) {
		model := mock.NewMockChatModel()
		model.GenerateFunc = blocking
		chain := newChain(t, model, newHolder(t, gardenTexts...), newSessions(t))

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := chain.Invoke(ctx, "s", "How often do tomato plants need water?")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrUpstream)
	})

	t.Run("model timeout with live caller", func(t *testing.T) {
		model := mock.NewMockChatModel()
		model.GenerateFunc = func(ctx context.Context, messages []llms.MessageContent) (string, error) {
			return "", fmt.Errorf("http client: %w", context.DeadlineExceeded)
		}
		chain := newChain(t, model, newHolder(t, gardenTexts...), newSessions(t))

		_, err := chain.Invoke(context.Background(), "s", "How often do tomato plants need water?")
		assert.ErrorIs(t, err, ErrUpstream)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

type recordingMonitor struct {
	events []string
}

func (m *recordingMonitor) Start(sessionID, question string, history []core.Turn) {
	m.events = append(m.events, fmt.Sprintf("start %s %d", sessionID, len(history)))
}
func (m *recordingMonitor) Rewritten(standalone string) {
	m.events = append(m.events, "rewritten "+standalone)
}
func (m *recordingMonitor) Retrieved(results []*core.SearchResult) {
	m.events = append(m.events, fmt.Sprintf("retrieved %d", len(results)))
}
func (m *recordingMonitor) Answered(answer string) {
	m.events = append(m.events, "answered "+answer)
}

func TestChain_Monitor(t *testing.T) {
	monitor := &recordingMonitor{}
	chain := newChain(t, mock.NewMockChatModel("Every morning."), newHolder(t, gardenTexts[:2]...), newSessions(t), WithMonitor(monitor))

	_, err := chain.Invoke(context.Background(), "s", "tomatoes?")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start s 0",
		"rewritten tomatoes?",
		"retrieved 2",
		"answered Every morning.",
	}, monitor.events)
}

func TestWriterMonitor(t *testing.T) {
	var b strings.Builder
	m := NewWriterMonitor(&b)

	m.Start("s", "q", nil)
	m.Rewritten("standalone q")
	m.Retrieved([]*core.SearchResult{{Chunk: &core.Chunk{Page: 2, Ordinal: 1, Text: strings.Repeat("x", 100)}, Score: 0.5}})
	m.Answered("done")

	out := b.String()
	assert.Contains(t, out, `standalone question: "standalone q"`)
	assert.Contains(t, out, "[page 2 #1] 0.5000")
	assert.Contains(t, out, `..."`)
	assert.Contains(t, out, "answered (4 chars)")
}
