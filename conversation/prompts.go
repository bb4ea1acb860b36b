package conversation

import (
	"github.com/poiesic/pdfchat/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
)

// ContextualizePrompt instructs the model to turn a follow-up into a standalone question.
const ContextualizePrompt = "Given a chat history and the latest user question, " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, " +
	"just reformulate it if needed and otherwise return it as is."

// AnswerPrompt is the system prompt of the answer step. The retrieved
// context is stuffed into it.
const AnswerPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer " +
	"the question. If you don't know the answer, say that you " +
	"don't know. Use three sentences maximum and keep the " +
	"answer concise." +
	"\n\n" +
	"{{.context}}"

// ContextSeparator joins retrieved chunk texts in the answer prompt.
const ContextSeparator = "\n\n"

var answerTemplate = prompts.NewPromptTemplate(AnswerPrompt, []string{"context"})

// historyMessages maps stored turns to alternating human/AI messages.
func historyMessages(history []core.Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history))
	for _, turn := range history {
		role := schema.ChatMessageTypeHuman
		if turn.Speaker == core.SpeakerAssistant {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Text))
	}
	return messages
}

// buildMessages assembles system prompt, history and the question.
func buildMessages(system string, history []core.Turn, question string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, system))
	messages = append(messages, historyMessages(history)...)
	return append(messages, llms.TextParts(schema.ChatMessageTypeHuman, question))
}
