// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ChatModel
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockChatModel("rewritten", "answer"))
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Check call counts and recorded prompts
//	count := provider.GetMockChatModel().CallCount()
//	calls := provider.GetMockChatModel().Calls()
//
// # Default Behavior
//
//   - MockEmbedder: Returns bag-of-words unit vectors, so texts sharing words are similar
//   - MockChatModel: Returns scripted responses in order, then DefaultResponse
//   - MockProvider: Gates API keys like the real provider and shares one chat model
package mock
