// Package conversation implements the history-aware question answering chain.
//
// One invocation loads the session history, rewrites the question into a
// standalone one (skipped when there is no history), retrieves the most
// similar chunks for it, and asks the chat model to answer the original
// question from the stuffed context. The (question, answer) pair is appended
// to the session only after an answer was produced.
//
// # Usage
//
//	chain, err := conversation.NewChain(model, retriever, sessions)
//	if err != nil {
//	    return err
//	}
//	resp, err := chain.Invoke(ctx, core.DefaultSessionID, "What does the report conclude?")
package conversation
