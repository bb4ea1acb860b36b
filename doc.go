// Package pdfchat answers questions about an uploaded PDF while keeping
// per-session conversation history.
//
// An Assistant wires the pieces together: the ingestion pipeline extracts,
// chunks and embeds the upload; the retrieval package holds the resulting
// similarity index; the conversation chain rewrites follow-up questions,
// retrieves context and asks the hosted chat model; and the session store
// keeps every (question, answer) pair.
//
// Every call takes the caller's API key and refuses to do anything without one:
//
//	assistant, err := pdfchat.NewAssistant(pdfchat.WithAIConfig(ai.DefaultConfig()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer assistant.Close()
//
//	if _, err := assistant.UploadFile(ctx, apiKey, "report.pdf"); err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := assistant.Ask(ctx, apiKey, "default_session", "What does the report conclude?")
package pdfchat
