// Package retrieval holds the similarity index built from the active document
// and answers nearest-neighbour queries against it.
//
// A Holder owns the active Index. Ingestion builds a complete MemoryIndex and
// swaps it in; searches running at that moment keep using the index they
// obtained. A Retriever embeds the (standalone) question and returns the
// top K chunks by cosine similarity, with no relevance threshold.
package retrieval
