// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import "errors"

var (
	// ErrNotPDF is returned when uploaded content does not start with the PDF magic bytes.
	ErrNotPDF = errors.New("file is not a PDF")

	// ErrMalformedDocument is returned when the PDF parser cannot read the file.
	ErrMalformedDocument = errors.New("malformed PDF document")

	// ErrEmptyDocument is returned when no page of the document carries text.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrHolderRequired is returned when an index holder is not provided.
	ErrHolderRequired = errors.New("index holder required")

	// ErrInvalidMaxAttempts is returned for a non-positive retry budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrInvalidBatchSize is returned for a non-positive embedding batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrInvalidChunkSize is returned for a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidChunkOverlap is returned when overlap is negative or not smaller than the chunk size.
	ErrInvalidChunkOverlap = errors.New("chunk overlap must be in [0, size)")

	// ErrUnknownSplitter is returned for an unrecognised splitter strategy.
	ErrUnknownSplitter = errors.New("unknown splitter strategy")

	// ErrUpstream is returned when the embedding service keeps failing after all retries.
	ErrUpstream = errors.New("embedding service failed")

	// ErrEmbeddingCountMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
