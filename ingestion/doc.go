// Package ingestion turns an uploaded PDF into the active similarity index.
//
// The Pipeline type manages the ingestion workflow for one upload:
//   - Checking the PDF magic bytes and writing the upload to a fixed temporary path
//   - Extracting page texts with github.com/ledongthuc/pdf
//   - Splitting pages into overlapping chunks that never span pages
//   - Embedding chunk batches concurrently on an ants worker pool
//   - Swapping the finished index into a retrieval.Holder
//
// The new index replaces the old one only after every chunk was embedded, so a
// failed upload leaves the previous document answerable.
package ingestion
