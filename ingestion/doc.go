// Package ingestion indexes pre-chunked passages into a vector index.
//
// Passages arrive as JSON lines of the form
//
//	{"content": "...", "metadata": {"document_name": "...", "page_number": 3, "chunk_type": "text"}}
//
// The Indexer validates every passage, embeds them in batches on a worker
// pool, and writes the resulting documents to a storage.DocumentIndex.
// Document IDs derive from document name, page and content, so indexing the
// same passage twice replaces it.
package ingestion
