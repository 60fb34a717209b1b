// Package rerank reorders retrieved candidates by lexical relevance to the query.
//
// Three methods are supported:
//   - semantic: cosine similarity of character n-gram TF-IDF vectors
//   - keyword: coverage and frequency of query keywords in the content
//   - hybrid: a weighted sum of both, followed by a score threshold
//
// Only the hybrid method drops candidates. The engine never mutates the
// candidates it receives; scores are written to clones.
package rerank
