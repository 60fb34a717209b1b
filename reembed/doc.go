// Package reembed re-embeds every stored passage with a new or updated
// embedding model.
//
// Documents are scanned in ID order in batches, embedded with retry and
// exponential backoff, and written back with their new vectors. Progress is
// reported to an io.Writer as the run advances.
package reembed
