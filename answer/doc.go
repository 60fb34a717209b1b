// Package answer detects answers that admit the knowledge base had nothing
// relevant, and clears their sources.
//
// When the answer contains one of the configured phrases, the validator
// returns an empty source list regardless of what earlier stages kept.
// A lenient precedence records the verdict but leaves the sources alone.
package answer
