// Package sourcefilter selects the candidates an answer was actually grounded in.
//
// Each candidate is compared with the generated answer on up to three
// enabled signals (keyword overlap, shared identifiers, raw sequence
// similarity). The enabled signals are averaged and candidates below the
// minimum relevance score are dropped. Survivors are ordered by relevance.
package sourcefilter
