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


// Package lexical provides the text analysis shared by the scoring stages.
//
// It covers mixed Chinese/English keyword extraction, stopword sets, set
// overlap measures, a difflib-compatible sequence ratio, and a character
// n-gram TF-IDF vectorizer.
//
// # Keywords
//
// Keywords are maximal runs of CJK ideographs or ASCII letters taken from
// lowercased text. Stopwords are removed by whole-token comparison and
// single-rune tokens are dropped:
//
//	kw := lexical.Keywords("中芯国际的 revenue in 2024", lexical.BaseStopWords)
//	// ["中芯国际的", "revenue"]
//
// # Similarity
//
// SequenceRatio returns 2*M/T over runes, matching the ratio of Python's
// difflib.SequenceMatcher including its popular-element heuristic.
// CharVectorizer fits character unigrams and bigrams with smoothed IDF
// and L2 normalisation.
package lexical
