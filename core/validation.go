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


package core

import (
	"fmt"
	"strings"
)

// ValidateCandidate validates a Candidate according to domain rules.
//
// Validation rules:
//   - Content must not be empty or whitespace
//   - Metadata must carry document_name, page_number and chunk_type
//   - BaseScore must be finite
//
// NOT validated (populated by stages):
//   - SemanticScore, KeywordScore, RerankScore
//   - SmartFilter, SourceRelevance
func ValidateCandidate(c *Candidate) error {
	if c == nil {
		return fmt.Errorf("%w: candidate is nil", ErrInvalidCandidate)
	}

	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyContent)
	}

	for _, key := range RequiredMetadata {
		if _, ok := c.Metadata[key]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidCandidate, ErrMissingMetadata, key)
		}
	}

	if !isFinite(c.BaseScore) {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrInvalidScore)
	}

	return nil
}

// ValidateMemoryItem validates a MemoryItem according to domain rules.
//
// Validation rules:
//   - UserId must not be empty
//   - Question must not be empty
//
// Answer may be empty: a failed generation is still remembered.
func ValidateMemoryItem(item *MemoryItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidMemoryItem)
	}

	if item.UserId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMemoryItem, ErrEmptyUserID)
	}

	if strings.TrimSpace(item.Question) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMemoryItem, ErrEmptyQuestion)
	}

	return nil
}

// ValidateDocument validates a Document before it is stored.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	return nil
}
