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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored passages and candidates.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Well-known metadata keys carried by every passage.
const (
	MetaDocumentName = "document_name"
	MetaPageNumber   = "page_number"
	MetaChunkType    = "chunk_type"
	MetaImageIDs     = "image_ids"
)

// RequiredMetadata lists the metadata keys a Candidate must carry.
var RequiredMetadata = []string{MetaDocumentName, MetaPageNumber, MetaChunkType}

// PassageID derives the ID of a passage from its document, page and content.
func PassageID(content string, metadata map[string]any) ID {
	return IDFromContent(fmt.Sprintf("%v|%v|%s", metadata[MetaDocumentName], metadata[MetaPageNumber], content))
}

// Document is the stored form of a passage, with its embedding.
type Document struct {
	Id         ID             `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Vector     []float32      `json:"vector,omitempty"`
	InsertedAt time.Time      `json:"inserted_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// DocumentMatch is a document returned from a vector similarity query.
type DocumentMatch struct {
	Document *Document
	Score    float32
}

// MemoryTier names one of the two per-user memory stores.
type MemoryTier string

const (
	// TierSession holds recent turns of the current conversation.
	TierSession MemoryTier = "session"
	// TierLongTerm holds durable user memories.
	TierLongTerm MemoryTier = "user"
	// TierAll addresses both tiers in bulk operations.
	TierAll MemoryTier = "all"
)

// ParseTier converts a string to a MemoryTier.
func ParseTier(s string) (MemoryTier, error) {
	switch MemoryTier(s) {
	case TierSession, TierLongTerm, TierAll:
		return MemoryTier(s), nil
	case "":
		return TierAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// MemoryItem is one question/answer exchange remembered for a user.
type MemoryItem struct {
	Id        string         `json:"memory_id"`
	UserId    string         `json:"user_id"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Context   map[string]any `json:"context"`
	Timestamp float64        `json:"timestamp"`
	CreatedAt time.Time      `json:"created_at"`

	// RelevanceScore is set on copies returned from relevance queries.
	RelevanceScore float64 `json:"-"`
}

// NewMemoryItem builds a validated MemoryItem stamped at now.
func NewMemoryItem(userID, question, answer string, context map[string]any, now time.Time) (*MemoryItem, error) {
	ts := float64(now.UnixNano()) / float64(time.Second)
	item := &MemoryItem{
		Id:        MemoryID(userID, question, ts),
		UserId:    userID,
		Question:  question,
		Answer:    answer,
		Context:   context,
		Timestamp: ts,
		CreatedAt: now.UTC(),
	}
	if item.Context == nil {
		item.Context = map[string]any{}
	}
	if err := ValidateMemoryItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// MemoryID returns the hex BLAKE2b digest identifying a memory.
func MemoryID(userID, question string, timestamp float64) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(userID + "_" + question + "_" + strconv.FormatFloat(timestamp, 'f', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

// Copy returns a shallow copy with its own context map.
func (m *MemoryItem) Copy() *MemoryItem {
	c := *m
	c.Context = maps.Clone(m.Context)
	return &c
}
