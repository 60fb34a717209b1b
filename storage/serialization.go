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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/recall/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDMUS.Size(id))
	IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) ([]byte, error) {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	record := documentRecord{
		Id:         doc.Id,
		Content:    doc.Content,
		Metadata:   string(meta),
		Vector:     doc.Vector,
		InsertedAt: micros(doc.InsertedAt),
		UpdatedAt:  micros(doc.UpdatedAt),
	}
	buf := make([]byte, documentRecordMUS.Size(record))
	documentRecordMUS.Marshal(record, buf)
	return buf, nil
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	record, _, err := documentRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	doc := &core.Document{
		Id:         record.Id,
		Content:    record.Content,
		Vector:     record.Vector,
		InsertedAt: fromMicros(record.InsertedAt),
		UpdatedAt:  fromMicros(record.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(record.Metadata), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
	}
	return doc, nil
}

// MarshalMemories serializes an ordered list of memory items to bytes.
func MarshalMemories(items []*core.MemoryItem) ([]byte, error) {
	records := make([]memoryRecord, len(items))
	for i, item := range items {
		context, err := json.Marshal(item.Context)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		records[i] = memoryRecord{
			Id:        item.Id,
			UserId:    item.UserId,
			Question:  item.Question,
			Answer:    item.Answer,
			Context:   string(context),
			Timestamp: item.Timestamp,
			CreatedAt: micros(item.CreatedAt),
		}
	}
	buf := make([]byte, memoryListMUS.Size(records))
	memoryListMUS.Marshal(records, buf)
	return buf, nil
}

// UnmarshalMemories deserializes an ordered list of memory items.
// The result is never nil.
func UnmarshalMemories(data []byte) ([]*core.MemoryItem, error) {
	records, _, err := memoryListMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	items := make([]*core.MemoryItem, len(records))
	for i, r := range records {
		item := &core.MemoryItem{
			Id:        r.Id,
			UserId:    r.UserId,
			Question:  r.Question,
			Answer:    r.Answer,
			Timestamp: r.Timestamp,
			CreatedAt: fromMicros(r.CreatedAt),
		}
		if err := json.Unmarshal([]byte(r.Context), &item.Context); err != nil {
			return nil, fmt.Errorf("%w: context: %w", ErrSerializationFailed, err)
		}
		items[i] = item
	}
	return items, nil
}
