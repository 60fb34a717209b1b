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

import "errors"

// Domain validation errors
var (
	// ErrInvalidCandidate indicates a Candidate failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrInvalidMemoryItem indicates a MemoryItem failed validation.
	ErrInvalidMemoryItem = errors.New("invalid memory item")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrMissingMetadata indicates a required metadata key is absent.
	ErrMissingMetadata = errors.New("missing required metadata")

	// ErrInvalidScore indicates a score is NaN or infinite.
	ErrInvalidScore = errors.New("score must be a finite number")

	// ErrEmptyUserID indicates the UserId field is empty.
	ErrEmptyUserID = errors.New("user id cannot be empty")

	// ErrEmptyQuestion indicates the Question field is empty.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrInvalidTier indicates an unknown memory tier.
	ErrInvalidTier = errors.New("invalid memory tier")
)

// Pipeline failure classes. Stage errors wrap one of these so callers can
// classify them with errors.Is.
var (
	// ErrRetrieval indicates the vector retriever failed or timed out.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrScoring indicates a scoring stage failed.
	ErrScoring = errors.New("scoring failed")

	// ErrGeneration indicates the answer generator failed or timed out.
	ErrGeneration = errors.New("generation failed")

	// ErrPersistence indicates conversation memory could not be saved.
	ErrPersistence = errors.New("persistence failed")
)
