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


// Package config loads and validates the recall configuration file.
//
// Every section decodes over its package defaults, so a file only needs
// the keys it changes:
//
//	reranking:
//	  reranking_method: keyword
//	pipeline:
//	  similarity_top_k: 8
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/answer"
	"github.com/poiesic/recall/memory"
	"github.com/poiesic/recall/pipeline"
	"github.com/poiesic/recall/rerank"
	"github.com/poiesic/recall/smartfilter"
	"github.com/poiesic/recall/sourcefilter"
)

// APIKeyEnv names the environment variable holding the AI service key.
const APIKeyEnv = "RECALL_API_KEY"

// Vector index backends.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// QdrantConfig locates a Qdrant collection.
type QdrantConfig struct {
	Addr       string `yaml:"addr" json:"addr"`
	Collection string `yaml:"collection" json:"collection"`
}

// StorageConfig selects where passages and memories live.
type StorageConfig struct {
	Path          string       `yaml:"path" json:"path" validate:"required_unless=InMemory true"`
	InMemory      bool         `yaml:"in_memory" json:"in_memory"`
	VectorBackend string       `yaml:"vector_backend" json:"vector_backend" validate:"oneof=badger qdrant"`
	MinSimilarity float64      `yaml:"min_similarity" json:"min_similarity" validate:"gte=-1,lte=1"`
	Qdrant        QdrantConfig `yaml:"qdrant" json:"qdrant"`
}

// Config aggregates the settings of every component.
type Config struct {
	AI           ai.Config           `yaml:"ai" json:"ai"`
	Storage      StorageConfig       `yaml:"storage" json:"storage"`
	Pipeline     pipeline.Config     `yaml:"pipeline" json:"pipeline"`
	Reranking    rerank.Config       `yaml:"reranking" json:"reranking"`
	SmartFilter  smartfilter.Config  `yaml:"smart_filter" json:"smart_filter"`
	SourceFilter sourcefilter.Config `yaml:"source_filter" json:"source_filter"`
	Validator    answer.Config       `yaml:"validator" json:"validator"`
	Memory       memory.Config       `yaml:"memory" json:"memory"`
}

// DefaultConfig returns the defaults of every section.
func DefaultConfig() *Config {
	return &Config{
		AI: *ai.DefaultConfig(),
		Storage: StorageConfig{
			Path:          "./recall-db",
			VectorBackend: BackendBadger,
			Qdrant: QdrantConfig{
				Addr:       "localhost:6334",
				Collection: "recall",
			},
		},
		Pipeline:     pipeline.DefaultConfig(),
		Reranking:    rerank.DefaultConfig(),
		SmartFilter:  smartfilter.DefaultConfig(),
		SourceFilter: sourcefilter.DefaultConfig(),
		Validator:    answer.DefaultConfig(),
		Memory:       memory.DefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file yields the defaults. The API key is taken from APIKeyEnv.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.AI.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
// The API key is never written.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrPathRequired
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and the rules that span fields.
// It normalizes the AI hosts as a side effect.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Storage.VectorBackend == BackendQdrant && (c.Storage.Qdrant.Addr == "" || c.Storage.Qdrant.Collection == "") {
		return fmt.Errorf("%w: qdrant backend needs addr and collection", ErrInvalidConfig)
	}

	checks := []func() error{
		c.AI.Validate,
		c.Pipeline.Validate,
		c.Reranking.Validate,
		c.SmartFilter.Validate,
		c.SourceFilter.Validate,
		c.Validator.Validate,
		c.Memory.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
