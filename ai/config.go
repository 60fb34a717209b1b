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


package ai

import (
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string `yaml:"embedding_host" json:"embedding_host"`

	// GenerationHost is the base URL for the answer generation API.
	GenerationHost string `yaml:"generation_host" json:"generation_host"`

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`

	// GenerationModel is the chat model used to draft answers.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	GenerationModel string `yaml:"generation_model" json:"generation_model"`

	// APIKey authenticates against hosted services. Local servers accept
	// any token, so an empty key is sent as "none".
	APIKey string `yaml:"-" json:"-"`

	// Temperature controls sampling. Default: 0
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// MaxTokens caps the generated answer length; 0 leaves it to the server.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// InputPricePer1K and OutputPricePer1K price token usage for cost reporting.
	InputPricePer1K  float64 `yaml:"input_price_per_1k" json:"input_price_per_1k"`
	OutputPricePer1K float64 `yaml:"output_price_per_1k" json:"output_price_per_1k"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithGenerationHost sets the generation service host URL.
func WithGenerationHost(host string) ConfigOption {
	return func(c *Config) {
		c.GenerationHost = host
	}
}

// WithHost sets both embedding and generation hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.GenerationHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithGenerationModel sets the generation model identifier.
func WithGenerationModel(model string) ConfigOption {
	return func(c *Config) {
		c.GenerationModel = model
	}
}

// WithAPIKey sets the API key sent to both services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithPricing sets the per-1000-token prices used for cost reporting.
func WithPricing(inputPer1K, outputPer1K float64) ConfigOption {
	return func(c *Config) {
		c.InputPricePer1K = inputPer1K
		c.OutputPricePer1K = outputPer1K
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and generation use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:    defaultHost,
		GenerationHost:   defaultHost,
		EmbeddingModel:   "embeddinggemma",
		GenerationModel:  "qwen2.5:7b",
		InputPricePer1K:  0.0005,
		OutputPricePer1K: 0.001,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithGenerationModel("gpt-4o-mini"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.GenerationHost = normalizeHost(c.GenerationHost)
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Token returns the API key, or "none" for unauthenticated local servers.
func (c *Config) Token() string {
	if c.APIKey == "" {
		return "none"
	}
	return c.APIKey
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return ErrEmbeddingHostRequired
	}
	if c.GenerationHost == "" {
		return ErrGenerationHostRequired
	}
	if c.EmbeddingModel == "" {
		return ErrEmbeddingModelRequired
	}
	if c.GenerationModel == "" {
		return ErrGenerationModelRequired
	}
	if c.InputPricePer1K < 0 || c.OutputPricePer1K < 0 {
		return ErrInvalidPricing
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return ErrInvalidTemperature
	}
	return nil
}
