package pipeline

import (
	"fmt"
	"time"
)

// Config holds orchestration settings.
type Config struct {
	SimilarityTopK      int           `yaml:"similarity_top_k" json:"similarity_top_k" validate:"gte=1"`
	MemoryLimit         int           `yaml:"memory_limit" json:"memory_limit" validate:"gte=0"`
	RelevanceThreshold  float64       `yaml:"relevance_threshold" json:"relevance_threshold" validate:"gte=0,lte=1"`
	RetrievalTimeout    time.Duration `yaml:"retrieval_timeout" json:"retrieval_timeout" validate:"gte=0"`
	GenerationTimeout   time.Duration `yaml:"generation_timeout" json:"generation_timeout" validate:"gte=0"`
	RequestTimeout      time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gte=0"`
	FallbackCandidates  int           `yaml:"fallback_candidates" json:"fallback_candidates" validate:"gte=1"`
	DeriveFilterContext bool          `yaml:"derive_filter_context" json:"derive_filter_context"`

	// NoInformationAnswer is returned when no candidate reaches generation.
	NoInformationAnswer string `yaml:"no_information_answer" json:"no_information_answer" validate:"required"`
	// RetrievalFailureAnswer is returned when retrieval fails.
	RetrievalFailureAnswer string `yaml:"retrieval_failure_answer" json:"retrieval_failure_answer" validate:"required"`
	// FallbackPrefix heads the templated answer used when generation fails.
	FallbackPrefix string `yaml:"fallback_prefix" json:"fallback_prefix"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityTopK:         5,
		MemoryLimit:            5,
		RelevanceThreshold:     0.1,
		RetrievalTimeout:       10 * time.Second,
		GenerationTimeout:      60 * time.Second,
		FallbackCandidates:     3,
		DeriveFilterContext:    true,
		NoInformationAnswer:    "根据提供的文档内容，没有找到相关信息。",
		RetrievalFailureAnswer: "抱歉，检索文档时出现错误，请稍后重试。",
		FallbackPrefix:         "根据检索到的文档内容：",
	}
}

// Validate checks counts, thresholds and timeouts.
func (c Config) Validate() error {
	switch {
	case c.SimilarityTopK < 1:
		return fmt.Errorf("%w: similarity_top_k must be at least 1", ErrInvalidConfig)
	case c.MemoryLimit < 0:
		return fmt.Errorf("%w: memory_limit cannot be negative", ErrInvalidConfig)
	case c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1:
		return fmt.Errorf("%w: relevance_threshold must be within [0,1]", ErrInvalidConfig)
	case c.RetrievalTimeout < 0 || c.GenerationTimeout < 0 || c.RequestTimeout < 0:
		return fmt.Errorf("%w: timeouts cannot be negative", ErrInvalidConfig)
	case c.FallbackCandidates < 1:
		return fmt.Errorf("%w: fallback_candidates must be at least 1", ErrInvalidConfig)
	case c.NoInformationAnswer == "" || c.RetrievalFailureAnswer == "":
		return fmt.Errorf("%w: canned answers cannot be empty", ErrInvalidConfig)
	}
	return nil
}
