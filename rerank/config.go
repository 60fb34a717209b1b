package rerank

import "fmt"

// Method selects how candidates are scored.
type Method string

const (
	MethodSemantic Method = "semantic"
	MethodKeyword  Method = "keyword"
	MethodHybrid   Method = "hybrid"
)

// Config holds reranking settings.
type Config struct {
	Enabled        bool    `yaml:"enable_reranking" json:"enable_reranking"`
	Method         Method  `yaml:"reranking_method" json:"reranking_method" validate:"oneof=semantic keyword hybrid"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight" validate:"gte=0,lte=1"`
	KeywordWeight  float64 `yaml:"keyword_weight" json:"keyword_weight" validate:"gte=0,lte=1"`
	Threshold      float64 `yaml:"min_similarity_threshold" json:"min_similarity_threshold" validate:"gte=0,lte=1"`
	MaxFeatures    int     `yaml:"max_features" json:"max_features" validate:"gte=0"`
}

// DefaultConfig returns the default reranking configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Method:         MethodHybrid,
		SemanticWeight: 0.7,
		KeywordWeight:  0.3,
		Threshold:      0.6,
		MaxFeatures:    1000,
	}
}

// Validate checks the weights and threshold.
func (c Config) Validate() error {
	if c.SemanticWeight < 0 || c.KeywordWeight < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidConfig)
	}
	if c.Method == MethodHybrid && c.SemanticWeight == 0 && c.KeywordWeight == 0 {
		return fmt.Errorf("%w: hybrid weights cannot both be zero", ErrInvalidConfig)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

// Params are the per-call reranking parameters.
type Params struct {
	Method         Method
	SemanticWeight float64
	KeywordWeight  float64
	Threshold      float64
}

// Params returns the call parameters implied by the configuration.
func (c Config) Params() Params {
	return Params{
		Method:         c.Method,
		SemanticWeight: c.SemanticWeight,
		KeywordWeight:  c.KeywordWeight,
		Threshold:      c.Threshold,
	}
}
