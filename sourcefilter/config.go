package sourcefilter

import "fmt"

// Config holds source filter settings.
type Config struct {
	Enabled            bool    `yaml:"enable_sources_filtering" json:"enable_sources_filtering"`
	MinRelevance       float64 `yaml:"min_relevance_score" json:"min_relevance_score" validate:"gte=0,lte=1"`
	KeywordMatching    bool    `yaml:"enable_keyword_matching" json:"enable_keyword_matching"`
	IdentifierMatching bool    `yaml:"enable_identifier_matching" json:"enable_identifier_matching"`
	SimilarityMatching bool    `yaml:"enable_similarity_filtering" json:"enable_similarity_filtering"`
	Concurrency        int     `yaml:"concurrency" json:"concurrency" validate:"gte=1"`
}

// DefaultConfig returns the default source filter configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		MinRelevance:       0.6,
		KeywordMatching:    true,
		IdentifierMatching: true,
		SimilarityMatching: true,
		Concurrency:        4,
	}
}

// Validate checks the threshold and concurrency limit.
func (c Config) Validate() error {
	if c.MinRelevance < 0 || c.MinRelevance > 1 {
		return fmt.Errorf("%w: min relevance must be within [0,1]", ErrInvalidConfig)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}
