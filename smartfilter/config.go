package smartfilter

import "fmt"

// Factor weights of the final score.
const (
	ContentWeight  = 0.35
	SemanticWeight = 0.30
	ContextWeight  = 0.20
	IntentWeight   = 0.15
)

// Config holds smart filter settings.
type Config struct {
	Enabled           bool    `yaml:"enable_smart_filtering" json:"enable_smart_filtering"`
	SemanticThreshold float64 `yaml:"semantic_similarity_threshold" json:"semantic_similarity_threshold" validate:"gte=0,lte=1"`
	ContentThreshold  float64 `yaml:"content_relevance_threshold" json:"content_relevance_threshold" validate:"gte=0,lte=1"`
	MaxResults        int     `yaml:"max_filtered_results" json:"max_filtered_results" validate:"gte=1"`
	PoolSize          int     `yaml:"pool_size" json:"pool_size" validate:"gte=0"` // 0 selects NumCPU/2
}

// DefaultConfig returns the default smart filter configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		SemanticThreshold: 0.6,
		ContentThreshold:  0.5,
		MaxResults:        3,
	}
}

// Validate checks thresholds and limits.
func (c Config) Validate() error {
	if c.SemanticThreshold < 0 || c.SemanticThreshold > 1 {
		return fmt.Errorf("%w: semantic threshold must be within [0,1]", ErrInvalidConfig)
	}
	if c.ContentThreshold < 0 || c.ContentThreshold > 1 {
		return fmt.Errorf("%w: content threshold must be within [0,1]", ErrInvalidConfig)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("%w: max results must be positive", ErrInvalidConfig)
	}
	return nil
}

// Context carries optional hints about the user's situation.
// Each non-empty field contributes one sub-signal to context relevance.
type Context struct {
	TimeContext  string
	TopicContext string
	// UserPreferences is considered when non-nil; an empty list scores 0.5.
	UserPreferences []string
}
