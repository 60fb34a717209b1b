package memory

import (
	"fmt"
	"time"

	"github.com/poiesic/recall/core"
)

// Markers are the vocabularies of the relevance cascade. ASCII entries match
// whole words case-insensitively; other entries match as substrings.
type Markers struct {
	Reference    []string `yaml:"reference" json:"reference"`
	Organization []string `yaml:"organization" json:"organization"`
	Chart        []string `yaml:"chart" json:"chart"`
	Domain       []string `yaml:"domain" json:"domain"`
}

// DefaultMarkers returns the built-in marker vocabularies.
func DefaultMarkers() Markers {
	return Markers{
		Reference: []string{
			"这", "那", "那个", "这个", "它", "其", "该", "此",
			"this", "that", "these", "those", "it", "its", "they", "them",
		},
		Organization: []string{
			"中芯国际", "公司", "集团",
			"company", "corporation", "inc", "group",
		},
		Chart: []string{
			"图", "走势", "表现", "营收", "净利润", "毛利率", "净利率", "产能", "市场地位",
			"chart", "figure", "trend", "graph", "performance",
		},
		Domain: []string{
			"营业收入", "净利润", "营收", "利润", "财务", "数据",
			"revenue", "profit", "income", "earnings", "financial", "data",
		},
	}
}

// Config holds memory settings.
type Config struct {
	SessionCapacity      int           `yaml:"session_capacity" json:"session_capacity" validate:"gte=1"`
	LongTermCapacity     int           `yaml:"long_term_capacity" json:"long_term_capacity" validate:"gte=1"`
	CacheTTL             time.Duration `yaml:"cache_ttl" json:"cache_ttl"` // 0 disables the read cache
	EssentialContextKeys []string      `yaml:"essential_context_keys" json:"essential_context_keys"`
	RetryDelay           time.Duration `yaml:"retry_delay" json:"retry_delay"`
	Markers              Markers       `yaml:"markers" json:"markers"`
}

// DefaultConfig returns the default memory configuration.
func DefaultConfig() Config {
	return Config{
		SessionCapacity:      50,
		LongTermCapacity:     100,
		CacheTTL:             10 * time.Minute,
		EssentialContextKeys: []string{"cost", "relevant_memories"},
		RetryDelay:           50 * time.Millisecond,
		Markers:              DefaultMarkers(),
	}
}

// Validate checks capacities and durations.
func (c Config) Validate() error {
	if c.SessionCapacity < 1 || c.LongTermCapacity < 1 {
		return fmt.Errorf("%w: capacities must be positive", ErrInvalidConfig)
	}
	if c.CacheTTL < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// capacity returns the FIFO bound of a tier.
func (c Config) capacity(tier core.MemoryTier) int {
	if tier == core.TierSession {
		return c.SessionCapacity
	}
	return c.LongTermCapacity
}
