package answer

import (
	"log/slog"
	"strings"

	"github.com/poiesic/recall/core"
)

// Verdict is the outcome of checking an answer.
type Verdict struct {
	NoInformation bool
	Phrase        string // the first phrase that matched
}

// Validator applies the "no information" override.
// It is safe for concurrent use.
type Validator struct {
	phrases    []string
	precedence Precedence
	logger     *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger.With("component", "validator")
		return nil
	}
}

// NewValidator creates a validator. An empty phrase list uses DefaultPhrases.
func NewValidator(cfg Config, opts ...Option) (*Validator, error) {
	if cfg.Precedence == "" {
		cfg.Precedence = PrecedenceStrict
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	phrases := cfg.Phrases
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}

	v := &Validator{
		phrases:    make([]string, 0, len(phrases)),
		precedence: cfg.Precedence,
		logger:     slog.Default().With("component", "validator"),
	}
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			v.phrases = append(v.phrases, p)
		}
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// Check reports whether answer contains a "no information" phrase.
// Matching is case-insensitive.
func (v *Validator) Check(answer string) Verdict {
	lower := strings.ToLower(answer)
	for _, p := range v.phrases {
		if strings.Contains(lower, p) {
			return Verdict{NoInformation: true, Phrase: p}
		}
	}
	return Verdict{}
}

// Validate returns the answer and the sources that should accompany it.
// Under strict precedence a "no information" answer has no sources.
func (v *Validator) Validate(answer string, sources []*core.Candidate) (string, []*core.Candidate) {
	verdict := v.Check(answer)
	if !verdict.NoInformation {
		return answer, sources
	}

	if v.precedence == PrecedenceLenient {
		v.logger.Debug("answer reports no information, keeping sources", "phrase", verdict.Phrase)
		return answer, sources
	}

	v.logger.Debug("answer reports no information, clearing sources", "phrase", verdict.Phrase, "dropped", len(sources))
	return answer, []*core.Candidate{}
}

// Precedence reports the configured precedence.
func (v *Validator) Precedence() Precedence {
	return v.precedence
}
