package answer

import "fmt"

// Precedence decides whether a "no information" verdict clears sources.
type Precedence string

const (
	// PrecedenceStrict clears sources whenever the answer admits no information.
	PrecedenceStrict Precedence = "strict"
	// PrecedenceLenient reports the verdict but keeps the sources.
	PrecedenceLenient Precedence = "lenient"
)

// DefaultPhrases are the "no information found" markers checked by default.
var DefaultPhrases = []string{
	"没有找到", "未找到", "不存在", "没有直接提到", "没有展示", "没有相关信息",
	"没有相关图片", "没有相关数据", "没有相关图表", "没有提及", "没有涉及",
	"没有包含", "没有显示", "没有提供", "并未提供", "并未提及", "并未展示",
	"并未包含", "没有提到", "没有提到或展示", "没有提到或", "没有展示或",
	"没有涉及或",
	"no relevant information", "no information", "not found",
	"could not find", "cannot find", "does not mention", "not mentioned",
	"not provided", "does not contain",
}

// Config holds validator settings.
type Config struct {
	Phrases    []string   `yaml:"phrases" json:"phrases"`
	Precedence Precedence `yaml:"precedence" json:"precedence" validate:"oneof=strict lenient"`
}

// DefaultConfig returns the default validator configuration.
func DefaultConfig() Config {
	return Config{
		Phrases:    append([]string(nil), DefaultPhrases...),
		Precedence: PrecedenceStrict,
	}
}

// Validate checks the precedence value.
func (c Config) Validate() error {
	switch c.Precedence {
	case PrecedenceStrict, PrecedenceLenient:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPrecedence, c.Precedence)
}
