package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/poiesic/recall/core"
)

func sources(n int) []*core.Candidate {
	out := make([]*core.Candidate, n)
	for i := range out {
		out[i] = &core.Candidate{Content: "source"}
	}
	return out
}

func TestNewValidator(t *testing.T) {
	v, err := NewValidator(Config{})
	require.NoError(t, err)
	assert.Equal(t, PrecedenceStrict, v.Precedence())
	assert.Len(t, v.phrases, len(DefaultPhrases))

	_, err = NewValidator(Config{Precedence: "sometimes"})
	assert.ErrorIs(t, err, ErrInvalidPrecedence)
}

func TestCheck(t *testing.T) {
	v, err := NewValidator(DefaultConfig())
	require.NoError(t, err)

	tests := []struct {
		answer string
		want   bool
	}{
		{answer: "文档中没有找到相关内容", want: true},
		{answer: "报告并未提及2025年的数据", want: true},
		{answer: "There is No Relevant Information in the documents.", want: true},
		{answer: "The report does not mention margins.", want: true},
		{answer: "2024年营收为452亿元", want: false},
		{answer: "Revenue grew 20% in 2024.", want: false},
		{answer: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Check(tt.answer).NoInformation)
		})
	}
}

func TestValidate_Strict(t *testing.T) {
	v, err := NewValidator(DefaultConfig())
	require.NoError(t, err)

	answer, out := v.Validate("没有相关图片", sources(3))
	assert.Equal(t, "没有相关图片", answer)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	in := sources(2)
	_, out = v.Validate("营收增长了", in)
	assert.Equal(t, in, out)
}

func TestValidate_Lenient(t *testing.T) {
	v, err := NewValidator(Config{Precedence: PrecedenceLenient})
	require.NoError(t, err)

	in := sources(2)
	_, out := v.Validate("not found", in)
	assert.Equal(t, in, out)
	assert.True(t, v.Check("not found").NoInformation)
}

func TestValidate_CustomPhrases(t *testing.T) {
	v, err := NewValidator(Config{Phrases: []string{"  NOPE "}, Precedence: PrecedenceStrict})
	require.NoError(t, err)

	_, out := v.Validate("nope, nothing here", sources(1))
	assert.Empty(t, out)
	_, out = v.Validate("没有找到", sources(1))
	assert.Len(t, out, 1)
}

func TestValidate_OverrideAlwaysClears(t *testing.T) {
	v, err := NewValidator(DefaultConfig())
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		phrase := rapid.SampledFrom(DefaultPhrases).Draw(rt, "phrase")
		prefix := rapid.String().Draw(rt, "prefix")
		suffix := rapid.String().Draw(rt, "suffix")
		n := rapid.IntRange(0, 10).Draw(rt, "n")

		answer := prefix + phrase + suffix
		got, out := v.Validate(answer, sources(n))
		if got != answer {
			rt.Fatalf("answer changed")
		}
		if len(out) != 0 {
			rt.Fatalf("sources kept for %q", answer)
		}
	})
}
