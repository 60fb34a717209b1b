package ai

// CostCalculator prices token usage.
type CostCalculator struct {
	InputPricePer1K  float64
	OutputPricePer1K float64
}

// NewCostCalculator creates a calculator from the configured prices.
func NewCostCalculator(cfg *Config) CostCalculator {
	return CostCalculator{
		InputPricePer1K:  cfg.InputPricePer1K,
		OutputPricePer1K: cfg.OutputPricePer1K,
	}
}

// Cost returns (in/1000)*inputPrice + (out/1000)*outputPrice.
func (c CostCalculator) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*c.InputPricePer1K + float64(outputTokens)/1000*c.OutputPricePer1K
}

// GenerationCost prices a generation, counting tokens locally when the
// service reported none.
func (c CostCalculator) GenerationCost(prompt string, gen *Generation) float64 {
	if gen == nil {
		return 0
	}
	in, out := gen.InputTokens, gen.OutputTokens
	if in == 0 {
		in = CountTokens(prompt)
	}
	if out == 0 {
		out = CountTokens(gen.Text)
	}
	return c.Cost(in, out)
}
