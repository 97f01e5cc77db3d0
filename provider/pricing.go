package provider

import "strings"

// modelRate holds USD per 1000 tokens for one model family.
type modelRate struct {
	input  float64
	output float64
}

// Rates by model prefix; longest prefix wins. Values track published vendor
// pricing and only feed the estimatedCost field, not billing.
var rates = map[string]modelRate{
	"gpt-4o-mini":     {input: 0.00015, output: 0.0006},
	"gpt-4o":          {input: 0.0025, output: 0.01},
	"gpt-4.1":         {input: 0.002, output: 0.008},
	"o3":              {input: 0.002, output: 0.008},
	"claude-3-5":      {input: 0.003, output: 0.015},
	"claude-sonnet-4": {input: 0.003, output: 0.015},
	"claude-haiku":    {input: 0.0008, output: 0.004},
	"claude-opus-4":   {input: 0.015, output: 0.075},
	"gemini-1.5":      {input: 0.00035, output: 0.00105},
	"gemini-2":        {input: 0.0003, output: 0.0025},
}

// fallbackRate is used for unknown models so cost is never reported as zero.
var fallbackRate = modelRate{input: 0.001, output: 0.003}

// EstimateCost returns the approximate USD cost of a call.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	rate := rateFor(model)
	return float64(inputTokens)/1000.0*rate.input + float64(outputTokens)/1000.0*rate.output
}

func rateFor(model string) modelRate {
	best := ""
	for prefix := range rates {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return fallbackRate
	}
	return rates[best]
}
