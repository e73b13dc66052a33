package museai

import (
	"math"
)

// imageTokens is what Gemini bills for one inline image up to 384px per side.
const imageTokens = 258

// TokenEstimator provides configurable token estimation strategies
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// SimpleTokenEstimator - fast approximation of token usage for rate limiting
type SimpleTokenEstimator struct {
	SafetyMargin float64
}

func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{
		SafetyMargin: 1.2,
	}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	charCount := len([]rune(text))
	tokenEstimate := float64(charCount) / 4.0
	tokenEstimate *= e.SafetyMargin

	return int(math.Ceil(tokenEstimate)) + 3
}

func estimateRequestTokens(e TokenEstimator, req TextRequest) int {
	return e.EstimateTokens(req.Instruction) + e.EstimateTokens(req.Text) + len(req.Images)*imageTokens
}
