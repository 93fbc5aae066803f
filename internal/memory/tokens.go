package memory

import "github.com/mojoassistant/mojoassistant/pkg/aitokens"

// tokenEstimationModel anchors Working-tier token budgeting to one fixed
// model name (an o200k_base model in the pinned tiktoken-go); GetTokenizer
// falls back to cl100k_base for any unrecognized name, and estimateTokens
// falls back to a rune-count estimate if no encoder can be loaded.
const tokenEstimationModel = "gpt-4o-mini"

func estimateTokens(text string) int {
	n, err := aitokens.EstimateSingleMessageTokens(text, tokenEstimationModel)
	if err != nil {
		return len([]rune(text)) / 4
	}
	return n
}
