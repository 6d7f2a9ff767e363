package model

import "github.com/babelcloud/vlm-bridge/pkg/vision"

// ActParams is the request to drive a page with a natural-language instruction.
type ActParams struct {
	Instruction string `json:"instruction" yaml:"instruction"`
}

// ActResult describes what was done to the page.
type ActResult struct {
	PageID             string              `json:"page_id" yaml:"page_id"`
	Action             vision.ParsedAction `json:"action" yaml:"action"`
	Explanation        string              `json:"explanation" yaml:"explanation"`
	ChosenElementIndex int                 `json:"chosen_element_index" yaml:"chosen_element_index"`
	ElementCount       int                 `json:"element_count" yaml:"element_count"`
	DurationMs         int64               `json:"duration_ms" yaml:"duration_ms"`
}

// ParseResult is the outcome of translating a raw reasoning response.
type ParseResult struct {
	Action             vision.ParsedAction `json:"action" yaml:"action"`
	Explanation        string              `json:"explanation" yaml:"explanation"`
	ChosenElementIndex int                 `json:"chosen_element_index" yaml:"chosen_element_index"`
	ElementCount       int                 `json:"element_count" yaml:"element_count"`
}

// NewParseResult builds a ParseResult from a decoded response and its action.
func NewParseResult(resp *vision.Response, action *vision.ParsedAction) ParseResult {
	return ParseResult{
		Action:             *action,
		Explanation:        resp.Explanation,
		ChosenElementIndex: resp.ChosenElementIndex,
		ElementCount:       len(resp.Boxes),
	}
}
