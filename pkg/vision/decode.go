package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

type jsonKind int

const (
	jsonMissing jsonKind = iota
	jsonNull
	jsonString
	jsonNumber
	jsonBool
	jsonArray
	jsonObject
)

func (k jsonKind) String() string {
	return [...]string{"missing", "null", "string", "number", "boolean", "array", "object"}[k]
}

func kindOfRaw(raw json.RawMessage, present bool) jsonKind {
	if !present {
		return jsonMissing
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return jsonMissing
	}
	switch c := trimmed[0]; {
	case c == '"':
		return jsonString
	case c == '[':
		return jsonArray
	case c == '{':
		return jsonObject
	case c == 't' || c == 'f':
		return jsonBool
	case c == 'n':
		return jsonNull
	default:
		return jsonNumber
	}
}

// requiredFields lists the top-level fields and the JSON kind each must have,
// in the order they are checked.
var requiredFields = []struct {
	name string
	kind jsonKind
}{
	{"query", jsonString},
	{"boxes", jsonArray},
	{"chosen_action", jsonObject},
	{"chosen_element_index", jsonNumber},
	{"explanation", jsonString},
}

// DecodeResponse validates the shape of a reasoning service body and decodes
// it. Any structural violation yields a KindMalformedResponse error naming
// the offending field. Index bounds and the action enum are left to
// ParseResponse.
func DecodeResponse(body []byte) (*Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, MalformedResponse("body", err)
	}

	for _, rf := range requiredFields {
		raw, ok := fields[rf.name]
		if got := kindOfRaw(raw, ok); got != rf.kind {
			return nil, MalformedResponse(rf.name, fmt.Errorf("expected %s, got %s", rf.kind, got))
		}
	}

	resp := &Response{
		RawDetections: fields["raw_detections"],
		Hierarchy:     fields["hierarchy"],
		Timings:       fields["timings"],
	}
	if err := json.Unmarshal(fields["query"], &resp.Query); err != nil {
		return nil, MalformedResponse("query", err)
	}
	if err := json.Unmarshal(fields["boxes"], &resp.Boxes); err != nil {
		return nil, MalformedResponse("boxes", err)
	}
	if err := json.Unmarshal(fields["chosen_action"], &resp.ChosenAction); err != nil {
		return nil, MalformedResponse("chosen_action", err)
	}
	if err := json.Unmarshal(fields["explanation"], &resp.Explanation); err != nil {
		return nil, MalformedResponse("explanation", err)
	}

	var index float64
	if err := json.Unmarshal(fields["chosen_element_index"], &index); err != nil {
		return nil, MalformedResponse("chosen_element_index", err)
	}
	if index != math.Trunc(index) || math.IsInf(index, 0) {
		return nil, MalformedResponse("chosen_element_index", fmt.Errorf("%v is not an integer", index))
	}
	resp.ChosenElementIndex = int(index)

	return resp, nil
}
