package agent

import "encoding/json"

// Payload is the raw envelope returned by the agent API. The interesting
// part is Response.Result, whose runtime type varies: the coordinator agent
// sometimes returns a JSON object, sometimes a string containing JSON (more
// or less), and sometimes nothing at all. It is kept as a json.RawMessage so
// that the normalizer downstream can make that call.
type Payload struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Response *PayloadResponse `json:"response,omitempty"`
}

// PayloadResponse is the nested response slot of the envelope. Message is an
// alternate plain-text field some agent configurations populate instead of
// Result.
type PayloadResponse struct {
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ResultValue decodes the raw result slot into a generic JSON value. The
// second return value is false when the slot is absent or does not decode.
func (p *Payload) ResultValue() (interface{}, bool) {
	if p == nil || p.Response == nil || len(p.Response.Result) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(p.Response.Result, &v); err != nil {
		return nil, false
	}
	return v, true
}
