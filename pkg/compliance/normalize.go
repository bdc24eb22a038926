package compliance

import (
	"github.com/rs/zerolog/log"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/agent"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/parse"
)

// Normalize maps a raw agent envelope onto the fixed Response schema.
//
// The result slot of the envelope may be a JSON object, a string containing
// JSON (possibly mangled by the upstream model, in which case the lenient
// extractor is applied), or a plain-text answer. A string that cannot be
// recovered as a JSON object is not an error: it becomes the Summary of an
// otherwise empty record. Normalize returns nil only when the envelope
// contains nothing usable at all -- no result, no fallback text, no message.
//
// Normalize is total: it never panics and every field of a non-nil result is
// populated with its correct type.
func Normalize(payload *agent.Payload) *Response {
	if payload == nil {
		return nil
	}

	value, _ := payload.ResultValue()

	if s, ok := value.(string); ok {
		extracted, err := parse.Extract(s)
		if err != nil {
			log.Debug().Int("raw_length", len(s)).Msg("agent result is not JSON, using it as plain summary")
			return plainTextResponse(s)
		}
		if _, isObject := extracted.(map[string]interface{}); !isObject {
			// the string held a JSON scalar or array, not a record;
			// the raw text is still the best answer we have
			return plainTextResponse(s)
		}
		value = extracted
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		if payload.Response != nil && payload.Response.Message != "" {
			return plainTextResponse(payload.Response.Message)
		}
		return nil
	}

	// the coordinator sometimes wraps the actual payload in another
	// {"result": {...}} level
	if inner, ok := obj["result"].(map[string]interface{}); ok {
		obj = inner
	}

	// some agent configurations answer with a bare {"text": "..."} wrapper
	// instead of the structured record
	if text := stringField(obj, "text"); text != "" && !hasSchemaKeys(obj) {
		return plainTextResponse(text)
	}

	ret := emptyResponse()
	ret.Summary = stringField(obj, "summary")
	ret.QueryType = stringField(obj, "query_type")
	ret.Recommendations = stringSliceField(obj, "recommendations")

	for _, item := range objectSliceField(obj, "citations") {
		ret.Citations = append(ret.Citations, Citation{
			Framework: stringField(item, "framework"),
			Section:   stringField(item, "section"),
			Excerpt:   stringField(item, "excerpt"),
			Relevance: stringField(item, "relevance"),
		})
	}

	analysis, _ := obj["analysis"].(map[string]interface{})
	ret.Analysis.DetailedExplanation = stringField(analysis, "detailed_explanation")
	for _, item := range objectSliceField(analysis, "cross_references") {
		ret.Analysis.CrossReferences = append(ret.Analysis.CrossReferences, CrossReference{
			FrameworkA: stringField(item, "framework_a"),
			FrameworkB: stringField(item, "framework_b"),
			Overlap:    stringField(item, "overlap"),
			UniqueToA:  stringField(item, "unique_to_a"),
			UniqueToB:  stringField(item, "unique_to_b"),
		})
	}
	for _, item := range objectSliceField(analysis, "risk_items") {
		ret.Analysis.RiskItems = append(ret.Analysis.RiskItems, RiskItem{
			Risk:        stringField(item, "risk"),
			Severity:    stringField(item, "severity"),
			Impact:      stringField(item, "impact"),
			Remediation: stringField(item, "remediation"),
		})
	}
	for _, item := range objectSliceField(analysis, "checklist_items") {
		ret.Analysis.ChecklistItems = append(ret.Analysis.ChecklistItems, ChecklistItem{
			Item:     stringField(item, "item"),
			Category: stringField(item, "category"),
			Status:   stringField(item, "status"),
			Priority: stringField(item, "priority"),
		})
	}

	return ret
}

// plainTextResponse is the lossy-but-safe degradation path: the whole text
// becomes the summary, everything else stays at its empty default.
func plainTextResponse(text string) *Response {
	ret := emptyResponse()
	ret.Summary = text
	return ret
}

var schemaKeys = []string{"summary", "query_type", "citations", "analysis", "recommendations"}

func hasSchemaKeys(m map[string]interface{}) bool {
	for _, k := range schemaKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// stringSliceField reads a key expected to hold an array of strings. A
// wrong-typed key counts as absent; non-string elements are dropped, the
// relative order of the rest is preserved.
func stringSliceField(m map[string]interface{}, key string) []string {
	ret := []string{}
	if m == nil {
		return ret
	}
	items, ok := m[key].([]interface{})
	if !ok {
		return ret
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			ret = append(ret, s)
		}
	}
	return ret
}

func objectSliceField(m map[string]interface{}, key string) []map[string]interface{} {
	if m == nil {
		return nil
	}
	items, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	ret := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			ret = append(ret, obj)
		}
	}
	return ret
}
