package compliance

// Response is the canonical, fully-shaped record the rest of the application
// renders. Every field is always present after normalization: absence in the
// agent output maps to an empty string or an empty slice, never to nil
// propagating further. Slice order is display order and is preserved exactly
// as received.
type Response struct {
	Summary         string     `json:"summary" yaml:"summary"`
	QueryType       string     `json:"query_type" yaml:"query_type"`
	Citations       []Citation `json:"citations" yaml:"citations"`
	Analysis        Analysis   `json:"analysis" yaml:"analysis"`
	Recommendations []string   `json:"recommendations" yaml:"recommendations"`
}

type Citation struct {
	Framework string `json:"framework" yaml:"framework"`
	Section   string `json:"section" yaml:"section"`
	Excerpt   string `json:"excerpt" yaml:"excerpt"`
	Relevance string `json:"relevance" yaml:"relevance"`
}

type Analysis struct {
	DetailedExplanation string           `json:"detailed_explanation" yaml:"detailed_explanation"`
	CrossReferences     []CrossReference `json:"cross_references" yaml:"cross_references"`
	RiskItems           []RiskItem       `json:"risk_items" yaml:"risk_items"`
	ChecklistItems      []ChecklistItem  `json:"checklist_items" yaml:"checklist_items"`
}

type CrossReference struct {
	FrameworkA string `json:"framework_a" yaml:"framework_a"`
	FrameworkB string `json:"framework_b" yaml:"framework_b"`
	Overlap    string `json:"overlap" yaml:"overlap"`
	UniqueToA  string `json:"unique_to_a" yaml:"unique_to_a"`
	UniqueToB  string `json:"unique_to_b" yaml:"unique_to_b"`
}

type RiskItem struct {
	Risk        string `json:"risk" yaml:"risk"`
	Severity    string `json:"severity" yaml:"severity"`
	Impact      string `json:"impact" yaml:"impact"`
	Remediation string `json:"remediation" yaml:"remediation"`
}

type ChecklistItem struct {
	Item     string `json:"item" yaml:"item"`
	Category string `json:"category" yaml:"category"`
	Status   string `json:"status" yaml:"status"`
	Priority string `json:"priority" yaml:"priority"`
}

// emptyResponse returns a record with every field at its documented default.
func emptyResponse() *Response {
	return &Response{
		Citations: []Citation{},
		Analysis: Analysis{
			CrossReferences: []CrossReference{},
			RiskItems:       []RiskItem{},
			ChecklistItems:  []ChecklistItem{},
		},
		Recommendations: []string{},
	}
}
