package compliance

import (
	_ "embed"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed sample.yaml
var sampleResponseYAML []byte

// SampleQuery is the user question the sample conversation answers.
const SampleQuery = "What are the data principal rights under DPDP Act?"

// SampleResponse returns the canned, fully-populated record used by the
// sample-data toggle and as a rendering fixture.
func SampleResponse() (*Response, error) {
	ret := emptyResponse()
	if err := yaml.Unmarshal(sampleResponseYAML, ret); err != nil {
		return nil, errors.Wrap(err, "failed to parse embedded sample response")
	}
	return ret, nil
}
