package facts

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPatient reads a patient evidence file (YAML or JSON).
func LoadPatient(path string) (*PatientFacts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open patient file %q: %w", path, err)
	}
	defer f.Close()

	p, err := DecodePatient(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse patient file %q: %w", path, err)
	}
	if p.PatientID == "" {
		p.PatientID = path
	}
	return p, nil
}

// DecodePatient decodes a single patient document from r.
func DecodePatient(r io.Reader) (*PatientFacts, error) {
	var p PatientFacts
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty patient document")
		}
		return nil, err
	}
	for i := range p.Evidence {
		if p.Evidence[i].SourceType == "" {
			p.Evidence[i].SourceType = SourceUnknown
		}
	}
	return &p, nil
}
