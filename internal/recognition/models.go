// Package recognition defines the normalized output of the external
// recognition backends (identity document extractor and plate detector).
package recognition

import "strings"

// Domain names the recognition backend a result came from.
type Domain string

const (
	DomainIdentity Domain = "identity"
	DomainPlate    Domain = "plate"
)

// Field names shared by the adapters and the aggregator merge rules.
const (
	FieldIDNumber    = "idNumber"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldPlateNumber = "plateNumber"
)

// Image is one uploaded picture.
type Image struct {
	Data     []byte
	Filename string
}

// Empty reports whether there is nothing to recognize.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// Result is what a backend returned for one image. Success mirrors the
// backend's own flag, which some recognizers leave unset even when Fields
// carry data.
type Result struct {
	Domain       Domain
	Success      bool
	Fields       map[string]string
	Confidences  map[string]float64
	ErrorMessage string
}

// Field returns the trimmed value of name, or "".
func (r *Result) Field(name string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[name])
}

// Confidence returns the score recorded for name, or 0.
func (r *Result) Confidence(name string) float64 {
	if r == nil {
		return 0
	}
	return r.Confidences[name]
}
