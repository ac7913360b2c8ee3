package tuner

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pario-ai/tonal/pkg/models"
)

// Schema versions of the request body.
const (
	SchemaV1 = "1" // {text, toneLevel}
	SchemaV2 = "2" // {text, formalityLevel, verbosityLevel}
)

// legacyVerbosity is the neutral verbosity assigned to single-axis requests.
const legacyVerbosity = 50.0

type wireRequest struct {
	SchemaVersion  json.RawMessage `json:"schemaVersion"`
	Text           *string         `json:"text"`
	FormalityLevel *float64        `json:"formalityLevel"`
	VerbosityLevel *float64        `json:"verbosityLevel"`
	ToneLevel      *float64        `json:"toneLevel"`
}

// DecodeRequest parses a request body in either schema version into a
// ToneRequest. Bodies that mix both shapes or name an unknown version are
// rejected with a ValidationError.
func DecodeRequest(data []byte) (models.ToneRequest, error) {
	var w wireRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return models.ToneRequest{}, &ValidationError{Field: "body", Reason: "is not a valid JSON request object"}
	}

	version, err := schemaVersion(w)
	if err != nil {
		return models.ToneRequest{}, err
	}

	req := models.ToneRequest{}
	if w.Text != nil {
		req.Text = *w.Text
	}

	switch version {
	case SchemaV1:
		if w.ToneLevel == nil {
			return models.ToneRequest{}, &ValidationError{Field: "toneLevel", Reason: "is required"}
		}
		level := *w.ToneLevel
		verbosity := legacyVerbosity
		req.FormalityLevel = &level
		req.VerbosityLevel = &verbosity
	default:
		req.FormalityLevel = w.FormalityLevel
		req.VerbosityLevel = w.VerbosityLevel
	}

	if w.Text == nil {
		return req, &ValidationError{Field: "text", Reason: "is required"}
	}
	return req, nil
}

func schemaVersion(w wireRequest) (string, error) {
	hasV1 := w.ToneLevel != nil
	hasV2 := w.FormalityLevel != nil || w.VerbosityLevel != nil

	explicit := strings.Trim(string(bytes.TrimSpace(w.SchemaVersion)), `"`)
	switch explicit {
	case "":
		if hasV1 && hasV2 {
			return "", &ValidationError{Reason: "toneLevel cannot be combined with formalityLevel/verbosityLevel"}
		}
		if hasV1 {
			return SchemaV1, nil
		}
		return SchemaV2, nil
	case SchemaV1:
		if hasV2 {
			return "", &ValidationError{Reason: "schema version 1 does not accept formalityLevel/verbosityLevel"}
		}
		return SchemaV1, nil
	case SchemaV2:
		if hasV1 {
			return "", &ValidationError{Reason: "schema version 2 does not accept toneLevel"}
		}
		return SchemaV2, nil
	default:
		return "", &ValidationError{Field: "schemaVersion", Reason: "is not a supported version"}
	}
}
