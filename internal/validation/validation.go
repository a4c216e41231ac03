package validation

import (
	"encoding/json"
	"io"
	"net/http"

	"unhunk/internal/errors"

	"github.com/xeipuuv/gojsonschema"
)

// maxBodySize bounds request bodies; every request is a handful of fields.
const maxBodySize = 1 << 20

type Validator interface {
	Validate() error
}

// Request body schemas.
var (
	FileSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"repo": {"type": "string", "minLength": 1},
			"path": {"type": "string", "minLength": 1}
		},
		"required": ["repo", "path"],
		"additionalProperties": false
	}`)

	HunkSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"repo": {"type": "string", "minLength": 1},
			"path": {"type": "string", "minLength": 1},
			"index": {"type": "integer"}
		},
		"required": ["repo", "path", "index"],
		"additionalProperties": false
	}`)

	LinesSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"repo": {"type": "string", "minLength": 1},
			"path": {"type": "string", "minLength": 1},
			"start": {"type": "integer"},
			"end": {"type": "integer"}
		},
		"required": ["repo", "path", "start", "end"],
		"additionalProperties": false
	}`)

	UndoSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"repo": {"type": "string", "minLength": 1},
			"id": {"type": "string", "minLength": 1}
		},
		"required": ["repo", "id"],
		"additionalProperties": false
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// DecodeRequest checks the JSON body of r against schema, then decodes it
// into v and validates it.
func DecodeRequest(r *http.Request, schema *gojsonschema.Schema, v Validator) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err != nil {
		return errors.ValidationError("invalid request body", err.Error())
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.ValidationError("invalid request body", err.Error())
	}
	if !result.Valid() {
		details := make(map[string]string, len(result.Errors()))
		for _, re := range result.Errors() {
			field := re.Field()
			if p, ok := re.Details()["property"].(string); ok && field == "(root)" {
				field = p
			}
			details[field] = re.Description()
		}
		return errors.ValidationError("invalid request", details)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.ValidationError("invalid request body", err.Error())
	}
	return v.Validate()
}
