package todos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrInvalidJSON = errors.New("invalid JSON payload")

const patchSchemaURL = "todo-patch.json"

// patchSchemaJSON checks the shape of a write body. Presence is not checked
// here: which fields are required depends on the operation.
const patchSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "completed": {"type": "boolean"}
  }
}`

var fieldTypeMessages = map[string]string{
	string(FieldTitle):     "title must be a string",
	string(FieldCompleted): "completed must be a boolean",
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func patchSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(patchSchemaURL, strings.NewReader(patchSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(patchSchemaURL)
	})
	return schema, schemaErr
}

// DecodePatch reads a write body. Malformed JSON returns ErrInvalidJSON;
// shape problems are kept on the patch and reported by the service together
// with missing fields. An empty body decodes as an empty object.
func DecodePatch(body []byte) (Patch, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Patch{}, ErrInvalidJSON
	}

	sch, err := patchSchema()
	if err != nil {
		return Patch{}, err
	}

	var p Patch
	if err := sch.Validate(raw); err != nil {
		p.invalid = schemaFieldErrors(err)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return p, nil
	}
	if v, ok := obj[string(FieldTitle)].(string); ok {
		p.Title = &v
	}
	if v, ok := obj[string(FieldCompleted)].(bool); ok {
		p.Completed = &v
	}
	return p, nil
}

func schemaFieldErrors(err error) map[string]string {
	out := map[string]string{}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		out[NonFieldErrors] = err.Error()
		return out
	}
	collectSchemaErrors(ve, out)
	if len(out) == 0 {
		out[NonFieldErrors] = ve.Message
	}
	return out
}

func collectSchemaErrors(ve *jsonschema.ValidationError, out map[string]string) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectSchemaErrors(cause, out)
		}
		return
	}

	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		out[NonFieldErrors] = "expected a JSON object"
		return
	}
	if i := strings.Index(field, "/"); i >= 0 {
		field = field[:i]
	}
	if _, seen := out[field]; seen {
		return
	}
	if msg, ok := fieldTypeMessages[field]; ok {
		out[field] = msg
		return
	}
	out[field] = ve.Message
}
