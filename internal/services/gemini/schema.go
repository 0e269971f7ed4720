package gemini

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed response_schema.json
var responseSchemaJSON []byte

var (
	responseSchemaOnce sync.Once
	responseSchema     *jsonschema.Schema
	responseSchemaErr  error
)

func compiledResponseSchema() (*jsonschema.Schema, error) {
	responseSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("generate_content_response.json", bytes.NewReader(responseSchemaJSON)); err != nil {
			responseSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		responseSchema, responseSchemaErr = compiler.Compile("generate_content_response.json")
		if responseSchemaErr != nil {
			responseSchemaErr = fmt.Errorf("compile schema: %w", responseSchemaErr)
		}
	})
	return responseSchema, responseSchemaErr
}

// validateEnvelope checks the response body shape before it is decoded.
func validateEnvelope(body []byte) error {
	schema, err := compiledResponseSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
