package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "keystone://classification.schema.json"

const responseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["isDueFromMe", "type", "confidence", "rationale"],
  "properties": {
    "isDueFromMe": {"type": "boolean"},
    "type": {"enum": ["reply", "approval", "decision", "follow_up", null]},
    "confidence": {"type": "number"},
    "rationale": {"type": "string"},
    "blockingWho": {"type": ["string", "null"]},
    "suggestedAction": {"type": ["string", "null"]}
  }
}`

// llmResponse is the validated reply shape.
type llmResponse struct {
	IsDueFromMe     bool    `json:"isDueFromMe"`
	Type            *string `json:"type"`
	Confidence      float64 `json:"confidence"`
	Rationale       string  `json:"rationale"`
	BlockingWho     *string `json:"blockingWho"`
	SuggestedAction *string `json:"suggestedAction"`
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("parse classification schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add classification schema: %w", err)
	}
	return c.Compile(schemaURL)
}

// parseResponse validates raw JSON against the schema before decoding it.
func parseResponse(schema *jsonschema.Schema, raw string) (*llmResponse, error) {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("response failed schema validation: %w", err)
	}

	var out llmResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
