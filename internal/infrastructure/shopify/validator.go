package shopify

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// returnWebhookSchema constrains the shape of an inbound return webhook
// before normalization. Identifier fields accept both numeric and GID string
// forms.
const returnWebhookSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "status"],
  "properties": {
    "id": {"type": ["integer", "string"]},
    "order_id": {"type": ["integer", "string", "null"]},
    "status": {"type": "string", "minLength": 1},
    "created_at": {"type": ["string", "null"]},
    "return_line_items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["quantity"],
        "properties": {
          "id": {"type": ["integer", "string"]},
          "quantity": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

// PayloadValidator validates webhook bodies against JSON schemas per topic
type PayloadValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewPayloadValidator compiles the built-in webhook schemas
func NewPayloadValidator() (*PayloadValidator, error) {
	compiler := jsonschema.NewCompiler()

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(returnWebhookSchema)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse return webhook schema: %w", err)
	}
	if err := compiler.AddResource("portal://schemas/return-webhook.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add return webhook schema: %w", err)
	}

	compiled, err := compiler.Compile("portal://schemas/return-webhook.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile return webhook schema: %w", err)
	}

	return &PayloadValidator{
		schemas: map[string]*jsonschema.Schema{
			"returns": compiled,
		},
	}, nil
}

// Validate checks a webhook body against the schema for its topic group.
// Topics without a registered schema pass through unvalidated.
func (v *PayloadValidator) Validate(topic string, body []byte) error {
	schema, ok := v.schemas[topicGroup(topic)]
	if !ok {
		return nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook body is not valid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("webhook body failed schema validation: %w", err)
	}

	return nil
}

// topicGroup reduces a topic like returns/approve to its group
func topicGroup(topic string) string {
	for i := 0; i < len(topic); i++ {
		if topic[i] == '/' {
			return topic[:i]
		}
	}
	return topic
}
