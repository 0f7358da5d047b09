package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pathprobe/pathprobe/pkg/errors"
)

// documentSchema validates persona files before they are trusted by a run.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["pathway_id", "total_personas", "personas"],
  "properties": {
    "pathway_id": {"type": "string", "minLength": 1},
    "pathway_name": {"type": "string"},
    "generated_at": {"type": "string"},
    "total_personas": {"type": "integer", "minimum": 0},
    "personas": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["persona_id", "personality", "goal"],
        "properties": {
          "persona_id": {"type": "string", "minLength": 1},
          "personality": {
            "type": "object",
            "required": [
              "communication_style", "patience_level", "tech_savviness",
              "attitude", "precision_level", "error_prone", "decisiveness",
              "detail_orientation", "consistency"
            ]
          },
          "goal": {
            "type": "object",
            "required": ["extracted_vars_expected", "call_context"],
            "properties": {
              "extracted_vars_expected": {"type": "object"},
              "call_context": {
                "type": "object",
                "required": ["direction"],
                "properties": {
                  "direction": {"enum": ["inbound", "outbound"]}
                }
              },
              "target_end_node": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

// Save writes a persona document as indented JSON.
func Save(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.New(componentName, "Save", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(componentName, "Save", err)
	}
	return nil
}

// Load reads a persona document, validating it against the document schema
// before decoding.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(componentName, "Load", err)
	}

	if err := validateDocument(data); err != nil {
		return nil, errors.New(componentName, "Load", err).
			WithDetails(map[string]any{"path": path})
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(componentName, "Load", err)
	}
	return &doc, nil
}

func validateDocument(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("invalid persona document:\n  - %s", strings.Join(msgs, "\n  - "))
}
