// Package pathway provides the client and data types for the remote pathway
// service: creating chat sessions, exchanging turns, and fetching the pathway
// graph structure used by the evaluator.
package pathway

import (
	"encoding/json"
	"fmt"
)

// ChatMessage is one entry of a conversation history as reported by the
// pathway service or maintained locally for persona generation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnResponse is the pathway service's reply to a single chat turn.
// Fields missing from the wire payload decode to safe zero values; partial
// telemetry must not abort a conversation in progress.
type TurnResponse struct {
	Completed          bool           `json:"completed"`
	AssistantResponses []string       `json:"assistant_responses"`
	ChatHistory        []ChatMessage  `json:"chat_history"`
	CurrentNodeName    string         `json:"current_node_name"`
	Variables          map[string]any `json:"variables"`
}

// ExtractVar describes one variable a pathway node extracts from the
// conversation. The service encodes these as JSON arrays of the form
// [name, type, description, optional?], so custom (un)marshaling is required.
type ExtractVar struct {
	Name        string
	Type        string
	Description string
	Optional    bool
}

// UnmarshalJSON decodes the service's array form. Short arrays are tolerated;
// trailing elements beyond the fourth are ignored.
func (v *ExtractVar) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("extractVars entry is not an array: %w", err)
	}

	read := func(i int) string {
		if i < len(raw) {
			if s, ok := raw[i].(string); ok {
				return s
			}
		}
		return ""
	}

	v.Name = read(0)
	v.Type = read(1)
	v.Description = read(2)
	if len(raw) > 3 {
		if b, ok := raw[3].(bool); ok {
			v.Optional = b
		}
	}
	return nil
}

// MarshalJSON encodes back to the service's array form.
func (v ExtractVar) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{v.Name, v.Type, v.Description, v.Optional})
}

// NodeData holds the inner data block of a pathway node.
type NodeData struct {
	Name        string       `json:"name"`
	Prompt      string       `json:"prompt,omitempty"`
	ExtractVars []ExtractVar `json:"extractVars,omitempty"`
}

// Node is one node of the pathway graph.
type Node struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Data NodeData `json:"data"`
}

// endCallNodeType marks terminal pathway nodes.
const endCallNodeType = "End Call"

// IsEndCall reports whether this node terminates the call when reached.
func (n Node) IsEndCall() bool {
	return n.Type == endCallNodeType
}

// Structure is the pathway graph structure as returned by the service.
// An empty Structure (no nodes) is a legitimate value: the evaluator treats
// it as "structure unavailable" and falls back to unfiltered scoring.
type Structure struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Nodes       []Node `json:"nodes,omitempty"`
}

// VariablesForNodes returns the set of variable names declared by nodes whose
// name appears in visited. The result is empty when the structure carries no
// usable node data.
func (s *Structure) VariablesForNodes(visited map[string]struct{}) map[string]struct{} {
	vars := make(map[string]struct{})
	if s == nil {
		return vars
	}
	for _, node := range s.Nodes {
		if _, ok := visited[node.Data.Name]; !ok {
			continue
		}
		for _, ev := range node.Data.ExtractVars {
			if ev.Name != "" {
				vars[ev.Name] = struct{}{}
			}
		}
	}
	return vars
}
