package evaluator

import (
	"context"
	"encoding/json"

	"github.com/pathprobe/pathprobe/engine"
	"github.com/pathprobe/pathprobe/logger"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/persona"
	"github.com/pathprobe/pathprobe/selfplay"
)

// serviceReservedVars are populated by the pathway service itself and never
// count as extra extractions.
var serviceReservedVars = map[string]struct{}{
	"callID":          {},
	"channel":         {},
	"call_id":         {},
	"chat_id":         {},
	"BlandStatusCode": {},
}

// Outcome classifies one expected variable after evaluation.
type Outcome int

const (
	// OutcomeMatched means the extracted value matched the expectation,
	// exactly or fuzzily.
	OutcomeMatched Outcome = iota
	// OutcomeMissing means the variable was on the path but absent or wrong.
	OutcomeMissing
	// OutcomeNotOnPath means no visited node declares the variable, so it is
	// excluded from scoring.
	OutcomeNotOnPath
)

// VariableMatch is the evaluation of a single expected variable.
type VariableMatch struct {
	Expected  any
	Actual    any
	Outcome   Outcome
	MatchType string
}

type variableMatchJSON struct {
	Expected  any    `json:"expected"`
	Actual    any    `json:"actual"`
	Matched   *bool  `json:"matched"`
	MatchType string `json:"match_type"`
}

// MarshalJSON encodes the outcome as a three-valued "matched" field: true,
// false, or null for variables off the taken path.
func (m VariableMatch) MarshalJSON() ([]byte, error) {
	out := variableMatchJSON{
		Expected:  m.Expected,
		Actual:    m.Actual,
		MatchType: m.MatchType,
	}
	switch m.Outcome {
	case OutcomeMatched:
		v := true
		out.Matched = &v
	case OutcomeMissing:
		v := false
		out.Matched = &v
	case OutcomeNotOnPath:
		// null
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the tagged outcome from the three-valued field.
func (m *VariableMatch) UnmarshalJSON(data []byte) error {
	var in variableMatchJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Expected = in.Expected
	m.Actual = in.Actual
	m.MatchType = in.MatchType
	switch {
	case in.Matched == nil:
		m.Outcome = OutcomeNotOnPath
	case *in.Matched:
		m.Outcome = OutcomeMatched
	default:
		m.Outcome = OutcomeMissing
	}
	return nil
}

// MatchSummary aggregates variable outcomes for one conversation.
type MatchSummary struct {
	TotalExpected          int     `json:"total_expected"`
	TotalMatched           int     `json:"total_matched"`
	TotalPartial           int     `json:"total_partial"`
	TotalMissing           int     `json:"total_missing"`
	TotalExtra             int     `json:"total_extra"`
	TotalNotOnPath         int     `json:"total_not_on_path"`
	MatchPercentage        float64 `json:"match_percentage"`
	PartialMatchPercentage float64 `json:"partial_match_percentage"`
}

// Evaluation is the scored outcome of one conversation.
type Evaluation struct {
	PersonaID                   string                   `json:"persona_id"`
	ChatID                      string                   `json:"chat_id"`
	PathwayCompleted            bool                     `json:"pathway_completed"`
	EndReason                   selfplay.EndReason       `json:"end_reason"`
	TotalTurns                  int                      `json:"total_turns"`
	VisitedNodes                []string                 `json:"visited_nodes"`
	ExpectedVariablesForPath    map[string]any           `json:"expected_variables_for_path"`
	AllPersonaExpectedVariables map[string]any           `json:"all_persona_expected_variables"`
	ExtractedVariables          map[string]any           `json:"extracted_variables"`
	VariableMatches             map[string]VariableMatch `json:"variable_matches"`
	MatchSummary                MatchSummary             `json:"match_summary"`
}

// Evaluator scores conversation results. The structure source is usually a
// cache so repeated evaluations of the same pathway fetch its structure once.
type Evaluator struct {
	structures pathway.StructureSource
}

// New creates an evaluator. A nil structure source disables path filtering:
// every expected variable then counts toward the score.
func New(structures pathway.StructureSource) *Evaluator {
	return &Evaluator{structures: structures}
}

// visitedNodes collects node names the conversation passed through, in first
// visit order, final node included.
func visitedNodes(result *engine.ConversationResult) []string {
	seen := make(map[string]struct{})
	var nodes []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		nodes = append(nodes, name)
	}

	for _, entry := range result.ConversationLog {
		add(entry.CurrentNode)
	}
	add(result.FinalNode)
	return nodes
}

// variablesForPath returns the variable names declared by visited nodes, or
// nil when the structure is unavailable.
func (e *Evaluator) variablesForPath(ctx context.Context, pathwayID string, visited []string) map[string]struct{} {
	if e.structures == nil || pathwayID == "" {
		return nil
	}

	structure, err := e.structures.FetchStructure(ctx, pathwayID)
	if err != nil {
		logger.Warn("Could not fetch pathway structure, scoring all expected variables",
			"pathway_id", pathwayID, "error", err)
		return nil
	}

	visitedSet := make(map[string]struct{}, len(visited))
	for _, name := range visited {
		visitedSet[name] = struct{}{}
	}
	return structure.VariablesForNodes(visitedSet)
}

// Evaluate scores one conversation result against the persona that produced
// it. Variables declared only by unvisited nodes are reported as not_on_path
// and excluded from the percentage denominators. When the pathway structure
// cannot be fetched, or declares no variables for the visited nodes, all
// expected variables are scored.
func (e *Evaluator) Evaluate(ctx context.Context, result *engine.ConversationResult, p *persona.Persona) *Evaluation {
	expected := p.Goal.ExtractedVarsExpected
	actual := result.FinalVariables
	visited := visitedNodes(result)

	varsForPath := e.variablesForPath(ctx, result.PathwayID, visited)

	relevant := expected
	if len(varsForPath) > 0 {
		relevant = make(map[string]any)
		for name, value := range expected {
			if _, ok := varsForPath[name]; ok {
				relevant[name] = value
			}
		}
	}

	eval := &Evaluation{
		PersonaID:                   result.PersonaID,
		ChatID:                      result.ChatID,
		PathwayCompleted:            result.Completed,
		EndReason:                   result.EndReason,
		TotalTurns:                  result.TotalTurns,
		VisitedNodes:                visited,
		ExpectedVariablesForPath:    relevant,
		AllPersonaExpectedVariables: expected,
		ExtractedVariables:          actual,
		VariableMatches:             make(map[string]VariableMatch),
		MatchSummary: MatchSummary{
			TotalExpected:  len(relevant),
			TotalNotOnPath: len(expected) - len(relevant),
		},
	}

	for name, expectedValue := range relevant {
		actualValue, extracted := actual[name]
		if !extracted {
			eval.VariableMatches[name] = VariableMatch{
				Expected:  expectedValue,
				Outcome:   OutcomeMissing,
				MatchType: MatchNotExtracted,
			}
			eval.MatchSummary.TotalMissing++
			continue
		}

		matched, matchType := CompareValues(expectedValue, actualValue)
		vm := VariableMatch{
			Expected:  expectedValue,
			Actual:    actualValue,
			MatchType: matchType,
		}
		switch {
		case matched && matchType == MatchPartial:
			vm.Outcome = OutcomeMatched
			eval.MatchSummary.TotalPartial++
		case matched:
			vm.Outcome = OutcomeMatched
			eval.MatchSummary.TotalMatched++
		default:
			vm.Outcome = OutcomeMissing
			eval.MatchSummary.TotalMissing++
		}
		eval.VariableMatches[name] = vm
	}

	for name, expectedValue := range expected {
		if _, ok := relevant[name]; ok {
			continue
		}
		eval.VariableMatches[name] = VariableMatch{
			Expected:  expectedValue,
			Actual:    actual[name],
			Outcome:   OutcomeNotOnPath,
			MatchType: MatchNotOnPath,
		}
	}

	for name := range actual {
		if _, reserved := serviceReservedVars[name]; reserved {
			continue
		}
		if _, ok := relevant[name]; !ok {
			eval.MatchSummary.TotalExtra++
		}
	}

	if eval.MatchSummary.TotalExpected > 0 {
		total := float64(eval.MatchSummary.TotalExpected)
		matched := float64(eval.MatchSummary.TotalMatched)
		partial := float64(eval.MatchSummary.TotalPartial)
		eval.MatchSummary.MatchPercentage = matched / total * 100
		eval.MatchSummary.PartialMatchPercentage = (matched + partial) / total * 100
	} else {
		eval.MatchSummary.MatchPercentage = 100.0
		eval.MatchSummary.PartialMatchPercentage = 100.0
	}

	return eval
}

// EvaluateAll scores a set of results against their personas, matched by
// persona ID. Results without a matching persona are skipped with a warning.
func (e *Evaluator) EvaluateAll(ctx context.Context, results []*engine.ConversationResult, personas []persona.Persona) []*Evaluation {
	byID := make(map[string]*persona.Persona, len(personas))
	for i := range personas {
		byID[personas[i].PersonaID] = &personas[i]
	}

	evaluations := make([]*Evaluation, 0, len(results))
	for _, result := range results {
		p, ok := byID[result.PersonaID]
		if !ok {
			logger.Warn("No persona found for result, skipping evaluation",
				"persona_id", result.PersonaID)
			continue
		}
		evaluations = append(evaluations, e.Evaluate(ctx, result, p))
	}
	return evaluations
}
