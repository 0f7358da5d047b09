package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathprobe/pathprobe/engine"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/persona"
	"github.com/pathprobe/pathprobe/selfplay"
)

type staticSource struct {
	structure *pathway.Structure
	err       error
	fetches   int
}

func (s *staticSource) FetchStructure(ctx context.Context, pathwayID string) (*pathway.Structure, error) {
	s.fetches++
	return s.structure, s.err
}

func bookingStructure() *pathway.Structure {
	return &pathway.Structure{
		Name: "Booking",
		Nodes: []pathway.Node{
			{
				ID: "n1", Type: "Default",
				Data: pathway.NodeData{
					Name: "Greeting",
					ExtractVars: []pathway.ExtractVar{
						{Name: "name", Type: "string"},
					},
				},
			},
			{
				ID: "n2", Type: "Default",
				Data: pathway.NodeData{
					Name: "Contact",
					ExtractVars: []pathway.ExtractVar{
						{Name: "email", Type: "string"},
					},
				},
			},
			{ID: "end", Type: "End Call", Data: pathway.NodeData{Name: "Done"}},
		},
	}
}

func evalPersona(expected map[string]any) *persona.Persona {
	return &persona.Persona{
		PersonaID: "p-1",
		Goal:      persona.Goal{ExtractedVarsExpected: expected},
	}
}

func evalResult(finalVars map[string]any, nodes ...string) *engine.ConversationResult {
	result := &engine.ConversationResult{
		PersonaID:      "p-1",
		ChatID:         "chat-1",
		PathwayID:      "pw-1",
		Completed:      true,
		EndReason:      selfplay.EndUserNatural,
		TotalTurns:     len(nodes),
		FinalVariables: finalVars,
	}
	for i, node := range nodes {
		result.ConversationLog = append(result.ConversationLog, engine.ConversationLogEntry{
			Turn:        i + 1,
			UserMessage: "msg",
			CurrentNode: node,
		})
	}
	if len(nodes) > 0 {
		result.FinalNode = nodes[len(nodes)-1]
	}
	return result
}

func TestEvaluateAllMatched(t *testing.T) {
	e := New(&staticSource{structure: bookingStructure()})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{"name": "Alice Smith", "email": "a@example.com"}, "Greeting", "Contact", "Done"),
		evalPersona(map[string]any{"name": "alice smith", "email": "A@example.com"}))

	assert.Equal(t, 2, eval.MatchSummary.TotalExpected)
	assert.Equal(t, 2, eval.MatchSummary.TotalMatched)
	assert.Equal(t, 0, eval.MatchSummary.TotalMissing)
	assert.Equal(t, 0, eval.MatchSummary.TotalNotOnPath)
	assert.Equal(t, 100.0, eval.MatchSummary.MatchPercentage)

	assert.Equal(t, OutcomeMatched, eval.VariableMatches["name"].Outcome)
	assert.Equal(t, MatchExact, eval.VariableMatches["name"].MatchType)
	assert.Equal(t, []string{"Greeting", "Contact", "Done"}, eval.VisitedNodes)
}

func TestEvaluateNotOnPathExcludedFromScore(t *testing.T) {
	// Only Greeting was visited; email belongs to the unvisited Contact node.
	e := New(&staticSource{structure: bookingStructure()})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{"name": "Alice"}, "Greeting"),
		evalPersona(map[string]any{"name": "Alice", "email": "a@example.com"}))

	assert.Equal(t, 1, eval.MatchSummary.TotalExpected)
	assert.Equal(t, 1, eval.MatchSummary.TotalMatched)
	assert.Equal(t, 1, eval.MatchSummary.TotalNotOnPath)
	assert.Equal(t, 100.0, eval.MatchSummary.MatchPercentage)

	assert.Equal(t, OutcomeNotOnPath, eval.VariableMatches["email"].Outcome)
	assert.Equal(t, MatchNotOnPath, eval.VariableMatches["email"].MatchType)
}

func TestEvaluateMissingAndMismatch(t *testing.T) {
	e := New(&staticSource{structure: bookingStructure()})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{"name": "Bob"}, "Greeting", "Contact"),
		evalPersona(map[string]any{"name": "Alice", "email": "a@example.com"}))

	assert.Equal(t, 2, eval.MatchSummary.TotalExpected)
	assert.Equal(t, 0, eval.MatchSummary.TotalMatched)
	assert.Equal(t, 2, eval.MatchSummary.TotalMissing)
	assert.Equal(t, 0.0, eval.MatchSummary.MatchPercentage)

	assert.Equal(t, OutcomeMissing, eval.VariableMatches["name"].Outcome)
	assert.Equal(t, "mismatch: expected=Alice, actual=Bob", eval.VariableMatches["name"].MatchType)
	assert.Equal(t, OutcomeMissing, eval.VariableMatches["email"].Outcome)
	assert.Equal(t, MatchNotExtracted, eval.VariableMatches["email"].MatchType)
}

func TestEvaluatePartialCountsSeparately(t *testing.T) {
	e := New(&staticSource{structure: bookingStructure()})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{"name": "new york, ny", "email": "a@example.com"}, "Greeting", "Contact"),
		evalPersona(map[string]any{"name": "New York", "email": "a@example.com"}))

	assert.Equal(t, 1, eval.MatchSummary.TotalMatched)
	assert.Equal(t, 1, eval.MatchSummary.TotalPartial)
	assert.Equal(t, 50.0, eval.MatchSummary.MatchPercentage)
	assert.Equal(t, 100.0, eval.MatchSummary.PartialMatchPercentage)

	assert.Equal(t, OutcomeMatched, eval.VariableMatches["name"].Outcome)
	assert.Equal(t, MatchPartial, eval.VariableMatches["name"].MatchType)
}

func TestEvaluateEmptyStructureScoresEverything(t *testing.T) {
	// A structure that declares no variables cannot filter the expectations.
	e := New(&staticSource{structure: &pathway.Structure{Name: "empty"}})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{}, "Somewhere"),
		evalPersona(map[string]any{"name": "Alice"}))

	assert.Equal(t, 1, eval.MatchSummary.TotalExpected)
	assert.Equal(t, 0, eval.MatchSummary.TotalNotOnPath)
	assert.Equal(t, OutcomeMissing, eval.VariableMatches["name"].Outcome)
}

func TestEvaluateStructureFetchFailureScoresEverything(t *testing.T) {
	e := New(&staticSource{err: fmt.Errorf("service down")})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{"name": "Alice"}, "Greeting"),
		evalPersona(map[string]any{"name": "Alice", "email": "a@example.com"}))

	assert.Equal(t, 2, eval.MatchSummary.TotalExpected)
	assert.Equal(t, 0, eval.MatchSummary.TotalNotOnPath)
}

func TestEvaluateNoExpectedVariables(t *testing.T) {
	e := New(&staticSource{structure: bookingStructure()})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{"name": "Alice"}, "Greeting"),
		evalPersona(map[string]any{}))

	assert.Equal(t, 0, eval.MatchSummary.TotalExpected)
	assert.Equal(t, 100.0, eval.MatchSummary.MatchPercentage)
	assert.Equal(t, 100.0, eval.MatchSummary.PartialMatchPercentage)
}

func TestEvaluateServiceVariablesNotExtra(t *testing.T) {
	e := New(&staticSource{structure: bookingStructure()})

	eval := e.Evaluate(context.Background(),
		evalResult(map[string]any{
			"name":            "Alice",
			"callID":          "c-1",
			"channel":         "chat",
			"call_id":         "c-1",
			"chat_id":         "chat-1",
			"BlandStatusCode": 200.0,
			"surprise":        "extra",
		}, "Greeting"),
		evalPersona(map[string]any{"name": "Alice"}))

	// Only "surprise" counts as extra.
	assert.Equal(t, 1, eval.MatchSummary.TotalExtra)
}

func TestVariableMatchJSONRoundTrip(t *testing.T) {
	cases := map[string]struct {
		match   VariableMatch
		matched string
	}{
		"matched":     {VariableMatch{Expected: "a", Actual: "a", Outcome: OutcomeMatched, MatchType: MatchExact}, "true"},
		"missing":     {VariableMatch{Expected: "a", Outcome: OutcomeMissing, MatchType: MatchNotExtracted}, "false"},
		"not on path": {VariableMatch{Expected: "a", Outcome: OutcomeNotOnPath, MatchType: MatchNotOnPath}, "null"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(tc.match)
			require.NoError(t, err)

			var raw map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &raw))
			assert.JSONEq(t, tc.matched, string(raw["matched"]))

			var back VariableMatch
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tc.match.Outcome, back.Outcome)
			assert.Equal(t, tc.match.MatchType, back.MatchType)
		})
	}
}

func TestEvaluateAll(t *testing.T) {
	e := New(&staticSource{structure: bookingStructure()})

	personas := []persona.Persona{*evalPersona(map[string]any{"name": "Alice"})}
	results := []*engine.ConversationResult{
		evalResult(map[string]any{"name": "Alice"}, "Greeting"),
		{PersonaID: "unknown", PathwayID: "pw-1"},
	}

	evaluations := e.EvaluateAll(context.Background(), results, personas)
	require.Len(t, evaluations, 1)
	assert.Equal(t, "p-1", evaluations[0].PersonaID)
}

func TestSummarize(t *testing.T) {
	evals := []*Evaluation{
		{PathwayCompleted: true, EndReason: selfplay.EndUserNatural, TotalTurns: 4,
			MatchSummary: MatchSummary{MatchPercentage: 100}},
		{PathwayCompleted: true, EndReason: selfplay.EndPathwayCompleted, TotalTurns: 6,
			MatchSummary: MatchSummary{MatchPercentage: 80}},
	}

	s := Summarize(evals)
	assert.Equal(t, 2, s.TotalTests)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 100.0, s.CompletionRate)
	assert.Equal(t, 1, s.NaturalEndings)
	assert.Equal(t, 0, s.FailedEndings)
	assert.Equal(t, 90.0, s.AvgMatchPercentage)
	assert.Equal(t, 5.0, s.AvgTurns)
	assert.Equal(t, VerdictPass, s.Verdict)
}

func TestSummarizeVerdicts(t *testing.T) {
	needsWork := Summarize([]*Evaluation{
		{PathwayCompleted: false, EndReason: selfplay.EndUserUnsuccessful,
			MatchSummary: MatchSummary{MatchPercentage: 60}},
	})
	assert.Equal(t, VerdictNeedsImprovement, needsWork.Verdict)
	assert.Equal(t, 1, needsWork.FailedEndings)

	// High match rate alone is not enough without completions.
	incomplete := Summarize([]*Evaluation{
		{PathwayCompleted: false, MatchSummary: MatchSummary{MatchPercentage: 100}},
	})
	assert.Equal(t, VerdictNeedsImprovement, incomplete.Verdict)

	failed := Summarize([]*Evaluation{
		{MatchSummary: MatchSummary{MatchPercentage: 10}},
	})
	assert.Equal(t, VerdictFail, failed.Verdict)

	assert.Equal(t, VerdictFail, Summarize(nil).Verdict)
}
