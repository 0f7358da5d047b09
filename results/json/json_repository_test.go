package json

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathprobe/pathprobe/engine"
	"github.com/pathprobe/pathprobe/evaluator"
	"github.com/pathprobe/pathprobe/results"
	"github.com/pathprobe/pathprobe/selfplay"
)

func sampleRun() *results.Run {
	return &results.Run{
		PathwayID:   "pw-1",
		PathwayName: "Booking",
		Timestamp:   time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		Results: []*engine.ConversationResult{
			{
				PersonaID:      "p-1",
				ChatID:         "chat-1",
				PathwayID:      "pw-1",
				Completed:      true,
				EndReason:      selfplay.EndUserNatural,
				TotalTurns:     3,
				FinalNode:      "Done",
				FinalVariables: map[string]any{"name": "Alice"},
			},
		},
		Evaluations: []*evaluator.Evaluation{
			{
				PersonaID: "p-1",
				ChatID:    "chat-1",
				MatchSummary: evaluator.MatchSummary{
					TotalExpected:   1,
					TotalMatched:    1,
					MatchPercentage: 100,
				},
			},
		},
		Summary:  evaluator.Summary{TotalTests: 1, Completed: 1, Verdict: evaluator.VerdictPass},
		Failures: map[string]string{"p-2": "provider exploded"},
	}
}

func TestSaveWritesAllFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(dir)

	require.NoError(t, repo.Save(sampleRun()))

	for _, name := range []string{ResultsFileName, EvaluationsFileName, IndexFileName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	require.NoError(t, err)

	var idx map[string]any
	require.NoError(t, json.Unmarshal(data, &idx))
	assert.Equal(t, "pw-1", idx["pathway_id"])
	assert.Equal(t, []any{"p-1"}, idx["persona_ids"])
	assert.Equal(t, map[string]any{"p-2": "provider exploded"}, idx["failures"])

	summary, ok := idx["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PASS", summary["verdict"])
}

func TestSaveCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, NewRepository(dir).Save(sampleRun()))

	_, err := os.Stat(filepath.Join(dir, ResultsFileName))
	assert.NoError(t, err)
}

func TestLoadResultsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	run := sampleRun()
	require.NoError(t, NewRepository(dir).Save(run))

	loaded, err := LoadResults(filepath.Join(dir, ResultsFileName))
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	assert.Equal(t, "p-1", loaded[0].PersonaID)
	assert.Equal(t, selfplay.EndUserNatural, loaded[0].EndReason)
	assert.Equal(t, map[string]any{"name": "Alice"}, loaded[0].FinalVariables)
}

func TestLoadResultsMissingFile(t *testing.T) {
	_, err := LoadResults(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
