// Package json stores run output as JSON files: the raw conversation
// results, their evaluations, and an index with the run summary.
package json

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pathprobe/pathprobe/engine"
	"github.com/pathprobe/pathprobe/evaluator"
	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/results"
)

const componentName = "results/json"

// File names within the output directory.
const (
	ResultsFileName     = "pathway_results.json"
	EvaluationsFileName = "pathway_evaluations.json"
	IndexFileName       = "index.json"
)

// Repository writes run output into a directory as three JSON files.
type Repository struct {
	outputDir string
}

// NewRepository creates a JSON repository writing into outputDir.
func NewRepository(outputDir string) *Repository {
	return &Repository{outputDir: outputDir}
}

// OutputDir returns the configured output directory.
func (r *Repository) OutputDir() string {
	return r.outputDir
}

type index struct {
	RunID       string            `json:"run_id,omitempty"`
	PathwayID   string            `json:"pathway_id"`
	PathwayName string            `json:"pathway_name"`
	ConfigFile  string            `json:"config_file,omitempty"`
	Timestamp   string            `json:"timestamp"`
	PersonaIDs  []string          `json:"persona_ids"`
	Summary     evaluator.Summary `json:"summary"`
	Failures    map[string]string `json:"failures,omitempty"`
}

// Save writes results, evaluations, and the index file.
func (r *Repository) Save(run *results.Run) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return errors.New(componentName, "Save", err)
	}

	if err := r.writeFile(ResultsFileName, run.Results); err != nil {
		return err
	}
	if err := r.writeFile(EvaluationsFileName, run.Evaluations); err != nil {
		return err
	}

	personaIDs := make([]string, 0, len(run.Results))
	for _, result := range run.Results {
		personaIDs = append(personaIDs, result.PersonaID)
	}

	return r.writeFile(IndexFileName, index{
		RunID:       run.RunID,
		PathwayID:   run.PathwayID,
		PathwayName: run.PathwayName,
		ConfigFile:  run.ConfigFile,
		Timestamp:   run.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		PersonaIDs:  personaIDs,
		Summary:     run.Summary,
		Failures:    run.Failures,
	})
}

func (r *Repository) writeFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New(componentName, "Save", err)
	}
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(componentName, "Save", err).
			WithDetails(map[string]any{"path": path})
	}
	return nil
}

// LoadResults reads previously saved conversation results from a file
// written by this repository. Offline re-evaluation starts from here.
func LoadResults(path string) ([]*engine.ConversationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(componentName, "LoadResults", err)
	}
	var loaded []*engine.ConversationResult
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, errors.New(componentName, "LoadResults", err).
			WithDetails(map[string]any{"path": path})
	}
	return loaded, nil
}
