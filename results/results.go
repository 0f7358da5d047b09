// Package results provides the output layer for test runs. It implements the
// Repository Pattern so one run can be written in several formats (JSON,
// Markdown, JUnit XML, HTML) without coupling execution to any of them.
package results

import (
	"time"

	"github.com/pathprobe/pathprobe/engine"
	"github.com/pathprobe/pathprobe/evaluator"
)

// Run bundles everything a regression run produced.
type Run struct {
	RunID       string    `json:"run_id,omitempty"`
	PathwayID   string    `json:"pathway_id"`
	PathwayName string    `json:"pathway_name"`
	ConfigFile  string    `json:"config_file,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	Results     []*engine.ConversationResult `json:"results"`
	Evaluations []*evaluator.Evaluation      `json:"evaluations"`
	Summary     evaluator.Summary            `json:"summary"`

	// Failures maps persona IDs to the error that aborted their
	// conversation before a result could be produced.
	Failures map[string]string `json:"failures,omitempty"`
}

// Repository writes a run in one output format.
type Repository interface {
	Save(run *Run) error
}

// Composite fans a run out to several repositories. The first failure stops
// the chain.
type Composite struct {
	repositories []Repository
}

// NewComposite creates a repository that writes to all given repositories.
func NewComposite(repositories ...Repository) *Composite {
	return &Composite{repositories: repositories}
}

// Save writes the run through every wrapped repository.
func (c *Composite) Save(run *Run) error {
	for _, repo := range c.repositories {
		if err := repo.Save(run); err != nil {
			return err
		}
	}
	return nil
}
