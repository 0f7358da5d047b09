// Package junit exports a run as JUnit XML so CI systems can surface
// per-persona outcomes without understanding the JSON output.
package junit

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pathprobe/pathprobe/evaluator"
	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/results"
)

const componentName = "results/junit"

// DefaultFailureThreshold is the match percentage below which a persona
// conversation is reported as a test failure.
const DefaultFailureThreshold = 80.0

// Repository writes the JUnit XML report to a single file.
type Repository struct {
	outputPath string
	threshold  float64
}

// Option configures a Repository.
type Option func(*Repository)

// WithFailureThreshold overrides the match percentage a persona must reach
// for its test case to pass.
func WithFailureThreshold(pct float64) Option {
	return func(r *Repository) {
		r.threshold = pct
	}
}

// NewRepository creates a JUnit repository writing to outputPath.
func NewRepository(outputPath string, opts ...Option) *Repository {
	r := &Repository{outputPath: outputPath, threshold: DefaultFailureThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save renders and writes the JUnit document. Every evaluated persona becomes
// a test case; aborted conversations become error cases.
func (r *Repository) Save(run *results.Run) error {
	suite := &TestSuite{
		Name:      run.PathwayName,
		Timestamp: run.Timestamp.Format("2006-01-02T15:04:05"),
		Properties: []Property{
			{Name: "pathway_id", Value: run.PathwayID},
			{Name: "verdict", Value: string(run.Summary.Verdict)},
			{Name: "avg_match_percentage", Value: fmt.Sprintf("%.1f", run.Summary.AvgMatchPercentage)},
		},
	}

	for _, eval := range run.Evaluations {
		suite.TestCases = append(suite.TestCases, r.buildTestCase(eval))
	}

	failedIDs := make([]string, 0, len(run.Failures))
	for id := range run.Failures {
		failedIDs = append(failedIDs, id)
	}
	sort.Strings(failedIDs)
	for _, id := range failedIDs {
		suite.TestCases = append(suite.TestCases, TestCase{
			Name:      fmt.Sprintf("persona %s", id),
			Classname: run.PathwayName,
			Error: &Error{
				Message: run.Failures[id],
				Type:    "ConversationAborted",
			},
		})
	}

	suite.Tests = len(suite.TestCases)
	for _, tc := range suite.TestCases {
		if tc.Failure != nil {
			suite.Failures++
		}
		if tc.Error != nil {
			suite.Errors++
		}
	}

	doc := &TestSuites{
		Name:     "pathprobe",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Errors:   suite.Errors,
		Suites:   []*TestSuite{suite},
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.New(componentName, "Save", err)
	}
	payload := append([]byte(xml.Header), data...)

	if err := os.WriteFile(r.outputPath, payload, 0o644); err != nil {
		return errors.New(componentName, "Save", err).
			WithDetails(map[string]any{"path": r.outputPath})
	}
	return nil
}

func (r *Repository) buildTestCase(eval *evaluator.Evaluation) TestCase {
	ms := eval.MatchSummary
	tc := TestCase{
		Name:      fmt.Sprintf("persona %s", eval.PersonaID),
		Classname: "pathway",
		Properties: []Property{
			{Name: "end_reason", Value: string(eval.EndReason)},
			{Name: "total_turns", Value: fmt.Sprintf("%d", eval.TotalTurns)},
			{Name: "match_percentage", Value: fmt.Sprintf("%.1f", ms.MatchPercentage)},
		},
	}

	if ms.MatchPercentage < r.threshold {
		tc.Failure = &Failure{
			Message: fmt.Sprintf("match rate %.1f%% below threshold %.1f%%", ms.MatchPercentage, r.threshold),
			Type:    "VariableMatchBelowThreshold",
			Content: describeMisses(eval),
		}
	}
	return tc
}

func describeMisses(eval *evaluator.Evaluation) string {
	names := make([]string, 0, len(eval.VariableMatches))
	for name := range eval.VariableMatches {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		vm := eval.VariableMatches[name]
		if vm.Outcome != evaluator.OutcomeMissing {
			continue
		}
		actual := "NOT EXTRACTED"
		if vm.Actual != nil {
			actual = fmt.Sprintf("%v", vm.Actual)
		}
		lines = append(lines, fmt.Sprintf("%s: expected %v, got %s", name, vm.Expected, actual))
	}
	return strings.Join(lines, "\n")
}
