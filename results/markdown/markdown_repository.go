// Package markdown renders a run as a human-readable Markdown report.
package markdown

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pathprobe/pathprobe/evaluator"
	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/results"
)

const componentName = "results/markdown"

// Repository writes the Markdown report to a single file.
type Repository struct {
	outputPath string
}

// NewRepository creates a Markdown repository writing to outputPath.
func NewRepository(outputPath string) *Repository {
	return &Repository{outputPath: outputPath}
}

// Save renders and writes the report.
func (r *Repository) Save(run *results.Run) error {
	if err := os.WriteFile(r.outputPath, []byte(Render(run)), 0o644); err != nil {
		return errors.New(componentName, "Save", err).
			WithDetails(map[string]any{"path": r.outputPath})
	}
	return nil
}

func verdictBadge(v evaluator.Verdict) string {
	switch v {
	case evaluator.VerdictPass:
		return "✅ PASS"
	case evaluator.VerdictNeedsImprovement:
		return "⚠️ NEEDS IMPROVEMENT"
	default:
		return "❌ FAIL"
	}
}

func matchBadge(pct float64) string {
	switch {
	case pct >= 80:
		return "✅"
	case pct >= 50:
		return "⚠️"
	default:
		return "❌"
	}
}

// Render produces the Markdown report for a run. The HTML repository renders
// this same document through a Markdown engine.
func Render(run *results.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Pathway Regression Report\n\n")
	fmt.Fprintf(&b, "**Pathway:** %s (`%s`)  \n", run.PathwayName, run.PathwayID)
	fmt.Fprintf(&b, "**Generated:** %s  \n", run.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "**Verdict:** %s\n\n", verdictBadge(run.Summary.Verdict))

	s := run.Summary
	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total tests | %d |\n", s.TotalTests)
	fmt.Fprintf(&b, "| Completed | %d/%d (%.1f%%) |\n", s.Completed, s.TotalTests, s.CompletionRate)
	fmt.Fprintf(&b, "| Natural endings | %d |\n", s.NaturalEndings)
	fmt.Fprintf(&b, "| Failed endings | %d |\n", s.FailedEndings)
	fmt.Fprintf(&b, "| Avg match rate | %.1f%% |\n", s.AvgMatchPercentage)
	fmt.Fprintf(&b, "| Avg turns | %.1f |\n\n", s.AvgTurns)

	if len(run.Failures) > 0 {
		fmt.Fprintf(&b, "## Aborted Conversations\n\n")
		ids := make([]string, 0, len(run.Failures))
		for id := range run.Failures {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "- `%s`: %s\n", id, run.Failures[id])
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Personas\n\n")
	for i, eval := range run.Evaluations {
		ms := eval.MatchSummary
		fmt.Fprintf(&b, "### %s Persona %d (`%s`)\n\n", matchBadge(ms.MatchPercentage), i+1, eval.PersonaID)
		fmt.Fprintf(&b, "- Match: %.1f%% (%d/%d matched, %d partial)\n",
			ms.MatchPercentage, ms.TotalMatched, ms.TotalExpected, ms.TotalPartial)
		fmt.Fprintf(&b, "- End reason: %s\n", eval.EndReason)
		fmt.Fprintf(&b, "- Turns: %d\n", eval.TotalTurns)
		if len(eval.VisitedNodes) > 0 {
			fmt.Fprintf(&b, "- Path: %s\n", strings.Join(eval.VisitedNodes, " > "))
		}
		if ms.TotalNotOnPath > 0 {
			fmt.Fprintf(&b, "- %d variable(s) not required for the path taken\n", ms.TotalNotOnPath)
		}

		if ms.TotalMissing > 0 {
			fmt.Fprintf(&b, "\nMissing variables expected on this path:\n\n")
			names := make([]string, 0, len(eval.VariableMatches))
			for name := range eval.VariableMatches {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				vm := eval.VariableMatches[name]
				if vm.Outcome != evaluator.OutcomeMissing {
					continue
				}
				actual := "NOT EXTRACTED"
				if vm.Actual != nil {
					actual = fmt.Sprintf("%v", vm.Actual)
				}
				fmt.Fprintf(&b, "- `%s`: expected `%v`, got `%s`\n", name, vm.Expected, actual)
			}
		}
		fmt.Fprintf(&b, "\n")
	}

	return b.String()
}
