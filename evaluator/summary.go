package evaluator

import "github.com/pathprobe/pathprobe/selfplay"

// Verdict is the overall judgement for a batch of evaluations.
type Verdict string

const (
	VerdictPass             Verdict = "PASS"
	VerdictNeedsImprovement Verdict = "NEEDS IMPROVEMENT"
	VerdictFail             Verdict = "FAIL"
)

// Verdict thresholds, in percent.
const (
	passMatchThreshold      = 80.0
	passCompletionThreshold = 80.0
	improvementThreshold    = 50.0
)

// Summary aggregates a batch of evaluations into run-level statistics.
type Summary struct {
	TotalTests         int     `json:"total_tests"`
	Completed          int     `json:"completed"`
	CompletionRate     float64 `json:"completion_rate"`
	NaturalEndings     int     `json:"natural_endings"`
	FailedEndings      int     `json:"failed_endings"`
	AvgMatchPercentage float64 `json:"avg_match_percentage"`
	AvgTurns           float64 `json:"avg_turns"`
	Verdict            Verdict `json:"verdict"`
}

// Summarize computes run-level statistics and the verdict. The pathway passes
// when the average match rate and the completion rate both reach 80 percent;
// an average match rate of at least 50 percent downgrades to needs
// improvement instead of failing outright.
func Summarize(evaluations []*Evaluation) Summary {
	s := Summary{TotalTests: len(evaluations)}
	if s.TotalTests == 0 {
		s.Verdict = VerdictFail
		return s
	}

	var matchSum, turnSum float64
	for _, eval := range evaluations {
		if eval.PathwayCompleted {
			s.Completed++
		}
		switch eval.EndReason {
		case selfplay.EndUserNatural:
			s.NaturalEndings++
		case selfplay.EndUserUnsuccessful:
			s.FailedEndings++
		}
		matchSum += eval.MatchSummary.MatchPercentage
		turnSum += float64(eval.TotalTurns)
	}

	total := float64(s.TotalTests)
	s.CompletionRate = float64(s.Completed) / total * 100
	s.AvgMatchPercentage = matchSum / total
	s.AvgTurns = turnSum / total

	switch {
	case s.AvgMatchPercentage >= passMatchThreshold && s.CompletionRate >= passCompletionThreshold:
		s.Verdict = VerdictPass
	case s.AvgMatchPercentage >= improvementThreshold:
		s.Verdict = VerdictNeedsImprovement
	default:
		s.Verdict = VerdictFail
	}

	return s
}
