// Package selfplay turns a persona into conversation turns. It builds the
// persona's roleplay prompt, generates utterances through a provider, strips
// transcript artifacts from model output, and recognizes the tokens a persona
// uses to hang up.
package selfplay

import (
	"regexp"
	"strings"
)

// Tokens a persona emits to end the conversation.
const (
	TokenEndCall = "END_CALL"
	TokenGoodbye = "GOODBYE"
)

// FallbackUtterance replaces an empty persona response so the conversation
// always advances.
const FallbackUtterance = "Sorry, could you repeat that?"

// EndReason explains why a conversation stopped.
type EndReason string

const (
	// EndUserUnsuccessful means the persona gave up.
	EndUserUnsuccessful EndReason = "user_ended_call_unsuccessfully"
	// EndUserNatural means the persona completed its goal and hung up.
	EndUserNatural EndReason = "user_ended_call_naturally"
	// EndPathwayCompleted means the service marked the pathway finished.
	EndPathwayCompleted EndReason = "pathway_completed"
	// EndMaxTurns means the turn limit was reached first.
	EndMaxTurns EndReason = "max_turns_reached"
)

// speakerPrefix matches transcript-style speaker labels the persona model may
// hallucinate at the start of an utterance.
var speakerPrefix = regexp.MustCompile(`(?i)^\s*(user|assistant|\(bland\)\s*assistant)\s*:\s*`)

// SanitizeUtterance reduces raw model output to a single customer utterance.
// It keeps only the first non-empty line and strips any leading speaker
// label. Empty input yields FallbackUtterance.
func SanitizeUtterance(message string) string {
	cleaned := strings.TrimSpace(message)
	if cleaned == "" {
		return FallbackUtterance
	}

	firstLine := cleaned
	for _, line := range strings.Split(cleaned, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}

	firstLine = speakerPrefix.ReplaceAllString(firstLine, "")
	firstLine = strings.TrimSpace(firstLine)
	if firstLine == "" {
		return FallbackUtterance
	}
	return firstLine
}

// DetectEnd reports whether a persona utterance ends the conversation.
// END_CALL takes precedence over GOODBYE when both appear.
func DetectEnd(message string) (bool, EndReason) {
	upper := strings.ToUpper(message)

	if strings.Contains(upper, TokenEndCall) {
		return true, EndUserUnsuccessful
	}
	if strings.Contains(upper, TokenGoodbye) {
		return true, EndUserNatural
	}
	return false, ""
}
