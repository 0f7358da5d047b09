// Package engine drives complete conversations between personas and a remote
// pathway. A runner executes one conversation as a small state machine; the
// batch executor fans personas out over a bounded worker pool.
package engine

import (
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/selfplay"
)

// ConversationLogEntry records one completed turn.
type ConversationLogEntry struct {
	Turn               int      `json:"turn"`
	UserMessage        string   `json:"user_message"`
	AssistantResponses []string `json:"assistant_responses"`
	CurrentNode        string   `json:"current_node"`
}

// ConversationResult is the full outcome of one persona conversation.
type ConversationResult struct {
	PersonaID       string                 `json:"persona_id"`
	ChatID          string                 `json:"chat_id"`
	PathwayID       string                 `json:"pathway_id"`
	Completed       bool                   `json:"completed"`
	EndReason       selfplay.EndReason     `json:"end_reason"`
	TotalTurns      int                    `json:"total_turns"`
	FinalNode       string                 `json:"final_node"`
	FinalVariables  map[string]any         `json:"final_variables"`
	ConversationLog []ConversationLogEntry `json:"conversation_log"`
	FullChatHistory []pathway.ChatMessage  `json:"full_chat_history"`
}

// phase is the runner's position in the conversation state machine.
type phase int

const (
	// phaseStarted: chat created, initial service response not yet requested.
	phaseStarted phase = iota
	// phaseUserTurn: the persona speaks next.
	phaseUserTurn
	// phaseAwaitService: a user message is ready to send to the service.
	phaseAwaitService
	// phaseDone: the conversation is over.
	phaseDone
)

// transition computes the next phase after a service response has been
// observed. Completion, a detected hang-up, and the turn limit all terminate
// the conversation.
func transition(p phase, completed, ended bool, turns, maxTurns int) phase {
	if completed || ended {
		return phaseDone
	}

	switch p {
	case phaseStarted, phaseAwaitService:
		if turns >= maxTurns {
			return phaseDone
		}
		return phaseUserTurn
	case phaseUserTurn:
		return phaseAwaitService
	default:
		return phaseDone
	}
}
