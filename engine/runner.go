package engine

import (
	"context"

	"github.com/pathprobe/pathprobe/logger"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/persona"
	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/providers"
	"github.com/pathprobe/pathprobe/selfplay"
)

const componentName = "engine"

// DefaultMaxTurns bounds a conversation that never completes on its own.
const DefaultMaxTurns = 50

// silentProbe is sent when the service returns no assistant response for a
// single turn. A second consecutive silent turn ends the call instead, so a
// mute pathway cannot make the persona carry both sides of the conversation.
const silentProbe = "Hello? Are you still there?"

// UtteranceGenerator produces the persona's next message from the role-tagged
// history so far.
type UtteranceGenerator interface {
	Respond(ctx context.Context, p *persona.Persona, history []providers.Message) (string, error)
}

// RunOptions controls a single conversation.
type RunOptions struct {
	// MaxTurns caps persona turns. Zero means DefaultMaxTurns.
	MaxTurns int

	// DisableEndDetection stops the runner from treating hang-up tokens in
	// persona messages as terminal.
	DisableEndDetection bool

	// RequestData seeds pathway variables at chat creation.
	RequestData map[string]any
}

// Runner executes one conversation at a time against a pathway service.
type Runner struct {
	service   pathway.Service
	generator UtteranceGenerator
}

// NewRunner creates a conversation runner.
func NewRunner(service pathway.Service, generator UtteranceGenerator) *Runner {
	return &Runner{service: service, generator: generator}
}

// Run drives a full conversation for one persona and returns its result.
// The conversation advances through the phase machine: the service speaks,
// the persona answers, the exchange is sent, and the latest service response
// decides whether another round follows.
func (r *Runner) Run(ctx context.Context, p *persona.Persona, pathwayID string, opts RunOptions) (*ConversationResult, error) {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	logger.Info("🗣️ Starting conversation", "persona_id", p.PersonaID, "pathway_id", pathwayID)

	chatID, err := r.service.CreateChat(ctx, pathwayID, opts.RequestData)
	if err != nil {
		return nil, errors.New(componentName, "Run", err)
	}

	resp, err := r.service.SendMessage(ctx, chatID, "")
	if err != nil {
		return nil, errors.New(componentName, "Run", err)
	}

	var (
		history         []providers.Message
		conversationLog []ConversationLogEntry
		endReason       selfplay.EndReason
		turns           int
		silentTurns     int
	)

	ph := transition(phaseStarted, resp.Completed, false, turns, maxTurns)

	for ph == phaseUserTurn {
		turns++

		assistant := resp.AssistantResponses
		if len(assistant) == 0 {
			silentTurns++
		} else {
			silentTurns = 0
		}
		for _, a := range assistant {
			history = append(history, providers.Message{Role: "assistant", Content: a})
		}

		var userMessage string
		switch {
		case silentTurns >= 2:
			userMessage = selfplay.TokenEndCall
		case silentTurns == 1 && turns > 1:
			userMessage = silentProbe
		default:
			userMessage, err = r.generator.Respond(ctx, p, history)
			if err != nil {
				return nil, errors.New(componentName, "Run", err)
			}
		}
		history = append(history, providers.Message{Role: "user", Content: userMessage})

		ended := false
		if !opts.DisableEndDetection {
			if end, reason := selfplay.DetectEnd(userMessage); end {
				ended = true
				endReason = reason
				logger.Debug("Persona ended conversation", "persona_id", p.PersonaID, "reason", reason)
			}
		}

		ph = transition(ph, false, false, turns, maxTurns)

		resp, err = r.service.SendMessage(ctx, chatID, userMessage)
		if err != nil {
			return nil, errors.New(componentName, "Run", err)
		}

		if !ended {
			conversationLog = append(conversationLog, ConversationLogEntry{
				Turn:               turns,
				UserMessage:        userMessage,
				AssistantResponses: assistant,
				CurrentNode:        resp.CurrentNodeName,
			})
		}

		ph = transition(ph, resp.Completed, ended, turns, maxTurns)
	}

	if endReason == "" {
		switch {
		case resp.Completed:
			endReason = selfplay.EndPathwayCompleted
		case turns >= maxTurns:
			endReason = selfplay.EndMaxTurns
		}
	}

	logger.Info("🏁 Conversation ended",
		"persona_id", p.PersonaID,
		"end_reason", endReason,
		"completed", resp.Completed,
		"total_turns", turns,
		"final_node", resp.CurrentNodeName)

	return &ConversationResult{
		PersonaID:       p.PersonaID,
		ChatID:          chatID,
		PathwayID:       pathwayID,
		Completed:       resp.Completed,
		EndReason:       endReason,
		TotalTurns:      turns,
		FinalNode:       resp.CurrentNodeName,
		FinalVariables:  resp.Variables,
		ConversationLog: conversationLog,
		FullChatHistory: resp.ChatHistory,
	}, nil
}
