package selfplay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pathprobe/pathprobe/persona"
	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/providers"
)

const componentName = "selfplay"

// Persona responses are short conversational turns, so the defaults keep the
// model terse but varied.
const (
	defaultTemperature = 0.8
	defaultMaxTokens   = 150
)

// Generator produces persona utterances from the conversation so far.
type Generator struct {
	provider    providers.Provider
	temperature float32
	maxTokens   int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) GeneratorOption {
	return func(g *Generator) {
		g.temperature = t
	}
}

// WithMaxTokens overrides the per-utterance token cap.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		g.maxTokens = n
	}
}

// NewGenerator creates a persona utterance generator backed by the provider.
func NewGenerator(provider providers.Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider:    provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Respond generates the persona's next utterance given the role-tagged
// history. The result is sanitized to a single line.
func (g *Generator) Respond(ctx context.Context, p *persona.Persona, history []providers.Message) (string, error) {
	resp, err := g.provider.Predict(ctx, providers.PredictionRequest{
		System:      BuildSystemPrompt(p),
		Messages:    history,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", errors.New(componentName, "Respond", err)
	}

	return SanitizeUtterance(resp.Content), nil
}

// BuildSystemPrompt assembles the roleplay prompt that keeps the model in the
// customer role, carrying the persona's personality, call context, goal
// values, and the hang-up token instructions.
func BuildSystemPrompt(p *persona.Persona) string {
	callCtx := p.Goal.CallContext

	var contextIntro string
	if callCtx.Direction == "inbound" {
		contextIntro = fmt.Sprintf(`Call Context:
- You are receiving this call (they contacted you)
- %s`, callCtx.EntityContext)
	} else {
		contextIntro = fmt.Sprintf(`Call Context:
- You are calling/contacting them (you initiated this interaction)
- %s`, callCtx.EntityContext)
	}

	goalJSON, err := json.MarshalIndent(p.Goal.ExtractedVarsExpected, "", "  ")
	if err != nil {
		goalJSON = []byte("{}")
	}

	return fmt.Sprintf(`You are roleplaying as a CUSTOMER in a conversation. You are calling or interacting with a business/service.

IMPORTANT: You are the CUSTOMER, not the business representative. Respond as someone who needs service.

%s

Personality:
- Communication Style: %s
- Patience Level: %s
- Tech Savviness: %s
- Attitude: %s
- Precision Level: %s
- Error Prone: %s
- Decisiveness: %s
- Detail Orientation: %s
- Consistency: %s

Your Goal:
You need to provide the following information during this conversation:
%s

Instructions:
- You are the CUSTOMER calling/chatting with a business
- Stay in character based on your personality traits
- Provide the information naturally when asked
- Respond naturally to questions - don't dump all information at once
- Keep responses conversational and realistic (1-2 sentences typically)
- Embody your personality traits in how you communicate
- DO NOT act as if you work for the business - you are seeking their service

Ending the conversation:
- When you successfully complete your goal and are satisfied, say "GOODBYE" to end naturally
- If you get frustrated, confused, or feel the conversation isn't going anywhere, say "END_CALL" to end unsuccessfully
- Use your personality traits to decide when to give up (impatient personas give up faster, patient ones persist longer)`,
		contextIntro,
		p.Personality.CommunicationStyle,
		p.Personality.PatienceLevel,
		p.Personality.TechSavviness,
		p.Personality.Attitude,
		p.Personality.PrecisionLevel,
		p.Personality.ErrorProne,
		p.Personality.Decisiveness,
		p.Personality.DetailOrientation,
		p.Personality.Consistency,
		string(goalJSON))
}
