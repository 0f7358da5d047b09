package selfplay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathprobe/pathprobe/persona"
	"github.com/pathprobe/pathprobe/providers"
)

func TestSanitizeUtterance(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "I'd like to book an appointment.", "I'd like to book an appointment."},
		{"empty", "", FallbackUtterance},
		{"whitespace only", "   \n\t  ", FallbackUtterance},
		{"strips user label", "User: hi", "hi"},
		{"strips assistant label", "Assistant: hello there", "hello there"},
		{"strips bland assistant label", "(Bland) Assistant: welcome", "welcome"},
		{"label case-insensitive", "USER: yes please", "yes please"},
		{"keeps first line only", "User: hi\nAssistant: how can I help?\nUser: I need a table", "hi"},
		{"skips leading blank lines", "\n\n  my name is Alice  \nsecond line", "my name is Alice"},
		{"label with only whitespace after", "User:   ", FallbackUtterance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeUtterance(tt.in))
		})
	}
}

func TestDetectEnd(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantEnd    bool
		wantReason EndReason
	}{
		{"end call token", "please END_CALL now", true, EndUserUnsuccessful},
		{"goodbye token", "ok GOODBYE", true, EndUserNatural},
		{"end call wins over goodbye", "GOODBYE then END_CALL", true, EndUserUnsuccessful},
		{"lowercase tokens", "goodbye!", true, EndUserNatural},
		{"no token", "see you later", false, ""},
		{"empty", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, reason := DetectEnd(tt.in)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func testPersona() *persona.Persona {
	return &persona.Persona{
		PersonaID: "p-1",
		Personality: persona.Personality{
			CommunicationStyle: "Direct",
			PatienceLevel:      "Impatient",
			TechSavviness:      "High",
			Attitude:           "Cooperative",
			PrecisionLevel:     "Precise",
			ErrorProne:         "Rarely Makes Mistakes",
			Decisiveness:       "Decisive",
			DetailOrientation:  "Moderate",
			Consistency:        "Consistent",
		},
		Goal: persona.Goal{
			ExtractedVarsExpected: map[string]any{
				"name":  "Alice Smith",
				"phone": "555-0100",
			},
			CallContext: persona.CallContext{
				Direction:     "outbound",
				EntityContext: "Booking a dental appointment.",
			},
		},
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(testPersona())

	assert.Contains(t, prompt, "roleplaying as a CUSTOMER")
	assert.Contains(t, prompt, "You are calling/contacting them (you initiated this interaction)")
	assert.Contains(t, prompt, "Booking a dental appointment.")
	assert.Contains(t, prompt, "- Communication Style: Direct")
	assert.Contains(t, prompt, "- Patience Level: Impatient")
	assert.Contains(t, prompt, `"name": "Alice Smith"`)
	assert.Contains(t, prompt, `say "GOODBYE" to end naturally`)
	assert.Contains(t, prompt, `say "END_CALL" to end unsuccessfully`)
}

func TestBuildSystemPromptInbound(t *testing.T) {
	p := testPersona()
	p.Goal.CallContext.Direction = "inbound"

	prompt := BuildSystemPrompt(p)
	assert.Contains(t, prompt, "You are receiving this call (they contacted you)")
	assert.NotContains(t, prompt, "you initiated this interaction")
}

func TestGeneratorRespond(t *testing.T) {
	mock := providers.NewMockProvider("mock", "User: Hi, I'd like to book.\nextra line")
	g := NewGenerator(mock, WithTemperature(0.5), WithMaxTokens(99))

	history := []providers.Message{
		{Role: "assistant", Content: "Thank you for calling, how can I help?"},
	}
	got, err := g.Respond(context.Background(), testPersona(), history)
	require.NoError(t, err)

	// Speaker label and trailing lines are stripped.
	assert.Equal(t, "Hi, I'd like to book.", got)

	require.Len(t, mock.Requests, 1)
	req := mock.Requests[0]
	assert.Contains(t, req.System, "roleplaying as a CUSTOMER")
	assert.Equal(t, history, req.Messages)
	assert.InDelta(t, 0.5, req.Temperature, 0.001)
	assert.Equal(t, 99, req.MaxTokens)
}

func TestGeneratorRespondEmptyModelOutput(t *testing.T) {
	g := NewGenerator(providers.NewMockProvider("mock", "   "))

	got, err := g.Respond(context.Background(), testPersona(), nil)
	require.NoError(t, err)
	assert.Equal(t, FallbackUtterance, got)
}
