package persona

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		PathwayID:     "pw-1",
		PathwayName:   "Appointment Booking",
		GeneratedAt:   time.Now().UTC(),
		TotalPersonas: 1,
		Personas: []Persona{
			{
				PersonaID: "abc-123",
				Personality: Personality{
					CommunicationStyle: "Direct",
					PatienceLevel:      "Patient",
					TechSavviness:      "High",
					Attitude:           "Cooperative",
					PrecisionLevel:     "Precise",
					ErrorProne:         "Rarely Makes Mistakes",
					Decisiveness:       "Decisive",
					DetailOrientation:  "Detail-Oriented",
					Consistency:        "Consistent",
				},
				Goal: Goal{
					ExtractedVarsExpected: map[string]any{"name": "Alice Smith"},
					CallContext: CallContext{
						Direction:     "outbound",
						EntityType:    "dental office",
						EntityContext: "Booking an appointment.",
					},
					TargetEndNode: "Booked",
				},
			},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.json")

	require.NoError(t, Save(sampleDocument(), path))

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pw-1", doc.PathwayID)
	require.Len(t, doc.Personas, 1)
	assert.Equal(t, "abc-123", doc.Personas[0].PersonaID)
	assert.Equal(t, "Alice Smith", doc.Personas[0].Goal.ExtractedVarsExpected["name"])
	assert.Equal(t, "outbound", doc.Personas[0].Goal.CallContext.Direction)
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"personas": []}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pathway_id")
}

func TestLoadRejectsBadDirection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad-direction.json")
	raw := `{
		"pathway_id": "pw-1",
		"total_personas": 1,
		"personas": [{
			"persona_id": "p1",
			"personality": {
				"communication_style": "Direct", "patience_level": "Patient",
				"tech_savviness": "High", "attitude": "Cooperative",
				"precision_level": "Precise", "error_prone": "Rarely Makes Mistakes",
				"decisiveness": "Decisive", "detail_orientation": "Moderate",
				"consistency": "Consistent"
			},
			"goal": {
				"extracted_vars_expected": {},
				"call_context": {"direction": "sideways"}
			}
		}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direction")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
