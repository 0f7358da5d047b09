// Package persona generates and stores synthetic caller personas for a
// pathway. Each persona carries a randomized personality and a goal holding
// the variable values it intends to communicate during a conversation.
package persona

import "time"

// Personality dimension options. A persona draws one value per dimension.
var (
	CommunicationStyles = []string{"Direct", "Verbose", "Hesitant", "Friendly", "Formal"}
	PatienceLevels      = []string{"Very Patient", "Patient", "Neutral", "Impatient", "Very Impatient"}
	TechSavviness       = []string{"Low", "Medium", "High"}
	Attitudes           = []string{"Cooperative", "Skeptical", "Enthusiastic", "Indifferent", "Difficult"}

	PrecisionLevels    = []string{"Very Precise", "Precise", "Average", "Imprecise", "Careless"}
	ErrorProneness     = []string{"Rarely Makes Mistakes", "Occasionally Makes Mistakes", "Often Makes Mistakes", "Frequently Needs Corrections"}
	DecisivenessLevels = []string{"Very Decisive", "Decisive", "Neutral", "Indecisive", "Frequently Changes Mind"}
	DetailOrientations = []string{"Highly Detail-Oriented", "Detail-Oriented", "Moderate", "Big Picture Only", "Overlooks Details"}
	ConsistencyLevels  = []string{"Very Consistent", "Consistent", "Somewhat Consistent", "Inconsistent", "Contradicts Themselves"}
)

// Personality describes how a persona behaves in conversation.
type Personality struct {
	CommunicationStyle string `json:"communication_style"`
	PatienceLevel      string `json:"patience_level"`
	TechSavviness      string `json:"tech_savviness"`
	Attitude           string `json:"attitude"`
	PrecisionLevel     string `json:"precision_level"`
	ErrorProne         string `json:"error_prone"`
	Decisiveness       string `json:"decisiveness"`
	DetailOrientation  string `json:"detail_orientation"`
	Consistency        string `json:"consistency"`
}

// CallContext describes who initiated the call and what it is about.
type CallContext struct {
	// Direction is "outbound" when the persona placed the call and
	// "inbound" when the persona received it.
	Direction     string `json:"direction"`
	EntityType    string `json:"entity_type"`
	EntityContext string `json:"entity_context"`
}

// Goal is what a persona is trying to accomplish in the conversation.
type Goal struct {
	// ExtractedVarsExpected maps pathway variable names to the values the
	// persona will communicate. These become the ground truth during
	// evaluation.
	ExtractedVarsExpected map[string]any `json:"extracted_vars_expected"`
	CallContext           CallContext    `json:"call_context"`
	TargetEndNode         string         `json:"target_end_node,omitempty"`
	TargetEndNodeID       string         `json:"target_end_node_id,omitempty"`
}

// Persona is a single synthetic caller.
type Persona struct {
	PersonaID   string      `json:"persona_id"`
	Personality Personality `json:"personality"`
	Goal        Goal        `json:"goal"`
}

// Document is the on-disk persona file format.
type Document struct {
	PathwayID     string    `json:"pathway_id"`
	PathwayName   string    `json:"pathway_name"`
	GeneratedAt   time.Time `json:"generated_at"`
	TotalPersonas int       `json:"total_personas"`
	Personas      []Persona `json:"personas"`
}
