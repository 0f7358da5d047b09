package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pathprobe/pathprobe/logger"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/providers"
)

const (
	componentName              = "persona"
	defaultOptionsPerVariable  = 10
	contextInferencePromptsCap = 3
)

// defaultCallContext is used when call direction cannot be inferred.
var defaultCallContext = CallContext{
	Direction:     "outbound",
	EntityType:    "business",
	EntityContext: "You are contacting a business or service.",
}

// variableInfo is a pathway variable paired with the node that declares it.
type variableInfo struct {
	pathway.ExtractVar
	NodeID   string
	NodeName string
}

// endNode is an End Call node a persona can target.
type endNode struct {
	ID     string
	Name   string
	Prompt string
}

// Factory generates personas for a pathway. It fetches the pathway structure
// once, infers call context and variable value options through the provider,
// then assembles personas with randomized personalities.
type Factory struct {
	pathwayID  string
	structures pathway.StructureSource
	provider   providers.Provider

	optionsPerVariable int
	rng                *rand.Rand

	structure *pathway.Structure
	variables []variableInfo
	endNodes  []endNode
	callCtx   CallContext
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithOptionsPerVariable sets how many candidate values the provider is asked
// to generate for each pathway variable.
func WithOptionsPerVariable(n int) FactoryOption {
	return func(f *Factory) {
		if n > 0 {
			f.optionsPerVariable = n
		}
	}
}

// WithRand sets the random source. Tests use a seeded source for
// deterministic personalities.
func WithRand(rng *rand.Rand) FactoryOption {
	return func(f *Factory) {
		f.rng = rng
	}
}

// NewFactory prepares a persona factory for the given pathway. It fetches the
// pathway structure, collects its variables and End Call nodes, and infers
// the call context.
func NewFactory(ctx context.Context, pathwayID string, structures pathway.StructureSource, provider providers.Provider, opts ...FactoryOption) (*Factory, error) {
	f := &Factory{
		pathwayID:          pathwayID,
		structures:         structures,
		provider:           provider,
		optionsPerVariable: defaultOptionsPerVariable,
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(f)
	}

	structure, err := structures.FetchStructure(ctx, pathwayID)
	if err != nil {
		return nil, errors.New(componentName, "NewFactory", err)
	}
	f.structure = structure
	f.parseStructure()
	f.warnSemanticDuplicates()
	f.callCtx = f.inferCallContext(ctx)

	return f, nil
}

// parseStructure collects declared variables and End Call nodes. Variables
// are deduplicated by name, case-insensitive, keeping the first declaration.
func (f *Factory) parseStructure() {
	seen := make(map[string]struct{})
	for _, node := range f.structure.Nodes {
		for _, v := range node.Data.ExtractVars {
			key := strings.ToLower(v.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			f.variables = append(f.variables, variableInfo{
				ExtractVar: v,
				NodeID:     node.ID,
				NodeName:   node.Data.Name,
			})
		}
		if node.IsEndCall() {
			f.endNodes = append(f.endNodes, endNode{
				ID:     node.ID,
				Name:   node.Data.Name,
				Prompt: node.Data.Prompt,
			})
		}
	}
}

// semanticDuplicatePairs are variable name pairs that commonly describe the
// same information under different names.
var semanticDuplicatePairs = [][2]string{
	{"fullname", "name"},
	{"firstname", "name"},
	{"phonenumber", "phone"},
	{"emailaddress", "email"},
}

func (f *Factory) warnSemanticDuplicates() {
	names := make(map[string]struct{}, len(f.variables))
	for _, v := range f.variables {
		names[strings.ToLower(v.Name)] = struct{}{}
	}

	for _, pair := range semanticDuplicatePairs {
		_, a := names[pair[0]]
		_, b := names[pair[1]]
		if a && b {
			logger.Warn("⚠️ Potential semantic duplicate variables detected",
				"var1", pair[0],
				"var2", pair[1],
				"pathway_id", f.pathwayID)
		}
	}
}

// inferCallContext asks the provider who initiated the call based on the
// pathway name and the prompts of its first nodes. Any failure falls back to
// a safe outbound default.
func (f *Factory) inferCallContext(ctx context.Context) CallContext {
	var prompts []string
	for _, node := range f.structure.Nodes {
		if len(prompts) >= contextInferencePromptsCap {
			break
		}
		if node.Data.Prompt != "" {
			prompts = append(prompts, node.Data.Prompt)
		}
	}

	promptsJSON, err := json.MarshalIndent(prompts, "", "  ")
	if err != nil {
		return defaultCallContext
	}

	prompt := fmt.Sprintf(`Analyze who INITIATED this phone call.

Pathway Name: %s
AI Assistant Prompts:
%s

WHO STARTED THE CALL?

If you see these phrases, the PERSONA called the business:
✓ "thank you for calling"
✓ "thanks for calling"
✓ "they have called"
✓ "how can I help you today"
→ Answer: "outbound" (persona called them)

If you see these phrases, the BUSINESS called the persona:
✓ "I'm calling about"
✓ "is this [name]?"
✓ "calling to inform"
→ Answer: "inbound" (they called persona)

Return JSON:
{
  "direction": "outbound" or "inbound",
  "entity_type": "business type (e.g., reception, restaurant, bank)",
  "entity_context": "what this call is about (1 sentence)"
}`, f.structure.Name, string(promptsJSON))

	resp, err := f.provider.Predict(ctx, providers.PredictionRequest{
		Messages: []providers.Message{{Role: "user", Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		logger.Warn("Could not determine call context, using default", "error", err)
		return defaultCallContext
	}

	var callCtx CallContext
	if err := json.Unmarshal([]byte(resp.Content), &callCtx); err != nil {
		logger.Warn("Could not parse call context response, using default", "error", err)
		return defaultCallContext
	}
	if callCtx.Direction != "inbound" && callCtx.Direction != "outbound" {
		logger.Warn("Call context direction unrecognized, using default", "direction", callCtx.Direction)
		return defaultCallContext
	}

	return callCtx
}

// generateVariableOptions asks the provider for realistic candidate values
// for every pathway variable in a single call.
func (f *Factory) generateVariableOptions(ctx context.Context) (map[string][]any, error) {
	if len(f.variables) == 0 {
		return map[string][]any{}, nil
	}

	type varSpec struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	specs := make([]varSpec, 0, len(f.variables))
	for _, v := range f.variables {
		specs = append(specs, varSpec{Name: v.Name, Type: v.Type, Description: v.Description})
	}
	specsJSON, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return nil, errors.New(componentName, "generateVariableOptions", err)
	}

	prompt := fmt.Sprintf(`You are generating realistic test data for variables in a conversation pathway.

For each variable below, generate %d diverse, realistic options that someone might use in a real conversation.

Variables:
%s

Return a JSON object where each key is the variable name and each value is an array of %d realistic options.

IMPORTANT:
- Use reasonable values based on context
- Be creative and diverse with the options

Return ONLY valid JSON, no additional text.`, f.optionsPerVariable, string(specsJSON), f.optionsPerVariable)

	resp, err := f.provider.Predict(ctx, providers.PredictionRequest{
		Messages: []providers.Message{{Role: "user", Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, errors.New(componentName, "generateVariableOptions", err)
	}

	var options map[string][]any
	if err := json.Unmarshal([]byte(resp.Content), &options); err != nil {
		return nil, errors.New(componentName, "generateVariableOptions",
			fmt.Errorf("decode variable options: %w", err))
	}

	return options, nil
}

func (f *Factory) generatePersonality() Personality {
	pick := func(options []string) string {
		return options[f.rng.Intn(len(options))]
	}
	return Personality{
		CommunicationStyle: pick(CommunicationStyles),
		PatienceLevel:      pick(PatienceLevels),
		TechSavviness:      pick(TechSavviness),
		Attitude:           pick(Attitudes),
		PrecisionLevel:     pick(PrecisionLevels),
		ErrorProne:         pick(ErrorProneness),
		Decisiveness:       pick(DecisivenessLevels),
		DetailOrientation:  pick(DetailOrientations),
		Consistency:        pick(ConsistencyLevels),
	}
}

func (f *Factory) generateGoal(options map[string][]any) Goal {
	expected := make(map[string]any)
	for _, v := range f.variables {
		candidates := options[v.Name]
		if len(candidates) == 0 {
			continue
		}
		expected[v.Name] = candidates[f.rng.Intn(len(candidates))]
	}

	goal := Goal{
		ExtractedVarsExpected: expected,
		CallContext:           f.callCtx,
	}
	if len(f.endNodes) > 0 {
		target := f.endNodes[f.rng.Intn(len(f.endNodes))]
		goal.TargetEndNode = target.Name
		goal.TargetEndNodeID = target.ID
	}
	return goal
}

// Generate produces n personas. Variable value options are generated once and
// shared across all of them.
func (f *Factory) Generate(ctx context.Context, n int) ([]Persona, error) {
	logger.Info("🧪 Generating variable options", "pathway_id", f.pathwayID, "variables", len(f.variables))
	options, err := f.generateVariableOptions(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("✅ Variable options generated", "variables", len(options))

	personas := make([]Persona, 0, n)
	for i := 0; i < n; i++ {
		personas = append(personas, Persona{
			PersonaID:   uuid.NewString(),
			Personality: f.generatePersonality(),
			Goal:        f.generateGoal(options),
		})
	}
	return personas, nil
}

// Describe returns the document wrapper for a generated persona set.
func (f *Factory) Describe(personas []Persona) *Document {
	return &Document{
		PathwayID:     f.pathwayID,
		PathwayName:   f.structure.Name,
		GeneratedAt:   time.Now(),
		TotalPersonas: len(personas),
		Personas:      personas,
	}
}

// CallContext returns the inferred call context for the pathway.
func (f *Factory) CallContext() CallContext {
	return f.callCtx
}
