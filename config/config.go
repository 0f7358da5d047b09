// Package config loads and validates PathwayTest manifests. Manifests follow
// the K8s apiVersion/kind/metadata/spec layout and are validated against a
// JSON schema before use.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/pathprobe/pathprobe/pkg/errors"
)

const componentName = "config"

// Manifest identity.
const (
	APIVersion      = "pathprobe.dev/v1alpha1"
	KindPathwayTest = "PathwayTest"
)

// Environment variables read by the tool.
const (
	EnvBlandAPIKey       = "BLAND_API_KEY"
	EnvOpenRouterAPIKey  = "OPENROUTER_API_KEY"
	EnvOpenRouterBaseURL = "OPENROUTER_BASE_URL"
)

// Defaults applied to unset spec fields.
const (
	DefaultModel              = "openai/gpt-4o-mini"
	DefaultProviderBaseURL    = "https://openrouter.ai/api/v1"
	DefaultPersonaCount       = 3
	DefaultOptionsPerVariable = 10
	DefaultMaxTurns           = 50
	DefaultConcurrency        = 1
	DefaultOutputDir          = "out"
	DefaultJUnitThreshold     = 80.0
)

// ObjectMeta is simplified K8s-style resource metadata.
type ObjectMeta struct {
	Name        string            `yaml:"name,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// PathwayTestConfig is a PathwayTest manifest.
type PathwayTestConfig struct {
	APIVersion string     `yaml:"apiVersion"`
	Kind       string     `yaml:"kind"`
	Metadata   ObjectMeta `yaml:"metadata,omitempty"`
	Spec       Spec       `yaml:"spec"`
}

// Spec configures one regression run.
type Spec struct {
	PathwayID    string           `yaml:"pathway_id"`
	Personas     PersonaSpec      `yaml:"personas,omitempty"`
	Conversation ConversationSpec `yaml:"conversation,omitempty"`
	Provider     ProviderSpec     `yaml:"provider,omitempty"`
	Cache        *CacheSpec       `yaml:"cache,omitempty"`
	Output       OutputSpec       `yaml:"output,omitempty"`
}

// PersonaSpec controls persona generation or reuse.
type PersonaSpec struct {
	// Count of personas to generate. Ignored when File is set.
	Count int `yaml:"count,omitempty"`

	// OptionsPerVariable is how many candidate values the provider generates
	// per pathway variable.
	OptionsPerVariable int `yaml:"options_per_variable,omitempty"`

	// File reuses a previously saved persona document instead of generating.
	File string `yaml:"file,omitempty"`
}

// ConversationSpec controls conversation execution.
type ConversationSpec struct {
	MaxTurns            int  `yaml:"max_turns,omitempty"`
	Concurrency         int  `yaml:"concurrency,omitempty"`
	DisableEndDetection bool `yaml:"disable_end_detection,omitempty"`
}

// ProviderSpec configures the persona LLM backend.
type ProviderSpec struct {
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// CacheSpec enables Redis-backed pathway structure caching.
type CacheSpec struct {
	RedisAddr string `yaml:"redis_addr"`
	Prefix    string `yaml:"prefix,omitempty"`
	TTL       string `yaml:"ttl,omitempty"`
}

// OutputSpec controls report generation.
type OutputSpec struct {
	Dir            string   `yaml:"dir,omitempty"`
	Formats        []string `yaml:"formats,omitempty"`
	JUnitThreshold float64  `yaml:"junit_threshold,omitempty"`
}

// manifestSchema validates the manifest after YAML decoding.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["apiVersion", "kind", "spec"],
  "properties": {
    "apiVersion": {"type": "string", "minLength": 1},
    "kind": {"type": "string", "minLength": 1},
    "metadata": {"type": "object"},
    "spec": {
      "type": "object",
      "required": ["pathway_id"],
      "properties": {
        "pathway_id": {"type": "string", "minLength": 1},
        "personas": {
          "type": "object",
          "properties": {
            "count": {"type": "integer", "minimum": 1},
            "options_per_variable": {"type": "integer", "minimum": 1},
            "file": {"type": "string"}
          }
        },
        "conversation": {
          "type": "object",
          "properties": {
            "max_turns": {"type": "integer", "minimum": 1},
            "concurrency": {"type": "integer", "minimum": 1},
            "disable_end_detection": {"type": "boolean"}
          }
        },
        "provider": {
          "type": "object",
          "properties": {
            "model": {"type": "string"},
            "base_url": {"type": "string"},
            "temperature": {"type": "number", "minimum": 0},
            "max_tokens": {"type": "integer", "minimum": 1}
          }
        },
        "cache": {
          "type": "object",
          "required": ["redis_addr"],
          "properties": {
            "redis_addr": {"type": "string", "minLength": 1},
            "prefix": {"type": "string"},
            "ttl": {"type": "string"}
          }
        },
        "output": {
          "type": "object",
          "properties": {
            "dir": {"type": "string"},
            "formats": {
              "type": "array",
              "items": {"enum": ["json", "markdown", "junit", "html"]}
            },
            "junit_threshold": {"type": "number", "minimum": 0, "maximum": 100}
          }
        }
      }
    }
  }
}`

// Load reads, validates, and defaults a PathwayTest manifest.
func Load(path string) (*PathwayTestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(componentName, "Load", err)
	}
	return Parse(data)
}

// Parse validates and defaults manifest bytes.
func Parse(data []byte) (*PathwayTestConfig, error) {
	if err := validateManifest(data); err != nil {
		return nil, errors.New(componentName, "Parse", err)
	}

	var cfg PathwayTestConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.New(componentName, "Parse", err)
	}

	if cfg.Kind != KindPathwayTest {
		return nil, errors.New(componentName, "Parse",
			fmt.Errorf("unsupported kind %q, expected %q", cfg.Kind, KindPathwayTest))
	}
	if cfg.APIVersion != APIVersion {
		return nil, errors.New(componentName, "Parse",
			fmt.Errorf("unsupported apiVersion %q, expected %q", cfg.APIVersion, APIVersion))
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// validateManifest converts YAML to JSON and runs the schema over it.
func validateManifest(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert to JSON: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("invalid manifest:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (c *PathwayTestConfig) applyDefaults() {
	spec := &c.Spec

	if spec.Personas.Count == 0 {
		spec.Personas.Count = DefaultPersonaCount
	}
	if spec.Personas.OptionsPerVariable == 0 {
		spec.Personas.OptionsPerVariable = DefaultOptionsPerVariable
	}
	if spec.Conversation.MaxTurns == 0 {
		spec.Conversation.MaxTurns = DefaultMaxTurns
	}
	if spec.Conversation.Concurrency == 0 {
		spec.Conversation.Concurrency = DefaultConcurrency
	}
	if spec.Provider.Model == "" {
		spec.Provider.Model = DefaultModel
	}
	if spec.Provider.BaseURL == "" {
		if env := os.Getenv(EnvOpenRouterBaseURL); env != "" {
			spec.Provider.BaseURL = env
		} else {
			spec.Provider.BaseURL = DefaultProviderBaseURL
		}
	}
	if spec.Output.Dir == "" {
		spec.Output.Dir = DefaultOutputDir
	}
	if len(spec.Output.Formats) == 0 {
		spec.Output.Formats = []string{"json", "markdown"}
	}
	if spec.Output.JUnitThreshold == 0 {
		spec.Output.JUnitThreshold = DefaultJUnitThreshold
	}
}

// ResolveFilePath resolves a possibly relative path against the directory the
// manifest was loaded from.
func ResolveFilePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
