package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pathprobe/pathprobe/config"
	"github.com/pathprobe/pathprobe/engine"
	"github.com/pathprobe/pathprobe/evaluator"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/persona"
	"github.com/pathprobe/pathprobe/providers"
	"github.com/pathprobe/pathprobe/results"
	"github.com/pathprobe/pathprobe/selfplay"
)

const personasFileName = "personas.json"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pathway regression test",
	Long: `Run generates personas for the configured pathway, drives one
conversation per persona, evaluates variable extraction, and writes reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRegression(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "pathprobe.yaml", "PathwayTest manifest path")
	runCmd.Flags().String("pathway", "", "Override the pathway ID from the manifest")
	runCmd.Flags().IntP("personas", "n", 0, "Override the number of personas to generate")
	runCmd.Flags().IntP("concurrency", "j", 0, "Override the number of concurrent conversations")
	runCmd.Flags().StringP("out", "o", "", "Override the output directory")
	runCmd.Flags().Int("max-turns", 0, "Override the conversation turn limit")
	runCmd.Flags().Bool("ci", false, "Exit non-zero unless the verdict is PASS")

	_ = viper.BindPFlag("pathway", runCmd.Flags().Lookup("pathway"))
	_ = viper.BindPFlag("personas", runCmd.Flags().Lookup("personas"))
	_ = viper.BindPFlag("concurrency", runCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("out_dir", runCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("max_turns", runCmd.Flags().Lookup("max-turns"))
	_ = viper.BindPFlag("ci_mode", runCmd.Flags().Lookup("ci"))
}

// applyFlagOverrides lets CLI flags win over the manifest.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.PathwayTestConfig) {
	if cmd.Flags().Changed("pathway") {
		cfg.Spec.PathwayID = viper.GetString("pathway")
	}
	if cmd.Flags().Changed("personas") {
		cfg.Spec.Personas.Count = viper.GetInt("personas")
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Spec.Conversation.Concurrency = viper.GetInt("concurrency")
	}
	if cmd.Flags().Changed("out") {
		cfg.Spec.Output.Dir = viper.GetString("out_dir")
	}
	if cmd.Flags().Changed("max-turns") {
		cfg.Spec.Conversation.MaxTurns = viper.GetInt("max_turns")
	}
}

func runRegression(cmd *cobra.Command) error {
	ctx := cmd.Context()

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	baseDir := filepath.Dir(configFile)

	client := pathway.NewClient("")
	structures, cleanup, err := buildStructureSource(client, cfg.Spec.Cache)
	if err != nil {
		return err
	}
	defer cleanup()

	provider := buildProvider(cfg.Spec.Provider)

	if err := os.MkdirAll(cfg.Spec.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	personas, pathwayName, err := obtainPersonas(ctx, cfg, baseDir, structures, provider)
	if err != nil {
		return err
	}

	var genOpts []selfplay.GeneratorOption
	if cfg.Spec.Provider.Temperature > 0 {
		genOpts = append(genOpts, selfplay.WithTemperature(cfg.Spec.Provider.Temperature))
	}
	if cfg.Spec.Provider.MaxTokens > 0 {
		genOpts = append(genOpts, selfplay.WithMaxTokens(cfg.Spec.Provider.MaxTokens))
	}
	runner := engine.NewRunner(client, selfplay.NewGenerator(provider, genOpts...))

	batch := runner.RunAll(ctx, personas, cfg.Spec.PathwayID, cfg.Spec.Conversation.Concurrency, engine.RunOptions{
		MaxTurns:            cfg.Spec.Conversation.MaxTurns,
		DisableEndDetection: cfg.Spec.Conversation.DisableEndDetection,
	})

	eval := evaluator.New(structures)
	evaluations := eval.EvaluateAll(ctx, batch.Results, personas)
	summary := evaluator.Summarize(evaluations)

	failures := make(map[string]string, len(batch.Errors))
	for id, runErr := range batch.Errors {
		failures[id] = runErr.Error()
	}

	run := &results.Run{
		RunID:       uuid.NewString(),
		PathwayID:   cfg.Spec.PathwayID,
		PathwayName: pathwayName,
		ConfigFile:  configFile,
		Timestamp:   time.Now(),
		Results:     batch.Results,
		Evaluations: evaluations,
		Summary:     summary,
		Failures:    failures,
	}

	repo, err := buildRepositories(cfg.Spec.Output)
	if err != nil {
		return err
	}
	if err := repo.Save(run); err != nil {
		return err
	}

	printSummary(cmd, summary, cfg.Spec.Output.Dir)

	if viper.GetBool("ci_mode") && summary.Verdict != evaluator.VerdictPass {
		return fmt.Errorf("verdict %s", summary.Verdict)
	}
	return nil
}

// obtainPersonas loads a saved persona document when configured, otherwise
// generates fresh personas and saves them beside the other output.
func obtainPersonas(ctx context.Context, cfg *config.PathwayTestConfig, baseDir string, structures pathway.StructureSource, provider providers.Provider) ([]persona.Persona, string, error) {
	if cfg.Spec.Personas.File != "" {
		doc, err := persona.Load(config.ResolveFilePath(baseDir, cfg.Spec.Personas.File))
		if err != nil {
			return nil, "", err
		}
		if doc.PathwayID != cfg.Spec.PathwayID {
			return nil, "", fmt.Errorf("persona file is for pathway %q, not %q", doc.PathwayID, cfg.Spec.PathwayID)
		}
		return doc.Personas, doc.PathwayName, nil
	}

	factory, err := persona.NewFactory(ctx, cfg.Spec.PathwayID, structures, provider,
		persona.WithOptionsPerVariable(cfg.Spec.Personas.OptionsPerVariable))
	if err != nil {
		return nil, "", err
	}

	personas, err := factory.Generate(ctx, cfg.Spec.Personas.Count)
	if err != nil {
		return nil, "", err
	}

	doc := factory.Describe(personas)
	if err := persona.Save(doc, filepath.Join(cfg.Spec.Output.Dir, personasFileName)); err != nil {
		return nil, "", err
	}
	return personas, doc.PathwayName, nil
}

func printSummary(cmd *cobra.Command, s evaluator.Summary, outputDir string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTests: %d  Completed: %d (%.1f%%)\n", s.TotalTests, s.Completed, s.CompletionRate)
	fmt.Fprintf(out, "Natural endings: %d  Failed endings: %d\n", s.NaturalEndings, s.FailedEndings)
	fmt.Fprintf(out, "Avg match rate: %.1f%%  Avg turns: %.1f\n", s.AvgMatchPercentage, s.AvgTurns)
	fmt.Fprintf(out, "Verdict: %s\n", s.Verdict)
	fmt.Fprintf(out, "Reports written to %s\n", outputDir)
}
