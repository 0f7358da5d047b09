package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pathprobe/pathprobe/evaluator"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/persona"
	"github.com/pathprobe/pathprobe/results"
	jsonrepo "github.com/pathprobe/pathprobe/results/json"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Re-evaluate saved conversation results",
	Long: `Evaluate scores a previously recorded set of conversations against a
persona file without re-running them. Useful after adjusting expected
values or when the original run was scored without pathway structure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resultsPath, _ := cmd.Flags().GetString("results")
		personasPath, _ := cmd.Flags().GetString("personas")
		outputDir, _ := cmd.Flags().GetString("out")
		skipStructure, _ := cmd.Flags().GetBool("no-structure")

		conversations, err := jsonrepo.LoadResults(resultsPath)
		if err != nil {
			return err
		}
		doc, err := persona.Load(personasPath)
		if err != nil {
			return err
		}

		var structures pathway.StructureSource
		if !skipStructure {
			structures = pathway.NewMemoryStructureCache(pathway.NewClient(""))
		}

		evaluations := evaluator.New(structures).EvaluateAll(ctx, conversations, doc.Personas)
		summary := evaluator.Summarize(evaluations)

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		run := &results.Run{
			RunID:       uuid.NewString(),
			PathwayID:   doc.PathwayID,
			PathwayName: doc.PathwayName,
			Timestamp:   time.Now(),
			Results:     conversations,
			Evaluations: evaluations,
			Summary:     summary,
		}
		if err := jsonrepo.NewRepository(outputDir).Save(run); err != nil {
			return err
		}

		printSummary(cmd, summary, outputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("results", filepath.Join("out", jsonrepo.ResultsFileName), "Saved conversation results file")
	evaluateCmd.Flags().String("personas", filepath.Join("out", personasFileName), "Persona file the conversations were run with")
	evaluateCmd.Flags().StringP("out", "o", "out", "Directory for the re-evaluated report")
	evaluateCmd.Flags().Bool("no-structure", false, "Score every expected variable instead of filtering by visited path")
}
