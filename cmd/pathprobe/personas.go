package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathprobe/pathprobe/config"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Work with synthetic caller personas",
}

var personasGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate personas for a pathway and save them to a file",
	Long: `Generate fetches the pathway structure, infers the call context, and
builds randomized caller personas with goals drawn from the pathway's
extraction variables. The saved file can be reused across runs via the
manifest's personas.file field.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pathwayID, _ := cmd.Flags().GetString("pathway")
		count, _ := cmd.Flags().GetInt("count")
		optionsPerVariable, _ := cmd.Flags().GetInt("options")
		outputPath, _ := cmd.Flags().GetString("out")
		model, _ := cmd.Flags().GetString("model")

		if pathwayID == "" {
			return fmt.Errorf("--pathway is required")
		}

		client := pathway.NewClient("")
		provider := buildProvider(config.ProviderSpec{Model: model})

		factory, err := persona.NewFactory(ctx, pathwayID, pathway.NewMemoryStructureCache(client), provider,
			persona.WithOptionsPerVariable(optionsPerVariable))
		if err != nil {
			return err
		}

		personas, err := factory.Generate(ctx, count)
		if err != nil {
			return err
		}

		doc := factory.Describe(personas)
		if err := persona.Save(doc, outputPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d personas for pathway %q to %s\n", doc.TotalPersonas, pathwayID, outputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(personasCmd)
	personasCmd.AddCommand(personasGenerateCmd)

	personasGenerateCmd.Flags().StringP("pathway", "p", "", "Pathway ID to generate personas for")
	personasGenerateCmd.Flags().IntP("count", "n", config.DefaultPersonaCount, "Number of personas to generate")
	personasGenerateCmd.Flags().Int("options", config.DefaultOptionsPerVariable, "Candidate values per extraction variable")
	personasGenerateCmd.Flags().StringP("out", "o", personasFileName, "Output file path")
	personasGenerateCmd.Flags().String("model", config.DefaultModel, "Model for context inference and option generation")
}
