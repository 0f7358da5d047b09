package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathprobe/pathprobe/logger"
)

var rootCmd = &cobra.Command{
	Use:           "pathprobe",
	Short:         "Regression testing for conversational pathways with synthetic personas",
	Version:       GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `pathprobe runs synthetic caller personas against a remote conversational
pathway and scores how well the pathway extracted the variables each persona
was instructed to communicate.

A run generates personas from the pathway definition, drives one conversation
per persona, evaluates variable extraction path-aware, and writes the results
in one or more report formats.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("verbose") {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting verbose flag: %v\n", err)
				return
			}
			logger.SetVerbose(verbose)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose debug logging")
}

func Execute() {
	rootCmd.SetVersionTemplate(GetVersionInfo() + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
