package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the content pipeline",
	Long:  "Execute every pipeline stage in dependency order, checkpointing after each one. A failed run can be resumed with --resume.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline()
	},
}

func registerRunCommand(root *cobra.Command) {
	root.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&resumeID, "resume", "r", "", "Run id of a checkpoint to resume from")
	runCmd.Flags().StringVar(&storeKind, "store", "file", "Checkpoint store backend (file or badger)")
	runCmd.Flags().BoolVar(&offline, "offline", false, "Use the built-in deterministic generator instead of the LLM")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
}

func runPipeline() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.newStore()
	if err != nil {
		return err
	}
	eng, err := a.newEngine(store, nil)
	if err != nil {
		return err
	}

	// Ctrl-C stops the run after the current stage; checkpoints stay
	// intact for --resume.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := eng.Run(ctx, resumeID)

	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return runErr
	}

	fmt.Printf("Run %s\n", report.RunID)
	fmt.Print(eng.Tracker().String())
	if runErr != nil {
		fmt.Printf("□ Pipeline failed: %v\n", runErr)
		fmt.Printf("  Resume with: pipewright run --resume %s\n", report.RunID)
		return runErr
	}
	fmt.Printf("✓ Pipeline complete (%d stages)\n", len(report.CompletedStages))
	fmt.Printf("  Outputs in %s\n", a.cfg.Paths.OutputDir)
	return nil
}
