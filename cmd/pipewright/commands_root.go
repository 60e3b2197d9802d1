package main

import "github.com/spf13/cobra"

var (
	configFile string
	dataDir    string
	outputDir  string
	stateDir   string
	storeKind  string
	offline    bool
	jsonOutput bool
	resumeID   string
	serveAddr  string
	orderView  bool
)

var rootCmd = &cobra.Command{
	Use:   "pipewright",
	Short: "Content pipeline engine: product data → validated page documents",
	Long:  "pipewright runs a checkpointed content generation pipeline: deterministic logic blocks plus validated LLM generation, resumable after failure.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "pipewright.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Product data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "Output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Checkpoint directory (overrides config)")

	registerRunCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerGraphCommand(rootCmd)
	registerServeCommand(rootCmd)
}
