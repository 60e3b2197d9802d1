package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/contentsmith/pipewright/internal/dag"
	"github.com/contentsmith/pipewright/internal/loader"
	"github.com/contentsmith/pipewright/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config, product data and the stage graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateSetup()
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)
}

func validateSetup() error {
	cfg, err := loader.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	fmt.Printf("✓ Config: %s\n", configFile)

	failed := false
	for _, base := range []string{"product_data", "product_b_data"} {
		path, ok := findDataFile(cfg.Paths.DataDir, base)
		if !ok {
			fmt.Printf("□ Missing data file: %s/%s.{json,yaml,yml}\n", cfg.Paths.DataDir, base)
			failed = true
			continue
		}
		p, err := loader.LoadProduct(path)
		if err != nil {
			fmt.Printf("□ %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("✓ %s: %s\n", path, p.ProductName)
	}

	nodes := make([]dag.Node, 0)
	for _, s := range pipeline.Stages(pipeline.Options{}) {
		nodes = append(nodes, dag.Node{Stage: s.ID, Dependencies: s.Dependencies, Description: s.Description})
	}
	def, err := dag.NewDefinition(nodes)
	if err != nil {
		return err
	}
	if ok, errs := def.Validate(); !ok {
		for _, e := range errs {
			fmt.Printf("□ Graph: %s\n", e)
		}
		failed = true
	} else {
		fmt.Printf("✓ Stage graph: %d stages, no cycles\n", def.Len())
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	fmt.Println("✓ All checks passed")
	return nil
}

func findDataFile(dir, base string) (string, bool) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
