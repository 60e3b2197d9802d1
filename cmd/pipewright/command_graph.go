package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contentsmith/pipewright/internal/dag"
	"github.com/contentsmith/pipewright/internal/pipeline"
	"github.com/contentsmith/pipewright/internal/render"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the stage graph",
	Long:  "Show the pipeline's stage dependency graph, or with --order the exact order the engine will execute.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showGraph()
	},
}

func registerGraphCommand(root *cobra.Command) {
	root.AddCommand(graphCmd)

	graphCmd.Flags().BoolVar(&orderView, "order", false, "Show execution order instead of the dependency tree")
}

func showGraph() error {
	nodes := make([]dag.Node, 0)
	for _, s := range pipeline.Stages(pipeline.Options{}) {
		nodes = append(nodes, dag.Node{Stage: s.ID, Dependencies: s.Dependencies, Description: s.Description})
	}
	def, err := dag.NewDefinition(nodes)
	if err != nil {
		return err
	}
	if ok, errs := def.Validate(); !ok {
		return fmt.Errorf("invalid stage graph: %v", errs)
	}

	viewer := render.NewGraphViewer(def)
	if orderView {
		fmt.Print(viewer.ViewOrder())
	} else {
		fmt.Print(viewer.ViewDAG())
	}
	return nil
}
