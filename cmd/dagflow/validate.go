package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/dagflow/dag"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a graph document and print its layers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vg, err := compile(args[0])
			if err != nil {
				return err
			}
			printLayers(cmd.OutOrStdout(), vg)
			return nil
		},
	}
}

func compile(path string) (*dag.ValidatedGraph, error) {
	doc, err := dag.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	vg, err := doc.Compile()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vg, nil
}

func printLayers(w io.Writer, vg *dag.ValidatedGraph) {
	g := vg.Graph()
	fmt.Fprintf(w, "%s: %d tasks, %d layers, policy %s\n", g.Name, vg.Len(), len(vg.Layers()), g.Policy)
	for i, layer := range vg.Layers() {
		cells := make([]string, 0, len(layer))
		for _, id := range layer {
			t, _ := vg.Task(id)
			cells = append(cells, fmt.Sprintf("%s [%s/%s]", id, t.Executor.Type, t.Decision.Kind))
		}
		fmt.Fprintf(w, "  %d: %s\n", i, strings.Join(cells, ", "))
	}
}
