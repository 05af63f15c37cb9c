package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seantiz/hades/internal/solver"
	"github.com/seantiz/hades/internal/workflow"
)

func newSolversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solvers",
		Short: "List the strategies workflows can name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tNAME\tPARAMS\tDESCRIPTION")
			for _, info := range solver.NewDefaultRegistry(nil).List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Kind, info.Name, strings.Join(info.Params, ","), info.Description)
			}
			return tw.Flush()
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow-file>",
		Short: "Check that a workflow document parses and builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			spec, err := workflow.Parse(data)
			if err != nil {
				return err
			}
			runnable, err := workflow.Build(spec, solver.NewDefaultRegistry(nil))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "workflow %q is valid: %s\n", spec.Name, runnable.Name())
			return nil
		},
	}
}
