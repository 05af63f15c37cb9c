package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/chimera"
)

func newTilesCmd() *cobra.Command {
	var problemPath, lattice, tile string
	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Partition a Chimera-structured problem into tiles",
		Long: `Labels the problem as a canonically indexed M,N,T Chimera lattice and
partitions it into tiles of rows,cols,shore cells, printing how many problem
variables land on each tile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, n, t, err := parseTriple(lattice)
			if err != nil {
				return fmt.Errorf("--lattice: %w", err)
			}
			rows, cols, shore, err := parseTriple(tile)
			if err != nil {
				return fmt.Errorf("--tile: %w", err)
			}
			data, err := readInput(cmd, problemPath)
			if err != nil {
				return err
			}
			var problem bqm.Model
			if err := json.Unmarshal(data, &problem); err != nil {
				return fmt.Errorf("parse problem: %w", err)
			}

			tiles, err := chimera.Tiles(&problem, chimera.IndexLabeler{M: m, N: n, T: t}, rows, cols, shore)
			if err != nil {
				return err
			}

			keys := slices.SortedFunc(maps.Keys(tiles), func(a, b chimera.Tile) int {
				return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col), cmp.Compare(a.Aisle, b.Aisle))
			})
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROW\tCOL\tAISLE\tVARIABLES")
			for _, k := range keys {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", k.Row, k.Col, k.Aisle, len(tiles[k]))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&problemPath, "problem", "p", "", `problem JSON file ("-" for stdin)`)
	cmd.Flags().StringVar(&lattice, "lattice", "", "Chimera lattice the problem is labelled on, as M,N,T")
	cmd.Flags().StringVar(&tile, "tile", "1,1,4", "tile size as rows,cols,shore")
	_ = cmd.MarkFlagRequired("problem")
	_ = cmd.MarkFlagRequired("lattice")
	return cmd
}
