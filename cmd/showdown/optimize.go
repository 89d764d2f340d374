package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
)

func newOptimizeCmd(root *rootOptions) *cobra.Command {
	var (
		flags  lineupFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Build the highest scoring lineup for a roster file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q (json or csv)", format)
			}
			cands, err := flags.candidates()
			if err != nil {
				return err
			}
			root.log.WithField("candidates", len(cands)).Info("Optimizing lineup")

			lineup, err := optimizer.Optimize(cmd.Context(), cands, flags.config(root.log))
			if err != nil {
				if lineup != nil {
					_ = writeJSON(cmd.OutOrStdout(), lineup)
				}
				return err
			}
			if format == "csv" {
				return writeLineupCSV(cmd.OutOrStdout(), lineup, flags.multiplier)
			}
			return writeJSON(cmd.OutOrStdout(), lineup)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or csv")
	return cmd
}

func newSweepCmd(root *rootOptions) *cobra.Command {
	var (
		flags   lineupFlags
		workers int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Force each player into the premium slot and solve the rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cands, err := flags.candidates()
			if err != nil {
				return err
			}
			cfg := flags.config(root.log)
			cfg.Workers = workers

			result, err := optimizer.Sweep(cmd.Context(), cands, cfg)
			if err != nil {
				return err
			}
			root.log.WithFields(logrus.Fields{
				"feasible":   result.Feasible,
				"infeasible": result.Infeasible,
			}).Info("Sweep complete")

			return writeJSON(cmd.OutOrStdout(), struct {
				*optimizer.SweepResult
				Best *optimizer.SweepEntry `json:"best"`
			}{result, result.Best()})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent sub-solves (0 for default)")
	return cmd
}

// writeLineupCSV writes one row per slot, premium first, with the points the
// slot actually scores.
func writeLineupCSV(w io.Writer, lineup *optimizer.Lineup, multiplier float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"slot", "name", "team", "position", "salary", "projected_points", "slot_points"}); err != nil {
		return err
	}
	row := func(slot string, c optimizer.Candidate, weight float64) []string {
		return []string{
			slot,
			c.Name,
			c.Team,
			c.Position,
			strconv.Itoa(c.Salary),
			strconv.FormatFloat(c.ProjectedPoints, 'f', 2, 64),
			strconv.FormatFloat(c.ProjectedPoints*weight, 'f', 2, 64),
		}
	}
	for _, p := range lineup.Premiums {
		if err := cw.Write(row("MVP", p, multiplier)); err != nil {
			return err
		}
	}
	for _, s := range lineup.Standards {
		if err := cw.Write(row("UTIL", s, 1)); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"TOTAL", "", "", "",
		strconv.FormatFloat(lineup.TotalCost, 'f', 0, 64), "",
		strconv.FormatFloat(lineup.TotalPoints, 'f', 2, 64)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
