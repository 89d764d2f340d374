package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/pkg/logger"
)

type rootOptions struct {
	logLevel string
	quiet    bool
	log      *logrus.Entry
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "showdown",
		Short: "MLB showdown lineup optimizer and over/under model",
		Long: `showdown builds salary-capped MLB showdown lineups (one MVP scored at
1.5x plus five utility players), sweeps every MVP choice and trains or
queries the over/under run total model, all from local files.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.quiet {
				opts.log = logger.Discard()
				return
			}
			logger.InitLogger(opts.logLevel, true)
			opts.log = logger.WithService("showdown-cli")
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress log output")

	cmd.AddCommand(
		newOptimizeCmd(opts),
		newSweepCmd(opts),
		newTrainCmd(opts),
		newPredictCmd(opts),
		newTokenCmd(),
	)
	return cmd
}

// lineupFlags are shared by optimize and sweep.
type lineupFlags struct {
	csvPath    string
	budget     int
	multiplier float64
	premium    int
	standard   int
	maxNodes   int
}

func (f *lineupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "Roster CSV (date,name,salary,fppg[,team,position,games_played,active])")
	cmd.Flags().IntVar(&f.budget, "budget", optimizer.DefaultBudget, "Salary budget")
	cmd.Flags().Float64Var(&f.multiplier, "multiplier", optimizer.DefaultPremiumMultiplier, "Premium slot multiplier")
	cmd.Flags().IntVar(&f.premium, "premium", optimizer.DefaultPremiumCount, "Premium slots")
	cmd.Flags().IntVar(&f.standard, "standard", optimizer.DefaultStandardCount, "Standard slots")
	cmd.Flags().IntVar(&f.maxNodes, "max-nodes", 0, "Branch-and-bound node limit (0 for default)")
	_ = cmd.MarkFlagRequired("csv")
}

func (f *lineupFlags) config(log *logrus.Entry) optimizer.Config {
	return optimizer.Config{
		Budget:            f.budget,
		PremiumMultiplier: f.multiplier,
		PremiumCount:      f.premium,
		StandardCount:     f.standard,
		MaxNodes:          f.maxNodes,
		Logger:            log,
	}
}

// candidates reads the roster file. Inactive players are left out, as the
// API does for a stored slate.
func (f *lineupFlags) candidates() ([]optimizer.Candidate, error) {
	file, err := os.Open(f.csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer file.Close()

	entries, err := services.ParseRosterCSV(file)
	if err != nil {
		return nil, err
	}
	active := entries[:0]
	for _, e := range entries {
		if e.Active {
			active = append(active, e)
		}
	}
	return models.Candidates(active), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
