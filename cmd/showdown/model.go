package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/dfs-showdown/internal/api/middleware"
	"github.com/stitts-dev/dfs-showdown/internal/overunder"
)

func newTrainCmd(root *rootOptions) *cobra.Command {
	var (
		samples int
		seed    int64
		trees   int
		out     string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the over/under model on synthetic games and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if samples <= 0 {
				return fmt.Errorf("samples must be positive")
			}
			cfg := overunder.DefaultModelConfig()
			if trees > 0 {
				cfg.Trees = trees
			}
			cfg.Seed = seed

			model := overunder.NewModel(cfg).WithLogger(root.log)
			report, err := model.Train(cmd.Context(), overunder.SyntheticSamples(samples, seed))
			if err != nil {
				return err
			}
			if err := model.Save(out); err != nil {
				return err
			}
			root.log.WithField("path", out).Info("Model saved")
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 1000, "Synthetic games to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().IntVar(&trees, "trees", 0, "Trees in the forest (0 for default)")
	cmd.Flags().StringVar(&out, "out", "over_under_model.json", "Model output path")
	return cmd
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	var (
		modelPath string
		f         = overunder.DefaultGameFeatures()
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the combined run total for one game",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := overunder.LoadModel(modelPath)
			if err != nil {
				return err
			}
			pred, err := model.WithLogger(root.log).Predict(f)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Features overunder.GameFeatures `json:"features"`
				overunder.Prediction
			}{f, pred})
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "over_under_model.json", "Trained model path")
	cmd.Flags().Float64Var(&f.HomeAvgRuns, "home-runs", f.HomeAvgRuns, "Home team runs per game")
	cmd.Flags().Float64Var(&f.AwayAvgRuns, "away-runs", f.AwayAvgRuns, "Away team runs per game")
	cmd.Flags().Float64Var(&f.HomeERA, "home-era", f.HomeERA, "Home staff ERA")
	cmd.Flags().Float64Var(&f.AwayERA, "away-era", f.AwayERA, "Away staff ERA")
	cmd.Flags().Float64Var(&f.HomeWHIP, "home-whip", f.HomeWHIP, "Home staff WHIP")
	cmd.Flags().Float64Var(&f.AwayWHIP, "away-whip", f.AwayWHIP, "Away staff WHIP")
	cmd.Flags().Float64Var(&f.TempCelsius, "temp", f.TempCelsius, "Temperature in Celsius")
	cmd.Flags().Float64Var(&f.WindKPH, "wind", f.WindKPH, "Wind speed in km/h")
	cmd.Flags().BoolVar(&f.IsDome, "dome", false, "Game is played indoors")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the protected API routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			token, err := middleware.IssueToken(secret, subject, role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", ""), "Signing secret")
	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().StringVar(&role, "role", "admin", "Token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
