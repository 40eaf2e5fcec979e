package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neurlang/gosep/model"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage model checkpoints",
}

var checkpointInitCmd = &cobra.Command{
	Use:   "init <ckpt_file>",
	Short: "Write a seeded, untrained checkpoint",
	Long: `Write a checkpoint with seeded random weights.

The checkpoint has the layout the separators load, so it can stand in for a
trained model when testing a deployment.

Example:
  separate checkpoint init --kind l41 static/models/lab41_nonorm-final.ckpt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := cmd.Flags().GetString("kind")
		if err != nil {
			return fmt.Errorf("failed to read 'kind' flag: %w", err)
		}
		bins, err := cmd.Flags().GetInt("bins")
		if err != nil {
			return fmt.Errorf("failed to read 'bins' flag: %w", err)
		}
		dim, err := cmd.Flags().GetInt("dim")
		if err != nil {
			return fmt.Errorf("failed to read 'dim' flag: %w", err)
		}
		seed, err := cmd.Flags().GetUint64("seed")
		if err != nil {
			return fmt.Errorf("failed to read 'seed' flag: %w", err)
		}

		switch model.Kind(kind) {
		case model.KindDeepClustering, model.KindL41:
		default:
			return fmt.Errorf("unknown model kind %q", kind)
		}
		if bins < 1 || dim < 1 {
			return fmt.Errorf("--bins and --dim must be positive")
		}

		if err := model.Save(args[0], model.NewRandom(model.Kind(kind), bins, dim, seed)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s checkpoint to %s\n", kind, args[0])
		return nil
	},
}

func init() {
	checkpointInitCmd.Flags().String("kind", string(model.KindDeepClustering), "model kind: deep_clustering or l41")
	checkpointInitCmd.Flags().Int("bins", 257, "frequency bins of the feature frames")
	checkpointInitCmd.Flags().Int("dim", 20, "embedding size")
	checkpointInitCmd.Flags().Uint64("seed", 1, "random seed")
	checkpointCmd.AddCommand(checkpointInitCmd)
}
