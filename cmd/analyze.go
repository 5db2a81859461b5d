package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

var analyzeIncremental bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <product name>",
	Short: "Run the full review analysis for one product",
	Long:  "Creates the product if needed, discovers review URLs, scrapes them, analyzes the reviews, and prints the saved analysis.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		product, err := env.Store.CreateProduct(ctx, args[0], nil)
		if err != nil {
			return err
		}

		claimed, err := env.Store.ClaimProduct(ctx, product.ProductID)
		if err != nil {
			return err
		}
		if !claimed {
			return eris.Errorf("product %s is already %s", product.ProductID, product.Status)
		}

		zap.L().Info("starting analysis",
			zap.String("product_id", product.ProductID),
			zap.Bool("incremental", analyzeIncremental))

		if analyzeIncremental {
			err = env.Pipeline.Run(ctx, product.ProductID, product.ProductName)
		} else {
			err = env.Pipeline.RunBatch(ctx, product.ProductID, product.ProductName)
		}
		if err != nil {
			return err
		}

		analysis, err := env.Store.GetAnalysis(ctx, product.ProductID)
		if err != nil {
			return err
		}
		if analysis == nil {
			latest, err := env.Store.GetLatestProgress(ctx, product.ProductID)
			if err != nil {
				return err
			}
			if latest != nil && latest.Status == model.ProgressFailed {
				return eris.Errorf("analysis failed: %s", latest.Error)
			}
			return eris.New("analysis produced no result")
		}

		out, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal analysis")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeIncremental, "incremental", false, "re-analyze after each scraped page instead of once at the end")
	rootCmd.AddCommand(analyzeCmd)
}
