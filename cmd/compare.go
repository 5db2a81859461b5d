package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/reviewpulse/reviewpulse/internal/comparator"
	"github.com/reviewpulse/reviewpulse/internal/model"
)

var compareCmd = &cobra.Command{
	Use:   "compare <product-id> <product-id> [product-id...]",
	Short: "Compare analyzed products head to head",
	Long:  "Compares 2 to 4 products that already have a completed analysis and prints the saved comparison.",
	Args:  cobra.RangeArgs(comparator.MinProducts, comparator.MaxProducts),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		products := make([]model.ProductAnalysis, 0, len(args))
		for _, id := range args {
			product, err := env.Store.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			if product == nil {
				return eris.Errorf("product not found: %s", id)
			}
			analysis, err := env.Store.GetAnalysis(ctx, id)
			if err != nil {
				return err
			}
			if analysis == nil {
				return eris.Errorf("product has no completed analysis: %s", id)
			}
			products = append(products, model.ProductAnalysis{
				ProductID:   product.ProductID,
				ProductName: product.ProductName,
				Analysis:    analysis,
			})
		}

		payload, err := env.Comparator.Compare(ctx, products)
		if err != nil {
			return err
		}

		comparison, err := env.Store.SaveComparison(ctx, payload)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(comparison, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal comparison")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
