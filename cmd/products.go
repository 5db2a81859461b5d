package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List tracked products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		products, err := st.ListProducts(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT ID\tNAME\tSTATUS\tCREATED")
		for _, p := range products {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				p.ProductID, p.ProductName, p.Status, p.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var productShowCmd = &cobra.Command{
	Use:   "show <product-id>",
	Short: "Show a product with its analysis and latest progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		product, err := st.GetProduct(ctx, args[0])
		if err != nil {
			return err
		}
		if product == nil {
			return eris.Errorf("product not found: %s", args[0])
		}

		analysis, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		progress, err := st.GetLatestProgress(ctx, args[0])
		if err != nil {
			return err
		}
		reviews, err := st.CountRawReviews(ctx, args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(map[string]any{
			"product":       product,
			"analysis":      analysis,
			"progress":      progress,
			"reviews_count": reviews,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal product")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	productsCmd.AddCommand(productShowCmd)
	rootCmd.AddCommand(productsCmd)
}
