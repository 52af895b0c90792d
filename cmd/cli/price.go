package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BhataDev/mtc-server/internal/database"
	"github.com/BhataDev/mtc-server/internal/pricing"
	"github.com/BhataDev/mtc-server/internal/store/postgres"
)

var priceBranchID string

var priceCmd = &cobra.Command{
	Use:   "price <productId>...",
	Short: "Show effective prices for products under the current campaigns",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().StringVar(&priceBranchID, "branch", "", "Branch ID to price against")
}

func runPrice(cmd *cobra.Command, args []string) error {
	pool := database.Pool()
	svc := pricing.NewService(
		postgres.NewCampaignStore(pool),
		postgres.NewCatalogStore(pool),
		pricing.SystemClock{},
		pricing.NewMetricsRecorder(),
	)

	priced, err := svc.PriceProducts(cmd.Context(), args, pricing.LocationContext{BranchID: priceBranchID})
	if err != nil {
		return fmt.Errorf("pricing products: %w", err)
	}
	if len(priced) == 0 {
		fmt.Println("No priceable products found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tORIGINAL\tEFFECTIVE\tDISCOUNT\tCAMPAIGNS")
	for _, p := range priced {
		campaigns := ""
		for i, a := range p.Applied {
			if i > 0 {
				campaigns += ", "
			}
			campaigns += a.Title
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.1f%%\t%s\n",
			p.ProductID, p.OriginalPrice, p.EffectivePrice, p.DiscountPercent, campaigns)
	}
	w.Flush()
	return nil
}
