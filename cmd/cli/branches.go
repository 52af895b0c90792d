package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BhataDev/mtc-server/internal/branch"
	"github.com/BhataDev/mtc-server/internal/database"
	"github.com/BhataDev/mtc-server/internal/geo"
	"github.com/BhataDev/mtc-server/internal/store/postgres"
)

var (
	branchesLat float64
	branchesLng float64
)

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "Inspect branches",
}

var branchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active branches, optionally with distance from a point",
	RunE:  runBranchesList,
}

func init() {
	rootCmd.AddCommand(branchesCmd)
	branchesCmd.AddCommand(branchesListCmd)

	branchesListCmd.Flags().Float64Var(&branchesLat, "lat", 0, "Reference latitude for distance column")
	branchesListCmd.Flags().Float64Var(&branchesLng, "lng", 0, "Reference longitude for distance column")
}

func runBranchesList(cmd *cobra.Command, args []string) error {
	store := postgres.NewBranchStore(database.Pool())
	branches, err := store.ActiveBranches(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing branches: %w", err)
	}
	if len(branches) == 0 {
		fmt.Println("No active branches found")
		return nil
	}

	withDistance := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng")

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if withDistance {
		fmt.Fprintln(w, "ID\tNAME\tLAT\tLNG\tDISTANCE_KM")
	} else {
		fmt.Fprintln(w, "ID\tNAME\tLAT\tLNG")
	}
	for _, b := range branches {
		if withDistance {
			d := distanceKm(b, branchesLat, branchesLng)
			fmt.Fprintf(w, "%s\t%s\t%.5f\t%.5f\t%.1f\n", b.ID, b.Name, b.Lat, b.Lng, d)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%.5f\t%.5f\n", b.ID, b.Name, b.Lat, b.Lng)
		}
	}
	w.Flush()
	return nil
}

func distanceKm(b *branch.Branch, lat, lng float64) float64 {
	return geo.DistanceKm(b.Point(), geo.Point{Lat: lat, Lng: lng})
}
