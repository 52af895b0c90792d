package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/BhataDev/mtc-server/internal/database"
	"github.com/BhataDev/mtc-server/internal/pricing"
	"github.com/BhataDev/mtc-server/internal/store/postgres"
)

var campaignsOutput string

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Inspect and administer promotional campaigns",
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all campaigns, highest priority first",
	RunE:  runCampaignsList,
}

var campaignsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Soft-disable a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignsDeactivate,
}

func init() {
	rootCmd.AddCommand(campaignsCmd)
	campaignsCmd.AddCommand(campaignsListCmd)
	campaignsCmd.AddCommand(campaignsDeactivateCmd)

	campaignsListCmd.Flags().StringVar(&campaignsOutput, "output", "table", "Output format: table or json")
}

func runCampaignsList(cmd *cobra.Command, args []string) error {
	store := postgres.NewCampaignStore(database.Pool())
	campaigns, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing campaigns: %w", err)
	}

	switch strings.ToLower(campaignsOutput) {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(campaigns)
	case "table":
		outputCampaignsTable(campaigns)
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", campaignsOutput)
	}
	return nil
}

func outputCampaignsTable(campaigns []*pricing.Campaign) {
	if len(campaigns) == 0 {
		fmt.Println("No campaigns found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMODE\tPRIORITY\tSTACKABLE\tACTIVE\tWINDOW")
	for _, c := range campaigns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%t\t%s\n",
			c.ID, c.Title, c.Mode.ModeName(), c.Priority, c.Stackable, c.Active, windowString(c))
	}
	w.Flush()
}

func windowString(c *pricing.Campaign) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	}
	return format(c.StartsAt) + " .. " + format(c.EndsAt)
}

func runCampaignsDeactivate(cmd *cobra.Command, args []string) error {
	store := postgres.NewCampaignStore(database.Pool())
	if err := store.Deactivate(cmd.Context(), args[0]); err != nil {
		return err
	}
	logger.Info().Str("campaign", args[0]).Msg("Campaign deactivated")
	return nil
}
