package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/provider-directory/internal/geocoding"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Address geocoding of entries",
}

var geocodeBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Geocode entries that have no location yet",
	Long:  "Runs the geocoder over ungeocoded, non-blocked entries, oldest first, at the configured request rate.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		queue := geocoding.NewQueue(newGeocoder(), st, 1)
		counts, err := queue.Backfill(ctx, st, limit)
		if err != nil {
			return err
		}

		cmd.Printf("matched %d, unmatched %d, failed %d, gone %d\n",
			counts["matched"], counts["unmatched"], counts["failed"], counts["gone"])
		return nil
	},
}

func init() {
	geocodeBackfillCmd.Flags().Int("limit", 100, "maximum entries to geocode")

	geocodeCmd.AddCommand(geocodeBackfillCmd)
	rootCmd.AddCommand(geocodeCmd)
}
