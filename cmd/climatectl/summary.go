package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"climate-server/internal/db"
	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/service"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a JSON summary of the stored dataset",
	Long:  `Prints the station and observation counts, the stored date range and the most active station. This is the same payload the server announces over MQTT.`,
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := openDBReadOnly(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	svc := service.NewService(repository.NewRepository(conn))
	summary, err := svc.DatasetSummary(ctx)
	if err != nil {
		return fmt.Errorf("summarizing dataset: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
