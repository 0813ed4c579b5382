package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"climate-server/internal/db"
	"climate-server/internal/importer"
	"climate-server/internal/migrate"
)

var (
	importStations     string
	importMeasurements string
	importReplace      bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load station and measurement CSV files",
	Long: `Loads hawaii_stations.csv (station,name,latitude,longitude,elevation) and
hawaii_measurements.csv (station,date,prcp,tobs). Each file is imported in
one transaction; an empty prcp is stored as NULL. The schema is migrated
first.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importStations, "stations", "", "station CSV file")
	importCmd.Flags().StringVar(&importMeasurements, "measurements", "", "measurement CSV file")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "delete existing rows before loading each file")
	importCmd.MarkFlagsOneRequired("stations", "measurements")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := openDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	if _, err := migrate.Run(ctx, conn); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	res, err := importer.ImportFiles(ctx, conn, importer.Options{
		StationsPath:     importStations,
		MeasurementsPath: importMeasurements,
		Replace:          importReplace,
	})
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d station(s), %d measurement(s)\n", res.Stations, res.Measurements)
	return nil
}
