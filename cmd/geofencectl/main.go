package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	geofenceFile string
	pointLat     string
	pointLon     string
	vehicleID    string
)

var rootCmd = &cobra.Command{
	Use:   "geofencectl",
	Short: "Manage and test fleet geofences",
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the database tables",
	RunE:  runSchema,
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Upsert geofences from a JSON file",
	Long: `Reads geofence records from a JSON file, either a bare array or an object
with a "geofences" array, validates them and upserts them into Postgres.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a point against geofences from a JSON file",
	Long: `Evaluates one position against every geofence in a JSON file without
touching the database. Coordinates may be left empty to see how missing
positions are reported.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&geofenceFile, "file", "f", "geofences.json", "Geofence JSON file")
	classifyCmd.Flags().StringVar(&pointLat, "lat", "", "Latitude of the point")
	classifyCmd.Flags().StringVar(&pointLon, "lon", "", "Longitude of the point")
	classifyCmd.Flags().StringVar(&vehicleID, "vehicle", "cli", "Vehicle id reported in the output")

	rootCmd.AddCommand(schemaCmd, importCmd, classifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
