package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nandanugg/fleet-geofence/config"
	"github.com/nandanugg/fleet-geofence/module/core"
	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/geometry"
)

func runSchema(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	db, err := config.NewPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := core.InitSchema(cmd.Context(), db); err != nil {
		return err
	}
	log.Info("schema ready")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	records, err := readRecordsFile(args[0])
	if err != nil {
		return err
	}

	cfg := config.Load()
	db, err := config.NewPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return reportImport(core.ImportGeofences(cmd.Context(), db, records))
}

// reportImport logs how many geofences were written. On error n counts the
// records stored before the failing one.
func reportImport(n int, err error) error {
	if err != nil {
		log.WithError(err).WithField("count", n).Warn("import stopped, earlier geofences were written")
		return err
	}
	log.WithField("count", n).Info("geofences imported")
	return nil
}

func runClassify(cmd *cobra.Command, _ []string) error {
	records, err := readRecordsFile(geofenceFile)
	if err != nil {
		return err
	}

	entity := domain.TrackedEntity{
		ID:       vehicleID,
		Position: domain.Position{Lat: domain.ParseCoord(pointLat), Lon: domain.ParseCoord(pointLon)},
	}

	results := classify(records, entity)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func readRecordsFile(path string) ([]domain.GeofenceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return decodeRecords(f)
}

// decodeRecords accepts a bare array or an object wrapping it in "geofences".
func decodeRecords(r io.Reader) ([]domain.GeofenceRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var records []domain.GeofenceRecord
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode geofences: %w", err)
		}
		return records, nil
	}

	var wrapped struct {
		Geofences []domain.GeofenceRecord `json:"geofences"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode geofences: %w", err)
	}
	return wrapped.Geofences, nil
}

// classify evaluates the entity against every decodable record. Invalid
// records are logged and left out.
func classify(records []domain.GeofenceRecord, entity domain.TrackedEntity) []domain.Membership {
	results := make([]domain.Membership, 0, len(records))
	for _, rec := range records {
		gf, err := rec.ToGeofence()
		if err != nil {
			log.WithError(err).Warn("skipping geofence")
			continue
		}
		results = append(results, geometry.ClassifyMembership(entity, gf, nil))
	}
	return results
}
