package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type locationMessage struct {
	VehicleID string  `json:"vehicle_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	interval    time.Duration
	broker      string
	clientID    string
	numVehicles int
	nearLat     float64
	nearLon     float64
	nearRatio   float64
	driftDeg    float64
)

var rootCmd = &cobra.Command{
	Use:   "publisher",
	Short: "Publish mock vehicle locations over MQTT",
	Long: `Publishes random vehicle positions to /fleet/vehicle/{id}/location.
A share of the positions is placed around a target point so that geofence
entry and exit alerts can be observed.`,
	RunE: run,
}

func init() {
	defaultBroker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		defaultBroker = v
	}

	rootCmd.Flags().DurationVarP(&interval, "interval", "i", 2*time.Second, "Delay between messages")
	rootCmd.Flags().StringVarP(&broker, "broker", "b", defaultBroker, "MQTT broker URL")
	rootCmd.Flags().StringVar(&clientID, "client-id", "fleet-mock-publisher", "MQTT client id")
	rootCmd.Flags().IntVarP(&numVehicles, "vehicles", "n", 5, "Number of simulated vehicles")
	rootCmd.Flags().Float64Var(&nearLat, "lat", 28.6139, "Latitude of the target point")
	rootCmd.Flags().Float64Var(&nearLon, "lon", 77.2090, "Longitude of the target point")
	rootCmd.Flags().Float64Var(&nearRatio, "near-ratio", 0.3, "Share of messages placed near the target point")
	rootCmd.Flags().Float64Var(&driftDeg, "drift", 0.01, "Maximum drift around the target point in degrees")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if numVehicles <= 0 {
		return fmt.Errorf("vehicles must be positive")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	vehiclePool := make([]string, numVehicles)
	for i := range vehiclePool {
		vehiclePool[i] = randomVehicleID()
	}

	log.WithFields(log.Fields{
		"broker":   broker,
		"interval": interval,
		"vehicles": vehiclePool,
	}).Info("publishing mock locations")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		vid := vehiclePool[rand.Intn(len(vehiclePool))]
		lat, lon := nextPosition()

		payload, err := json.Marshal(locationMessage{
			VehicleID: vid,
			Latitude:  lat,
			Longitude: lon,
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			return err
		}
		topic := fmt.Sprintf("/fleet/vehicle/%s/location", vid)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.WithError(err).WithField("topic", topic).Error("publish failed")
			continue
		}

		log.WithField("topic", topic).Debug(string(payload))
	}
	return nil
}

func nextPosition() (float64, float64) {
	if rand.Float64() < nearRatio {
		return nearLat + (rand.Float64()-0.5)*2*driftDeg, nearLon + (rand.Float64()-0.5)*2*driftDeg
	}
	return -90 + rand.Float64()*180, -180 + rand.Float64()*360
}

func randomVehicleID() string {
	letter := string(charset[rand.Intn(26)])
	digits := fmt.Sprintf("%04d", rand.Intn(10000))
	suffix := string([]byte{charset[rand.Intn(26)], charset[rand.Intn(26)], charset[rand.Intn(26)]})
	return letter + digits + suffix
}
