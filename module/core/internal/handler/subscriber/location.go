package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/service"
)

const (
	topicPattern  = "/fleet/vehicle/+/location"
	handleTimeout = 10 * time.Second
)

type locationService interface {
	SaveLocation(ctx context.Context, vl *domain.VehicleLocation) error
}

type geofenceService interface {
	CheckAndAlert(ctx context.Context, vl *domain.VehicleLocation) error
}

// locationMessage is the device payload. Trackers in the field send
// coordinates either as numbers or as numeric strings.
type locationMessage struct {
	VehicleID string       `json:"vehicle_id"`
	Latitude  domain.Coord `json:"latitude"`
	Longitude domain.Coord `json:"longitude"`
	Timestamp int64        `json:"timestamp"`
}

type LocationSubscriber struct {
	client      mqtt.Client
	locationSvc locationService
	geofenceSvc geofenceService
}

func NewLocationSubscriber(client mqtt.Client, locationSvc locationService, geofenceSvc geofenceService) *LocationSubscriber {
	return &LocationSubscriber{
		client:      client,
		locationSvc: locationSvc,
		geofenceSvc: geofenceSvc,
	}
}

func (s *LocationSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topicPattern, err)
	}
	log.WithField("topic", topicPattern).Info("subscribed to vehicle locations")
	return nil
}

func (s *LocationSubscriber) Stop() error {
	token := s.client.Unsubscribe(topicPattern)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	logger := log.WithField("topic", msg.Topic())

	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		logger.WithError(err).Warn("invalid location message")
		return
	}

	if err := resolveVehicleID(&raw, msg.Topic()); err != nil {
		logger.WithError(err).Warn("rejected location message")
		return
	}
	logger = logger.WithField("vehicle_id", raw.VehicleID)

	if err := validateLocationMessage(&raw); err != nil {
		logger.WithError(err).Warn("rejected location message")
		return
	}

	vl := &domain.VehicleLocation{
		VehicleID: raw.VehicleID,
		Location: domain.Location{
			Lat:       raw.Latitude.Value,
			Lon:       raw.Longitude.Value,
			Timestamp: time.Unix(raw.Timestamp, 0),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := s.locationSvc.SaveLocation(ctx, vl); err != nil {
		if errors.Is(err, service.ErrDuplicateLocation) {
			logger.Debug("duplicate location ignored")
			return
		}
		logger.WithError(err).Error("save location failed")
		return
	}

	if err := s.geofenceSvc.CheckAndAlert(ctx, vl); err != nil {
		logger.WithError(err).Error("geofence check failed")
	}
}

// vehicleIDFromTopic extracts {id} from /fleet/vehicle/{id}/location.
func vehicleIDFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) != 4 || parts[0] != "fleet" || parts[1] != "vehicle" || parts[3] != "location" {
		return ""
	}
	return parts[2]
}

// resolveVehicleID fills a missing vehicle_id from the topic and rejects
// payloads that claim to be a different vehicle than the topic they arrived on.
func resolveVehicleID(msg *locationMessage, topic string) error {
	fromTopic := vehicleIDFromTopic(topic)
	if msg.VehicleID == "" {
		msg.VehicleID = fromTopic
		return nil
	}
	if fromTopic != "" && fromTopic != msg.VehicleID {
		return fmt.Errorf("vehicle_id %q does not match topic vehicle %q", msg.VehicleID, fromTopic)
	}
	return nil
}

func validateLocationMessage(msg *locationMessage) error {
	if msg.VehicleID == "" {
		return errors.New("vehicle_id: required")
	}
	if !msg.Latitude.Valid {
		return errors.New("latitude: required")
	}
	if !msg.Longitude.Valid {
		return errors.New("longitude: required")
	}
	if msg.Latitude.Value < -90 || msg.Latitude.Value > 90 {
		return errors.New("latitude: must be between -90 and 90")
	}
	if msg.Longitude.Value < -180 || msg.Longitude.Value > 180 {
		return errors.New("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return errors.New("timestamp: must be positive")
	}
	return nil
}
