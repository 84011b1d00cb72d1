package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/publisher"
)

var _ publisher.GeofencePublisher = (*GeofencePublisher)(nil)

var ErrNotConfirmed = errors.New("alert not confirmed by broker")

const (
	exchangeName = "fleet.events"
	queueName    = "geofence_alerts"
)

type channel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

type GeofencePublisher struct {
	ch channel
}

// NewGeofencePublisher declares the fanout exchange and the alert queue and
// puts the channel into confirm mode.
func NewGeofencePublisher(conn *amqp.Connection) (*GeofencePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("confirm mode: %w", err)
	}

	return &GeofencePublisher{ch: ch}, nil
}

type alertMessage struct {
	EventID      string                   `json:"event_id"`
	VehicleID    string                   `json:"vehicle_id"`
	GeofenceID   string                   `json:"geofence_id"`
	GeofenceName string                   `json:"geofence_name"`
	Event        domain.GeofenceEventType `json:"event"`
	Location     alertLocation            `json:"location"`
	Timestamp    int64                    `json:"timestamp"`
}

type alertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PublishAlert blocks until the broker acks the message or ctx is done.
func (p *GeofencePublisher) PublishAlert(ctx context.Context, alert *domain.GeofenceAlert) error {
	body, err := encodeAlert(alert)
	if err != nil {
		return err
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    alert.EventID,
		Timestamp:    time.Unix(alert.Timestamp, 0),
		Type:         string(alert.Event),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	// nil when the channel is not in confirm mode
	if confirm == nil {
		return nil
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("event %s: %w", alert.EventID, ErrNotConfirmed)
	}
	return nil
}

func (p *GeofencePublisher) Close() error {
	return p.ch.Close()
}

func encodeAlert(alert *domain.GeofenceAlert) ([]byte, error) {
	msg := alertMessage{
		EventID:      alert.EventID,
		VehicleID:    alert.VehicleID,
		GeofenceID:   alert.GeofenceID,
		GeofenceName: alert.GeofenceName,
		Event:        alert.Event,
		Location: alertLocation{
			Latitude:  alert.Location.Lat,
			Longitude: alert.Location.Lon,
		},
		Timestamp: alert.Timestamp,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal alert: %w", err)
	}
	return body, nil
}
