package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/nandanugg/fleet-geofence/config"
)

const (
	exchangeName = "fleet.events"
	queueName    = "geofence_alerts"
)

type geofenceAlert struct {
	EventID      string `json:"event_id"`
	VehicleID    string `json:"vehicle_id"`
	GeofenceID   string `json:"geofence_id"`
	GeofenceName string `json:"geofence_name"`
	Event        string `json:"event"`
	Location     struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Timestamp int64 `json:"timestamp"`
}

func main() {
	cfg := config.Load()
	if err := config.ConfigureLogging(cfg); err != nil {
		log.Fatalf("logging: %v", err)
	}

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbitmq channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		log.Fatalf("declare exchange: %v", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Fatalf("declare queue: %v", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		log.Fatalf("bind queue: %v", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	log.WithField("queue", queueName).Info("waiting for geofence alerts")

	go func() {
		for msg := range msgs {
			handleDelivery(msg)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
}

func handleDelivery(msg amqp.Delivery) {
	var alert geofenceAlert
	if err := json.Unmarshal(msg.Body, &alert); err != nil {
		log.WithError(err).Warn("discarding malformed alert")
		_ = msg.Nack(false, false)
		return
	}

	log.WithFields(log.Fields{
		"event_id":      alert.EventID,
		"vehicle_id":    alert.VehicleID,
		"geofence_id":   alert.GeofenceID,
		"geofence_name": alert.GeofenceName,
		"latitude":      alert.Location.Latitude,
		"longitude":     alert.Location.Longitude,
		"timestamp":     alert.Timestamp,
	}).Info(alert.Event)

	_ = msg.Ack(false)
}
