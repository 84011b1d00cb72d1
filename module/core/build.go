package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
	handler "github.com/nandanugg/fleet-geofence/module/core/internal/handler/http"
	"github.com/nandanugg/fleet-geofence/module/core/internal/handler/subscriber"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/state"
	"github.com/nandanugg/fleet-geofence/module/core/internal/repository/state/memory"
	redisstate "github.com/nandanugg/fleet-geofence/module/core/internal/repository/state/redis"
	"github.com/nandanugg/fleet-geofence/module/core/service"
)

type Module struct {
	LocationSvc *service.LocationService
	GeofenceSvc *service.GeofenceService

	vehicleHandler  *handler.VehicleHandler
	geofenceHandler *handler.GeofenceHandler
	subscriber      *subscriber.LocationSubscriber
	publisher       *rabbitmq.GeofencePublisher
}

// Build wires the core module. A nil redisClient keeps membership state in
// process memory, which is lost on restart.
func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, redisClient goredis.UniversalClient) (*Module, error) {
	locationRepo := postgres.NewLocationRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)
	eventRepo := postgres.NewEventRepo(db)

	geofencePub, err := rabbitmq.NewGeofencePublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("geofence publisher: %w", err)
	}

	var store state.MembershipStore
	if redisClient != nil {
		store = redisstate.NewStore(redisClient)
	} else {
		log.Warn("redis not configured, membership state is kept in memory")
		store = memory.NewStore()
	}

	locationSvc := service.NewLocationService(locationRepo)
	geofenceSvc := service.NewGeofenceService(geofenceRepo, eventRepo, locationRepo, store, geofencePub)

	return &Module{
		LocationSvc:     locationSvc,
		GeofenceSvc:     geofenceSvc,
		vehicleHandler:  handler.NewVehicleHandler(locationSvc),
		geofenceHandler: handler.NewGeofenceHandler(geofenceSvc),
		subscriber:      subscriber.NewLocationSubscriber(mqttClient, locationSvc, geofenceSvc),
		publisher:       geofencePub,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.vehicleHandler.Register(r)
	m.geofenceHandler.Register(r)
}

// Start loads the geofence catalogue, keeps it fresh in the background and
// subscribes to vehicle locations. Geofences must be loaded before the first
// location arrives.
func (m *Module) Start(ctx context.Context, refreshInterval time.Duration) error {
	n, err := m.GeofenceSvc.Reload(ctx)
	if err != nil {
		return err
	}
	log.WithField("count", n).Info("geofences loaded")

	if refreshInterval > 0 {
		go m.GeofenceSvc.RunRefresher(ctx, refreshInterval)
	}
	return m.subscriber.Start()
}

func (m *Module) Close() error {
	if err := m.subscriber.Stop(); err != nil {
		log.WithError(err).Warn("unsubscribe failed")
	}
	return m.publisher.Close()
}

// InitSchema creates the tables the module reads and writes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	return postgres.InitSchema(ctx, db)
}

// ImportGeofences validates and upserts geofence records. It stops at the
// first invalid record and reports how many were written before it.
func ImportGeofences(ctx context.Context, db *sql.DB, records []domain.GeofenceRecord) (int, error) {
	repo := postgres.NewGeofenceRepo(db)
	for i := range records {
		rec := &records[i]
		if _, err := rec.ToGeofence(); err != nil {
			return i, fmt.Errorf("record %d: %w", i, err)
		}
		if err := repo.Upsert(ctx, rec); err != nil {
			return i, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return len(records), nil
}
