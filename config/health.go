package config

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

const healthTimeout = 2 * time.Second

// dependencyCheck returns nil when the dependency is reachable.
type dependencyCheck func(ctx context.Context) error

type HealthChecker struct {
	names  []string
	checks map[string]dependencyCheck
}

type amqpConnection interface {
	IsClosed() bool
}

// NewHealthChecker reports on postgres, rabbitmq and mqtt. Redis is included
// only when a client is given.
func NewHealthChecker(db *sql.DB, amqpConn amqpConnection, mqttClient mqtt.Client, redisClient goredis.UniversalClient) *HealthChecker {
	h := &HealthChecker{checks: map[string]dependencyCheck{}}

	h.add("postgres", db.PingContext)
	h.add("rabbitmq", func(context.Context) error {
		if amqpConn.IsClosed() {
			return errConnectionClosed
		}
		return nil
	})
	h.add("mqtt", func(context.Context) error {
		if !mqttClient.IsConnected() {
			return errNotConnected
		}
		return nil
	})
	if redisClient != nil {
		h.add("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	return h
}

func (h *HealthChecker) add(name string, check dependencyCheck) {
	h.names = append(h.names, name)
	h.checks[name] = check
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}

	for _, name := range h.names {
		if err := h.checks[name](ctx); err != nil {
			deps[name] = gin.H{"status": "down", "error": err.Error()}
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = gin.H{"status": "up"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}
