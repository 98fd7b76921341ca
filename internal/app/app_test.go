package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"ridedispatch/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: "5433", User: "u", Password: "p", DBName: "rides", SSLMode: "require",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=rides sslmode=require", dsn)
}

func TestKeyFamily(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cmd  redis.Cmder
		want string
	}{
		{"get", redis.NewStringCmd(ctx, "get", "cache:ride_request:dispatch:r1"), "cache"},
		{"geoadd", redis.NewIntCmd(ctx, "geoadd", "ride_requests:pickups", 77.59, 12.97, "r1"), "ride_requests"},
		{"eval", redis.NewCmd(ctx, "eval", "return 1", 1, "cache:ride_request:dispatch:r1"), "cache"},
		{"no colon", redis.NewStringCmd(ctx, "get", "plain"), "plain"},
		{"no key", redis.NewStatusCmd(ctx, "ping"), "redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyFamily(tt.cmd))
		})
	}
}

func TestNewPublisherWithoutBroker(t *testing.T) {
	p, err := NewPublisher(config.RabbitMQConfig{})
	assert.NoError(t, err)
	assert.NoError(t, p.Close())
}
