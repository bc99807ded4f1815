package redis

import (
	"context"
	"strconv"
	"testing"

	"coop-payments/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisAddr(t *testing.T) {
	cfg := config.RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	assert.Equal(t, "redis.example.com:6380", cfg.Addr())
}

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	client, err := NewClient(context.Background(), config.RedisConfig{Host: s.Host(), Port: port}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	host := s.Host()
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	s.Close()

	_, err = NewClient(context.Background(), config.RedisConfig{Host: host, Port: port, ConnectRetries: 1}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinging redis")
}
