// Package redis provides the Redis connection hub and the Redis-backed
// fixed-window counter used as the shared admission store.
package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"

	"github.com/ProveniaLabs/lib-admission/admission/log"
	"github.com/redis/go-redis/v9"
)

// Mode define the Redis connection mode supported
type Mode string

const (
	ModeStandalone Mode = "standalone"
	ModeSentinel   Mode = "sentinel"
	ModeCluster    Mode = "cluster"
)

// RedisConnection represents a Redis connection hub
type RedisConnection struct {
	Mode       Mode
	Address    []string
	DB         int
	MasterName string
	Password   string
	Protocol   int
	UseTLS     bool
	CACert     string
	Logger     log.Logger
	Connected  bool
	Client     redis.UniversalClient
}

// Connect initializes a Redis connection
func (rc *RedisConnection) Connect(ctx context.Context) error {
	rc.Logger.Info("Connecting to Redis/Valkey...")

	opts := &redis.UniversalOptions{
		Addrs:      rc.Address,
		MasterName: rc.MasterName,
		DB:         rc.DB,
		Password:   rc.Password,
		Protocol:   rc.Protocol,
	}

	if rc.UseTLS {
		tlsConfig, err := rc.BuildTLSConfig()
		if err != nil {
			rc.Logger.Infof("BuildTLSConfig error: %v", err)

			return err
		}

		opts.TLSConfig = tlsConfig
	}

	rdb := redis.NewUniversalClient(opts)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rc.Logger.Infof("Ping error: %v", err)

		return err
	}

	rc.Client = rdb
	rc.Connected = true

	switch rc.Client.(type) {
	case *redis.ClusterClient:
		rc.Logger.Info("Connected to Redis/Valkey in CLUSTER mode ✅ \n")
	case *redis.Client:
		rc.Logger.Info("Connected to Redis/Valkey in STANDALONE mode ✅ \n")
	case *redis.Ring:
		rc.Logger.Info("Connected to Redis/Valkey in SENTINEL mode ✅ \n")
	default:
		rc.Logger.Warn("Unknown Redis/Valkey mode ⚠️ \n")
	}

	return nil
}

// GetClient always returns a pointer to a Redis client
func (rc *RedisConnection) GetClient(ctx context.Context) (redis.UniversalClient, error) {
	if rc.Client == nil {
		if err := rc.Connect(ctx); err != nil {
			rc.Logger.Infof("Get client connect error %v", err)

			return nil, err
		}
	}

	return rc.Client, nil
}

// GetCounterBackend returns a shared counter backend on this connection,
// connecting lazily when needed.
func (rc *RedisConnection) GetCounterBackend(ctx context.Context) (*CounterBackend, error) {
	client, err := rc.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	return NewCounterBackend(client), nil
}

// Close closes the Redis connection
func (rc *RedisConnection) Close() error {
	if rc.Client != nil {
		return rc.Client.Close()
	}

	return nil
}

// BuildTLSConfig generates a *tls.Config configuration using ca cert on base64
func (rc *RedisConnection) BuildTLSConfig() (*tls.Config, error) {
	caCert, err := base64.StdEncoding.DecodeString(rc.CACert)
	if err != nil {
		rc.Logger.Infof("Base64 cacert decode error: %v", err)

		return nil, err
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("adding CA cert failed")
	}

	tlsCfg := &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}

	return tlsCfg, nil
}
