// Package credential stores API credentials and the admission tiers attached
// to them. Records live in MongoDB and are cached in Redis so the hot
// admission path rarely touches the document store.
package credential

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/ProveniaLabs/lib-admission/admission"
	"github.com/ProveniaLabs/lib-admission/admission/mongo"
	"github.com/ProveniaLabs/lib-admission/admission/opentelemetry"
	"github.com/ProveniaLabs/lib-admission/admission/ratelimit"
	"github.com/ProveniaLabs/lib-admission/admission/redis"
	redisV9 "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDriver "go.mongodb.org/mongo-driver/mongo"
)

// Database name
const Database = "admission"

// cacheTTL bounds how stale a cached credential can get after the record
// changes in mongodb.
const cacheTTL = 60 * time.Minute

// Credential is the database model. Window limits at zero are treated as
// absent, so a plan can constrain any subset of minute, hour and day.
type Credential struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	Plan      string             `bson:"plan"`
	PerMinute int                `bson:"per_minute"`
	PerHour   int                `bson:"per_hour"`
	PerDay    int                `bson:"per_day"`
	Active    bool               `bson:"active"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// Policy converts the credential's window limits into an admission policy.
func (c *Credential) Policy() (*ratelimit.Policy, error) {
	windows := make([]ratelimit.Window, 0, 3)

	if c.PerMinute > 0 {
		windows = append(windows, ratelimit.PerMinute(c.PerMinute))
	}

	if c.PerHour > 0 {
		windows = append(windows, ratelimit.PerHour(c.PerHour))
	}

	if c.PerDay > 0 {
		windows = append(windows, ratelimit.PerDay(c.PerDay))
	}

	if len(windows) == 0 {
		return nil, ratelimit.ErrPolicyNotFound
	}

	name := c.Plan
	if name == "" {
		name = "credential"
	}

	return ratelimit.NewPolicy(name, windows...)
}

// CredentialRepository interface
type CredentialRepository interface {
	CreateCredential(ctx context.Context, credential *Credential) error
	FindCredential(ctx context.Context, token string) (*Credential, error)
	DeleteCredential(ctx context.Context, token string) error
}

// CredentialConnection serves credentials from redis first and mongodb on
// cache misses. Connections are established lazily on first use.
type CredentialConnection struct {
	redis      *redis.RedisConnection
	mongo      *mongo.MongoConnection
	collection string
}

// NewCredentialConnection wires the credential repository over the shared
// redis and mongodb hubs.
func NewCredentialConnection(rc *redis.RedisConnection, mc *mongo.MongoConnection) *CredentialConnection {
	return &CredentialConnection{
		redis:      rc,
		mongo:      mc,
		collection: strings.ToLower(reflect.TypeOf(Credential{}).Name()),
	}
}

// internalKey addresses a credential in the redis cache.
func internalKey(token string) string {
	return "admission:credential:" + token
}

// CreateCredential persists a credential on mongodb and primes the redis
// cache.
func (cc *CredentialConnection) CreateCredential(ctx context.Context, credential *Credential) error {
	tracer := admission.NewTracerFromContext(ctx)
	logger := admission.NewLoggerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.create_credential")
	defer span.End()

	if err := cc.createMongo(ctx, credential); err != nil {
		return err
	}

	key := internalKey(credential.Token)

	logger.Infof("Creating credential on redis: %s", key)

	data, err := msgpack.Marshal(credential)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "failed to marshal msgpack", err)

		logger.Errorf("Failed to marshal msgpack: %s", err)

		return err
	}

	isLocked, err := cc.setNXRedis(ctx, key, data, cacheTTL)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "failed to setnx on redis", err)

		logger.Errorf("Failed to setnx on redis: %s", err)

		return err
	}

	if isLocked {
		logger.Infof("Credential already exists on redis: %s", key)
	} else {
		logger.Infof("Credential created on redis: %s", key)
	}

	return nil
}

// FindCredential looks a credential up by token, reading the redis cache
// before mongodb. Mongo hits are written back to the cache. A missing
// credential returns nil without error.
func (cc *CredentialConnection) FindCredential(ctx context.Context, token string) (*Credential, error) {
	tracer := admission.NewTracerFromContext(ctx)
	logger := admission.NewLoggerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.find_credential")
	defer span.End()

	key := internalKey(token)

	data, err := cc.getRedis(ctx, key)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "failed to get on redis", err)

		logger.Errorf("Failed to get on redis: %s", err)

		return nil, err
	}

	if !admission.IsNilOrEmpty(&data) {
		var credential Credential
		if err := msgpack.Unmarshal([]byte(data), &credential); err != nil {
			opentelemetry.HandleSpanError(&span, "failed to unmarshal msgpack", err)

			logger.Errorf("Failed to unmarshal cached credential: %v", err)

			return nil, err
		}

		return &credential, nil
	}

	logger.Infof("Credential not found on redis: %s", key)

	credential, err := cc.findMongo(ctx, token)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "failed to find on mongo", err)

		logger.Errorf("Failed to find on mongo: %s", err)

		return nil, err
	}

	if credential != nil {
		if data, err := msgpack.Marshal(credential); err == nil {
			if _, err := cc.setNXRedis(ctx, key, data, cacheTTL); err != nil {
				logger.Warnf("Failed to cache credential on redis: %v", err)
			}
		}
	}

	return credential, nil
}

// DeleteCredential removes a credential from mongodb and drops its cache
// entry. The cache is dropped even when the mongodb delete fails so a stale
// tier never outlives the record.
func (cc *CredentialConnection) DeleteCredential(ctx context.Context, token string) error {
	tracer := admission.NewTracerFromContext(ctx)
	logger := admission.NewLoggerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.delete_credential")
	defer span.End()

	mongoErr := cc.deleteMongo(ctx, token)
	if mongoErr != nil {
		opentelemetry.HandleSpanError(&span, "failed to delete on mongo", mongoErr)

		logger.Errorf("Failed to delete on mongo: %s", mongoErr)
	}

	key := internalKey(token)

	logger.Infof("Deleting credential on redis: %s", key)

	if err := cc.deleteRedis(ctx, key); err != nil {
		opentelemetry.HandleSpanError(&span, "failed to delete on redis", err)

		logger.Errorf("Failed to delete on redis: %s", err)

		if mongoErr == nil {
			return err
		}
	}

	return mongoErr
}

func (cc *CredentialConnection) createMongo(ctx context.Context, credential *Credential) error {
	tracer := admission.NewTracerFromContext(ctx)
	logger := admission.NewLoggerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.mongodb.create")
	defer span.End()

	db, err := cc.mongo.GetDB(ctx)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to get database connection", err)

		logger.Errorf("Failed to get database connection: %s", err)

		return err
	}

	coll := db.Database(Database).Collection(cc.collection)

	now := time.Now().UTC()
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = now
	}

	credential.UpdatedAt = now

	insertResult, err := coll.InsertOne(ctx, credential)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to insert credential", err)

		logger.Errorf("Failed to insert credential: %s", err)

		return err
	}

	logger.Infoln("Inserted a document: ", insertResult.InsertedID)

	return nil
}

func (cc *CredentialConnection) findMongo(ctx context.Context, token string) (*Credential, error) {
	tracer := admission.NewTracerFromContext(ctx)
	logger := admission.NewLoggerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.mongodb.find")
	defer span.End()

	db, err := cc.mongo.GetDB(ctx)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to get database", err)

		logger.Errorf("Failed to get database: %s", err)

		return nil, err
	}

	coll := db.Database(Database).Collection(cc.collection)

	var record Credential

	if err = coll.FindOne(ctx, bson.M{"token": token}).Decode(&record); err != nil {
		if errors.Is(err, mongoDriver.ErrNoDocuments) {
			return nil, nil
		}

		opentelemetry.HandleSpanError(&span, "Failed to find credential", err)

		logger.Errorf("Failed to find credential: %s", err)

		return nil, err
	}

	return &record, nil
}

func (cc *CredentialConnection) deleteMongo(ctx context.Context, token string) error {
	tracer := admission.NewTracerFromContext(ctx)
	logger := admission.NewLoggerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.mongodb.delete")
	defer span.End()

	db, err := cc.mongo.GetDB(ctx)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to get database", err)

		logger.Errorf("Failed to get database: %s", err)

		return err
	}

	coll := db.Database(Database).Collection(cc.collection)

	deleted, err := coll.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to delete credential", err)

		logger.Errorf("Failed to delete credential: %s", err)

		return err
	}

	if deleted.DeletedCount > 0 {
		logger.Infof("total deleted a document with success: %v", deleted.DeletedCount)
	}

	return nil
}

func (cc *CredentialConnection) setNXRedis(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	tracer := admission.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.redis.set_nx")
	defer span.End()

	rds, err := cc.redis.GetClient(ctx)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to get redis", err)

		return false, err
	}

	isLocked, err := rds.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to set nx on redis", err)

		return false, err
	}

	return isLocked, nil
}

func (cc *CredentialConnection) getRedis(ctx context.Context, key string) (string, error) {
	tracer := admission.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.redis.get")
	defer span.End()

	rds, err := cc.redis.GetClient(ctx)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to connect on redis", err)

		return "", err
	}

	val, err := rds.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redisV9.Nil) {
		opentelemetry.HandleSpanError(&span, "Failed to get on redis", err)

		return "", err
	}

	return val, nil
}

func (cc *CredentialConnection) deleteRedis(ctx context.Context, key string) error {
	tracer := admission.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "credential.redis.del")
	defer span.End()

	rds, err := cc.redis.GetClient(ctx)
	if err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to del redis", err)

		return err
	}

	if _, err := rds.Del(ctx, key).Result(); err != nil {
		opentelemetry.HandleSpanError(&span, "Failed to del on redis", err)

		return err
	}

	return nil
}
