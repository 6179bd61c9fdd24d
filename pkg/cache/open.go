package cache

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendFile, BackendRedis, BackendMongo, BackendNone}

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Dir is the FileCache directory.
	Dir string

	// RedisAddr is host:port of the Redis server.
	RedisAddr string

	// MongoURI, MongoDatabase and MongoCollection locate the MongoDB
	// collection. Empty names use the defaults.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open returns the backend named by cfg.Backend. An empty name means file.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache: no directory")
		}
		return orNil(NewFileCache(cfg.Dir))
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache: no address")
		}
		return orNil(NewRedisCache(ctx, cfg.RedisAddr))
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongo cache: no uri")
		}
		db, coll := cfg.MongoDatabase, cfg.MongoCollection
		if db == "" {
			db = DefaultMongoDatabase
		}
		if coll == "" {
			coll = DefaultMongoCollection
		}
		return orNil(NewMongoCache(ctx, cfg.MongoURI, db, coll))
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("%w: %q (must be one of: %s)", ErrUnknownBackend, cfg.Backend, strings.Join(Backends, ", "))
}

// orNil keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer.
func orNil(c Cache, err error) (Cache, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
