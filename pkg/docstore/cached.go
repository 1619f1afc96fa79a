package docstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mocktest_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CachedStore 对指定集合做 Redis 读缓存。
// 写操作会递增集合版本号，使该集合的列表缓存全部失效。
type CachedStore struct {
	Store
	rdb         *redis.Client
	ttl         time.Duration
	collections map[string]bool
}

func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, collections ...string) *CachedStore {
	set := make(map[string]bool, len(collections))
	for _, c := range collections {
		set[c] = true
	}
	return &CachedStore{Store: inner, rdb: rdb, ttl: ttl, collections: set}
}

func docKey(collection, id string) string {
	return fmt.Sprintf("docstore:doc:%s:%s", collection, id)
}

func versionKey(collection string) string {
	return "docstore:ver:" + collection
}

func (s *CachedStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	if !s.collections[collection] {
		return s.Store.Get(ctx, collection, id)
	}

	key := docKey(collection, id)
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err == nil {
			return &rec, nil
		}
	} else if err != redis.Nil {
		logger.Log.Warn("docstore cache read failed", zap.String("key", key), zap.Error(err))
	}

	rec, err := s.Store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, key, rec)
	return rec, nil
}

func (s *CachedStore) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	if !s.collections[collection] {
		return s.Store.List(ctx, collection, q)
	}

	version, err := s.rdb.Get(ctx, versionKey(collection)).Result()
	if err == redis.Nil {
		version = "0"
	} else if err != nil {
		logger.Log.Warn("docstore cache version read failed", zap.String("collection", collection), zap.Error(err))
		return s.Store.List(ctx, collection, q)
	}

	key := fmt.Sprintf("docstore:list:%s:%s:%s", collection, version, queryHash(q))
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var records []Record
		if err := json.Unmarshal(raw, &records); err == nil {
			return records, nil
		}
	}

	records, err := s.Store.List(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	s.put(ctx, key, records)
	return records, nil
}

func (s *CachedStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	rec, err := s.Store.Create(ctx, collection, id, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, collection, id)
	return rec, nil
}

func (s *CachedStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	rec, err := s.Store.Update(ctx, collection, id, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, collection, id)
	return rec, nil
}

func (s *CachedStore) put(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		logger.Log.Warn("docstore cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CachedStore) invalidate(ctx context.Context, collection, id string) {
	if !s.collections[collection] {
		return
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, docKey(collection, id))
	pipe.Incr(ctx, versionKey(collection))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("docstore cache invalidation failed", zap.String("collection", collection), zap.Error(err))
	}
}

func queryHash(q Query) string {
	raw, _ := json.Marshal(q)
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:8])
}
