package store

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rushteam/eventrec/core"
)

// RedisStore 是 Redis 实现的 KeyValueStore。
// 生产环境常用，支持持久化、集群、哨兵等。
type RedisStore struct {
	client *redis.Client
}

// RedisOptions 是 RedisStore 的连接参数。
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Annotatef(err, "ping redis %s", opts.Addr)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	return val, errors.Trace(err)
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	return errors.Trace(r.client.Set(ctx, key, value, expiration(ttl)).Err())
}

func expiration(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return errors.Trace(r.client.Del(ctx, key).Err())
}

func (r *RedisStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}

	result := make(map[string][]byte, len(keys))
	for i, k := range keys {
		if s, ok := vals[i].(string); ok {
			result[k] = []byte(s)
		}
	}
	return result, nil
}

func (r *RedisStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	if len(kvs) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	exp := expiration(ttl)
	for k, v := range kvs {
		pipe.Set(ctx, k, v, exp)
	}
	_, err := pipe.Exec(ctx)
	return errors.Trace(err)
}

func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return errors.Trace(r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err())
}

func (r *RedisStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := r.client.ZRevRange(ctx, key, start, stop).Result()
	return members, errors.Trace(err)
}

func (r *RedisStore) ZRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error) {
	opt := &redis.ZRangeBy{Min: scoreArg(min), Max: scoreArg(max)}
	switch {
	case count > 0:
		opt.Offset, opt.Count = offset, count
	case offset > 0:
		// LIMIT 的负数 count 表示取到末尾
		opt.Offset, opt.Count = offset, -1
	}
	members, err := r.client.ZRangeByScore(ctx, key, opt).Result()
	return members, errors.Trace(err)
}

func scoreArg(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *RedisStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	val, err := r.client.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	return val, errors.Trace(err)
}

func (r *RedisStore) HSet(ctx context.Context, key, field string, value []byte) error {
	return errors.Trace(r.client.HSet(ctx, key, field, value).Err())
}

func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	vals, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := make(map[string][]byte, len(vals))
	for k, v := range vals {
		result[k] = []byte(v)
	}
	return result, nil
}

func (r *RedisStore) HIncrByFloat(ctx context.Context, key, field string, delta float64) (float64, error) {
	v, err := r.client.HIncrByFloat(ctx, key, field, delta).Result()
	return v, errors.Trace(err)
}

// HIncrByFloatMulti 在 MULTI/EXEC 事务中执行全部 HINCRBYFLOAT。
func (r *RedisStore) HIncrByFloatMulti(ctx context.Context, key string, deltas map[string]float64) error {
	if len(deltas) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, d := range deltas {
			pipe.HIncrByFloat(ctx, key, field, d)
		}
		return nil
	})
	return errors.Trace(err)
}

// CompareAndSwap 基于 WATCH/MULTI 实现：key 在读取后被修改时事务失败，返回 false。
func (r *RedisStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	swapped := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if old != nil {
				return nil
			}
		case err != nil:
			return err
		case old == nil || !bytes.Equal(cur, old):
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return swapped, errors.Trace(err)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// 确保 RedisStore 实现了 core.Store 和 core.KeyValueStore 接口
var _ core.Store = (*RedisStore)(nil)
var _ core.KeyValueStore = (*RedisStore)(nil)
