package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "docstore:"

// RedisStore keeps each collection in a hash (field = document key, value =
// JSON body) and announces every write on a per-collection channel. Several
// dashboard instances can share one Redis and see each other's writes.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func collectionKey(path string) string {
	return redisKeyPrefix + path
}

func changesChannel(path string) string {
	return redisKeyPrefix + path + ":changes"
}

func (r *RedisStore) Set(ctx context.Context, path, key string, body map[string]interface{}) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidDocument)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, collectionKey(path), key, data)
		pipe.Publish(ctx, changesChannel(path), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", path, key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, path, key string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, collectionKey(path), key)
		pipe.Publish(ctx, changesChannel(path), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", path, key, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, q Query) (Snapshot, error) {
	raw, err := r.rdb.HGetAll(ctx, collectionKey(q.Path)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", q.Path, err)
	}

	docs := make([]Document, 0, len(raw))
	for key, value := range raw {
		var body map[string]interface{}
		if err := json.Unmarshal([]byte(value), &body); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s/%s: %v", ErrInvalidDocument, q.Path, key, err)
		}
		docs = append(docs, Document{Key: key, Body: body})
	}
	sortDocuments(docs, q.OrderField, q.Direction)

	return Snapshot{Documents: docs}, nil
}

func (r *RedisStore) Subscribe(q Query, onSnapshot SnapshotHandler, onError ErrorHandler) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	pubsub := r.rdb.Subscribe(ctx, changesChannel(q.Path))

	// Wait for the subscription to be confirmed so no write between here and
	// the first snapshot is missed.
	confirmCtx, confirmCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := pubsub.Receive(confirmCtx)
	confirmCancel()
	if err != nil {
		_ = pubsub.Close()
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", q.Path, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		emit := func() bool {
			snap, err := r.Get(ctx, q)
			if ctx.Err() != nil {
				return false
			}
			if err != nil {
				onError(err)
				return false
			}
			onSnapshot(snap)
			return true
		}

		if !emit() {
			return
		}

		changes := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					if ctx.Err() == nil {
						onError(ErrSubscriptionClosed)
					}
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

// Close is a no-op; the Redis client is owned by the container.
func (r *RedisStore) Close() error {
	return nil
}
