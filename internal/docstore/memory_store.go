package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// MemoryStore keeps collections in process and fans change notifications out
// through a watermill go-channel pubsub, one topic per collection.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	closed      bool

	pubSub *gochannel.GoChannel
}

func NewMemoryStore(logger watermill.LoggerAdapter) *MemoryStore {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			logger,
		),
	}
}

func changesTopic(path string) string {
	return "docstore." + path
}

func (m *MemoryStore) Set(ctx context.Context, path, key string, body map[string]interface{}) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidDocument)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrStoreClosed
	}
	coll, ok := m.collections[path]
	if !ok {
		coll = make(map[string]map[string]interface{})
		m.collections[path] = coll
	}
	coll[key] = copyBody(body)
	m.mu.Unlock()

	return m.notify(ctx, path, key)
}

func (m *MemoryStore) Delete(ctx context.Context, path, key string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrStoreClosed
	}
	coll, ok := m.collections[path]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if _, ok := coll[key]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(coll, key)
	m.mu.Unlock()

	return m.notify(ctx, path, key)
}

func (m *MemoryStore) notify(ctx context.Context, path, key string) error {
	msg := message.NewMessage(watermill.NewUUID(), []byte(key))
	msg.SetContext(ctx)
	if err := m.pubSub.Publish(changesTopic(path), msg); err != nil {
		return fmt.Errorf("publish change for %s/%s: %w", path, key, err)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, q Query) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}

	coll := m.collections[q.Path]
	docs := make([]Document, 0, len(coll))
	for key, body := range coll {
		docs = append(docs, Document{Key: key, Body: copyBody(body)})
	}
	sortDocuments(docs, q.OrderField, q.Direction)

	return Snapshot{Documents: docs}, nil
}

func (m *MemoryStore) Subscribe(q Query, onSnapshot SnapshotHandler, onError ErrorHandler) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := m.pubSub.Subscribe(ctx, changesTopic(q.Path))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", q.Path, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		emit := func() bool {
			snap, err := m.Get(ctx, q)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				return false
			}
			if ctx.Err() != nil {
				return false
			}
			onSnapshot(snap)
			return true
		}

		if !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-changes:
				if !ok {
					if ctx.Err() == nil {
						onError(ErrSubscriptionClosed)
					}
					return
				}
				msg.Ack()
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
			<-done
		})
	}, nil
}

// Close stops the pubsub; open subscriptions receive ErrSubscriptionClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.pubSub.Close()
}
