package docstore

import (
	"context"
	"errors"
)

var (
	ErrStoreClosed        = errors.New("document store closed")
	ErrSubscriptionClosed = errors.New("document subscription closed by store")
	ErrInvalidDocument    = errors.New("invalid document")
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Document is one entry of a collection snapshot.
type Document struct {
	Key  string
	Body map[string]interface{}
}

// Snapshot is the full ordered content of a query at one point in time.
type Snapshot struct {
	Documents []Document
}

type CollectionRef struct {
	Path string
}

func Collection(path string) CollectionRef {
	return CollectionRef{Path: path}
}

func (c CollectionRef) OrderBy(field string, dir Direction) Query {
	return Query{Path: c.Path, OrderField: field, Direction: dir}
}

// Query selects a whole collection in a fixed order.
type Query struct {
	Path       string
	OrderField string
	Direction  Direction
}

type SnapshotHandler func(Snapshot)

type ErrorHandler func(error)

// Store is a realtime document store. Subscribe delivers the current snapshot
// and then a fresh one after every change until the returned function is
// called. Handlers run on a store goroutine; the unsubscribe function blocks
// until that goroutine is gone and must not be called from inside a handler.
// After a stream error no further snapshots are delivered.
type Store interface {
	Subscribe(q Query, onSnapshot SnapshotHandler, onError ErrorHandler) (unsubscribe func(), err error)
	Get(ctx context.Context, q Query) (Snapshot, error)
	Set(ctx context.Context, path, key string, body map[string]interface{}) error
	Delete(ctx context.Context, path, key string) error
	Close() error
}
