package livequery

import (
	"sync"

	"dva-dashboard-be/internal/docstore"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/pkg/logger"
)

const module = "LiveCollectionSubscriber"

const (
	msgLoadFailed  = "Failed to load use cases. Please check the server logs for details."
	msgSetupFailed = "Failed to initialize data fetching. Please check the server logs for details."
)

// Sink receives every state change. It runs on the store's goroutine and must
// not call Close on the subscription that feeds it.
type Sink func(FetchState)

// Subscription is a standing query whose states flow into a sink until Close.
type Subscription struct {
	mu          sync.Mutex
	sink        Sink
	closed      bool
	failed      bool
	unsubscribe func()
	log         logger.ILogger
	path        string
}

// Subscribe emits Loading, then Ready for each snapshot of q, or Failed once
// on a stream error. There is no retry; open a new subscription instead.
func Subscribe(store docstore.Store, q docstore.Query, sink Sink, log logger.ILogger) *Subscription {
	s := &Subscription{sink: sink, log: log, path: q.Path}

	sink(LoadingState())

	log.Info(module, "Opening collection subscription", map[string]interface{}{
		"path":      q.Path,
		"order_by":  q.OrderField,
		"direction": q.Direction.String(),
	})

	unsubscribe, err := store.Subscribe(q, s.onSnapshot, s.onError)
	if err != nil {
		log.Error(module, "Failed to set up collection listener", map[string]interface{}{"path": q.Path, "error": err})
		s.fail(msgSetupFailed)
		return s
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	return s
}

func (s *Subscription) onSnapshot(snap docstore.Snapshot) {
	records := make([]entity.UseCase, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		records = append(records, toUseCase(doc))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed {
		return
	}
	s.sink(ReadyState(records))
}

func (s *Subscription) onError(err error) {
	s.log.Error(module, "Collection subscription failed", map[string]interface{}{"path": s.path, "error": err})
	s.fail(msgLoadFailed)
}

func (s *Subscription) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed {
		return
	}
	s.failed = true
	s.sink(FailedState(message))
}

// Close releases the store subscription. Once it returns the sink is never
// called again. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func toUseCase(doc docstore.Document) entity.UseCase {
	uc := entity.UseCase{
		ID:     doc.Key,
		Fields: doc.Body,
	}
	uc.Name, _ = doc.Body["name"].(string)
	uc.Type, _ = doc.Body["type"].(string)
	uc.CategoryName, _ = doc.Body["category_name"].(string)
	uc.TotalScore = toFloat(doc.Body["total_score"])
	return uc
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
