package livequery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dva-dashboard-be/internal/docstore"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var useCasesQuery = docstore.Collection(entity.UseCasesCollection).OrderBy("total_score", docstore.Descending)

type stateLog struct {
	mu     sync.Mutex
	states []FetchState
	notify chan struct{}
}

func newStateLog() *stateLog {
	return &stateLog{notify: make(chan struct{}, 64)}
}

func (l *stateLog) sink(s FetchState) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *stateLog) snapshot() []FetchState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]FetchState(nil), l.states...)
}

func (l *stateLog) waitLen(t *testing.T, n int) []FetchState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if states := l.snapshot(); len(states) >= n {
			return states
		}
		select {
		case <-l.notify:
		case <-deadline:
			t.Fatalf("expected %d states, got %d", n, len(l.snapshot()))
		}
	}
}

func seed(t *testing.T, store docstore.Store, key string, body map[string]interface{}) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), entity.UseCasesCollection, key, body))
}

func TestSubscribe_LoadingThenReady(t *testing.T) {
	store := docstore.NewMemoryStore(nil)
	defer store.Close()

	seed(t, store, "uc-1", map[string]interface{}{"name": "Precision Medicine", "type": "A", "category_name": "Clinical", "total_score": 7.0, "owner": "x"})
	seed(t, store, "uc-2", map[string]interface{}{"name": "Marketplace", "type": "B", "category_name": "Revenue", "total_score": 9.0})

	log := newStateLog()
	sub := Subscribe(store, useCasesQuery, log.sink, logger.NewNopLogger())
	defer sub.Close()

	states := log.waitLen(t, 2)
	assert.Equal(t, Loading, states[0].Kind)
	require.Equal(t, Ready, states[1].Kind)

	records := states[1].Records
	require.Len(t, records, 2)
	assert.Equal(t, "uc-2", records[0].ID)
	assert.Equal(t, "uc-1", records[1].ID)
	assert.Equal(t, "Precision Medicine", records[1].Name)
	assert.Equal(t, "A", records[1].Type)
	assert.Equal(t, "Clinical", records[1].CategoryName)
	assert.Equal(t, 7.0, records[1].TotalScore)
	assert.Equal(t, "x", records[1].Fields["owner"])
}

func TestSubscribe_EmptyCollectionIsReady(t *testing.T) {
	store := docstore.NewMemoryStore(nil)
	defer store.Close()

	log := newStateLog()
	sub := Subscribe(store, useCasesQuery, log.sink, logger.NewNopLogger())
	defer sub.Close()

	states := log.waitLen(t, 2)
	require.Equal(t, Ready, states[1].Kind)
	assert.NotNil(t, states[1].Records)
	assert.Empty(t, states[1].Records)
}

func TestSubscribe_SnapshotsReplaceRecords(t *testing.T) {
	store := docstore.NewMemoryStore(nil)
	defer store.Close()
	seed(t, store, "uc-1", map[string]interface{}{"name": "one", "total_score": 1})

	log := newStateLog()
	sub := Subscribe(store, useCasesQuery, log.sink, logger.NewNopLogger())
	defer sub.Close()
	log.waitLen(t, 2)

	require.NoError(t, store.Delete(context.Background(), entity.UseCasesCollection, "uc-1"))
	seed(t, store, "uc-2", map[string]interface{}{"name": "two", "total_score": 2})

	deadline := time.After(2 * time.Second)
	for {
		states := log.snapshot()
		last := states[len(states)-1]
		if last.Kind == Ready && len(last.Records) == 1 && last.Records[0].ID == "uc-2" {
			break
		}
		select {
		case <-log.notify:
		case <-deadline:
			t.Fatalf("final snapshot not observed: %+v", last)
		}
	}
}

func TestSubscribe_StreamErrorIsTerminal(t *testing.T) {
	store := docstore.NewMemoryStore(nil)

	log := newStateLog()
	sub := Subscribe(store, useCasesQuery, log.sink, logger.NewNopLogger())
	defer sub.Close()
	log.waitLen(t, 2)

	require.NoError(t, store.Close())
	states := log.waitLen(t, 3)
	assert.Equal(t, Failed, states[2].Kind)
	assert.Equal(t, msgLoadFailed, states[2].Message)
	assert.Nil(t, states[2].Records)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, log.snapshot(), 3)
}

type brokenStore struct {
	docstore.Store
}

func (brokenStore) Subscribe(docstore.Query, docstore.SnapshotHandler, docstore.ErrorHandler) (func(), error) {
	return nil, errors.New("permission denied")
}

func TestSubscribe_SetupFailure(t *testing.T) {
	log := newStateLog()
	sub := Subscribe(brokenStore{}, useCasesQuery, log.sink, logger.NewNopLogger())
	defer sub.Close()

	states := log.snapshot()
	require.Len(t, states, 2)
	assert.Equal(t, Loading, states[0].Kind)
	assert.Equal(t, Failed, states[1].Kind)
	assert.Equal(t, msgSetupFailed, states[1].Message)
}

func TestSubscribe_NoEmissionAfterClose(t *testing.T) {
	store := docstore.NewMemoryStore(nil)
	defer store.Close()

	log := newStateLog()
	sub := Subscribe(store, useCasesQuery, log.sink, logger.NewNopLogger())
	log.waitLen(t, 2)

	sub.Close()
	sub.Close()

	seed(t, store, "uc-late", map[string]interface{}{"name": "late"})
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, log.snapshot(), 2)
}
