package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"dva-dashboard-be/internal/auth"
	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/docstore"
	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/matrix"
	"dva-dashboard-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errConnClosed = errors.New("connection closed")

// fakeConn feeds inbound frames from a channel and records outbound ones.
type fakeConn struct {
	inbound  chan []byte
	outbound chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 8),
		outbound: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.inbound:
		return 1, msg, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	if messageType == 1 {
		c.outbound <- data
	}
	return nil
}

func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

const descriptor = `{"apiKey":"k","authDomain":"dva.firebaseapp.com","projectId":"dva","appId":"app"}`

type harness struct {
	hub   *Hub
	store *docstore.MemoryStore
	conn  *fakeConn
	done  chan struct{}
}

func newHarness(t *testing.T, serviceConfig string) *harness {
	t.Helper()
	h := &harness{
		hub:   NewHub(logger.NewNopLogger()),
		store: docstore.NewMemoryStore(nil),
		conn:  newFakeConn(),
		done:  make(chan struct{}),
	}
	go h.hub.Run()
	t.Cleanup(func() {
		h.conn.Close()
		<-h.done
		h.hub.Shutdown()
		_ = h.store.Close()
	})

	require.NoError(t, h.store.Set(context.Background(), entity.UseCasesCollection, "uc-1",
		map[string]interface{}{"name": "one", "type": "A", "total_score": 2}))
	require.NoError(t, h.store.Set(context.Background(), entity.UseCasesCollection, "uc-2",
		map[string]interface{}{"name": "two", "type": "B", "total_score": 1}))

	page := matrix.NewPage(matrix.MatrixConfig{
		ServiceConfigJSON: serviceConfig,
		EmbedURL:          "https://lookerstudio.google.com/embed/reporting/r/page/p",
	}, matrix.PageDeps{
		Store: h.store,
		NewProvider: func(cfg config.ServiceConfig, token string) auth.Provider {
			return auth.NewJWTProvider(cfg, "test-secret", time.Hour, token)
		},
		Logger: logger.NewNopLogger(),
	}, "")

	go func() {
		defer close(h.done)
		ServeWs(h.hub, h.conn, page, "", logger.NewNopLogger())
	}()
	return h
}

// next waits for the first outbound message matching cond.
func (h *harness) next(t *testing.T, cond func(dto.ServerMessage, matrix.ViewModel) bool) (dto.ServerMessage, matrix.ViewModel) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-h.conn.outbound:
			var msg dto.ServerMessage
			require.NoError(t, json.Unmarshal(raw, &msg))

			var vm matrix.ViewModel
			if msg.Event == dto.EventView {
				data, _ := json.Marshal(msg.Data)
				require.NoError(t, json.Unmarshal(data, &vm))
			}
			if cond(msg, vm) {
				return msg, vm
			}
		case <-deadline:
			t.Fatal("no matching message")
		}
	}
}

func TestServeWs_PushesViewsAndAppliesFilters(t *testing.T) {
	h := newHarness(t, descriptor)

	msg, _ := h.next(t, func(m dto.ServerMessage, _ matrix.ViewModel) bool { return m.Event == dto.EventSession })
	token, _ := msg.Data.(map[string]interface{})["token"].(string)
	assert.NotEmpty(t, token)

	_, vm := h.next(t, func(m dto.ServerMessage, vm matrix.ViewModel) bool { return vm.State == matrix.ListItems })
	assert.Len(t, vm.Items, 2)
	assert.Equal(t, 1, h.hub.Count())

	h.conn.inbound <- []byte(`{"action":"filter","type":"B","category":"all"}`)
	_, vm = h.next(t, func(m dto.ServerMessage, vm matrix.ViewModel) bool {
		return vm.State == matrix.ListItems && vm.Selection.Type == "B"
	})
	require.Len(t, vm.Items, 1)
	assert.Equal(t, "two", vm.Items[0].Name)
	assert.Contains(t, vm.Embed.URL, "type_filter=B")
}

func TestServeWs_RejectsUnknownMessages(t *testing.T) {
	h := newHarness(t, descriptor)

	h.conn.inbound <- []byte(`not json`)
	msg, _ := h.next(t, func(m dto.ServerMessage, _ matrix.ViewModel) bool { return m.Event == dto.EventError })
	assert.Equal(t, "malformed message", msg.Data)

	h.conn.inbound <- []byte(`{"action":"delete"}`)
	msg, _ = h.next(t, func(m dto.ServerMessage, _ matrix.ViewModel) bool { return m.Event == dto.EventError })
	assert.Equal(t, "unsupported action", msg.Data)
}

func TestServeWs_DisabledWithoutServiceConfig(t *testing.T) {
	h := newHarness(t, "")

	_, vm := h.next(t, func(m dto.ServerMessage, vm matrix.ViewModel) bool { return vm.State == matrix.ListDisabled })
	assert.Equal(t, matrix.MsgDisabled, vm.Message)
}

func TestServeWs_DisconnectUnregisters(t *testing.T) {
	h := newHarness(t, descriptor)
	h.next(t, func(m dto.ServerMessage, vm matrix.ViewModel) bool { return vm.State == matrix.ListItems })

	h.conn.Close()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeWs did not return")
	}

	assert.Eventually(t, func() bool { return h.hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}
