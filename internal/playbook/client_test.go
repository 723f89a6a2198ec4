package playbook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dva-dashboard-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url, time.Second, time.Minute, logger.NewNopLogger())
}

func TestFetch_MapsSectionsAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 100, req.ClientID)
		assert.Equal(t, 10, req.UseCaseID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Executive Summary": "ABC Health System can monetize data.",
			"Financial Modeling & ROI Assessment": "ROI of 3x over 5 years."
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	pb, err := c.Fetch(context.Background(), 100, 10)
	require.NoError(t, err)
	require.Len(t, pb.Sections, len(Sections))

	assert.Equal(t, "Executive Summary", pb.Sections[0].Title)
	assert.Equal(t, "section-0", pb.Sections[0].Anchor)
	assert.Equal(t, "ABC Health System can monetize data.", pb.Sections[0].Content)
	assert.False(t, pb.Sections[0].Pending)

	assert.Equal(t, "ROI of 3x over 5 years.", pb.Sections[4].Content)
	assert.Equal(t, PlaceholderContent, pb.Sections[1].Content)
	assert.True(t, pb.Sections[1].Pending)

	_, err = c.Fetch(context.Background(), 100, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second fetch should hit the cache")
}

func TestFetch_NestedSections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sections": {"Appendices": "Glossary and sources."}}`))
	}))
	defer srv.Close()

	pb, err := newTestClient(srv.URL).Fetch(context.Background(), 1, 2)
	require.NoError(t, err)
	last := pb.Sections[len(pb.Sections)-1]
	assert.Equal(t, "Appendices", last.Title)
	assert.Equal(t, "Glossary and sources.", last.Content)
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("boom"))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			c := newTestClient(srv.URL)
			_, err := c.Fetch(context.Background(), 1, 1)
			assert.True(t, errors.Is(err, ErrPlaybookUnavailable), "got %v", err)

			// failures are not cached
			_, _ = c.Fetch(context.Background(), 1, 1)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestFetch_NotConfigured(t *testing.T) {
	_, err := newTestClient("").Fetch(context.Background(), 1, 1)
	assert.True(t, errors.Is(err, ErrPlaybookUnavailable))
}
