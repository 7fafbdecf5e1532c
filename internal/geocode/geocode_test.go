package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "10 rue de Rivoli", r.URL.Query().Get("q"))
		assert.Equal(t, "fr", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"display_name":"10 Rue de Rivoli, Paris","lat":"48.8556","lon":"2.3601"},
			{"display_name":"broken","lat":"n/a","lon":"2"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	got, err := c.Search(context.Background(), Query{Text: "10 rue de Rivoli", Country: "fr", Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10 Rue de Rivoli, Paris", got[0].DisplayName)
	assert.InDelta(t, 48.8556, got[0].Lat, 1e-9)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Search(context.Background(), Query{Text: "Lyon"})
	assert.Error(t, err)
	assert.Empty(t, SafeSearch(context.Background(), c, Query{Text: "Lyon"}))
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond)
	res := SafeSearch(context.Background(), c, Query{Text: "Marseille"})
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestStatic(t *testing.T) {
	s := Static{Candidates: []Candidate{{DisplayName: "Place Bellecour, Lyon"}, {DisplayName: "Vieux-Port, Marseille"}, {DisplayName: "Part-Dieu, Lyon"}}}
	got, err := s.Search(context.Background(), Query{Text: "lyon", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Place Bellecour, Lyon", got[0].DisplayName)

	assert.Empty(t, SafeSearch(context.Background(), Static{Err: errors.New("down")}, Query{Text: "x"}))
	assert.Empty(t, SafeSearch(context.Background(), nil, Query{Text: "x"}))
}

type countingSearcher struct {
	calls atomic.Int32
	err   error
}

func (c *countingSearcher) Search(_ context.Context, q Query) ([]Candidate, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []Candidate{{DisplayName: q.Text}}, nil
}

func TestCachedMemoizesSuccess(t *testing.T) {
	inner := &countingSearcher{}
	c, err := NewCached(inner, 4)
	require.NoError(t, err)

	q := Query{Text: "Rue Victor Hugo", Country: "fr", Limit: 5}
	_, err = c.Search(context.Background(), q)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), Query{Text: "  rue victor hugo ", Country: "FR", Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedSkipsErrors(t *testing.T) {
	inner := &countingSearcher{err: errors.New("timeout")}
	c, err := NewCached(inner, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.Search(context.Background(), Query{Text: "Nantes"})
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 0, c.Len())
}
