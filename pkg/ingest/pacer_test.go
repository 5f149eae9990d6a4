package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerSpacesCalls(t *testing.T) {
	p := NewPacer(30 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestPacerCountsFromDone(t *testing.T) {
	p := NewPacer(40 * time.Millisecond)
	require.NoError(t, p.Wait(context.Background()))
	time.Sleep(60 * time.Millisecond)
	p.Done()

	finished := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(finished), 40*time.Millisecond)
}

func TestPacerHonoursContext(t *testing.T) {
	p := NewPacer(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}

func TestNilPacer(t *testing.T) {
	var p *Pacer
	assert.NoError(t, p.Wait(context.Background()))
	p.Done()
}

func TestFetcherPausesAfterSlowCalls(t *testing.T) {
	const (
		latency = 100 * time.Millisecond
		delay   = 80 * time.Millisecond
	)
	var (
		mu       sync.Mutex
		arrivals []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		time.Sleep(latency)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := &Fetcher{Client: srv.Client(), Pacer: NewPacer(delay), Adapter: "lexical"}
	for i := 0; i < 3; i++ {
		var out []WordScore
		require.NoError(t, f.GetJSON(context.Background(), srv.URL, "application/json", &out))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, arrivals, 3)
	for i := 1; i < len(arrivals); i++ {
		assert.GreaterOrEqual(t, arrivals[i].Sub(arrivals[i-1]), latency+delay)
	}
}
