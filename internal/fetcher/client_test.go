package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bold-client-go/internal/model"
)

func TestClient_Fetch(t *testing.T) {
	var gotPath, gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("taxName")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"taxid":891,"taxon":"Fabaceae","tax_rank":"family"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(5*time.Second))
	body, err := c.Fetch(context.Background(), model.ModeTaxonSearch, &Query{TaxonName: "Fabaceae"})
	require.NoError(t, err)

	assert.Equal(t, `{"taxid":891,"taxon":"Fabaceae","tax_rank":"family"}`, string(body))
	assert.Equal(t, "/API_Tax/TaxonSearch", gotPath)
	assert.Equal(t, "Fabaceae", gotQuery)
	assert.Equal(t, userAgent, gotAgent)
}

func TestClient_FetchUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Fetch(context.Background(), model.ModeTaxonData, &Query{TaxonID: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_FetchInvalidQueryNeverSends(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Fetch(context.Background(), model.ModeIdentify, &Query{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Zero(t, calls.Load())
}

func TestClient_FetchCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(300*time.Millisecond))
	_, err := c.Fetch(ctx, model.ModeTaxonSearch, &Query{TaxonName: "Aves"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CanceledCallerDoesNotFailSharedRequest(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.Write([]byte(`{"taxid":7044,"taxon":"Euptychia"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(5*time.Second))
	q := &Query{TaxonName: "Euptychia"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctxA, model.ModeTaxonSearch, q)
		errA <- err
	}()
	<-started

	type outcome struct {
		body []byte
		err  error
	}
	resB := make(chan outcome, 1)
	go func() {
		body, err := c.Fetch(context.Background(), model.ModeTaxonSearch, q)
		resB <- outcome{body, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, `{"taxid":7044,"taxon":"Euptychia"}`, string(b.body))
}

func TestClient_SharesInFlightRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte("<matches/>"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	q := &Query{Sequence: "ACGT"}

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, err := c.Fetch(context.Background(), model.ModeIdentify, q)
			if err == nil {
				results[i] = string(body)
			}
		}(i)
	}

	// let every goroutine join the flight before answering
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "<matches/>", r)
	}
	assert.LessOrEqual(t, calls.Load(), int32(4))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestClient_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(10, 1))
	require.NotNil(t, c.limiter)

	start := time.Now()
	for _, name := range []string{"a", "b", "c"} {
		_, err := c.Fetch(context.Background(), model.ModeTaxonSearch, &Query{TaxonName: name})
		require.NoError(t, err)
	}
	// burst of one at 10/s: the second and third calls wait ~100ms each
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	assert.Nil(t, NewClient(WithRateLimit(0, 5)).limiter)
}
