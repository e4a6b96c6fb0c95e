package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, status int, body string, counter *int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*counter++
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch_FirstURLSucceeds(t *testing.T) {
	var attempts int
	server := countingServer(t, http.StatusOK, "sepal,petal\n1,2\n", &attempts)
	dest := filepath.Join(t.TempDir(), "data.csv")

	fetcher := &Fetcher{}
	ok := fetcher.Fetch(context.Background(), FetchSpec{
		URLs:        []string{server.URL},
		Dest:        dest,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})

	require.True(t, ok)
	assert.Equal(t, 1, attempts)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "sepal,petal\n1,2\n", string(content))
}

func TestFetch_NonTransientFallsThroughWithoutRetry(t *testing.T) {
	var firstAttempts, secondAttempts int
	first := countingServer(t, http.StatusNotFound, "not here", &firstAttempts)
	second := countingServer(t, http.StatusOK, "mirror content", &secondAttempts)
	dest := filepath.Join(t.TempDir(), "data.csv")

	fetcher := &Fetcher{}
	ok := fetcher.Fetch(context.Background(), FetchSpec{
		URLs:        []string{first.URL, second.URL},
		Dest:        dest,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})

	require.True(t, ok)
	// 404 is non-transient: exactly one attempt before falling through.
	assert.Equal(t, 1, firstAttempts)
	assert.Equal(t, 1, secondAttempts)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "mirror content", string(content))
}

func TestFetch_TransientExhaustsRetryBudget(t *testing.T) {
	var attempts int
	server := countingServer(t, http.StatusServiceUnavailable, "busy", &attempts)
	dest := filepath.Join(t.TempDir(), "data.csv")

	retryDelay := 20 * time.Millisecond
	start := time.Now()

	fetcher := &Fetcher{}
	ok := fetcher.Fetch(context.Background(), FetchSpec{
		URLs:        []string{server.URL},
		Dest:        dest,
		MaxAttempts: 3,
		RetryDelay:  retryDelay,
	})

	assert.False(t, ok)
	assert.Equal(t, 3, attempts)
	// Two sleeps of RetryDelay separate the three attempts.
	assert.GreaterOrEqual(t, time.Since(start), 2*retryDelay)

	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestFetch_MalformedURLIsNonTransient(t *testing.T) {
	var attempts int
	server := countingServer(t, http.StatusOK, "fallback", &attempts)
	dest := filepath.Join(t.TempDir(), "data.csv")

	fetcher := &Fetcher{}
	ok := fetcher.Fetch(context.Background(), FetchSpec{
		URLs:        []string{"://not-a-url", server.URL},
		Dest:        dest,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})

	require.True(t, ok)
	assert.Equal(t, 1, attempts)
}

func TestFetch_AllURLsExhaustedReturnsFalse(t *testing.T) {
	var attempts int
	server := countingServer(t, http.StatusNotFound, "nope", &attempts)
	dest := filepath.Join(t.TempDir(), "data.csv")

	fetcher := &Fetcher{}
	ok := fetcher.Fetch(context.Background(), FetchSpec{
		URLs:        []string{server.URL, server.URL},
		Dest:        dest,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	})

	assert.False(t, ok)
	assert.Equal(t, 2, attempts)
}

func TestFetch_MaxAttemptsFloor(t *testing.T) {
	var attempts int
	server := countingServer(t, http.StatusServiceUnavailable, "busy", &attempts)

	fetcher := &Fetcher{}
	ok := fetcher.Fetch(context.Background(), FetchSpec{
		URLs:        []string{server.URL},
		Dest:        filepath.Join(t.TempDir(), "data.csv"),
		MaxAttempts: 0,
		RetryDelay:  time.Millisecond,
	})

	assert.False(t, ok)
	assert.Equal(t, 1, attempts)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&statusError{StatusCode: 500}))
	assert.True(t, isTransient(&statusError{StatusCode: 503}))
	assert.True(t, isTransient(&statusError{StatusCode: 429}))
	assert.False(t, isTransient(&statusError{StatusCode: 404}))
	assert.False(t, isTransient(&statusError{StatusCode: 403}))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.False(t, isTransient(os.ErrPermission))
}
