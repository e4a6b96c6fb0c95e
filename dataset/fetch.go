// Package dataset retrieves the supporting dataset file from an ordered list
// of candidate mirrors.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const defaultAttemptTimeout = 30 * time.Second

// FetchSpec describes one fetch: candidate URLs in preference order, where
// to write the file, and the per-URL retry budget for transient failures.
type FetchSpec struct {
	URLs        []string
	Dest        string
	MaxAttempts int
	RetryDelay  time.Duration
}

// Fetcher downloads a dataset file. Retrying is this component's exclusive
// responsibility: transient failures (timeouts, 5xx) are retried with a
// fixed delay up to MaxAttempts per URL, while non-transient failures (4xx,
// malformed URLs) abandon the current URL immediately and fall through to
// the next candidate. A 404 on one mirror is not fixed by retrying it, but a
// timeout might be.
type Fetcher struct {
	HTTPClient *http.Client

	// AttemptTimeout bounds each individual download attempt. Zero means
	// defaultAttemptTimeout.
	AttemptTimeout time.Duration
}

// Fetch tries each candidate URL in order and reports whether the dataset
// landed at spec.Dest. Total exhaustion is not an error: the caller
// continues without the dataset.
func (f *Fetcher) Fetch(ctx context.Context, spec FetchSpec) bool {
	maxAttempts := spec.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for _, url := range spec.URLs {
		attempt := 0
		operation := func() error {
			attempt++
			err := f.downloadOnce(ctx, url, spec.Dest)
			if err == nil {
				return nil
			}
			if isTransient(err) {
				log.Warn().
					Err(err).
					Str("url", url).
					Msgf("Attempt %d/%d failed to download dataset", attempt, maxAttempts)
				return err
			}
			log.Error().Err(err).Str("url", url).Msg("Failed to download dataset")
			return backoff.Permanent(err)
		}

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(spec.RetryDelay), uint64(maxAttempts-1)),
			ctx,
		)
		if err := backoff.Retry(operation, policy); err == nil {
			log.Info().Str("dest", spec.Dest).Str("url", url).Msg("Downloaded dataset")
			return true
		}
	}

	log.Warn().Msg("All dataset download attempts failed. Continuing without dataset.")
	return false
}

func (f *Fetcher) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, dest string) error {
	timeout := f.AttemptTimeout
	if timeout == 0 {
		timeout = defaultAttemptTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build dataset request: %w", err)
	}

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("dataset request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &statusError{URL: url, StatusCode: resp.StatusCode}
	}

	// Write to a temp file first so a partial download never lands at dest.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".dataset-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move dataset into place: %w", err)
	}
	return nil
}

type statusError struct {
	URL        string
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("dataset download from %s returned status %d", e.URL, e.StatusCode)
}

// isTransient classifies failures for the two-tier retry policy: server-side
// errors and timeouts may clear up on retry; everything else will not.
func isTransient(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.StatusCode >= 500 || status.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
