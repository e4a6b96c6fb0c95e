package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog/log"
)

const githubAPIBase = "https://api.github.com"

// ForkSpec identifies an upstream GitHub repository to fork and clone.
type ForkSpec struct {
	Owner string
	Name  string
}

// ParseForkSpec parses "owner/name" into a ForkSpec.
func ParseForkSpec(s string) (ForkSpec, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ForkSpec{}, fmt.Errorf("invalid fork spec %q: want owner/name", s)
	}
	return ForkSpec{Owner: parts[0], Name: parts[1]}, nil
}

// Forker forks an upstream repository into the authenticated user's account
// and clones the fork locally.
type Forker struct {
	Token      string
	APIBase    string // defaults to the public GitHub API
	HTTPClient *http.Client
}

func (f *Forker) apiBase() string {
	if f.APIBase != "" {
		return f.APIBase
	}
	return githubAPIBase
}

func (f *Forker) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

// Fork creates (or reuses) a fork of spec and clones it under baseDir. The
// clone is skipped when the target directory already exists. It returns the
// local clone path.
func (f *Forker) Fork(ctx context.Context, spec ForkSpec, baseDir string) (string, error) {
	if f.Token == "" {
		return "", fmt.Errorf("forking %s/%s requires a GitHub token", spec.Owner, spec.Name)
	}

	cloneURL, err := f.createFork(ctx, spec)
	if err != nil {
		return "", err
	}

	clonePath := filepath.Join(baseDir, spec.Name)
	if _, err := os.Stat(clonePath); err == nil {
		log.Info().Str("path", clonePath).Msg("Fork already cloned, skipping clone")
		return clonePath, nil
	}

	_, err = git.PlainCloneContext(ctx, clonePath, false, &git.CloneOptions{
		URL: cloneURL,
		Auth: &githttp.BasicAuth{
			Username: "appsmith",
			Password: f.Token,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone fork %s: %w", cloneURL, err)
	}

	log.Info().Str("path", clonePath).Str("url", cloneURL).Msg("Cloned fork")
	return clonePath, nil
}

// createFork asks GitHub to fork the upstream repository. Forking is
// idempotent on GitHub's side: an existing fork is returned as-is.
func (f *Forker) createFork(ctx context.Context, spec ForkSpec) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/forks", f.apiBase(), spec.Owner, spec.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("failed to build fork request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.Token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("fork request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read fork response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fork request returned status %d: %s", resp.StatusCode, string(body))
	}

	var fork struct {
		CloneURL string `json:"clone_url"`
		FullName string `json:"full_name"`
	}
	if err := json.Unmarshal(body, &fork); err != nil {
		return "", fmt.Errorf("failed to parse fork response: %w", err)
	}
	if fork.CloneURL == "" {
		return "", fmt.Errorf("fork response for %s/%s had no clone_url", spec.Owner, spec.Name)
	}

	log.Info().Str("fork", fork.FullName).Msg("Fork ready")
	return fork.CloneURL, nil
}
