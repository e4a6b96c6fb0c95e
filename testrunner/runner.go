// Package testrunner executes the generated test suite against the
// synthesized application and reports the tool output.
package testrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"appsmith/common"
)

const datasetCheckTimeout = 5 * time.Second

// Runner shells out to the per-language test tooling inside a repository.
type Runner struct {
	// HTTPClient is used for the served-dataset verification during HTML
	// runs. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

func (r *Runner) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

// ValidateTestFile checks that the expected test file for language exists
// and is not blank. Generated output occasionally sanitizes down to nothing;
// running the tooling against an empty suite would report a misleading pass.
func ValidateTestFile(repoPath string, language common.Language) error {
	testFile := filepath.Join(repoPath, language.TestFile())
	content, err := os.ReadFile(testFile)
	if err != nil {
		return fmt.Errorf("test file %s does not exist: %w", testFile, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("test file %s is empty", testFile)
	}
	return nil
}

// Run executes the test suite for language and returns the combined tool
// output. A failing suite is not an error: the output carries the failure
// detail and the caller reports it. Errors are reserved for not being able
// to run the tooling at all.
func (r *Runner) Run(ctx context.Context, repoPath string, language common.Language, httpPort int) (string, error) {
	if err := ValidateTestFile(repoPath, language); err != nil {
		return "", err
	}

	switch language {
	case common.Python:
		return r.runPython(ctx, repoPath)
	case common.HTML:
		return r.runHTML(ctx, repoPath, httpPort)
	case common.Julia:
		return r.runJulia(ctx, repoPath)
	default:
		return "", fmt.Errorf("no test runner for language %q", language)
	}
}

func (r *Runner) runPython(ctx context.Context, repoPath string) (string, error) {
	// the generated tests import app.py from the repo root
	env := append(os.Environ(), fmt.Sprintf("PYTHONPATH=%s:%s", repoPath, os.Getenv("PYTHONPATH")))
	return runCommand(ctx, repoPath, env, "pytest", "tests/python", "--verbose")
}

func (r *Runner) runJulia(ctx context.Context, repoPath string) (string, error) {
	setup := `using Pkg; Pkg.Registry.update(); Pkg.add(["Genie", "DataFrames", "CSV", "Test", "HTTP", "JSON3", "FilePaths"]); Pkg.instantiate()`
	if out, err := runCommand(ctx, repoPath, nil, "julia", "--project=.", "-e", setup); err != nil {
		return out, fmt.Errorf("failed to set up Julia project: %w", err)
	}

	script := fmt.Sprintf(`cd(%q); include("test_app.jl")`, common.Julia.TestDir())
	return runCommand(ctx, repoPath, nil, "julia", "--project=.", "-e", script)
}

func (r *Runner) runHTML(ctx context.Context, repoPath string, httpPort int) (string, error) {
	if err := EnsureNodeProject(repoPath); err != nil {
		return "", err
	}

	if out, err := runCommand(ctx, repoPath, nil, "npm", "install", "jest@29.7.0", "jest-environment-jsdom@29.7.0"); err != nil {
		log.Warn().Err(err).Str("output", out).Msg("Pinned jest install failed, retrying plain npm install")
		if out, err := runCommand(ctx, repoPath, nil, "npm", "install"); err != nil {
			return out, fmt.Errorf("npm install failed: %w", err)
		}
	}

	listOut, err := runCommand(ctx, repoPath, nil, "npm", "list", "jest", "jest-environment-jsdom")
	if err != nil {
		return listOut, fmt.Errorf("npm list failed: %w", err)
	}
	if !strings.Contains(listOut, "jest@29.7.0") || !strings.Contains(listOut, "jest-environment-jsdom@29.7.0") {
		return "Jest dependencies not installed", nil
	}

	r.verifyDatasetServed(ctx, httpPort)

	return runCommand(ctx, repoPath, nil, "npm", "test")
}

// verifyDatasetServed probes the locally served dataset the generated page
// loads. The check is informational only, a dead server never fails the run.
func (r *Runner) verifyDatasetServed(ctx context.Context, httpPort int) {
	url := fmt.Sprintf("http://localhost:%d/data.csv", httpPort)
	ctx, cancel := context.WithTimeout(ctx, datasetCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build dataset verification request")
		return
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Failed to fetch data.csv for HTML verification")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		log.Error().Err(err).Int("status", resp.StatusCode).Msg("Failed to read served data.csv")
		return
	}
	if strings.Contains(string(body), "Iris-setosa") {
		log.Info().Msg("HTML output verified: Iris dataset found in data.csv")
	} else {
		log.Error().Msg("HTML output verification failed: Iris dataset not found in data.csv")
	}
}

// EnsureNodeProject writes the minimal package.json the jest run needs when
// the repository does not carry one yet.
func EnsureNodeProject(repoPath string) error {
	packageJSONPath := filepath.Join(repoPath, "package.json")
	if _, err := os.Stat(packageJSONPath); err == nil {
		return nil
	}

	content := `{
  "name": "appsmith-app",
  "version": "0.1.0",
  "scripts": {
    "test": "jest --testPathPattern=tests/html"
  },
  "devDependencies": {
    "jest": "^29.7.0",
    "jest-environment-jsdom": "^29.7.0"
  },
  "jest": {
    "testMatch": ["**/tests/html/*.test.js"],
    "testEnvironment": "jsdom"
  }
}
`
	if err := os.WriteFile(packageJSONPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write package.json: %w", err)
	}
	log.Info().Str("path", packageJSONPath).Msg("Wrote default package.json for jest")
	return nil
}

// runCommand runs a tool in dir and returns its combined output. A non-zero
// exit is reported through the output, not the error.
func runCommand(ctx context.Context, dir string, env []string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}

	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.Info().Str("command", name).Int("exit_code", exitErr.ExitCode()).Msg("Command exited non-zero")
		return string(out), nil
	}
	if err != nil {
		return string(out), fmt.Errorf("failed to run %s: %w", name, err)
	}
	return string(out), nil
}
