// Package ci generates the GitHub Actions workflow committed alongside the
// synthesized application so the fork runs its tests on every push.
package ci

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cbroglie/mustache"
	"github.com/rs/zerolog/log"

	"appsmith/common"
)

//go:embed templates/*
var templatesFS embed.FS

// WorkflowRelPath is where the workflow lands, relative to the repo root.
const WorkflowRelPath = ".github/workflows/ci.yml"

var workflowTemplate = panicParseMustache("ci.yml")

func panicParseMustache(name string) *mustache.Template {
	path := fmt.Sprintf("templates/%s.mustache", name)
	content, err := templatesFS.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("failed to read workflow template %s: %v", path, err))
	}
	tmpl, err := mustache.ParseString(string(content))
	if err != nil {
		panic(fmt.Sprintf("failed to parse workflow template %s: %v", path, err))
	}
	return tmpl
}

type workflowData struct {
	ToolchainName  string
	SetupAction    string
	VersionKey     string
	Version        string
	InstallCommand string
	TestCommand    string
}

func dataFor(language common.Language) (workflowData, error) {
	switch language {
	case common.Python:
		return workflowData{
			ToolchainName:  "Python",
			SetupAction:    "actions/setup-python@v4",
			VersionKey:     "python-version",
			Version:        "3.13",
			InstallCommand: "pip install -r requirements.txt",
			TestCommand:    "pytest tests/python --verbose",
		}, nil
	case common.Julia:
		return workflowData{
			ToolchainName:  "Julia",
			SetupAction:    "julia-actions/setup-julia@v1",
			VersionKey:     "version",
			Version:        "1.11",
			InstallCommand: `julia --project=. -e "using Pkg; Pkg.instantiate()"`,
			TestCommand:    `julia --project=. -e "cd(\"tests/julia\"); include(\"test_app.jl\")"`,
		}, nil
	case common.HTML:
		return workflowData{
			ToolchainName:  "Node.js",
			SetupAction:    "actions/setup-node@v3",
			VersionKey:     "node-version",
			Version:        "16",
			InstallCommand: "npm install",
			TestCommand:    "npm test",
		}, nil
	default:
		return workflowData{}, fmt.Errorf("no CI workflow defined for language %q", language)
	}
}

// WriteWorkflow renders the CI workflow for language into repoPath and
// returns the repo-relative path of the written file.
func WriteWorkflow(repoPath string, language common.Language) (string, error) {
	data, err := dataFor(language)
	if err != nil {
		return "", err
	}

	content, err := workflowTemplate.Render(data)
	if err != nil {
		return "", fmt.Errorf("failed to render CI workflow: %w", err)
	}

	workflowPath := filepath.Join(repoPath, WorkflowRelPath)
	if err := os.MkdirAll(filepath.Dir(workflowPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create workflow directory: %w", err)
	}
	if err := os.WriteFile(workflowPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write CI workflow: %w", err)
	}

	log.Info().Str("path", workflowPath).Msg("Generated GitHub Actions workflow")
	return WorkflowRelPath, nil
}
