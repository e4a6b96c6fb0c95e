package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v3"

	"appsmith/anythingllm"
	"appsmith/ci"
	"appsmith/codegen"
	"appsmith/common"
	"appsmith/dataset"
	"appsmith/repo"
	"appsmith/secret_manager"
	"appsmith/testrunner"
)

const datasetFileName = "data.csv"

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Generate an app, its tests and docs, commit them, and run the tests",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "code-model", Usage: "Model for code generation (overrides workspace default)"},
			&cli.StringFlag{Name: "doc-model", Usage: "Model for test and documentation generation (overrides workspace default)"},
			&cli.StringFlag{Name: "chat-model", Usage: "Override the workspace default chat model"},
			&cli.StringFlag{Name: "agent-model", Usage: "Override the workspace default agent model"},
			&cli.StringFlag{Name: "api-base", Usage: "AnythingLLM API base URL"},
			&cli.StringFlag{Name: "workspace", Usage: "Workspace slug for API requests"},
			&cli.StringFlag{Name: "mode", Usage: "Chat mode (chat or agent)"},
			&cli.StringFlag{Name: "language", Usage: "Target language (python, julia, or html)"},
			&cli.StringFlag{Name: "fork-repo", Usage: "GitHub repository to fork (e.g., user/repo)"},
			&cli.StringFlag{Name: "remote-url", Usage: "Git remote URL for pushing changes"},
			&cli.IntFlag{Name: "http-port", Usage: "Port the generated HTML app serves data.csv on"},
			&cli.StringFlag{Name: "repo-path", Usage: "Path of the local repository to generate into"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := resolveRunOptions(cmd)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runPipeline(ctx, opts)
		},
	}
}

type runOptions struct {
	CodeModel   string
	DocModel    string
	ChatModel   string
	AgentModel  string
	APIBase     string
	Workspace   string
	Mode        anythingllm.Mode
	Language    common.Language
	ForkRepo    string
	RemoteURL   string
	HTTPPort    int
	RepoPath    string
	DatasetURLs []string
}

// resolveRunOptions merges, in order of precedence: command-line flags, the
// user-level config file, and the SMITH_* environment defaults.
func resolveRunOptions(cmd *cli.Command) (runOptions, error) {
	cfg, err := common.LoadLocalConfig()
	if err != nil {
		return runOptions{}, fmt.Errorf("failed to load local config: %w", err)
	}

	pick := func(flagValue, configValue, fallback string) string {
		if flagValue != "" {
			return flagValue
		}
		if configValue != "" {
			return configValue
		}
		return fallback
	}

	mode, err := anythingllm.StringToMode(pick(cmd.String("mode"), cfg.Mode, "chat"))
	if err != nil {
		return runOptions{}, err
	}
	language, err := common.StringToLanguage(pick(cmd.String("language"), cfg.Language, "python"))
	if err != nil {
		return runOptions{}, err
	}

	httpPort := int(cmd.Int("http-port"))
	if httpPort == 0 {
		httpPort = cfg.HTTPPort
	}
	if httpPort == 0 {
		httpPort = common.GetHTTPPort()
	}

	datasetURLs := cfg.DatasetURLs
	if len(datasetURLs) == 0 {
		datasetURLs = common.DefaultDatasetURLs
	}

	return runOptions{
		CodeModel:   cmd.String("code-model"),
		DocModel:    cmd.String("doc-model"),
		ChatModel:   cmd.String("chat-model"),
		AgentModel:  cmd.String("agent-model"),
		APIBase:     pick(cmd.String("api-base"), cfg.APIBase, common.GetAPIBase()),
		Workspace:   pick(cmd.String("workspace"), cfg.Workspace, common.GetWorkspace()),
		Mode:        mode,
		Language:    language,
		ForkRepo:    cmd.String("fork-repo"),
		RemoteURL:   pick(cmd.String("remote-url"), cfg.RemoteURL, ""),
		HTTPPort:    httpPort,
		RepoPath:    pick(cmd.String("repo-path"), cfg.RepoPath, common.GetDefaultRepoPath()),
		DatasetURLs: datasetURLs,
	}, nil
}

func runPipeline(ctx context.Context, opts runOptions) error {
	secrets := secret_manager.GetSecretManager("")

	apiKey, err := secrets.GetSecret(secret_manager.AnythingLLMAPIKeySecretName)
	if err != nil || apiKey == "" {
		log.Error().Msg("ANYTHINGLLM_API_KEY is not set")
		return cli.Exit("ANYTHINGLLM_API_KEY is not set: export it or store it in the system keyring", 1)
	}

	client := anythingllm.NewClient(opts.APIBase, apiKey)
	available, workspaceConfig := client.CheckAvailability(ctx, opts.Workspace)
	if !available {
		return cli.Exit("Aborting due to inaccessible API or invalid workspace", 1)
	}

	if opts.ChatModel != "" || opts.AgentModel != "" {
		if workspaceConfig == nil {
			workspaceConfig = &anythingllm.WorkspaceConfig{}
		}
		if opts.ChatModel != "" {
			workspaceConfig.ChatModel = opts.ChatModel
		}
		if opts.AgentModel != "" {
			workspaceConfig.AgentModel = opts.AgentModel
		}
	}

	mode := opts.Mode
	if mode == anythingllm.ModeAgent && (workspaceConfig == nil || workspaceConfig.AgentProvider == "") {
		log.Warn().Msg("Agent mode selected but no agent provider configured. Falling back to chat mode.")
		mode = anythingllm.ModeChat
	}

	runID := ksuid.New().String()
	log.Info().
		Str("run_id", runID).
		Str("language", string(opts.Language)).
		Str("mode", string(mode)).
		Msg("Starting generation run")

	workingRepo, err := repo.Init(opts.RepoPath, opts.RemoteURL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to initialize repository: %v", err), 1)
	}

	if opts.ForkRepo != "" {
		if err := forkUpstream(ctx, secrets, opts); err != nil {
			return cli.Exit(fmt.Sprintf("Failed to fork %s: %v", opts.ForkRepo, err), 1)
		}
	}

	datasetOK := true
	if opts.Language.UsesDataset() {
		fetcher := &dataset.Fetcher{}
		datasetOK = fetcher.Fetch(ctx, datasetFetchSpec(opts))
		if !datasetOK {
			log.Error().Msg("Failed to download dataset. HTML and Python apps may not function correctly.")
		}
	}

	generator := codegen.NewGenerator(client)
	promptData := codegen.PromptData{HTTPPort: opts.HTTPPort, DatasetPath: datasetFileName}

	generate := func(prompt, model string, language common.Language) (*anythingllm.GenerationResult, error) {
		return generator.Generate(ctx, anythingllm.GenerationRequest{
			Workspace: opts.Workspace,
			Prompt:    prompt,
			Mode:      mode,
			Model:     model,
			Config:    workspaceConfig,
		}, language)
	}

	code, err := generate(codegen.CodePrompt(opts.Language, promptData), opts.CodeModel, opts.Language)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Code generation failed: %v", err), 1)
	}
	codeFile := opts.Language.ArtifactFile()
	if err := writeRepoFile(opts.RepoPath, codeFile, code.Text); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Info().Str("file", codeFile).Str("model", code.ModelUsed).Msg("Generated and saved application code")

	tests, err := generate(codegen.TestsPrompt(opts.Language, promptData), opts.DocModel, opts.Language.TestCodeLanguage())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Test generation failed: %v", err), 1)
	}
	testFile := opts.Language.TestFile()
	if err := writeRepoFile(opts.RepoPath, testFile, tests.Text); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Info().Str("file", testFile).Str("model", tests.ModelUsed).Msg("Generated and saved tests")

	docs, err := generate(codegen.DocsPrompt(opts.Language, promptData), opts.DocModel, opts.Language)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Documentation generation failed: %v", err), 1)
	}
	if err := writeRepoFile(opts.RepoPath, "README.md", docs.Text); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Info().Str("model", docs.ModelUsed).Msg("Generated and saved README.md")

	toCommit, err := writeScaffolding(opts)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	toCommit = append(toCommit, codeFile, testFile, "README.md")

	workflowPath, err := ci.WriteWorkflow(opts.RepoPath, opts.Language)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to generate CI workflow: %v", err), 1)
	}
	toCommit = append(toCommit, workflowPath)

	if datasetOK && opts.Language.UsesDataset() {
		toCommit = append(toCommit, datasetFileName)
	}

	if err := workingRepo.Stage(toCommit...); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to stage files: %v", err), 1)
	}
	message := fmt.Sprintf(
		"Add %s app, tests, docs, and CI workflow\n\nRun: %s\nCode model: %s\nDocs model: %s",
		opts.Language, runID, code.ModelUsed, docs.ModelUsed,
	)
	if err := workingRepo.Commit(message); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to commit: %v", err), 1)
	}

	runner := &testrunner.Runner{}
	results, err := runner.Run(ctx, opts.RepoPath, opts.Language, opts.HTTPPort)
	if err != nil {
		log.Error().Err(err).Msg("Could not run tests")
		results = err.Error()
	}
	fmt.Println("Test Results:\n" + results)
	fmt.Println("Changes committed.")
	return nil
}

// datasetFetchSpec builds the mirror download plan: per URL, up to three
// attempts two seconds apart on transient failures before falling through to
// the next mirror.
func datasetFetchSpec(opts runOptions) dataset.FetchSpec {
	return dataset.FetchSpec{
		URLs:        opts.DatasetURLs,
		Dest:        filepath.Join(opts.RepoPath, datasetFileName),
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
	}
}

// forkUpstream forks opts.ForkRepo into the authenticated account and clones
// it under the working repository, matching the layout `run` always used.
// Without a GitHub token the fork is skipped with a warning.
func forkUpstream(ctx context.Context, secrets secret_manager.SecretManager, opts runOptions) error {
	spec, err := repo.ParseForkSpec(opts.ForkRepo)
	if err != nil {
		return err
	}
	token, err := secrets.GetSecret(secret_manager.GithubTokenSecretName)
	if err != nil || token == "" {
		log.Warn().Str("fork_repo", opts.ForkRepo).Msg("GITHUB_TOKEN is not set, skipping fork")
		return nil
	}
	forker := &repo.Forker{Token: token}
	_, err = forker.Fork(ctx, spec, opts.RepoPath)
	return err
}

// writeScaffolding writes the language-specific support files around the
// generated artifacts and returns their repo-relative paths.
func writeScaffolding(opts runOptions) ([]string, error) {
	var written []string

	switch opts.Language {
	case common.Python:
		// package markers so the generated tests can import app.py relatively
		for _, initFile := range []string{"__init__.py", filepath.Join(opts.Language.TestDir(), "__init__.py")} {
			if err := writeRepoFile(opts.RepoPath, initFile, ""); err != nil {
				return nil, err
			}
			written = append(written, initFile)
		}
		if err := writeRepoFile(opts.RepoPath, opts.Language.ManifestFile(), "flask\npandas\npytest\n"); err != nil {
			return nil, err
		}
		written = append(written, opts.Language.ManifestFile())
	case common.Julia:
		initFile := filepath.Join(opts.Language.TestDir(), "__init__.py")
		if err := writeRepoFile(opts.RepoPath, initFile, ""); err != nil {
			return nil, err
		}
		written = append(written, initFile)
		// seed the project environment so the manifest is part of the
		// commit; the test run's Pkg.add fills in the dependencies
		if err := ensureRepoFile(opts.RepoPath, opts.Language.ManifestFile(), "[deps]\n"); err != nil {
			return nil, err
		}
		written = append(written, opts.Language.ManifestFile())
	case common.HTML:
		if err := testrunner.EnsureNodeProject(opts.RepoPath); err != nil {
			return nil, err
		}
		written = append(written, opts.Language.ManifestFile())
	}

	return written, nil
}

// ensureRepoFile writes content only when relPath does not exist yet, so a
// populated file from an earlier run is kept.
func ensureRepoFile(repoPath, relPath, content string) error {
	if _, err := os.Stat(filepath.Join(repoPath, relPath)); err == nil {
		return nil
	}
	return writeRepoFile(repoPath, relPath, content)
}

func writeRepoFile(repoPath, relPath, content string) error {
	path := filepath.Join(repoPath, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	return nil
}
