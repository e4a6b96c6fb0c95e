// Package repo is the version-control collaborator: it bootstraps the local
// working repository the generated artifacts are committed to.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"
)

const mainBranch = "main"

// Repo wraps a local git repository rooted at Path.
type Repo struct {
	Path string
	repo *git.Repository
}

// Init opens the repository at path, initializing a fresh one with an
// initial commit on main when none exists. When remoteURL is non-empty the
// origin remote is created or updated; a remote failure is a warning, never
// fatal.
func Init(path, remoteURL string) (*Repo, error) {
	repository, err := git.PlainOpen(path)
	switch {
	case err == nil:
		log.Info().Str("path", path).Msg("Existing Git repository found")
	case errors.Is(err, git.ErrRepositoryNotExists):
		repository, err = initFresh(path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	r := &Repo{Path: path, repo: repository}

	if err := r.ensureMainBranch(); err != nil {
		return nil, err
	}

	if remoteURL != "" {
		if err := r.setOrigin(remoteURL); err != nil {
			log.Warn().Err(err).Msg("Failed to set Git remote. Please set the remote manually with: git remote add origin <your-repo-url>")
		}
	}

	return r, nil
}

func initFresh(path string) (*git.Repository, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}

	repository, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(mainBranch),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init repository at %s: %w", path, err)
	}

	readmePath := filepath.Join(path, "README.md")
	if err := os.WriteFile(readmePath, []byte("# Project\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to write initial README: %w", err)
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		return nil, fmt.Errorf("failed to stage initial README: %w", err)
	}
	if _, err := worktree.Commit("Initial commit", commitOptions()); err != nil {
		return nil, fmt.Errorf("failed to create initial commit: %w", err)
	}

	log.Info().Str("path", path).Msg("Initialized new Git repository")
	return repository, nil
}

// ensureMainBranch moves a repository still on master over to main.
func (r *Repo) ensureMainBranch() error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if head.Name() != plumbing.NewBranchReferenceName("master") {
		return nil
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(mainBranch),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("failed to switch to main branch: %w", err)
	}
	log.Info().Msg("Renamed branch from 'master' to 'main'")
	return nil
}

func (r *Repo) setOrigin(remoteURL string) error {
	_, err := r.repo.Remote("origin")
	if err == nil {
		if err := r.repo.DeleteRemote("origin"); err != nil {
			return fmt.Errorf("failed to replace origin remote: %w", err)
		}
	} else if !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("failed to look up origin remote: %w", err)
	}

	_, err = r.repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURL},
	})
	if err != nil {
		return fmt.Errorf("failed to create origin remote: %w", err)
	}
	log.Info().Str("remote_url", remoteURL).Msg("Set Git remote 'origin'")
	return nil
}

// Stage adds the given repo-relative paths to the index. Paths that do not
// exist on disk are skipped with a warning so an optional artifact (e.g. a
// dataset that failed to download) does not fail the commit.
func (r *Repo) Stage(paths ...string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, path := range paths {
		if _, err := os.Stat(filepath.Join(r.Path, path)); err != nil {
			log.Warn().Str("path", path).Msg("Skipping missing file while staging")
			continue
		}
		if _, err := worktree.Add(path); err != nil {
			return fmt.Errorf("failed to stage %s: %w", path, err)
		}
	}
	return nil
}

// Commit records the staged changes.
func (r *Repo) Commit(message string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := worktree.Commit(message, commitOptions()); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	log.Info().Msg("Changes committed to repository")
	return nil
}

func commitOptions() *git.CommitOptions {
	return &git.CommitOptions{
		Author: &object.Signature{
			Name:  "appsmith",
			Email: "appsmith@localhost",
			When:  time.Now(),
		},
	}
}
